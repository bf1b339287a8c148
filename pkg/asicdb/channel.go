package asicdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/saimeta/pkg/channel"
	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/schema"
	"github.com/newtron-network/saimeta/pkg/util"
)

// Port attributes naming the objects the switch created with a port.
var portObjectLists = []string{
	"SAI_PORT_ATTR_QOS_QUEUE_LIST",
	"SAI_PORT_ATTR_QOS_SCHEDULER_GROUP_LIST",
	"SAI_PORT_ATTR_INGRESS_PRIORITY_GROUP_LIST",
}

// Channel applies operations by writing ASIC_DB. Writes of one call go
// through a single MULTI/EXEC pipeline, so a call is applied entirely or
// not at all.
type Channel struct {
	client *Client
	schema *schema.Schema

	mu     sync.Mutex
	sink   func(sai.Notification)
	sub    *redis.PubSub
	wg     sync.WaitGroup
	closed bool
}

var _ channel.Channel = (*Channel)(nil)

// NewChannel creates a channel writing through client.
func NewChannel(client *Client, s *schema.Schema) *Channel {
	return &Channel{client: client, schema: s}
}

func (c *Channel) Create(ctx context.Context, ot sai.ObjectType, sw sai.OID, attrs []sai.Attribute) (sai.OID, error) {
	fields, err := EncodeAttrs(c.schema, ot, attrs)
	if err != nil {
		return sai.NullOID, err
	}
	var oid sai.OID
	if ot == sai.ObjectTypeSwitch {
		oid, err = c.allocateSwitch(ctx)
	} else {
		var first uint64
		first, err = c.allocate(ctx, 1)
		oid = sai.NewOID(sw.SwitchIndex(), ot, sw.GlobalContext(), first)
	}
	if err != nil {
		return sai.NullOID, err
	}
	err = c.exec(ctx, "create "+oid.String(), func(pipe redis.Pipeliner) {
		pipe.HSet(ctx, ObjectKey(oid), hsetArgs(fields)...)
	})
	if err != nil {
		return sai.NullOID, err
	}
	return oid, nil
}

func (c *Channel) CreateEntry(ctx context.Context, key sai.Key, attrs []sai.Attribute) error {
	fields, err := EncodeAttrs(c.schema, key.ObjectType(), attrs)
	if err != nil {
		return err
	}
	if err := c.mustNotExist(ctx, key); err != nil {
		return err
	}
	return c.exec(ctx, "create "+key.String(), func(pipe redis.Pipeliner) {
		pipe.HSet(ctx, ObjectKey(key), hsetArgs(fields)...)
	})
}

func (c *Channel) Remove(ctx context.Context, key sai.Key) error {
	if err := c.mustExist(ctx, key); err != nil {
		return err
	}
	keys, err := c.removalKeys(ctx, key)
	if err != nil {
		return err
	}
	return c.exec(ctx, "remove "+key.String(), func(pipe redis.Pipeliner) {
		pipe.Del(ctx, keys...)
	})
}

func (c *Channel) Set(ctx context.Context, key sai.Key, attr sai.Attribute) error {
	fields, err := EncodeAttrs(c.schema, key.ObjectType(), []sai.Attribute{attr})
	if err != nil {
		return err
	}
	if err := c.mustExist(ctx, key); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	return c.exec(ctx, "set "+key.String(), func(pipe redis.Pipeliner) {
		c.queueSet(ctx, pipe, key, fields)
	})
}

func (c *Channel) Get(ctx context.Context, key sai.Key, ids []sai.AttrID) ([]sai.Attribute, error) {
	ot := key.ObjectType()
	mds := make([]*schema.AttrMetadata, len(ids))
	names := make([]string, len(ids))
	for i, id := range ids {
		md, ok := c.schema.Attr(ot, id)
		if !ok {
			return nil, sai.Errorf(sai.StatusUnknownAttribute, "%s attribute %d", ot, id)
		}
		mds[i], names[i] = md, md.Name
	}
	if err := c.mustExist(ctx, key); err != nil {
		return nil, err
	}
	vals, err := c.client.asic.HMGet(ctx, ObjectKey(key), names...).Result()
	if err != nil {
		return nil, readErr("get "+key.String(), err)
	}

	out := make([]sai.Attribute, len(ids))
	for i, md := range mds {
		v, err := decodeField(md, vals[i])
		if err != nil {
			return nil, err
		}
		out[i] = sai.Attribute{ID: md.ID, Value: v}
	}
	return out, nil
}

// decodeField parses one HMGET result, falling back to the attribute's
// default when the field is absent.
func decodeField(md *schema.AttrMetadata, raw interface{}) (sai.Value, error) {
	if md.Kind == sai.KindPointer {
		return sai.Pointer{}, nil
	}
	text, ok := raw.(string)
	if !ok {
		if md.Default != nil {
			return md.Default, nil
		}
		return nil, sai.Errorf(sai.StatusAttributeNotSupported, "%s has no value", md.Name)
	}
	v, err := md.Parse(text)
	if err != nil {
		return nil, sai.Errorf(sai.StatusFailure, "%s: %v", md.Name, err)
	}
	return v, nil
}

func (c *Channel) BulkCreate(ctx context.Context, ot sai.ObjectType, sw sai.OID, items [][]sai.Attribute, mode sai.BulkMode) ([]sai.OID, []sai.Status, error) {
	if ot == sai.ObjectTypeSwitch {
		return nil, nil, sai.Errorf(sai.StatusInvalidParameter, "switches cannot be created in bulk")
	}
	encoded := make([]map[string]string, len(items))
	oids := make([]sai.OID, len(items))
	var accepted []int
	statuses, err := c.bulk(ctx, "bulk create", len(items), mode,
		func(i int) error {
			fields, err := EncodeAttrs(c.schema, ot, items[i])
			if err != nil {
				return err
			}
			encoded[i] = fields
			accepted = append(accepted, i)
			return nil
		},
		func(ctx context.Context, pipe redis.Pipeliner) error {
			if len(accepted) == 0 {
				return nil
			}
			first, err := c.allocate(ctx, len(accepted))
			if err != nil {
				return err
			}
			for j, i := range accepted {
				oids[i] = sai.NewOID(sw.SwitchIndex(), ot, sw.GlobalContext(), first+uint64(j))
				pipe.HSet(ctx, ObjectKey(oids[i]), hsetArgs(encoded[i])...)
			}
			return nil
		})
	if err != nil {
		return nil, nil, err
	}
	return oids, statuses, nil
}

func (c *Channel) BulkCreateEntries(ctx context.Context, keys []sai.Key, items [][]sai.Attribute, mode sai.BulkMode) ([]sai.Status, error) {
	if len(keys) != len(items) {
		return nil, sai.Errorf(sai.StatusInvalidParameter, "%d keys for %d attribute lists", len(keys), len(items))
	}
	encoded := make([]map[string]string, len(items))
	var accepted []int
	return c.bulk(ctx, "bulk create", len(keys), mode,
		func(i int) error {
			fields, err := EncodeAttrs(c.schema, keys[i].ObjectType(), items[i])
			if err != nil {
				return err
			}
			if err := c.mustNotExist(ctx, keys[i]); err != nil {
				return err
			}
			encoded[i] = fields
			accepted = append(accepted, i)
			return nil
		},
		func(ctx context.Context, pipe redis.Pipeliner) error {
			for _, i := range accepted {
				pipe.HSet(ctx, ObjectKey(keys[i]), hsetArgs(encoded[i])...)
			}
			return nil
		})
}

func (c *Channel) BulkRemove(ctx context.Context, keys []sai.Key, mode sai.BulkMode) ([]sai.Status, error) {
	var del []string
	return c.bulk(ctx, "bulk remove", len(keys), mode,
		func(i int) error {
			if err := c.mustExist(ctx, keys[i]); err != nil {
				return err
			}
			k, err := c.removalKeys(ctx, keys[i])
			if err != nil {
				return err
			}
			del = append(del, k...)
			return nil
		},
		func(ctx context.Context, pipe redis.Pipeliner) error {
			if len(del) > 0 {
				pipe.Del(ctx, del...)
			}
			return nil
		})
}

func (c *Channel) BulkSet(ctx context.Context, keys []sai.Key, attrs []sai.Attribute, mode sai.BulkMode) ([]sai.Status, error) {
	if len(keys) != len(attrs) {
		return nil, sai.Errorf(sai.StatusInvalidParameter, "%d keys for %d attributes", len(keys), len(attrs))
	}
	encoded := make([]map[string]string, len(keys))
	var accepted []int
	return c.bulk(ctx, "bulk set", len(keys), mode,
		func(i int) error {
			fields, err := EncodeAttrs(c.schema, keys[i].ObjectType(), []sai.Attribute{attrs[i]})
			if err != nil {
				return err
			}
			if err := c.mustExist(ctx, keys[i]); err != nil {
				return err
			}
			encoded[i] = fields
			accepted = append(accepted, i)
			return nil
		},
		func(ctx context.Context, pipe redis.Pipeliner) error {
			for _, i := range accepted {
				if len(encoded[i]) > 0 {
					c.queueSet(ctx, pipe, keys[i], encoded[i])
				}
			}
			return nil
		})
}

// bulk checks items in order, then writes every accepted item in one
// pipeline. Under stop-on-error checking ends at the first rejected item.
func (c *Channel) bulk(ctx context.Context, op string, n int, mode sai.BulkMode,
	check func(i int) error, queue func(context.Context, redis.Pipeliner) error) ([]sai.Status, error) {
	if n == 0 {
		return nil, sai.Errorf(sai.StatusInvalidParameter, "%s: no items", op)
	}
	statuses := channel.Statuses(n, sai.StatusNotExecuted)
	var accepted []int
	for i := 0; i < n; i++ {
		if err := check(i); err != nil {
			statuses[i] = sai.StatusOf(err)
			if mode == sai.BulkStopOnError {
				break
			}
			continue
		}
		accepted = append(accepted, i)
	}
	if len(accepted) == 0 {
		return statuses, nil
	}

	var queueErr error
	err := c.exec(ctx, op, func(pipe redis.Pipeliner) {
		queueErr = queue(ctx, pipe)
	})
	if queueErr != nil {
		return nil, queueErr
	}
	if err != nil {
		return nil, err
	}
	for _, i := range accepted {
		statuses[i] = sai.StatusSuccess
	}
	return statuses, nil
}

func (c *Channel) GetStats(ctx context.Context, key sai.Key, ids []sai.StatID, mode sai.StatsMode) ([]uint64, error) {
	names, err := c.statNames(key, ids)
	if err != nil {
		return nil, err
	}
	ckey := countersPrefix + key.String()
	vals, err := c.client.counters.HMGet(ctx, ckey, names...).Result()
	if err != nil {
		return nil, readErr("get stats "+key.String(), err)
	}
	out := make([]uint64, len(ids))
	for i, raw := range vals {
		text, ok := raw.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return nil, sai.Errorf(sai.StatusFailure, "counter %s of %s: %v", names[i], key, err)
		}
		out[i] = n
	}
	if mode == sai.StatsModeReadAndClear {
		if err := c.zeroCounters(ctx, ckey, names); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *Channel) ClearStats(ctx context.Context, key sai.Key, ids []sai.StatID) error {
	names, err := c.statNames(key, ids)
	if err != nil {
		return err
	}
	return c.zeroCounters(ctx, countersPrefix+key.String(), names)
}

func (c *Channel) statNames(key sai.Key, ids []sai.StatID) ([]string, error) {
	oi, ok := c.schema.Object(key.ObjectType())
	if !ok {
		return nil, sai.Errorf(sai.StatusInvalidParameter, "object type %s is not described by the schema", key.ObjectType())
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		if !oi.HasStat(id) {
			return nil, sai.Errorf(sai.StatusInvalidParameter, "%s has no counter %d", key.ObjectType(), id)
		}
		names[i] = oi.StatName(id)
	}
	return names, nil
}

func (c *Channel) zeroCounters(ctx context.Context, ckey string, names []string) error {
	args := make([]interface{}, 0, len(names)*2)
	for _, name := range names {
		args = append(args, name, "0")
	}
	pipe := c.client.counters.TxPipeline()
	pipe.HSet(ctx, ckey, args...)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return writeErr("clear stats", err)
	}
	return nil
}

// SetNotificationSink installs the sink and starts the NOTIFICATIONS
// listener on first use.
func (c *Channel) SetNotificationSink(sink func(sai.Notification)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
	if c.sub != nil || c.closed || sink == nil {
		return
	}
	c.sub = c.client.asic.Subscribe(context.Background(), notificationsChannel)
	c.wg.Add(1)
	go c.listen(c.sub.Channel())
}

func (c *Channel) currentSink() func(sai.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sink
}

// Close stops the listener and closes the Redis connections.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return util.ErrClosed
	}
	c.closed = true
	sub := c.sub
	c.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	c.wg.Wait()
	return c.client.Close()
}

// allocateSwitch takes the next switch index from SWITCHCOUNTER.
func (c *Channel) allocateSwitch(ctx context.Context) (sai.OID, error) {
	n, err := c.client.asic.Incr(ctx, switchCounterKey).Result()
	if err != nil {
		return sai.NullOID, readErr("allocating switch index", err)
	}
	if n < 1 || n > 256 {
		return sai.NullOID, sai.Errorf(sai.StatusFailure, "no switch index left")
	}
	return sai.NewSwitchOID(uint8(n-1), 0), nil
}

// allocate reserves n consecutive object indexes from VIDCOUNTER and
// returns the first. A reservation lost to a failed call only leaves a gap.
func (c *Channel) allocate(ctx context.Context, n int) (uint64, error) {
	last, err := c.client.asic.IncrBy(ctx, vidCounterKey, int64(n)).Result()
	if err != nil {
		return 0, readErr("allocating object index", err)
	}
	if last < int64(n) || uint64(last) > sai.MaxObjectIndex {
		return 0, sai.Errorf(sai.StatusFailure, "object index space exhausted")
	}
	return uint64(last) - uint64(n) + 1, nil
}

// removalKeys lists the ASIC_DB keys removing key deletes: every object of
// a switch, the objects a port was created with, or the key alone.
func (c *Channel) removalKeys(ctx context.Context, key sai.Key) ([]string, error) {
	keys := []string{ObjectKey(key)}
	switch key.ObjectType() {
	case sai.ObjectTypeSwitch:
		all, err := c.client.ObjectKeys(ctx)
		if err != nil {
			return nil, readErr("listing objects", err)
		}
		for _, k := range all {
			parsed, err := ParseObjectKey(k)
			if err != nil || parsed.ObjectType() == sai.ObjectTypeSwitch {
				continue
			}
			if parsed.SwitchID() == key.SwitchID() {
				keys = append(keys, k)
			}
		}
	case sai.ObjectTypePort:
		vals, err := c.client.asic.HMGet(ctx, ObjectKey(key), portObjectLists...).Result()
		if err != nil {
			return nil, readErr("reading port "+key.String(), err)
		}
		for i, raw := range vals {
			text, ok := raw.(string)
			if !ok {
				continue
			}
			md, ok := c.schema.AttrByName(sai.ObjectTypePort, portObjectLists[i])
			if !ok {
				continue
			}
			v, err := md.Parse(text)
			if err != nil {
				continue
			}
			for _, oid := range sai.ReferencedOIDs(v) {
				keys = append(keys, ObjectKey(oid))
			}
		}
	}
	return keys, nil
}

func (c *Channel) queueSet(ctx context.Context, pipe redis.Pipeliner, key sai.Key, fields map[string]string) {
	pipe.HSet(ctx, ObjectKey(key), hsetArgs(fields)...)
	pipe.HDel(ctx, ObjectKey(key), nullField)
}

func (c *Channel) mustExist(ctx context.Context, key sai.Key) error {
	n, err := c.client.asic.Exists(ctx, ObjectKey(key)).Result()
	if err != nil {
		return readErr("lookup "+key.String(), err)
	}
	if n == 0 {
		return sai.Errorf(sai.StatusItemNotFound, "%s %s", key.ObjectType(), key)
	}
	return nil
}

func (c *Channel) mustNotExist(ctx context.Context, key sai.Key) error {
	n, err := c.client.asic.Exists(ctx, ObjectKey(key)).Result()
	if err != nil {
		return readErr("lookup "+key.String(), err)
	}
	if n != 0 {
		return sai.Errorf(sai.StatusAlreadyExists, "%s %s", key.ObjectType(), key)
	}
	return nil
}

// exec runs the writes queued by fill as one MULTI/EXEC transaction.
func (c *Channel) exec(ctx context.Context, op string, fill func(redis.Pipeliner)) error {
	pipe := c.client.asic.TxPipeline()
	fill(pipe)
	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return writeErr(op, err)
	}
	return nil
}

// readErr maps a failed read. Reads change nothing, so the outcome is a
// plain failure.
func readErr(op string, err error) error {
	return sai.Errorf(sai.StatusFailure, "%s: %v", op, err)
}

// writeErr maps a failed write. A write that timed out or lost its
// connection may or may not have been applied.
func writeErr(op string, err error) error {
	if isIndeterminate(err) {
		return sai.Errorf(sai.StatusChannelIndeterminate, "%s: %v", op, err)
	}
	return sai.Errorf(sai.StatusFailure, "%s: %v", op, err)
}

func isIndeterminate(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Publish sends a raw payload on the NOTIFICATIONS channel.
func (c *Client) Publish(ctx context.Context, payload []byte) error {
	if err := c.asic.Publish(ctx, notificationsChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
