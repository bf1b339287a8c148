// Package client is the upward API of the metadata layer. Every call runs
// inside the guarded region of one meta.Meta, is counted in Prometheus
// metrics and, when a recorder is configured, written to the operation
// record.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/newtron-network/saimeta/pkg/audit"
	"github.com/newtron-network/saimeta/pkg/channel"
	"github.com/newtron-network/saimeta/pkg/discovery"
	"github.com/newtron-network/saimeta/pkg/meta"
	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/schema"
	"github.com/newtron-network/saimeta/pkg/util"
)

// Options configures a Client.
type Options struct {
	Schema  *schema.Schema
	Channel channel.Channel

	// Registerer receives the client metrics. Nil leaves them unregistered.
	Registerer prometheus.Registerer

	// Recorder receives one event per operation. Nil uses the audit
	// package's default recorder, which records nothing until set.
	Recorder audit.Recorder

	// QueueSize bounds the notification queue (DefaultQueueSize when zero).
	QueueSize int

	// Observer, when set, sees every notification after processing,
	// together with the processing error.
	Observer func(sai.Notification, error)
}

// Client serializes access to the metadata layer and its channel.
type Client struct {
	schema        *schema.Schema
	channel       channel.Channel
	guard         *meta.Guarded
	metrics       *metrics
	recorder      audit.Recorder
	notifications *NotificationProcessor
	connected     bool
}

// New returns a client over opts.Channel. Call Connect before use.
func New(opts Options) (*Client, error) {
	if opts.Schema == nil {
		return nil, errors.New("client: schema is required")
	}
	if opts.Channel == nil {
		return nil, errors.New("client: channel is required")
	}
	c := &Client{
		schema:   opts.Schema,
		channel:  opts.Channel,
		guard:    meta.NewGuarded(meta.New(opts.Schema, opts.Channel)),
		metrics:  newMetrics(opts.Registerer),
		recorder: opts.Recorder,
	}
	c.notifications = newNotificationProcessor(c.guard, opts.QueueSize, c.metrics, c.record, opts.Observer)
	return c, nil
}

// Connect warm starts from src when it is not nil, then starts
// notification delivery.
func (c *Client) Connect(ctx context.Context, src discovery.Source) error {
	if c.connected {
		return fmt.Errorf("client: %w", util.ErrAlreadyConnected)
	}
	if src != nil {
		start := time.Now()
		ev := audit.NewEvent(audit.OpPopulate, nil)
		records, err := src.Records(ctx)
		if err == nil {
			ev.WithItems(len(records))
			err = c.guard.Do(func(m *meta.Meta) error { return m.Populate(records) })
		}
		c.observe(ev, start, err)
		if err != nil {
			return fmt.Errorf("warm start: %w", err)
		}
		util.Infof("warm start loaded %d objects", len(records))
	}
	c.channel.SetNotificationSink(c.notifications.Enqueue)
	c.notifications.Start()
	c.connected = true
	return nil
}

// Close stops notification delivery and closes the channel.
func (c *Client) Close() error {
	c.channel.SetNotificationSink(nil)
	c.notifications.Stop()
	return c.channel.Close()
}

// Notifications returns the notification processor.
func (c *Client) Notifications() *NotificationProcessor { return c.notifications }

// Inspect runs fn inside the guarded region. fn must not retain m.
func (c *Client) Inspect(fn func(m *meta.Meta) error) error {
	return c.guard.Do(fn)
}

// Create creates an OID object.
func (c *Client) Create(ctx context.Context, ot sai.ObjectType, sw sai.OID, attrs []sai.Attribute) (sai.OID, error) {
	start := time.Now()
	var oid sai.OID
	err := c.guard.Do(func(m *meta.Meta) error {
		var err error
		oid, err = m.Create(ctx, ot, sw, attrs)
		return err
	})
	ev := audit.NewEvent(audit.OpCreate, nil).WithObjectType(ot).WithAttrs(c.render(ot, attrs))
	if ot != sai.ObjectTypeSwitch {
		ev.WithSwitch(sw)
	}
	if !oid.IsNull() {
		ev.WithKey(oid).WithSwitch(oid.SwitchID())
	}
	c.observe(ev, start, err)
	return oid, err
}

// CreateEntry creates a non-OID object.
func (c *Client) CreateEntry(ctx context.Context, key sai.Key, attrs []sai.Attribute) error {
	start := time.Now()
	err := c.guard.Do(func(m *meta.Meta) error { return m.CreateEntry(ctx, key, attrs) })
	c.observe(audit.NewEvent(audit.OpCreate, key).WithAttrs(c.render(key.ObjectType(), attrs)), start, err)
	return err
}

// Remove removes an object.
func (c *Client) Remove(ctx context.Context, key sai.Key) error {
	start := time.Now()
	err := c.guard.Do(func(m *meta.Meta) error { return m.Remove(ctx, key) })
	c.observe(audit.NewEvent(audit.OpRemove, key), start, err)
	return err
}

// Set sets one attribute.
func (c *Client) Set(ctx context.Context, key sai.Key, attr sai.Attribute) error {
	start := time.Now()
	err := c.guard.Do(func(m *meta.Meta) error { return m.Set(ctx, key, attr) })
	ev := audit.NewEvent(audit.OpSet, key).WithAttrs(c.render(key.ObjectType(), []sai.Attribute{attr}))
	c.observe(ev, start, err)
	return err
}

// Get reads attributes.
func (c *Client) Get(ctx context.Context, key sai.Key, ids []sai.AttrID) ([]sai.Attribute, error) {
	start := time.Now()
	var attrs []sai.Attribute
	err := c.guard.Do(func(m *meta.Meta) error {
		var err error
		attrs, err = m.Get(ctx, key, ids)
		return err
	})
	c.observe(audit.NewEvent(audit.OpGet, key).WithItems(len(ids)), start, err)
	return attrs, err
}

// BulkCreate creates OID objects of one type.
func (c *Client) BulkCreate(ctx context.Context, ot sai.ObjectType, sw sai.OID, items [][]sai.Attribute, mode sai.BulkMode) ([]sai.OID, []sai.Status, error) {
	start := time.Now()
	var oids []sai.OID
	var statuses []sai.Status
	err := c.guard.Do(func(m *meta.Meta) error {
		var err error
		oids, statuses, err = m.BulkCreate(ctx, ot, sw, items, mode)
		return err
	})
	ev := audit.NewEvent(audit.OpBulkCreate, nil).WithObjectType(ot).WithSwitch(sw).WithItems(len(items))
	c.observeBulk(ev, start, statuses, err)
	return oids, statuses, err
}

// BulkCreateEntries creates non-OID objects.
func (c *Client) BulkCreateEntries(ctx context.Context, keys []sai.Key, items [][]sai.Attribute, mode sai.BulkMode) ([]sai.Status, error) {
	start := time.Now()
	var statuses []sai.Status
	err := c.guard.Do(func(m *meta.Meta) error {
		var err error
		statuses, err = m.BulkCreateEntries(ctx, keys, items, mode)
		return err
	})
	c.observeBulk(bulkEvent(audit.OpBulkCreate, keys), start, statuses, err)
	return statuses, err
}

// BulkRemove removes objects.
func (c *Client) BulkRemove(ctx context.Context, keys []sai.Key, mode sai.BulkMode) ([]sai.Status, error) {
	start := time.Now()
	var statuses []sai.Status
	err := c.guard.Do(func(m *meta.Meta) error {
		var err error
		statuses, err = m.BulkRemove(ctx, keys, mode)
		return err
	})
	c.observeBulk(bulkEvent(audit.OpBulkRemove, keys), start, statuses, err)
	return statuses, err
}

// BulkSet sets one attribute on each object.
func (c *Client) BulkSet(ctx context.Context, keys []sai.Key, attrs []sai.Attribute, mode sai.BulkMode) ([]sai.Status, error) {
	start := time.Now()
	var statuses []sai.Status
	err := c.guard.Do(func(m *meta.Meta) error {
		var err error
		statuses, err = m.BulkSet(ctx, keys, attrs, mode)
		return err
	})
	c.observeBulk(bulkEvent(audit.OpBulkSet, keys), start, statuses, err)
	return statuses, err
}

// GetStats reads counters.
func (c *Client) GetStats(ctx context.Context, key sai.Key, ids []sai.StatID) ([]uint64, error) {
	return c.GetStatsExt(ctx, key, ids, sai.StatsModeRead)
}

// GetStatsExt reads counters in the given mode.
func (c *Client) GetStatsExt(ctx context.Context, key sai.Key, ids []sai.StatID, mode sai.StatsMode) ([]uint64, error) {
	start := time.Now()
	var values []uint64
	err := c.guard.Do(func(m *meta.Meta) error {
		var err error
		values, err = m.GetStatsExt(ctx, key, ids, mode)
		return err
	})
	c.observe(audit.NewEvent(audit.OpGetStats, key).WithItems(len(ids)), start, err)
	return values, err
}

// ClearStats zeroes counters.
func (c *Client) ClearStats(ctx context.Context, key sai.Key, ids []sai.StatID) error {
	start := time.Now()
	err := c.guard.Do(func(m *meta.Meta) error { return m.ClearStats(ctx, key, ids) })
	c.observe(audit.NewEvent(audit.OpClearStats, key).WithItems(len(ids)), start, err)
	return err
}

// ObjectTypeQuery decodes the object type of oid.
func (c *Client) ObjectTypeQuery(oid sai.OID) sai.ObjectType {
	var ot sai.ObjectType
	c.guard.Do(func(m *meta.Meta) error {
		ot = m.ObjectTypeQuery(oid)
		return nil
	})
	return ot
}

// SwitchIDQuery decodes the switch of oid.
func (c *Client) SwitchIDQuery(oid sai.OID) sai.OID {
	var sw sai.OID
	c.guard.Do(func(m *meta.Meta) error {
		sw = m.SwitchIDQuery(oid)
		return nil
	})
	return sw
}

// AttributeCapability reports the legality of an attribute on key.
func (c *Client) AttributeCapability(key sai.Key, id sai.AttrID) (meta.AttrCapability, error) {
	var capability meta.AttrCapability
	err := c.guard.Do(func(m *meta.Meta) error {
		var err error
		capability, err = m.AttributeCapability(key, id)
		return err
	})
	return capability, err
}

// StatsCapability lists the counters of an object type.
func (c *Client) StatsCapability(ot sai.ObjectType) ([]meta.StatCapability, error) {
	var caps []meta.StatCapability
	err := c.guard.Do(func(m *meta.Meta) error {
		var err error
		caps, err = m.StatsCapability(ot)
		return err
	})
	return caps, err
}

// ObjectCounts returns the live object count per type.
func (c *Client) ObjectCounts() map[sai.ObjectType]int {
	var counts map[sai.ObjectType]int
	c.guard.Do(func(m *meta.Meta) error {
		counts = m.ObjectCounts()
		return nil
	})
	return counts
}

func bulkEvent(op string, keys []sai.Key) *audit.Event {
	ev := audit.NewEvent(op, nil).WithItems(len(keys))
	if len(keys) > 0 {
		ev.WithObjectType(keys[0].ObjectType())
		if sw := keys[0].SwitchID(); !sw.IsNull() {
			ev.WithSwitch(sw)
		}
	}
	return ev
}

// render formats attributes by name for the operation record.
func (c *Client) render(ot sai.ObjectType, attrs []sai.Attribute) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		md, ok := c.schema.Attr(ot, a.ID)
		if !ok {
			out[fmt.Sprintf("%d", a.ID)] = fmt.Sprintf("%v", a.Value)
			continue
		}
		out[md.Name] = md.Format(a.Value)
	}
	return out
}

func (c *Client) observe(ev *audit.Event, start time.Time, err error) {
	elapsed := time.Since(start)
	status := sai.StatusOf(err)
	c.metrics.operations.WithLabelValues(ev.Operation, status.String()).Inc()
	c.metrics.duration.WithLabelValues(ev.Operation).Observe(elapsed.Seconds())

	if err != nil {
		log := util.WithOperation(ev.Operation).WithField("object_type", ev.ObjectType)
		if ev.Key != "" {
			log = log.WithField("key", ev.Key)
		}
		if status == sai.StatusChannelIndeterminate || status == sai.StatusFailure {
			log.Errorf("%v", err)
		} else {
			log.Debugf("rejected: %v", err)
		}
	}
	c.record(ev.WithResult(err).WithDuration(elapsed))
}

func (c *Client) observeBulk(ev *audit.Event, start time.Time, statuses []sai.Status, err error) {
	for _, s := range statuses {
		c.metrics.bulkItems.WithLabelValues(ev.Operation, s.String()).Inc()
	}
	c.observe(ev, start, err)
}

func (c *Client) record(ev *audit.Event) {
	var err error
	if c.recorder != nil {
		err = c.recorder.Record(ev)
	} else {
		err = audit.Record(ev)
	}
	if err != nil {
		util.Warnf("recording %s: %v", ev.Operation, err)
	}
}
