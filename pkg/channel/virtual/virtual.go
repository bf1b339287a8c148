// Package virtual is an in-memory execution channel. It allocates object
// ids, keeps every object it is asked to create, populates the objects a
// switch creates on its own (ports, queues, scheduler groups, priority
// groups, default router and bridge), answers gets from stored values or
// schema defaults, and keeps counters. Tests use its fault injection and
// notification emission.
package virtual

import (
	"context"
	"fmt"
	"sync"

	"github.com/newtron-network/saimeta/pkg/channel"
	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/schema"
	"github.com/newtron-network/saimeta/pkg/util"
)

// Option configures a Channel.
type Option func(*config)

type config struct {
	ports           int
	queues          int
	schedulerGroups int
	priorityGroups  int
}

// WithPorts sets the number of front panel ports created with each switch.
func WithPorts(n int) Option {
	return func(c *config) { c.ports = n }
}

// WithPortObjects sets the queues, scheduler groups and ingress priority
// groups created with each port.
func WithPortObjects(queues, schedulerGroups, priorityGroups int) Option {
	return func(c *config) {
		c.queues = queues
		c.schedulerGroups = schedulerGroups
		c.priorityGroups = priorityGroups
	}
}

type object struct {
	sw    sai.OID
	attrs map[sai.AttrID]sai.Value
}

// Channel is the in-memory emulation. It is safe for concurrent use.
type Channel struct {
	mu       sync.Mutex
	schema   *schema.Schema
	cfg      config
	objects  map[sai.Key]*object
	next     map[sai.OID]uint64
	switches int
	counters map[sai.Key]map[sai.StatID]uint64
	sink     func(sai.Notification)
	calls    int
	closed   bool

	failNext  error
	failItems map[int]sai.Status
}

var _ channel.Channel = (*Channel)(nil)

// New returns an empty emulation.
func New(s *schema.Schema, opts ...Option) *Channel {
	cfg := config{ports: 4, queues: 2, schedulerGroups: 1, priorityGroups: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Channel{
		schema:   s,
		cfg:      cfg,
		objects:  make(map[sai.Key]*object),
		next:     make(map[sai.OID]uint64),
		counters: make(map[sai.Key]map[sai.StatID]uint64),
	}
}

// FailNext makes the next call fail with err as a whole, without effect.
func (c *Channel) FailNext(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = err
}

// FailItems makes the next bulk call report the given statuses for the
// given item positions, without effect for those items.
func (c *Channel) FailItems(items map[int]sai.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failItems = items
}

// Calls returns the number of calls received.
func (c *Channel) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Exists reports whether the emulation holds key.
func (c *Channel) Exists(key sai.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.objects[key]
	return ok
}

// SetCounter sets a counter value.
func (c *Channel) SetCounter(key sai.Key, id sai.StatID, v uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counters[key] == nil {
		c.counters[key] = make(map[sai.StatID]uint64)
	}
	c.counters[key][id] = v
}

// Dump returns every object with its stored attributes.
func (c *Channel) Dump() map[sai.Key][]sai.Attribute {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[sai.Key][]sai.Attribute, len(c.objects))
	for key, o := range c.objects {
		attrs := make([]sai.Attribute, 0, len(o.attrs))
		for id, v := range o.attrs {
			attrs = append(attrs, sai.Attribute{ID: id, Value: v})
		}
		out[key] = attrs
	}
	return out
}

// Emit hands n to the notification sink on the caller's goroutine.
func (c *Channel) Emit(n sai.Notification) {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	if sink != nil {
		sink(n)
	}
}

// SetNotificationSink implements channel.Channel.
func (c *Channel) SetNotificationSink(sink func(sai.Notification)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}

// Close implements channel.Channel.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.sink = nil
	return nil
}

// begin accounts for a call and returns an injected or closed error.
func (c *Channel) begin() error {
	c.calls++
	if c.closed {
		return fmt.Errorf("virtual channel: %w", util.ErrClosed)
	}
	if err := c.failNext; err != nil {
		c.failNext = nil
		return err
	}
	return nil
}

// Create implements channel.Channel.
func (c *Channel) Create(ctx context.Context, ot sai.ObjectType, sw sai.OID, attrs []sai.Attribute) (sai.OID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(); err != nil {
		return sai.NullOID, err
	}
	return c.create(ot, sw, attrs)
}

func (c *Channel) create(ot sai.ObjectType, sw sai.OID, attrs []sai.Attribute) (sai.OID, error) {
	if ot == sai.ObjectTypeSwitch {
		return c.createSwitch(attrs)
	}
	if _, ok := c.objects[sw]; !ok {
		return sai.NullOID, sai.Errorf(sai.StatusInvalidParameter, "switch %s does not exist", sw)
	}
	oid := c.allocate(ot, sw)
	c.objects[oid] = &object{sw: sw, attrs: attrMap(attrs)}
	return oid, nil
}

// CreateEntry implements channel.Channel.
func (c *Channel) CreateEntry(ctx context.Context, key sai.Key, attrs []sai.Attribute) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(); err != nil {
		return err
	}
	return c.createEntry(key, attrs)
}

func (c *Channel) createEntry(key sai.Key, attrs []sai.Attribute) error {
	if _, ok := c.objects[key]; ok {
		return sai.Errorf(sai.StatusAlreadyExists, "%s", key)
	}
	if _, ok := c.objects[key.SwitchID()]; !ok {
		return sai.Errorf(sai.StatusInvalidParameter, "switch %s does not exist", key.SwitchID())
	}
	c.objects[key] = &object{sw: key.SwitchID(), attrs: attrMap(attrs)}
	return nil
}

// Remove implements channel.Channel.
func (c *Channel) Remove(ctx context.Context, key sai.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(); err != nil {
		return err
	}
	return c.remove(key)
}

func (c *Channel) remove(key sai.Key) error {
	o, ok := c.objects[key]
	if !ok {
		return sai.Errorf(sai.StatusItemNotFound, "%s", key)
	}
	switch key.ObjectType() {
	case sai.ObjectTypeSwitch:
		for k, other := range c.objects {
			if other.sw == o.sw {
				delete(c.objects, k)
				delete(c.counters, k)
			}
		}
		return nil
	case sai.ObjectTypePort:
		for _, name := range portObjectLists {
			md, ok := c.schema.AttrByName(sai.ObjectTypePort, name)
			if !ok {
				continue
			}
			if list, ok := o.attrs[md.ID].(sai.ObjectList); ok {
				for _, r := range list.Items {
					delete(c.objects, r)
					delete(c.counters, r)
				}
			}
		}
	}
	delete(c.objects, key)
	delete(c.counters, key)
	return nil
}

// Set implements channel.Channel.
func (c *Channel) Set(ctx context.Context, key sai.Key, attr sai.Attribute) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(); err != nil {
		return err
	}
	return c.set(key, attr)
}

func (c *Channel) set(key sai.Key, attr sai.Attribute) error {
	o, ok := c.objects[key]
	if !ok {
		return sai.Errorf(sai.StatusItemNotFound, "%s", key)
	}
	o.attrs[attr.ID] = attr.Value
	return nil
}

// Get implements channel.Channel. Attributes never set are answered with
// the schema default.
func (c *Channel) Get(ctx context.Context, key sai.Key, ids []sai.AttrID) ([]sai.Attribute, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(); err != nil {
		return nil, err
	}
	o, ok := c.objects[key]
	if !ok {
		return nil, sai.Errorf(sai.StatusItemNotFound, "%s", key)
	}
	out := make([]sai.Attribute, len(ids))
	for i, id := range ids {
		v, ok := o.attrs[id]
		if !ok {
			md, known := c.schema.Attr(key.ObjectType(), id)
			if !known || md.Default == nil {
				return nil, sai.Errorf(sai.StatusAttributeNotSupported, "%s has no value for %s", key, c.schema.AttrName(key.ObjectType(), id))
			}
			v = md.Default
		}
		out[i] = sai.Attribute{ID: id, Value: v}
	}
	return out, nil
}

// BulkCreate implements channel.Channel.
func (c *Channel) BulkCreate(ctx context.Context, ot sai.ObjectType, sw sai.OID, items [][]sai.Attribute, mode sai.BulkMode) ([]sai.OID, []sai.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	oids := make([]sai.OID, len(items))
	if err := c.begin(); err != nil {
		return oids, nil, err
	}
	statuses := c.bulk(len(items), mode, func(i int) error {
		oid, err := c.create(ot, sw, items[i])
		oids[i] = oid
		return err
	})
	return oids, statuses, nil
}

// BulkCreateEntries implements channel.Channel.
func (c *Channel) BulkCreateEntries(ctx context.Context, keys []sai.Key, items [][]sai.Attribute, mode sai.BulkMode) ([]sai.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(); err != nil {
		return nil, err
	}
	return c.bulk(len(keys), mode, func(i int) error {
		return c.createEntry(keys[i], items[i])
	}), nil
}

// BulkRemove implements channel.Channel.
func (c *Channel) BulkRemove(ctx context.Context, keys []sai.Key, mode sai.BulkMode) ([]sai.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(); err != nil {
		return nil, err
	}
	return c.bulk(len(keys), mode, func(i int) error {
		return c.remove(keys[i])
	}), nil
}

// BulkSet implements channel.Channel.
func (c *Channel) BulkSet(ctx context.Context, keys []sai.Key, attrs []sai.Attribute, mode sai.BulkMode) ([]sai.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(); err != nil {
		return nil, err
	}
	return c.bulk(len(keys), mode, func(i int) error {
		return c.set(keys[i], attrs[i])
	}), nil
}

// bulk runs n items under mode, applying injected item failures.
func (c *Channel) bulk(n int, mode sai.BulkMode, item func(i int) error) []sai.Status {
	faults := c.failItems
	c.failItems = nil
	statuses := channel.Statuses(n, sai.StatusNotExecuted)
	for i := 0; i < n; i++ {
		if s, ok := faults[i]; ok {
			statuses[i] = s
		} else {
			statuses[i] = sai.StatusOf(item(i))
		}
		if statuses[i] != sai.StatusSuccess && mode == sai.BulkStopOnError {
			break
		}
	}
	return statuses
}

// GetStats implements channel.Channel.
func (c *Channel) GetStats(ctx context.Context, key sai.Key, ids []sai.StatID, mode sai.StatsMode) ([]uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(); err != nil {
		return nil, err
	}
	if _, ok := c.objects[key]; !ok {
		return nil, sai.Errorf(sai.StatusItemNotFound, "%s", key)
	}
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = c.counters[key][id]
		if mode == sai.StatsModeReadAndClear && c.counters[key] != nil {
			delete(c.counters[key], id)
		}
	}
	return out, nil
}

// ClearStats implements channel.Channel.
func (c *Channel) ClearStats(ctx context.Context, key sai.Key, ids []sai.StatID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(); err != nil {
		return err
	}
	if _, ok := c.objects[key]; !ok {
		return sai.Errorf(sai.StatusItemNotFound, "%s", key)
	}
	for _, id := range ids {
		delete(c.counters[key], id)
	}
	return nil
}

func (c *Channel) allocate(ot sai.ObjectType, sw sai.OID) sai.OID {
	c.next[sw]++
	return sai.NewOID(sw.SwitchIndex(), ot, sw.GlobalContext(), c.next[sw])
}

func attrMap(attrs []sai.Attribute) map[sai.AttrID]sai.Value {
	m := make(map[sai.AttrID]sai.Value, len(attrs))
	for _, a := range attrs {
		m[a.ID] = a.Value
	}
	return m
}
