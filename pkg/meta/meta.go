// Package meta is the validation and object-graph consistency engine.
//
// Every operation is validated against the schema before it is forwarded
// to the execution channel, and the local view (store, reference graph,
// port-related set, key-attribute index, switch instances) changes only
// after the channel reports success. A Meta is not safe for concurrent
// use; callers serialize through Guarded.
package meta

import (
	"context"
	"sort"

	"github.com/newtron-network/saimeta/pkg/channel"
	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/schema"
	"github.com/newtron-network/saimeta/pkg/util"
)

// Meta owns the local view of every switch reachable through one channel.
type Meta struct {
	schema    *schema.Schema
	ch        channel.Channel
	store     *Store
	graph     *RefGraph
	ports     *PortRelatedSet
	keys      *AttrKeyIndex
	switches  map[sai.OID]*SwitchInstance
	validator *Validator
}

// New returns an empty Meta forwarding to ch.
func New(s *schema.Schema, ch channel.Channel) *Meta {
	store := NewStore()
	return &Meta{
		schema:    s,
		ch:        ch,
		store:     store,
		graph:     NewRefGraph(s, store),
		ports:     NewPortRelatedSet(),
		keys:      NewAttrKeyIndex(s),
		switches:  make(map[sai.OID]*SwitchInstance),
		validator: NewValidator(s, store),
	}
}

// Schema returns the attribute schema.
func (m *Meta) Schema() *schema.Schema { return m.schema }

// Store returns the object store.
func (m *Meta) Store() *Store { return m.store }

// Graph returns the reference graph.
func (m *Meta) Graph() *RefGraph { return m.graph }

// Ports returns the port-related set.
func (m *Meta) Ports() *PortRelatedSet { return m.ports }

// Switch returns the instance for a live switch.
func (m *Meta) Switch(id sai.OID) (*SwitchInstance, bool) {
	sw, ok := m.switches[id]
	return sw, ok
}

// Switches returns the ids of every live switch.
func (m *Meta) Switches() []sai.OID {
	out := make([]sai.OID, 0, len(m.switches))
	for id := range m.switches {
		out = append(out, id)
	}
	sortOIDs(out)
	return out
}

// IsEmpty reports whether no object is known.
func (m *Meta) IsEmpty() bool {
	return m.store.Len() == 0 && len(m.switches) == 0
}

// Clear drops all local state. The channel is not touched.
func (m *Meta) Clear() {
	m.store.Clear()
	m.graph.Clear()
	m.ports.Clear()
	m.keys.Clear()
	m.switches = make(map[sai.OID]*SwitchInstance)
}

// Create validates and creates an object-id keyed object. For a switch, sw
// is ignored.
func (m *Meta) Create(ctx context.Context, ot sai.ObjectType, sw sai.OID, attrs []sai.Attribute) (sai.OID, error) {
	if ot.IsEntry() {
		return sai.NullOID, sai.Errorf(sai.StatusInvalidParameter, "%s is keyed by an entry, not an object id", ot)
	}
	if ot == sai.ObjectTypeSwitch {
		sw = sai.NullOID
	} else if _, ok := m.switches[sw]; !ok {
		return sai.NullOID, sai.Errorf(sai.StatusInvalidParameter, "switch %s does not exist", sw)
	}

	if err := m.validator.Validate(Request{Op: OpCreate, Type: ot, Switch: sw, Attrs: attrs}); err != nil {
		util.WithObject(ot.String(), "").Debugf("create rejected: %v", err)
		return sai.NullOID, err
	}
	tuple, hasTuple := m.keys.Tuple(ot, sw, attrs)
	if hasTuple {
		if owner, ok := m.keys.Owner(tuple); ok {
			return sai.NullOID, sai.Errorf(sai.StatusInvalidParameter, "key attributes %s already used by %s", tuple, owner)
		}
	}

	oid, err := m.ch.Create(ctx, ot, sw, attrs)
	if err != nil {
		util.WithObject(ot.String(), "").Errorf("channel create failed: %v", err)
		return sai.NullOID, err
	}
	if err := m.checkCreatedOID(ot, sw, oid); err != nil {
		return sai.NullOID, unrecorded(ot, oid, err)
	}

	owner := sw
	var inst *SwitchInstance
	if ot == sai.ObjectTypeSwitch {
		owner = oid
		inst = newSwitchInstance(m.schema, oid)
		if err := inst.UpdateNotifications(attrs); err != nil {
			return sai.NullOID, unrecorded(ot, oid, err)
		}
	}
	if err := m.insert(oid, owner, attrs); err != nil {
		return sai.NullOID, unrecorded(ot, oid, err)
	}
	if hasTuple {
		m.keys.Insert(tuple, oid)
	}
	if inst != nil {
		m.switches[oid] = inst
		util.WithSwitch(oid).Info("switch created")
	}
	util.WithObject(ot.String(), oid.String()).Debugf("created with %d attributes", len(attrs))
	return oid, nil
}

// Remove validates and removes an object or entry.
func (m *Meta) Remove(ctx context.Context, key sai.Key) error {
	o, ok := m.store.Lookup(key)
	if !ok {
		return sai.Errorf(sai.StatusItemNotFound, "%s %s", key.ObjectType(), key)
	}
	if err := m.checkRemovable(o, nil); err != nil {
		util.WithObject(o.Type.String(), key.String()).Debugf("remove rejected: %v", err)
		return err
	}

	if err := m.ch.Remove(ctx, key); err != nil {
		util.WithObject(o.Type.String(), key.String()).Errorf("channel remove failed: %v", err)
		return err
	}
	m.applyRemove(o)
	util.WithObject(o.Type.String(), key.String()).Debug("removed")
	return nil
}

// Set validates and applies one attribute change.
func (m *Meta) Set(ctx context.Context, key sai.Key, attr sai.Attribute) error {
	o, ok := m.store.Lookup(key)
	if !ok {
		return sai.Errorf(sai.StatusItemNotFound, "%s %s", key.ObjectType(), key)
	}
	req := Request{Op: OpSet, Type: o.Type, Switch: o.Switch, Attrs: []sai.Attribute{attr}, Current: o}
	if err := m.validator.Validate(req); err != nil {
		util.WithObject(o.Type.String(), key.String()).Debugf("set rejected: %v", err)
		return err
	}

	if err := m.ch.Set(ctx, key, attr); err != nil {
		util.WithObject(o.Type.String(), key.String()).Errorf("channel set failed: %v", err)
		return err
	}
	return m.applySet(o, attr)
}

// Get validates a read, forwards it and snoops unknown object ids found in
// the result. Returned values are not stored.
func (m *Meta) Get(ctx context.Context, key sai.Key, ids []sai.AttrID) ([]sai.Attribute, error) {
	o, ok := m.store.Lookup(key)
	if !ok {
		return nil, sai.Errorf(sai.StatusItemNotFound, "%s %s", key.ObjectType(), key)
	}
	if err := m.validator.ValidateGet(o.Type, ids); err != nil {
		return nil, err
	}

	attrs, err := m.ch.Get(ctx, key, ids)
	if err != nil {
		return nil, err
	}
	if len(attrs) != len(ids) {
		return nil, sai.Errorf(sai.StatusFailure, "channel returned %d attributes for %d requested", len(attrs), len(ids))
	}
	m.postGet(o, attrs)
	return attrs, nil
}

// checkCreatedOID verifies the id a channel handed back for a create.
// unrecorded reports an object the channel created but the local view
// could not take. The two views now disagree.
func unrecorded(ot sai.ObjectType, key sai.Key, err error) error {
	util.WithObject(ot.String(), key.String()).Errorf("created on the channel but not recorded: %v", err)
	return sai.Errorf(sai.StatusChannelIndeterminate, "%s created on the channel but not recorded: %v", key, err)
}

func (m *Meta) checkCreatedOID(ot sai.ObjectType, sw, oid sai.OID) error {
	switch {
	case oid.IsNull():
		return sai.Errorf(sai.StatusFailure, "channel returned a null id for %s", ot)
	case oid.ObjectType() != ot:
		return sai.Errorf(sai.StatusFailure, "channel returned %s (type %s) for %s", oid, oid.ObjectType(), ot)
	case ot == sai.ObjectTypeSwitch && oid.SwitchID() != oid:
		return sai.Errorf(sai.StatusFailure, "channel returned malformed switch id %s", oid)
	case ot != sai.ObjectTypeSwitch && oid.SwitchID() != sw:
		return sai.Errorf(sai.StatusFailure, "channel returned %s, which is not on switch %s", oid, sw)
	case m.store.Exists(oid):
		return sai.Errorf(sai.StatusFailure, "channel returned %s, which is already in use", oid)
	}
	return nil
}

// checkRemovable decides whether o may be removed. Keys in pending are
// removals already accepted earlier in the same bulk call; references from
// them do not count.
func (m *Meta) checkRemovable(o *Object, pending map[sai.Key]bool) error {
	oid, isOID := o.Key.(sai.OID)
	if !isOID || o.Type == sai.ObjectTypeSwitch {
		return nil
	}
	if o.Type == sai.ObjectTypePort {
		return m.checkPortRemovable(oid, pending)
	}
	if ref, ok := m.firstReferrer(oid, pending, nil); ok {
		return sai.Errorf(sai.StatusObjectInUse, "%s is referenced by %s (%d references)", oid, ref, m.graph.InboundCount(oid))
	}
	return nil
}

// firstReferrer returns a key referencing oid that is neither pending
// removal nor in skip.
func (m *Meta) firstReferrer(oid sai.OID, pending map[sai.Key]bool, skip map[sai.OID]bool) (sai.Key, bool) {
	for _, ref := range m.graph.Referrers(oid) {
		if pending[ref] {
			continue
		}
		if r, ok := ref.(sai.OID); ok && skip[r] {
			continue
		}
		return ref, true
	}
	return nil, false
}

// insert records a new object and its edges, undoing the store insert when
// the edges cannot be recorded.
func (m *Meta) insert(key sai.Key, sw sai.OID, attrs []sai.Attribute) error {
	if _, err := m.store.Create(key, sw, attrs); err != nil {
		return err
	}
	if err := m.graph.AddReferences(key, sw, attrs); err != nil {
		_ = m.store.Remove(key)
		return err
	}
	return nil
}

// applyRemove drops o and everything that goes with it.
func (m *Meta) applyRemove(o *Object) {
	switch o.Type {
	case sai.ObjectTypeSwitch:
		m.purgeSwitch(o.Switch)
		return
	case sai.ObjectTypePort:
		m.purgePortRelated(o.Key.(sai.OID))
	}
	m.drop(o.Key)
}

// drop removes one record, its outbound edges and its key tuple.
func (m *Meta) drop(key sai.Key) {
	m.graph.RemoveReferences(key)
	_ = m.store.Remove(key)
	if oid, ok := key.(sai.OID); ok {
		m.keys.Remove(oid)
	}
}

// applySet stores attr on o after the channel accepted it.
func (m *Meta) applySet(o *Object, attr sai.Attribute) error {
	next := mergeAttr(o.Attrs(), attr)
	if err := m.graph.ReplaceReferences(o.Key, o.Switch, next); err != nil {
		return err
	}
	if err := m.store.Set(o.Key, attr); err != nil {
		return err
	}
	if o.Type == sai.ObjectTypeSwitch {
		if inst, ok := m.switches[o.Switch]; ok {
			if err := inst.UpdateNotifications([]sai.Attribute{attr}); err != nil {
				return err
			}
		}
	}
	util.WithObject(o.Type.String(), o.Key.String()).Debugf("set %s", m.schema.AttrName(o.Type, attr.ID))
	return nil
}

// purgeSwitch removes every record owned by sw and the switch instance.
func (m *Meta) purgeSwitch(sw sai.OID) {
	objs := m.store.ObjectsOfSwitch(sw)
	for _, o := range objs {
		m.graph.RemoveReferences(o.Key)
	}
	for _, o := range objs {
		_ = m.store.Remove(o.Key)
		if oid, ok := o.Key.(sai.OID); ok {
			m.keys.Remove(oid)
			if o.Type == sai.ObjectTypePort {
				m.ports.RemovePort(oid)
			}
		}
	}
	delete(m.switches, sw)
	util.WithSwitch(sw).Infof("switch removed, %d objects purged", len(objs))
}

// postGet snoops object ids in a get result that are not known locally,
// such as objects the switch created on its own.
func (m *Meta) postGet(o *Object, attrs []sai.Attribute) {
	for _, a := range attrs {
		md, ok := m.schema.Attr(o.Type, a.ID)
		if !ok || !md.CarriesObjects() {
			continue
		}
		for _, oid := range sai.ReferencedOIDs(a.Value) {
			m.snoop(oid)
		}
		if o.Type == sai.ObjectTypePort && isPortRelatedAttr(md.Name) {
			m.recordPortRelated(o.Key.(sai.OID), a.Value)
		}
	}
}

// snoop inserts a bare record for an object id the switch reported but
// the local view does not hold.
func (m *Meta) snoop(oid sai.OID) {
	if oid.IsNull() || m.store.Exists(oid) {
		return
	}
	ot := oid.ObjectType()
	if ot == sai.ObjectTypeNull || ot == sai.ObjectTypeSwitch {
		util.Warnf("not snooping %s: unexpected object type", oid)
		return
	}
	sw := oid.SwitchID()
	if _, ok := m.switches[sw]; !ok {
		util.Warnf("not snooping %s: switch %s does not exist", oid, sw)
		return
	}
	if _, err := m.store.Create(oid, sw, nil); err != nil {
		return
	}
	util.WithObject(ot.String(), oid.String()).Debug("snooped")
}

func mergeAttr(attrs []sai.Attribute, attr sai.Attribute) []sai.Attribute {
	for i := range attrs {
		if attrs[i].ID == attr.ID {
			attrs[i] = attr
			return attrs
		}
	}
	return append(attrs, attr)
}

func sortOIDs(oids []sai.OID) {
	sort.Slice(oids, func(i, j int) bool { return oids[i] < oids[j] })
}
