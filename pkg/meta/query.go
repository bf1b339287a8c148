package meta

import (
	"context"

	"github.com/newtron-network/saimeta/pkg/sai"
)

// GetStats reads counters of a live object.
func (m *Meta) GetStats(ctx context.Context, key sai.Key, ids []sai.StatID) ([]uint64, error) {
	return m.GetStatsExt(ctx, key, ids, sai.StatsModeRead)
}

// GetStatsExt reads counters with an explicit mode.
func (m *Meta) GetStatsExt(ctx context.Context, key sai.Key, ids []sai.StatID, mode sai.StatsMode) ([]uint64, error) {
	if !mode.IsValid() {
		return nil, sai.Errorf(sai.StatusInvalidParameter, "stats mode %d", mode)
	}
	if err := m.validateStats(key, ids); err != nil {
		return nil, err
	}
	values, err := m.ch.GetStats(ctx, key, ids, mode)
	if err != nil {
		return nil, err
	}
	if len(values) != len(ids) {
		return nil, sai.Errorf(sai.StatusFailure, "channel returned %d counters for %d requested", len(values), len(ids))
	}
	return values, nil
}

// ClearStats resets counters of a live object.
func (m *Meta) ClearStats(ctx context.Context, key sai.Key, ids []sai.StatID) error {
	if err := m.validateStats(key, ids); err != nil {
		return err
	}
	return m.ch.ClearStats(ctx, key, ids)
}

func (m *Meta) validateStats(key sai.Key, ids []sai.StatID) error {
	o, ok := m.store.Lookup(key)
	if !ok {
		return sai.Errorf(sai.StatusItemNotFound, "%s %s", key.ObjectType(), key)
	}
	oi, ok := m.schema.Object(o.Type)
	if !ok || len(oi.Stats()) == 0 {
		return sai.Errorf(sai.StatusNotImplemented, "%s has no counters", o.Type)
	}
	if len(ids) == 0 {
		return sai.Errorf(sai.StatusInvalidParameter, "no counters requested")
	}
	for _, id := range ids {
		if !oi.HasStat(id) {
			return sai.Errorf(sai.StatusInvalidParameter, "%s has no counter %d", o.Type, id)
		}
	}
	return nil
}

// ObjectTypeQuery decodes the object type embedded in oid.
func (m *Meta) ObjectTypeQuery(oid sai.OID) sai.ObjectType { return oid.ObjectType() }

// SwitchIDQuery decodes the owning switch embedded in oid.
func (m *Meta) SwitchIDQuery(oid sai.OID) sai.OID { return oid.SwitchID() }

// AttrCapability reports which operations may carry an attribute.
type AttrCapability struct {
	Create bool
	Set    bool
	Get    bool
}

// AttributeCapability reports the legality of attribute id on key's type.
// When key names a live object, a conditional attribute whose condition
// does not hold in the object's current state is reported as not settable.
func (m *Meta) AttributeCapability(key sai.Key, id sai.AttrID) (AttrCapability, error) {
	ot := key.ObjectType()
	oi, ok := m.schema.Object(ot)
	if !ok {
		return AttrCapability{}, sai.Errorf(sai.StatusInvalidParameter, "object type %s is not described by the schema", ot)
	}
	md, ok := oi.Attr(id)
	if !ok {
		return AttrCapability{}, sai.Errorf(sai.StatusUnknownAttribute, "%s attribute %d", ot, id)
	}
	c := AttrCapability{
		Create: !md.IsReadOnly(),
		Set:    md.IsCreateAndSet(),
		Get:    true,
	}
	if o, ok := m.store.Lookup(key); ok && c.Set && md.IsConditional() {
		c.Set = conditionHolds(oi, md, Request{Op: OpSet, Type: ot, Current: o})
	}
	return c, nil
}

// StatCapability describes one counter of an object type.
type StatCapability struct {
	ID    sai.StatID
	Name  string
	Modes []sai.StatsMode
}

// StatsCapability lists the counters of an object type.
func (m *Meta) StatsCapability(ot sai.ObjectType) ([]StatCapability, error) {
	oi, ok := m.schema.Object(ot)
	if !ok {
		return nil, sai.Errorf(sai.StatusInvalidParameter, "object type %s is not described by the schema", ot)
	}
	names := oi.Stats()
	if len(names) == 0 {
		return nil, sai.Errorf(sai.StatusNotImplemented, "%s has no counters", ot)
	}
	out := make([]StatCapability, len(names))
	for i, name := range names {
		out[i] = StatCapability{
			ID:    sai.StatID(i),
			Name:  name,
			Modes: []sai.StatsMode{sai.StatsModeRead, sai.StatsModeReadAndClear},
		}
	}
	return out, nil
}

// ObjectCounts returns the number of live objects per type.
func (m *Meta) ObjectCounts() map[sai.ObjectType]int {
	return m.store.CountByType()
}
