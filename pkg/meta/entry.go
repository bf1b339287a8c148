package meta

import (
	"context"

	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/util"
)

// CreateEntry validates and creates a structured-key entry.
func (m *Meta) CreateEntry(ctx context.Context, key sai.Key, attrs []sai.Attribute) error {
	if err := m.validateEntryCreate(key, attrs, nil); err != nil {
		util.WithObject(key.ObjectType().String(), key.String()).Debugf("create rejected: %v", err)
		return err
	}
	if err := m.ch.CreateEntry(ctx, key, attrs); err != nil {
		util.WithObject(key.ObjectType().String(), key.String()).Errorf("channel create failed: %v", err)
		return err
	}
	if err := m.insert(key, key.SwitchID(), attrs); err != nil {
		return unrecorded(key.ObjectType(), key, err)
	}
	util.WithObject(key.ObjectType().String(), key.String()).Debugf("created with %d attributes", len(attrs))
	return nil
}

// validateEntryCreate runs every local check of an entry create. Keys in
// pending are entries accepted earlier in the same bulk call.
func (m *Meta) validateEntryCreate(key sai.Key, attrs []sai.Attribute, pending map[sai.Key]bool) error {
	ot := key.ObjectType()
	if !ot.IsEntry() {
		return sai.Errorf(sai.StatusInvalidParameter, "%s is keyed by an object id, not an entry", ot)
	}
	sw := key.SwitchID()
	if _, ok := m.switches[sw]; !ok {
		return sai.Errorf(sai.StatusInvalidParameter, "switch %s does not exist", sw)
	}
	if err := m.validateEntryKey(key); err != nil {
		return err
	}
	if m.store.Exists(key) || pending[key] {
		return sai.Errorf(sai.StatusAlreadyExists, "%s %s", ot, key)
	}
	return m.validator.Validate(Request{Op: OpCreate, Type: ot, Switch: sw, Attrs: attrs})
}

// validateEntryKey checks the object ids embedded in an entry key and the
// addresses it carries.
func (m *Meta) validateEntryKey(key sai.Key) error {
	sw := key.SwitchID()
	for _, member := range key.Members() {
		if member.OID.IsNull() {
			return sai.Errorf(sai.StatusInvalidParameter, "%s: %s is null", key.ObjectType(), member.Name)
		}
		ot, ok := m.store.ResolveObject(member.OID)
		if !ok {
			return sai.Errorf(sai.StatusInvalidObjectReference, "%s: %s %s does not exist", key.ObjectType(), member.Name, member.OID)
		}
		if !containsType(member.Allowed, ot) {
			return sai.Errorf(sai.StatusInvalidObjectReference, "%s: %s %s has type %s", key.ObjectType(), member.Name, member.OID, ot)
		}
		if member.OID.SwitchID() != sw {
			return sai.Errorf(sai.StatusInvalidObjectReference, "%s: %s %s is not on switch %s", key.ObjectType(), member.Name, member.OID, sw)
		}
	}

	switch e := key.(type) {
	case sai.RouteEntry:
		if !e.Destination.IsValid() {
			return sai.Errorf(sai.StatusInvalidParameter, "route destination is not a valid prefix")
		}
	case sai.NeighborEntry:
		if !e.IP.IsValid() {
			return sai.Errorf(sai.StatusInvalidParameter, "neighbor address is not valid")
		}
	case sai.FdbEntry:
		if e.MAC.IsZero() {
			return sai.Errorf(sai.StatusInvalidParameter, "fdb entry mac is zero")
		}
	case sai.InsegEntry:
		if e.Label >= 1<<20 {
			return sai.Errorf(sai.StatusInvalidParameter, "mpls label %d out of range", e.Label)
		}
	case sai.L2mcEntry:
		if !e.Destination.IsValid() {
			return sai.Errorf(sai.StatusInvalidParameter, "l2mc destination is not valid")
		}
	case sai.IpmcEntry:
		if !e.Destination.IsValid() {
			return sai.Errorf(sai.StatusInvalidParameter, "ipmc destination is not valid")
		}
	}
	return nil
}

func containsType(types []sai.ObjectType, ot sai.ObjectType) bool {
	for _, t := range types {
		if t == ot {
			return true
		}
	}
	return false
}
