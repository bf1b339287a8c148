package meta

import (
	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/util"
)

// Record is one object of a warm-start dump.
type Record struct {
	Key   sai.Key
	Attrs []sai.Attribute
}

// Populate replaces the local view with the objects of a dump. Records are
// not validated as creates: every record is stored first, in any order,
// and the reference graph, port-related set and key index are then derived
// from the populated store. Read-only attributes are not stored, except
// that port queue, scheduler group and priority group lists feed the
// port-related set. On error the local view is left empty.
func (m *Meta) Populate(records []Record) error {
	m.Clear()
	if err := m.populate(records); err != nil {
		m.Clear()
		return err
	}
	util.WithOperation("populate").Infof("%d objects, %d references, %d port-related objects",
		m.store.Len(), m.graph.Len(), m.ports.Len())
	return nil
}

func (m *Meta) populate(records []Record) error {
	type related struct {
		port sai.OID
		val  sai.Value
	}
	var portLists []related

	for _, r := range records {
		ot := r.Key.ObjectType()
		oi, ok := m.schema.Object(ot)
		if !ok {
			return sai.Errorf(sai.StatusInvalidParameter, "dump object %s has type %s, which the schema does not describe", r.Key, ot)
		}
		stored := make([]sai.Attribute, 0, len(r.Attrs))
		seen := make(map[sai.AttrID]bool, len(r.Attrs))
		for _, a := range r.Attrs {
			md, ok := oi.Attr(a.ID)
			if !ok {
				return sai.Errorf(sai.StatusUnknownAttribute, "dump object %s: %s attribute %d", r.Key, ot, a.ID)
			}
			if seen[a.ID] {
				return sai.Errorf(sai.StatusDuplicateAttribute, "dump object %s: %s", r.Key, md.Name)
			}
			seen[a.ID] = true
			if a.Value == nil || a.Value.Kind() != md.Kind {
				return sai.Errorf(sai.StatusInvalidParameter, "dump object %s: %s has the wrong kind", r.Key, md.Name)
			}
			if md.IsReadOnly() {
				if ot == sai.ObjectTypePort && isPortRelatedAttr(md.Name) {
					portLists = append(portLists, related{port: r.Key.(sai.OID), val: a.Value})
				}
				continue
			}
			stored = append(stored, a)
		}
		if _, err := m.store.Create(r.Key, r.Key.SwitchID(), stored); err != nil {
			return err
		}
		if ot == sai.ObjectTypeSwitch {
			id := r.Key.(sai.OID)
			m.switches[id] = newSwitchInstance(m.schema, id)
		}
	}

	for _, o := range m.store.Objects() {
		if _, ok := m.switches[o.Switch]; !ok {
			return sai.Errorf(sai.StatusInvalidObjectReference, "dump object %s belongs to switch %s, which is not in the dump", o.Key, o.Switch)
		}
	}
	if err := m.graph.Rebuild(m.store.Objects()); err != nil {
		return err
	}
	m.keys.Rebuild(m.store.Objects())
	for _, pl := range portLists {
		m.recordPortRelated(pl.port, pl.val)
	}
	return nil
}
