package meta

import (
	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/util"
)

// Port attributes listing the objects a port owns.
var portRelatedAttrs = map[string]bool{
	"SAI_PORT_ATTR_QOS_QUEUE_LIST":              true,
	"SAI_PORT_ATTR_QOS_SCHEDULER_GROUP_LIST":    true,
	"SAI_PORT_ATTR_INGRESS_PRIORITY_GROUP_LIST": true,
}

func isPortRelatedAttr(name string) bool { return portRelatedAttrs[name] }

// recordPortRelated adds every object in a port's related list value.
func (m *Meta) recordPortRelated(port sai.OID, val sai.Value) {
	list, ok := val.(sai.ObjectList)
	if !ok {
		return
	}
	for _, oid := range list.Items {
		if err := m.ports.Insert(port, oid); err != nil {
			util.WithObject(sai.ObjectTypePort.String(), port.String()).Warnf("port-related insert: %v", err)
		}
	}
}

// checkPortRemovable allows a port removal only when nothing outside the
// port's own related objects references the port. A port with related
// objects must also be in its default state, and so must every related
// object: each references nothing but the port and its siblings, and
// nothing else references it.
func (m *Meta) checkPortRemovable(port sai.OID, pending map[sai.Key]bool) error {
	related := m.ports.PortRelatedObjects(port)
	own := make(map[sai.OID]bool, len(related)+1)
	own[port] = true
	for _, r := range related {
		own[r] = true
	}

	if ref, ok := m.firstReferrer(port, pending, own); ok {
		return sai.Errorf(sai.StatusObjectInUse, "port %s is referenced by %s", port, ref)
	}
	if len(related) > 0 {
		for _, to := range m.graph.References(port) {
			if !own[to] {
				return sai.Errorf(sai.StatusObjectInUse, "port %s is not in default state (references %s)", port, to)
			}
		}
	}
	for _, r := range related {
		if !m.store.Exists(r) {
			continue
		}
		for _, to := range m.graph.References(r) {
			if !own[to] {
				return sai.Errorf(sai.StatusObjectInUse, "port %s: related object %s is not in default state (references %s)", port, r, to)
			}
		}
		if ref, ok := m.firstReferrer(r, pending, own); ok {
			return sai.Errorf(sai.StatusObjectInUse, "port %s: related object %s is referenced by %s", port, r, ref)
		}
	}
	return nil
}

// purgePortRelated drops the related objects of a removed port.
func (m *Meta) purgePortRelated(port sai.OID) {
	related := m.ports.PortRelatedObjects(port)
	for _, r := range related {
		m.graph.RemoveReferences(r)
	}
	for _, r := range related {
		if m.store.Exists(r) {
			m.drop(r)
		}
	}
	m.ports.RemovePort(port)
	if len(related) > 0 {
		util.WithObject(sai.ObjectTypePort.String(), port.String()).Debugf("purged %d related objects", len(related))
	}
}
