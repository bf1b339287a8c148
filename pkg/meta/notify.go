package meta

import (
	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/util"
)

// ProcessNotification applies the metadata side effects of an inbound
// notification. It must run inside the guarded region, before the
// application handler sees the event. An error means the event does not
// belong to a live switch; per-item problems are logged and skipped.
func (m *Meta) ProcessNotification(n sai.Notification) error {
	inst, ok := m.switches[n.SwitchID()]
	if !ok {
		return sai.Errorf(sai.StatusInvalidParameter, "%s for unknown switch %s", n.Kind(), n.SwitchID())
	}

	switch ev := n.(type) {
	case sai.SwitchStateChange:
		inst.OperStatus = ev.Status
		util.WithSwitch(inst.ID).Infof("oper status %d", ev.Status)
	case sai.SwitchShutdownRequest:
		inst.ShutdownRequested = true
		util.WithSwitch(inst.ID).Warn("shutdown requested")
	case sai.FdbEvent:
		for _, e := range ev.Events {
			m.processFdbEvent(inst.ID, e)
		}
	case sai.PortStateChange:
		for _, e := range ev.Events {
			m.snoopNotified(inst.ID, e.Port, sai.ObjectTypePort, sai.ObjectTypeBridgePort, sai.ObjectTypeLag)
		}
	case sai.QueuePfcDeadlock:
		for _, e := range ev.Events {
			m.snoopNotified(inst.ID, e.Queue, sai.ObjectTypeQueue)
		}
	case sai.BfdSessionStateChange:
		for _, e := range ev.Events {
			m.snoopNotified(inst.ID, e.Session, sai.ObjectTypeBfdSession)
		}
	case sai.NatEvent:
		for _, e := range ev.Events {
			if !m.store.Exists(e.Entry) {
				util.WithObject(sai.ObjectTypeNatEntry.String(), e.Entry.String()).Warn("nat event for unknown entry")
			}
		}
	case sai.PacketEvent:
	}
	return nil
}

// NotificationHandler returns the application handler registered for n on
// its switch, or nil.
func (m *Meta) NotificationHandler(n sai.Notification) sai.NotificationHandler {
	inst, ok := m.switches[n.SwitchID()]
	if !ok {
		return nil
	}
	return inst.Handler(n.Kind())
}

// snoopNotified records an object id reported by a notification when it is
// of one of the expected types.
func (m *Meta) snoopNotified(sw, oid sai.OID, types ...sai.ObjectType) {
	if oid.IsNull() {
		return
	}
	if oid.SwitchID() != sw || !containsType(types, oid.ObjectType()) {
		util.WithSwitch(sw).Warnf("notification carries unexpected object %s", oid)
		return
	}
	m.snoop(oid)
}

func (m *Meta) processFdbEvent(sw sai.OID, e sai.FdbEventData) {
	log := util.WithObject(sai.ObjectTypeFdbEntry.String(), e.Entry.String())
	if e.Entry.Switch != sw {
		log.Warnf("fdb event entry is not on switch %s", sw)
		return
	}

	switch e.Type {
	case sai.FdbEventLearned:
		if m.store.Exists(e.Entry) {
			log.Debug("learned entry already known")
			return
		}
		attrs := m.knownFdbAttrs(e.Attrs)
		for _, a := range attrs {
			for _, oid := range sai.ReferencedOIDs(a.Value) {
				m.snoop(oid)
			}
		}
		if err := m.insert(e.Entry, sw, attrs); err != nil {
			log.Warnf("learned entry not recorded: %v", err)
		}
	case sai.FdbEventAged:
		if !m.store.Exists(e.Entry) {
			log.Debug("aged entry not known")
			return
		}
		m.drop(e.Entry)
	case sai.FdbEventMove:
		o, ok := m.store.Lookup(e.Entry)
		if !ok {
			m.processFdbEvent(sw, sai.FdbEventData{Type: sai.FdbEventLearned, Entry: e.Entry, Attrs: e.Attrs})
			return
		}
		for _, a := range m.knownFdbAttrs(e.Attrs) {
			for _, oid := range sai.ReferencedOIDs(a.Value) {
				m.snoop(oid)
			}
			if err := m.applySet(o, a); err != nil {
				log.Warnf("move not applied: %v", err)
			}
		}
	case sai.FdbEventFlushed:
		m.flushFdb(sw, e)
	default:
		log.Warnf("unknown fdb event type %s", e.Type)
	}
}

// knownFdbAttrs drops attributes the schema does not describe.
func (m *Meta) knownFdbAttrs(attrs []sai.Attribute) []sai.Attribute {
	out := make([]sai.Attribute, 0, len(attrs))
	for _, a := range attrs {
		md, ok := m.schema.Attr(sai.ObjectTypeFdbEntry, a.ID)
		if !ok || a.Value == nil || a.Value.Kind() != md.Kind {
			util.Warnf("fdb event: ignoring attribute %d", a.ID)
			continue
		}
		out = append(out, a)
	}
	return out
}

// flushFdb removes the dynamic entries matching a flush event. A zero MAC
// matches every MAC, a null bridge id matches every bridge, and a bridge
// port attribute in the event restricts the flush to that port.
func (m *Meta) flushFdb(sw sai.OID, e sai.FdbEventData) {
	typeAttr, _ := m.schema.AttrByName(sai.ObjectTypeFdbEntry, "SAI_FDB_ENTRY_ATTR_TYPE")
	portAttr, _ := m.schema.AttrByName(sai.ObjectTypeFdbEntry, "SAI_FDB_ENTRY_ATTR_BRIDGE_PORT_ID")

	var port sai.OID
	if portAttr != nil {
		if v, ok := findAttr(e.Attrs, portAttr.ID); ok {
			port, _ = v.(sai.OID)
		}
	}

	flushed := 0
	for _, o := range m.store.ObjectsOfSwitch(sw) {
		entry, ok := o.Key.(sai.FdbEntry)
		if !ok {
			continue
		}
		if !e.Entry.MAC.IsZero() && entry.MAC != e.Entry.MAC {
			continue
		}
		if !e.Entry.BVID.IsNull() && entry.BVID != e.Entry.BVID {
			continue
		}
		if typeAttr != nil {
			if v, ok := o.Attr(typeAttr.ID); ok && v != sai.S32(fdbEntryTypeDynamic) {
				continue
			}
		}
		if !port.IsNull() && portAttr != nil {
			if v, ok := o.Attr(portAttr.ID); !ok || v != port {
				continue
			}
		}
		m.drop(o.Key)
		flushed++
	}
	util.WithSwitch(sw).Debugf("fdb flush removed %d entries", flushed)
}

const fdbEntryTypeDynamic = 0
