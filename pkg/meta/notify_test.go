package meta

import (
	"testing"

	"github.com/newtron-network/saimeta/pkg/sai"
)

func TestSwitchNotifications(t *testing.T) {
	e := newTestEnv(t)
	var got []sai.Notification
	notify := e.attr(sai.ObjectTypeSwitch, "SAI_SWITCH_ATTR_SHUTDOWN_REQUEST_NOTIFY",
		sai.Pointer{Handler: func(n sai.Notification) { got = append(got, n) }})
	sw := e.createSwitch(notify)
	inst, _ := e.m.Switch(sw)

	shutdown := sai.SwitchShutdownRequest{Switch: sw}
	if err := e.m.ProcessNotification(shutdown); err != nil {
		t.Fatalf("ProcessNotification(shutdown) error: %v", err)
	}
	if !inst.ShutdownRequested {
		t.Error("ShutdownRequested = false after a shutdown request")
	}
	h := e.m.NotificationHandler(shutdown)
	if h == nil {
		t.Fatal("no handler for the shutdown request")
	}
	h(shutdown)
	if len(got) != 1 {
		t.Errorf("handler ran %d times, want 1", len(got))
	}

	state := sai.SwitchStateChange{Switch: sw, Status: sai.SwitchOperStatusDown}
	if err := e.m.ProcessNotification(state); err != nil {
		t.Fatalf("ProcessNotification(state) error: %v", err)
	}
	if inst.OperStatus != sai.SwitchOperStatusDown {
		t.Errorf("OperStatus = %d, want %d", inst.OperStatus, sai.SwitchOperStatusDown)
	}
	if e.m.NotificationHandler(state) != nil {
		t.Error("handler returned for an unregistered notification")
	}

	notify.Value = sai.Pointer{}
	if err := e.m.Set(e.ctx, sw, notify); err != nil {
		t.Fatalf("Set(SHUTDOWN_REQUEST_NOTIFY) error: %v", err)
	}
	if e.m.NotificationHandler(shutdown) != nil {
		t.Error("handler still registered after it was cleared")
	}

	unknown := sai.SwitchStateChange{Switch: sai.NewSwitchOID(9, 0)}
	wantStatus(t, "unknown switch", e.m.ProcessNotification(unknown), sai.StatusInvalidParameter)
	if e.m.NotificationHandler(unknown) != nil {
		t.Error("handler returned for an unknown switch")
	}
}

// fdbSetup creates a vlan and a bridge port on the first port of sw.
func (e *testEnv) fdbSetup(sw sai.OID) (vlan, bp sai.OID) {
	e.t.Helper()
	vlan = e.create(sai.ObjectTypeVlan, sw, e.attr(sai.ObjectTypeVlan, "SAI_VLAN_ATTR_VLAN_ID", sai.U16(10)))
	bp = e.create(sai.ObjectTypeBridgePort, sw,
		e.attr(sai.ObjectTypeBridgePort, "SAI_BRIDGE_PORT_ATTR_TYPE", sai.S32(0)),
		e.attr(sai.ObjectTypeBridgePort, "SAI_BRIDGE_PORT_ATTR_PORT_ID", e.ports(sw)[0]))
	return vlan, bp
}

func (e *testEnv) fdbAttrs(entryType int32, bp sai.OID) []sai.Attribute {
	return []sai.Attribute{
		e.attr(sai.ObjectTypeFdbEntry, "SAI_FDB_ENTRY_ATTR_TYPE", sai.S32(entryType)),
		e.attr(sai.ObjectTypeFdbEntry, "SAI_FDB_ENTRY_ATTR_BRIDGE_PORT_ID", bp),
	}
}

func TestFdbLearnAndAge(t *testing.T) {
	e := newTestEnv(t)
	sw := e.createSwitch()
	vlan, bp := e.fdbSetup(sw)
	entry := sai.FdbEntry{Switch: sw, MAC: sai.MAC{0x02, 0, 0, 0, 0, 1}, BVID: vlan}

	learned := sai.FdbEvent{Switch: sw, Events: []sai.FdbEventData{
		{Type: sai.FdbEventLearned, Entry: entry, Attrs: e.fdbAttrs(0, bp)},
	}}
	if err := e.m.ProcessNotification(learned); err != nil {
		t.Fatalf("ProcessNotification(learned) error: %v", err)
	}
	if !e.m.Store().Exists(entry) {
		t.Fatal("learned entry not recorded")
	}
	if e.m.Graph().CanRemove(bp) || e.m.Graph().CanRemove(vlan) {
		t.Error("learned entry holds no references")
	}
	wantStatus(t, "Remove(bridge port)", e.m.Remove(e.ctx, bp), sai.StatusObjectInUse)

	// Learning the same entry again changes nothing.
	if err := e.m.ProcessNotification(learned); err != nil {
		t.Fatalf("second learn error: %v", err)
	}
	if got := e.m.Graph().InboundCount(bp); got != 1 {
		t.Errorf("InboundCount(bp) = %d, want 1", got)
	}

	aged := sai.FdbEvent{Switch: sw, Events: []sai.FdbEventData{{Type: sai.FdbEventAged, Entry: entry}}}
	if err := e.m.ProcessNotification(aged); err != nil {
		t.Fatalf("ProcessNotification(aged) error: %v", err)
	}
	if e.m.Store().Exists(entry) {
		t.Error("aged entry still recorded")
	}
	if !e.m.Graph().CanRemove(bp) {
		t.Error("bridge port still referenced after aging")
	}
	checkConsistent(t, e.m)
}

func TestFdbFlushKeepsStaticEntries(t *testing.T) {
	e := newTestEnv(t)
	sw := e.createSwitch()
	vlan, bp := e.fdbSetup(sw)
	mac := func(b byte) sai.MAC { return sai.MAC{0x02, 0, 0, 0, 0, b} }

	var events []sai.FdbEventData
	dynamic := []sai.FdbEntry{
		{Switch: sw, MAC: mac(1), BVID: vlan},
		{Switch: sw, MAC: mac(2), BVID: vlan},
	}
	for _, d := range dynamic {
		events = append(events, sai.FdbEventData{Type: sai.FdbEventLearned, Entry: d, Attrs: e.fdbAttrs(0, bp)})
	}
	if err := e.m.ProcessNotification(sai.FdbEvent{Switch: sw, Events: events}); err != nil {
		t.Fatalf("learn error: %v", err)
	}
	static := sai.FdbEntry{Switch: sw, MAC: mac(3), BVID: vlan}
	if err := e.m.CreateEntry(e.ctx, static, e.fdbAttrs(1, bp)); err != nil {
		t.Fatalf("CreateEntry(static) error: %v", err)
	}

	flush := sai.FdbEvent{Switch: sw, Events: []sai.FdbEventData{
		{Type: sai.FdbEventFlushed, Entry: sai.FdbEntry{Switch: sw}},
	}}
	if err := e.m.ProcessNotification(flush); err != nil {
		t.Fatalf("ProcessNotification(flush) error: %v", err)
	}
	for _, d := range dynamic {
		if e.m.Store().Exists(d) {
			t.Errorf("dynamic entry %s survived the flush", d)
		}
	}
	if !e.m.Store().Exists(static) {
		t.Error("static entry was flushed")
	}
	if got := e.m.Graph().InboundCount(bp); got != 1 {
		t.Errorf("InboundCount(bp) = %d, want 1", got)
	}
	checkConsistent(t, e.m)
}

func TestNotificationSnoopsObjects(t *testing.T) {
	e := newTestEnv(t)
	sw := e.createSwitch()
	before := e.m.Store().Len()

	// Ports the local view has not seen yet are learned from the event.
	port := sai.NewOID(0, sai.ObjectTypePort, 0, 1)
	wrong := sai.NewOID(0, sai.ObjectTypeVirtualRouter, 0, 2)
	ev := sai.PortStateChange{Switch: sw, Events: []sai.PortStatus{
		{Port: port, Status: 1},
		{Port: wrong, Status: 1},
	}}
	if err := e.m.ProcessNotification(ev); err != nil {
		t.Fatalf("ProcessNotification error: %v", err)
	}
	if !e.m.Store().Exists(port) {
		t.Error("port from the event not recorded")
	}
	if e.m.Store().Exists(wrong) {
		t.Error("object of an unexpected type recorded")
	}
	if got := e.m.Store().Len() - before; got != 1 {
		t.Errorf("store grew by %d, want 1", got)
	}
}
