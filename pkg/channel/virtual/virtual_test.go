package virtual

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/newtron-network/saimeta/pkg/channel"
	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/schema"
	"github.com/newtron-network/saimeta/pkg/util"
)

func newChannel(t *testing.T, opts ...Option) (*Channel, *schema.Schema) {
	t.Helper()
	s, err := schema.Default()
	if err != nil {
		t.Fatalf("schema.Default() error: %v", err)
	}
	return New(s, opts...), s
}

func attrID(t *testing.T, s *schema.Schema, ot sai.ObjectType, name string) sai.AttrID {
	t.Helper()
	md, ok := s.AttrByName(ot, name)
	if !ok {
		t.Fatalf("no attribute %s", name)
	}
	return md.ID
}

func TestSwitchBringUp(t *testing.T) {
	c, s := newChannel(t, WithPorts(3), WithPortObjects(4, 2, 1))
	ctx := context.Background()
	sw, err := c.Create(ctx, sai.ObjectTypeSwitch, sai.NullOID, nil)
	if err != nil {
		t.Fatalf("Create(switch) error: %v", err)
	}
	if sw.ObjectType() != sai.ObjectTypeSwitch || sw.SwitchID() != sw {
		t.Fatalf("switch id %s is malformed", sw)
	}

	attrs, err := c.Get(ctx, sw, []sai.AttrID{
		attrID(t, s, sai.ObjectTypeSwitch, "SAI_SWITCH_ATTR_PORT_NUMBER"),
		attrID(t, s, sai.ObjectTypeSwitch, "SAI_SWITCH_ATTR_PORT_LIST"),
	})
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if attrs[0].Value != sai.U32(3) {
		t.Errorf("PORT_NUMBER = %v, want 3", attrs[0].Value)
	}
	ports := attrs[1].Value.(sai.ObjectList).Items
	if len(ports) != 3 {
		t.Fatalf("PORT_LIST has %d ports, want 3", len(ports))
	}

	queueList := attrID(t, s, sai.ObjectTypePort, "SAI_PORT_ATTR_QOS_QUEUE_LIST")
	for _, p := range ports {
		if p.SwitchID() != sw || p.ObjectType() != sai.ObjectTypePort {
			t.Errorf("port %s is not a port of %s", p, sw)
		}
		attrs, err := c.Get(ctx, p, []sai.AttrID{queueList})
		if err != nil {
			t.Fatalf("Get(QUEUE_LIST) error: %v", err)
		}
		queues := attrs[0].Value.(sai.ObjectList).Items
		if len(queues) != 4 {
			t.Errorf("port %s has %d queues, want 4", p, len(queues))
		}
		for _, q := range queues {
			if !c.Exists(q) {
				t.Errorf("queue %s not held", q)
			}
		}
	}
}

func TestRemovePortTakesItsObjects(t *testing.T) {
	c, s := newChannel(t, WithPorts(1))
	ctx := context.Background()
	sw, _ := c.Create(ctx, sai.ObjectTypeSwitch, sai.NullOID, nil)
	attrs, _ := c.Get(ctx, sw, []sai.AttrID{attrID(t, s, sai.ObjectTypeSwitch, "SAI_SWITCH_ATTR_PORT_LIST")})
	port := attrs[0].Value.(sai.ObjectList).Items[0]
	attrs, _ = c.Get(ctx, port, []sai.AttrID{attrID(t, s, sai.ObjectTypePort, "SAI_PORT_ATTR_INGRESS_PRIORITY_GROUP_LIST")})
	pg := attrs[0].Value.(sai.ObjectList).Items[0]

	if err := c.Remove(ctx, port); err != nil {
		t.Fatalf("Remove(port) error: %v", err)
	}
	if c.Exists(port) || c.Exists(pg) {
		t.Error("port or its priority group still held")
	}
	if err := c.Remove(ctx, port); sai.StatusOf(err) != sai.StatusItemNotFound {
		t.Errorf("second Remove(port) status = %v, want %v", sai.StatusOf(err), sai.StatusItemNotFound)
	}

	if err := c.Remove(ctx, sw); err != nil {
		t.Fatalf("Remove(switch) error: %v", err)
	}
	if n := len(c.Dump()); n != 0 {
		t.Errorf("%d objects left after switch removal", n)
	}
}

func TestGetDefaults(t *testing.T) {
	c, s := newChannel(t)
	ctx := context.Background()
	sw, _ := c.Create(ctx, sai.ObjectTypeSwitch, sai.NullOID, nil)
	vr, err := c.Create(ctx, sai.ObjectTypeVirtualRouter, sw, nil)
	if err != nil {
		t.Fatalf("Create(vr) error: %v", err)
	}
	v4 := attrID(t, s, sai.ObjectTypeVirtualRouter, "SAI_VIRTUAL_ROUTER_ATTR_ADMIN_V4_STATE")

	attrs, err := c.Get(ctx, vr, []sai.AttrID{v4})
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if attrs[0].Value != sai.Bool(true) {
		t.Errorf("ADMIN_V4_STATE default = %v, want true", attrs[0].Value)
	}

	if err := c.Set(ctx, vr, sai.Attribute{ID: v4, Value: sai.Bool(false)}); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	attrs, _ = c.Get(ctx, vr, []sai.AttrID{v4})
	if attrs[0].Value != sai.Bool(false) {
		t.Errorf("ADMIN_V4_STATE = %v after set, want false", attrs[0].Value)
	}

	if _, err := c.Create(ctx, sai.ObjectTypeVirtualRouter, sai.NewSwitchOID(5, 0), nil); sai.StatusOf(err) != sai.StatusInvalidParameter {
		t.Errorf("Create on unknown switch status = %v", sai.StatusOf(err))
	}
}

func TestFaultInjection(t *testing.T) {
	c, _ := newChannel(t)
	ctx := context.Background()
	sw, _ := c.Create(ctx, sai.ObjectTypeSwitch, sai.NullOID, nil)

	c.FailNext(sai.StatusChannelIndeterminate)
	_, err := c.Create(ctx, sai.ObjectTypeVirtualRouter, sw, nil)
	if !channel.IsIndeterminate(err) {
		t.Errorf("Create error = %v, want indeterminate", err)
	}
	if _, err := c.Create(ctx, sai.ObjectTypeVirtualRouter, sw, nil); err != nil {
		t.Errorf("fault applied to more than one call: %v", err)
	}

	c.FailItems(map[int]sai.Status{1: sai.StatusFailure})
	oids, statuses, err := c.BulkCreate(ctx, sai.ObjectTypeVirtualRouter, sw, make([][]sai.Attribute, 3), sai.BulkStopOnError)
	if err != nil {
		t.Fatalf("BulkCreate error: %v", err)
	}
	want := []sai.Status{sai.StatusSuccess, sai.StatusFailure, sai.StatusNotExecuted}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
	if oids[0].IsNull() || !oids[1].IsNull() || !oids[2].IsNull() {
		t.Errorf("oids = %v, want only the first allocated", oids)
	}

	calls := c.Calls()
	if err := c.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if _, err := c.Get(ctx, sw, nil); !errors.Is(err, util.ErrClosed) {
		t.Errorf("Get after Close error = %v, want ErrClosed", err)
	}
	if c.Calls() != calls+1 {
		t.Errorf("Calls() = %d, want %d", c.Calls(), calls+1)
	}
}

func TestCountersAndNotifications(t *testing.T) {
	c, _ := newChannel(t)
	ctx := context.Background()
	sw, _ := c.Create(ctx, sai.ObjectTypeSwitch, sai.NullOID, nil)
	vr, _ := c.Create(ctx, sai.ObjectTypeVirtualRouter, sw, nil)

	c.SetCounter(vr, 0, 42)
	got, err := c.GetStats(ctx, vr, []sai.StatID{0, 1}, sai.StatsModeReadAndClear)
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if diff := cmp.Diff([]uint64{42, 0}, got); diff != "" {
		t.Errorf("counters mismatch (-want +got):\n%s", diff)
	}
	got, _ = c.GetStats(ctx, vr, []sai.StatID{0}, sai.StatsModeRead)
	if got[0] != 0 {
		t.Errorf("counter = %d after read and clear, want 0", got[0])
	}

	var seen []sai.Notification
	c.SetNotificationSink(func(n sai.Notification) { seen = append(seen, n) })
	c.Emit(sai.SwitchShutdownRequest{Switch: sw})
	c.SetNotificationSink(nil)
	c.Emit(sai.SwitchShutdownRequest{Switch: sw})
	if len(seen) != 1 {
		t.Errorf("sink saw %d notifications, want 1", len(seen))
	}
}
