package meta

import (
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/newtron-network/saimeta/pkg/channel"
	"github.com/newtron-network/saimeta/pkg/sai"
)

func TestBulkCreate(t *testing.T) {
	tests := []struct {
		name   string
		mode   sai.BulkMode
		faults map[int]sai.Status
		want   []sai.Status
	}{
		{
			name: "continue on error",
			mode: sai.BulkContinueOnError,
			want: []sai.Status{sai.StatusSuccess, sai.StatusMissingMandatoryAttribute, sai.StatusSuccess},
		},
		{
			name: "stop on error",
			mode: sai.BulkStopOnError,
			want: []sai.Status{sai.StatusSuccess, sai.StatusMissingMandatoryAttribute, sai.StatusNotExecuted},
		},
		{
			name:   "channel item failure",
			mode:   sai.BulkContinueOnError,
			faults: map[int]sai.Status{1: sai.StatusFailure},
			want:   []sai.Status{sai.StatusSuccess, sai.StatusMissingMandatoryAttribute, sai.StatusFailure},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			sw := e.createSwitch()
			vr := e.create(sai.ObjectTypeVirtualRouter, sw)
			before := e.m.Store().Len()

			items := [][]sai.Attribute{
				e.rifAttrs(vr),
				{e.attr(sai.ObjectTypeRouterInterface, "SAI_ROUTER_INTERFACE_ATTR_TYPE", sai.S32(2))},
				e.rifAttrs(vr),
			}
			if tt.faults != nil {
				// Positions count forwarded items only.
				e.ch.FailItems(tt.faults)
			}
			oids, statuses, err := e.m.BulkCreate(e.ctx, sai.ObjectTypeRouterInterface, sw, items, tt.mode)
			if diff := cmp.Diff(tt.want, statuses); diff != "" {
				t.Errorf("statuses mismatch (-want +got):\n%s", diff)
			}
			wantStatus(t, "BulkCreate", err, sai.StatusFailure)

			created := 0
			for i, s := range statuses {
				if s != sai.StatusSuccess {
					if !oids[i].IsNull() {
						t.Errorf("oids[%d] = %s for a failed item", i, oids[i])
					}
					continue
				}
				created++
				if !e.m.Store().Exists(oids[i]) || !e.ch.Exists(oids[i]) {
					t.Errorf("oids[%d] = %s not recorded", i, oids[i])
				}
			}
			if got := e.m.Store().Len() - before; got != created {
				t.Errorf("store grew by %d, want %d", got, created)
			}
			if got := e.m.Graph().InboundCount(vr); got != created {
				t.Errorf("InboundCount(vr) = %d, want %d", got, created)
			}
			checkConsistent(t, e.m)
		})
	}
}

func TestBulkCreateIndeterminate(t *testing.T) {
	e := newTestEnv(t)
	sw := e.createSwitch()
	vr := e.create(sai.ObjectTypeVirtualRouter, sw)
	before := e.m.Store().Len()

	e.ch.FailNext(sai.StatusChannelIndeterminate)
	items := [][]sai.Attribute{e.rifAttrs(vr), e.rifAttrs(vr)}
	_, statuses, err := e.m.BulkCreate(e.ctx, sai.ObjectTypeRouterInterface, sw, items, sai.BulkContinueOnError)
	if !channel.IsIndeterminate(err) {
		t.Errorf("BulkCreate error = %v, want indeterminate", err)
	}
	want := []sai.Status{sai.StatusChannelIndeterminate, sai.StatusChannelIndeterminate}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
	if e.m.Store().Len() != before {
		t.Error("indeterminate bulk create changed the store")
	}
}

func TestBulkCreateRejectsCall(t *testing.T) {
	e := newTestEnv(t)
	sw := e.createSwitch()
	calls := e.ch.Calls()

	_, _, err := e.m.BulkCreate(e.ctx, sai.ObjectTypeVirtualRouter, sw, nil, sai.BulkStopOnError)
	wantStatus(t, "no items", err, sai.StatusInvalidParameter)
	_, _, err = e.m.BulkCreate(e.ctx, sai.ObjectTypeSwitch, sw, [][]sai.Attribute{nil}, sai.BulkStopOnError)
	wantStatus(t, "switch", err, sai.StatusInvalidParameter)
	_, _, err = e.m.BulkCreate(e.ctx, sai.ObjectTypeVirtualRouter, sai.NewSwitchOID(7, 0), [][]sai.Attribute{nil}, sai.BulkStopOnError)
	wantStatus(t, "unknown switch", err, sai.StatusInvalidParameter)

	// Duplicate key tuples within one call.
	vlan := []sai.Attribute{e.attr(sai.ObjectTypeVlan, "SAI_VLAN_ATTR_VLAN_ID", sai.U16(10))}
	_, statuses, _ := e.m.BulkCreate(e.ctx, sai.ObjectTypeVlan, sw, [][]sai.Attribute{vlan, vlan}, sai.BulkContinueOnError)
	if diff := cmp.Diff([]sai.Status{sai.StatusSuccess, sai.StatusInvalidParameter}, statuses); diff != "" {
		t.Errorf("duplicate vlan statuses mismatch (-want +got):\n%s", diff)
	}
	if e.ch.Calls() != calls+1 {
		t.Errorf("channel calls = %d, want %d", e.ch.Calls(), calls+1)
	}
}

// schedulerGroups creates sg1 under a port and sg2 under sg1.
func (e *testEnv) schedulerGroups(sw sai.OID) (sg1, sg2 sai.OID) {
	e.t.Helper()
	port := e.ports(sw)[0]
	sg := func(parent sai.OID) []sai.Attribute {
		return []sai.Attribute{
			e.attr(sai.ObjectTypeSchedulerGroup, "SAI_SCHEDULER_GROUP_ATTR_PORT_ID", port),
			e.attr(sai.ObjectTypeSchedulerGroup, "SAI_SCHEDULER_GROUP_ATTR_LEVEL", sai.U8(1)),
			e.attr(sai.ObjectTypeSchedulerGroup, "SAI_SCHEDULER_GROUP_ATTR_MAX_CHILDS", sai.U8(8)),
			e.attr(sai.ObjectTypeSchedulerGroup, "SAI_SCHEDULER_GROUP_ATTR_PARENT_NODE", parent),
		}
	}
	sg1 = e.create(sai.ObjectTypeSchedulerGroup, sw, sg(port)...)
	sg2 = e.create(sai.ObjectTypeSchedulerGroup, sw, sg(sg1)...)
	return sg1, sg2
}

func TestBulkRemove(t *testing.T) {
	t.Run("stop on error credits earlier items", func(t *testing.T) {
		e := newTestEnv(t)
		sw := e.createSwitch()
		sg1, sg2 := e.schedulerGroups(sw)

		statuses, err := e.m.BulkRemove(e.ctx, []sai.Key{sg2, sg1}, sai.BulkStopOnError)
		if err != nil {
			t.Fatalf("BulkRemove error: %v", err)
		}
		if diff := cmp.Diff([]sai.Status{sai.StatusSuccess, sai.StatusSuccess}, statuses); diff != "" {
			t.Errorf("statuses mismatch (-want +got):\n%s", diff)
		}
		if e.m.Store().Exists(sg1) || e.m.Store().Exists(sg2) {
			t.Error("removed scheduler groups still recorded")
		}
		checkConsistent(t, e.m)
	})

	t.Run("continue on error does not", func(t *testing.T) {
		e := newTestEnv(t)
		sw := e.createSwitch()
		sg1, sg2 := e.schedulerGroups(sw)

		statuses, err := e.m.BulkRemove(e.ctx, []sai.Key{sg2, sg1}, sai.BulkContinueOnError)
		wantStatus(t, "BulkRemove", err, sai.StatusFailure)
		if diff := cmp.Diff([]sai.Status{sai.StatusSuccess, sai.StatusObjectInUse}, statuses); diff != "" {
			t.Errorf("statuses mismatch (-want +got):\n%s", diff)
		}
		if e.m.Store().Exists(sg2) {
			t.Error("sg2 still recorded")
		}
		if !e.m.Store().Exists(sg1) {
			t.Error("sg1 dropped")
		}
		checkConsistent(t, e.m)
	})

	t.Run("duplicate key", func(t *testing.T) {
		e := newTestEnv(t)
		sw := e.createSwitch()
		vr := e.create(sai.ObjectTypeVirtualRouter, sw)

		statuses, _ := e.m.BulkRemove(e.ctx, []sai.Key{vr, vr}, sai.BulkContinueOnError)
		if diff := cmp.Diff([]sai.Status{sai.StatusSuccess, sai.StatusItemNotFound}, statuses); diff != "" {
			t.Errorf("statuses mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("mixed types", func(t *testing.T) {
		e := newTestEnv(t)
		sw := e.createSwitch()
		vr := e.create(sai.ObjectTypeVirtualRouter, sw)
		rif := e.loopbackRIF(sw, vr)

		_, err := e.m.BulkRemove(e.ctx, []sai.Key{rif, vr}, sai.BulkStopOnError)
		wantStatus(t, "BulkRemove", err, sai.StatusInvalidParameter)
		if !e.m.Store().Exists(rif) {
			t.Error("rejected call removed the rif")
		}
	})
}

func TestBulkSetSeesEarlierItems(t *testing.T) {
	e := newTestEnv(t)
	sw := e.createSwitch()
	wred := e.create(sai.ObjectTypeWRED, sw)
	enable := e.attr(sai.ObjectTypeWRED, "SAI_WRED_ATTR_GREEN_ENABLE", sai.Bool(true))
	minTh := e.attr(sai.ObjectTypeWRED, "SAI_WRED_ATTR_GREEN_MIN_THRESHOLD", sai.U32(100))

	// Alone, the threshold is rejected: green is disabled by default.
	wantStatus(t, "Set(GREEN_MIN_THRESHOLD)", e.m.Set(e.ctx, wred, minTh), sai.StatusInvalidParameter)

	statuses, err := e.m.BulkSet(e.ctx, []sai.Key{wred, wred}, []sai.Attribute{enable, minTh}, sai.BulkStopOnError)
	if err != nil {
		t.Fatalf("BulkSet error: %v", err)
	}
	if diff := cmp.Diff([]sai.Status{sai.StatusSuccess, sai.StatusSuccess}, statuses); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
	o, _ := e.m.Store().Lookup(wred)
	if v, _ := o.Attr(minTh.ID); v != sai.U32(100) {
		t.Errorf("GREEN_MIN_THRESHOLD = %v, want 100", v)
	}

	_, err = e.m.BulkSet(e.ctx, []sai.Key{wred}, []sai.Attribute{enable, minTh}, sai.BulkStopOnError)
	wantStatus(t, "length mismatch", err, sai.StatusInvalidParameter)
	_, err = e.m.BulkSet(e.ctx, nil, nil, sai.BulkStopOnError)
	wantStatus(t, "no items", err, sai.StatusInvalidParameter)
}

func TestBulkCreateEntries(t *testing.T) {
	e := newTestEnv(t)
	sw := e.createSwitch()
	vr := e.create(sai.ObjectTypeVirtualRouter, sw)
	route := func(p string) sai.Key {
		return sai.RouteEntry{Switch: sw, VR: vr, Destination: netip.MustParsePrefix(p)}
	}

	keys := []sai.Key{route("10.0.0.0/8"), route("10.0.0.0/8"), route("2001:db8::/32")}
	statuses, err := e.m.BulkCreateEntries(e.ctx, keys, make([][]sai.Attribute, len(keys)), sai.BulkContinueOnError)
	wantStatus(t, "BulkCreateEntries", err, sai.StatusFailure)
	want := []sai.Status{sai.StatusSuccess, sai.StatusAlreadyExists, sai.StatusSuccess}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
	if got := e.m.Graph().InboundCount(vr); got != 2 {
		t.Errorf("InboundCount(vr) = %d, want 2", got)
	}

	statuses, err = e.m.BulkRemove(e.ctx, []sai.Key{keys[0], keys[2]}, sai.BulkStopOnError)
	if err != nil {
		t.Fatalf("BulkRemove error: %v (%v)", err, statuses)
	}
	if !e.m.Graph().CanRemove(vr) {
		t.Error("vr still referenced after removing its routes")
	}
	checkConsistent(t, e.m)
}
