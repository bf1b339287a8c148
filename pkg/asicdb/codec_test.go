package asicdb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/schema"
)

func defaultSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Default()
	if err != nil {
		t.Fatalf("schema.Default() error: %v", err)
	}
	return s
}

func TestObjectKey(t *testing.T) {
	sw := sai.NewSwitchOID(0, 0)
	vr := sai.NewOID(0, sai.ObjectTypeVirtualRouter, 0, 3)
	route := sai.RouteEntry{Switch: sw, VR: vr, Destination: netip.MustParsePrefix("10.1.0.0/16")}

	tests := []struct {
		name string
		key  sai.Key
	}{
		{"switch", sw},
		{"virtual router", vr},
		{"route entry", route},
		{"fdb entry", sai.FdbEntry{Switch: sw, MAC: sai.MAC{0, 1, 2, 3, 4, 5}, BVID: vr}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := ObjectKey(tt.key)
			want := "ASIC_STATE:" + tt.key.ObjectType().String() + ":"
			if !strings.HasPrefix(k, want) {
				t.Fatalf("ObjectKey() = %q, want prefix %q", k, want)
			}
			got, err := ParseObjectKey(k)
			if err != nil {
				t.Fatalf("ParseObjectKey(%q) error: %v", k, err)
			}
			if got != tt.key {
				t.Errorf("ParseObjectKey() = %v, want %v", got, tt.key)
			}
		})
	}
}

func TestParseObjectKeyRejects(t *testing.T) {
	for _, k := range []string{
		"CONFIG_DB:PORT|Ethernet0",
		"ASIC_STATE:SAI_OBJECT_TYPE_PORT",
		"ASIC_STATE:SAI_OBJECT_TYPE_NOPE:oid:0x1",
		"ASIC_STATE:SAI_OBJECT_TYPE_PORT:42",
	} {
		if _, err := ParseObjectKey(k); err == nil {
			t.Errorf("ParseObjectKey(%q) succeeded, want error", k)
		}
	}
}

func TestEncodeDecodeAttrs(t *testing.T) {
	s := defaultSchema(t)
	nh := sai.NewOID(0, sai.ObjectTypeNextHop, 0, 9)
	attrs := []sai.Attribute{
		{ID: 0, Value: sai.S32(0)},
		{ID: 2, Value: nh},
	}

	fields, err := EncodeAttrs(s, sai.ObjectTypeRouteEntry, attrs)
	if err != nil {
		t.Fatalf("EncodeAttrs() error: %v", err)
	}
	wantFields := map[string]string{
		"SAI_ROUTE_ENTRY_ATTR_PACKET_ACTION": "SAI_PACKET_ACTION_DROP",
		"SAI_ROUTE_ENTRY_ATTR_NEXT_HOP_ID":   nh.String(),
	}
	if diff := cmp.Diff(wantFields, fields); diff != "" {
		t.Errorf("EncodeAttrs() mismatch (-want +got):\n%s", diff)
	}

	fields[nullField] = nullField
	got, err := DecodeAttrs(s, sai.ObjectTypeRouteEntry, fields)
	if err != nil {
		t.Fatalf("DecodeAttrs() error: %v", err)
	}
	if diff := cmp.Diff(attrs, got); diff != "" {
		t.Errorf("DecodeAttrs() mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeAttrsSkipsPointers(t *testing.T) {
	s := defaultSchema(t)
	fdbNotify, _ := s.AttrByName(sai.ObjectTypeSwitch, "SAI_SWITCH_ATTR_FDB_EVENT_NOTIFY")
	fields, err := EncodeAttrs(s, sai.ObjectTypeSwitch, []sai.Attribute{
		{ID: 0, Value: sai.Bool(true)},
		{ID: fdbNotify.ID, Value: sai.Pointer{Handler: func(sai.Notification) {}}},
	})
	if err != nil {
		t.Fatalf("EncodeAttrs() error: %v", err)
	}
	if len(fields) != 1 || fields["SAI_SWITCH_ATTR_INIT_SWITCH"] != "true" {
		t.Errorf("EncodeAttrs() = %v, want only INIT_SWITCH", fields)
	}
}

func TestCodecUnknownAttribute(t *testing.T) {
	s := defaultSchema(t)
	_, err := EncodeAttrs(s, sai.ObjectTypeRouteEntry, []sai.Attribute{{ID: 99, Value: sai.U32(1)}})
	if sai.StatusOf(err) != sai.StatusUnknownAttribute {
		t.Errorf("EncodeAttrs() status = %v, want %v", sai.StatusOf(err), sai.StatusUnknownAttribute)
	}
	_, err = DecodeAttrs(s, sai.ObjectTypeRouteEntry, map[string]string{"SAI_ROUTE_ENTRY_ATTR_BOGUS": "1"})
	if sai.StatusOf(err) != sai.StatusUnknownAttribute {
		t.Errorf("DecodeAttrs() status = %v, want %v", sai.StatusOf(err), sai.StatusUnknownAttribute)
	}
	_, err = DecodeAttrs(s, sai.ObjectTypeRouteEntry, map[string]string{"SAI_ROUTE_ENTRY_ATTR_META_DATA": "many"})
	if sai.StatusOf(err) != sai.StatusInvalidParameter {
		t.Errorf("DecodeAttrs() status = %v, want %v", sai.StatusOf(err), sai.StatusInvalidParameter)
	}
}

func TestHsetArgs(t *testing.T) {
	if got := hsetArgs(nil); len(got) != 2 || got[0] != nullField || got[1] != nullField {
		t.Errorf("hsetArgs(nil) = %v, want NULL sentinel", got)
	}
	got := hsetArgs(map[string]string{"B": "2", "A": "1"})
	want := []interface{}{"A", "1", "B", "2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("hsetArgs() mismatch (-want +got):\n%s", diff)
	}
}

func TestNotificationRoundTrip(t *testing.T) {
	s := defaultSchema(t)
	sw := sai.NewSwitchOID(1, 0)
	bv := sai.NewOID(1, sai.ObjectTypeVlan, 0, 4)
	bp := sai.NewOID(1, sai.ObjectTypeBridgePort, 0, 5)
	port := sai.NewOID(1, sai.ObjectTypePort, 0, 6)
	queue := sai.NewOID(1, sai.ObjectTypeQueue, 0, 7)
	session := sai.NewOID(1, sai.ObjectTypeBfdSession, 0, 8)

	tests := []struct {
		name string
		n    sai.Notification
	}{
		{"switch state", sai.SwitchStateChange{Switch: sw, Status: sai.SwitchOperStatusDown}},
		{"shutdown", sai.SwitchShutdownRequest{Switch: sw}},
		{"fdb", sai.FdbEvent{Switch: sw, Events: []sai.FdbEventData{{
			Type:  sai.FdbEventLearned,
			Entry: sai.FdbEntry{Switch: sw, MAC: sai.MAC{0xa, 0, 0, 0, 0, 1}, BVID: bv},
			Attrs: []sai.Attribute{{ID: 0, Value: sai.S32(0)}, {ID: 2, Value: bp}},
		}}}},
		{"port state", sai.PortStateChange{Switch: sw, Events: []sai.PortStatus{{Port: port, Status: sai.PortOperStatusUp}}}},
		{"queue deadlock", sai.QueuePfcDeadlock{Switch: sw, Events: []sai.QueueDeadlock{{Queue: queue, Event: 1}}}},
		{"bfd", sai.BfdSessionStateChange{Switch: sw, Events: []sai.BfdSessionState{{Session: session, State: 3}}}},
		{"packet", sai.PacketEvent{Switch: sw, Buffer: []byte{1, 2, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := EncodeNotification(s, tt.n)
			if err != nil {
				t.Fatalf("EncodeNotification() error: %v", err)
			}
			got, err := DecodeNotification(s, payload)
			if err != nil {
				t.Fatalf("DecodeNotification(%s) error: %v", payload, err)
			}
			if diff := cmp.Diff(tt.n, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeNotificationRejects(t *testing.T) {
	s := defaultSchema(t)
	for _, payload := range []string{
		`not json`,
		`{"name":"mystery_event","switch_id":"oid:0x21000000000000"}`,
		`{"name":"fdb_event","switch_id":"bogus"}`,
		`{"name":"port_state_change","switch_id":"oid:0x21000000000000","events":[{"oid":"port0"}]}`,
	} {
		if _, err := DecodeNotification(s, []byte(payload)); err == nil {
			t.Errorf("DecodeNotification(%s) succeeded, want error", payload)
		}
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

func TestWriteErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want sai.Status
	}{
		{"deadline", context.DeadlineExceeded, sai.StatusChannelIndeterminate},
		{"wrapped deadline", fmt.Errorf("exec: %w", context.DeadlineExceeded), sai.StatusChannelIndeterminate},
		{"net timeout", timeoutError{}, sai.StatusChannelIndeterminate},
		{"refused", errors.New("connection refused"), sai.StatusFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sai.StatusOf(writeErr("op", tt.err)); got != tt.want {
				t.Errorf("writeErr() status = %v, want %v", got, tt.want)
			}
		})
	}
	if got := sai.StatusOf(readErr("op", context.DeadlineExceeded)); got != sai.StatusFailure {
		t.Errorf("readErr() status = %v, want %v", got, sai.StatusFailure)
	}
}
