package audit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/util"
)

func newTestRecorder(t *testing.T, rotation RotationConfig) (*FileRecorder, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "record.log")
	r, err := NewFileRecorder(path, rotation)
	if err != nil {
		t.Fatalf("NewFileRecorder failed: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r, path
}

func TestEvent_New(t *testing.T) {
	vr := sai.NewOID(0, sai.ObjectTypeVirtualRouter, 0, 7)
	event := NewEvent(OpRemove, vr)

	if event.Operation != OpRemove {
		t.Errorf("Operation = %q, want %q", event.Operation, OpRemove)
	}
	if event.ObjectType != "SAI_OBJECT_TYPE_VIRTUAL_ROUTER" {
		t.Errorf("ObjectType = %q", event.ObjectType)
	}
	if event.Key != vr.String() {
		t.Errorf("Key = %q, want %q", event.Key, vr.String())
	}
	if event.Switch != sai.NewSwitchOID(0, 0).String() {
		t.Errorf("Switch = %q", event.Switch)
	}
	if event.ID == "" {
		t.Error("ID should not be empty")
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestEvent_UniqueIDs(t *testing.T) {
	a := NewEvent(OpGet, nil)
	b := NewEvent(OpGet, nil)
	if a.ID == b.ID {
		t.Errorf("two events share id %q", a.ID)
	}
}

func TestEvent_Chaining(t *testing.T) {
	sw := sai.NewSwitchOID(1, 0)
	event := NewEvent(OpBulkCreate, nil).
		WithObjectType(sai.ObjectTypeNextHop).
		WithSwitch(sw).
		WithItems(3).
		WithAttrs(map[string]string{"SAI_NEXT_HOP_ATTR_TYPE": "SAI_NEXT_HOP_TYPE_IP"}).
		WithResult(nil).
		WithDuration(time.Second)

	if event.ObjectType != "SAI_OBJECT_TYPE_NEXT_HOP" {
		t.Errorf("ObjectType = %q", event.ObjectType)
	}
	if event.Switch != sw.String() {
		t.Errorf("Switch = %q", event.Switch)
	}
	if event.Items != 3 {
		t.Errorf("Items = %d", event.Items)
	}
	if len(event.Attrs) != 1 {
		t.Errorf("Attrs = %v", event.Attrs)
	}
	if !event.Success || event.Status != "SAI_STATUS_SUCCESS" {
		t.Errorf("Success = %v, Status = %q", event.Success, event.Status)
	}
	if event.Duration != time.Second {
		t.Errorf("Duration = %v", event.Duration)
	}
}

func TestEvent_WithResultError(t *testing.T) {
	event := NewEvent(OpCreate, nil).
		WithResult(sai.Errorf(sai.StatusObjectInUse, "referenced by 2 objects"))

	if event.Success {
		t.Error("Success should be false")
	}
	if event.Status != "SAI_STATUS_OBJECT_IN_USE" {
		t.Errorf("Status = %q", event.Status)
	}
	if event.Error != "SAI_STATUS_OBJECT_IN_USE: referenced by 2 objects" {
		t.Errorf("Error = %q", event.Error)
	}
}

func TestFileRecorder_Basic(t *testing.T) {
	r, _ := newTestRecorder(t, RotationConfig{})

	vr := sai.NewOID(0, sai.ObjectTypeVirtualRouter, 0, 1)
	if err := r.Record(NewEvent(OpCreate, vr).WithResult(nil)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	events, err := r.Query(Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Key != vr.String() {
		t.Errorf("Key = %q, want %q", events[0].Key, vr.String())
	}
	if events[0].Operation != OpCreate {
		t.Errorf("Operation = %q, want %q", events[0].Operation, OpCreate)
	}
}

func TestFileRecorder_QueryFilters(t *testing.T) {
	r, _ := newTestRecorder(t, RotationConfig{})

	sw0 := sai.NewSwitchOID(0, 0)
	sw1 := sai.NewSwitchOID(1, 0)
	events := []*Event{
		NewEvent(OpCreate, sai.NewOID(0, sai.ObjectTypeVirtualRouter, 0, 1)).WithResult(nil),
		NewEvent(OpSet, sai.NewOID(0, sai.ObjectTypePort, 0, 2)).WithResult(nil),
		NewEvent(OpRemove, sai.NewOID(1, sai.ObjectTypeVirtualRouter, 0, 3)).WithResult(sai.StatusObjectInUse),
		NewEvent(OpCreate, sai.NewOID(1, sai.ObjectTypeNextHop, 0, 4)).WithResult(nil),
	}
	for _, e := range events {
		if err := r.Record(e); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"by switch", Filter{Switch: sw0.String()}, 2},
		{"by other switch", Filter{Switch: sw1.String()}, 2},
		{"by operation", Filter{Operation: OpCreate}, 2},
		{"by object type", Filter{ObjectType: "SAI_OBJECT_TYPE_VIRTUAL_ROUTER"}, 2},
		{"success only", Filter{SuccessOnly: true}, 3},
		{"failure only", Filter{FailureOnly: true}, 1},
		{"limit", Filter{Limit: 2}, 2},
		{"offset", Filter{Offset: 3}, 1},
		{"offset past end", Filter{Offset: 10}, 0},
		{"by key", Filter{Key: sai.NewOID(0, sai.ObjectTypePort, 0, 2).String()}, 1},
		{"by status", Filter{Status: "SAI_STATUS_OBJECT_IN_USE"}, 1},
		{"newest", Filter{Limit: 3, Newest: true}, 3},
		{"newest offset", Filter{Offset: 3, Limit: 3, Newest: true}, 1},
		{"newest offset past end", Filter{Offset: 10, Newest: true}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := r.Query(tt.filter)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(results) != tt.want {
				t.Errorf("got %d events, want %d", len(results), tt.want)
			}
		})
	}
}

func TestFileRecorder_QueryTimeFilter(t *testing.T) {
	r, _ := newTestRecorder(t, RotationConfig{})
	r.Record(NewEvent(OpGet, nil).WithResult(nil))

	results, _ := r.Query(Filter{
		StartTime: time.Now().Add(-time.Hour),
		EndTime:   time.Now().Add(time.Hour),
	})
	if len(results) != 1 {
		t.Errorf("Expected 1 event in time range, got %d", len(results))
	}

	results, _ = r.Query(Filter{StartTime: time.Now().Add(time.Hour)})
	if len(results) != 0 {
		t.Errorf("Expected 0 events outside time range, got %d", len(results))
	}
}

func TestFileRecorder_SkipsMalformedLines(t *testing.T) {
	r, path := newTestRecorder(t, RotationConfig{})
	r.Record(NewEvent(OpGet, nil).WithResult(nil))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{not json\n")
	f.Close()
	r.Record(NewEvent(OpSet, nil).WithResult(nil))

	results, err := r.Query(Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 events, got %d", len(results))
	}
}

func TestFileRecorder_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "record.log")
	r, err := NewFileRecorder(path, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileRecorder should create directories: %v", err)
	}
	defer r.Close()
}

func TestFileRecorder_QueryRemovedFile(t *testing.T) {
	r, path := newTestRecorder(t, RotationConfig{})
	os.Remove(path)

	results, err := r.Query(Filter{})
	if err != nil {
		t.Errorf("Query on missing file should not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected 0 events, got %d", len(results))
	}
}

func TestDefaultRecorder(t *testing.T) {
	SetDefault(nil)
	defer SetDefault(nil)

	if err := Record(NewEvent(OpGet, nil)); err != nil {
		t.Errorf("Record with nil default should not error: %v", err)
	}
	results, err := Query(Filter{})
	if err != nil {
		t.Errorf("Query with nil default should not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected 0 results, got %d", len(results))
	}

	r, _ := newTestRecorder(t, RotationConfig{})
	SetDefault(r)

	if err := Record(NewEvent(OpGet, nil).WithResult(nil)); err != nil {
		t.Errorf("Record failed: %v", err)
	}
	results, err = Query(Filter{})
	if err != nil {
		t.Errorf("Query failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Expected 1 result, got %d", len(results))
	}
}

func TestFileRecorder_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "record.log")
	// Small enough that every write after the first rotates.
	r, err := NewFileRecorder(path, RotationConfig{MaxSize: 100, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewFileRecorder failed: %v", err)
	}
	defer r.Close()

	for i := 0; i < 5; i++ {
		e := NewEvent(OpCreate, sai.NewOID(0, sai.ObjectTypeVirtualRouter, 0, uint64(i+1))).WithResult(nil)
		if err := r.Record(e); err != nil {
			t.Fatalf("Log %d failed: %v", i, err)
		}
	}

	backups, err := filepath.Glob(path + ".*")
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 2 {
		t.Errorf("Expected 2 backups, got %d: %v", len(backups), backups)
	}

	results, err := r.Query(Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	// The live file plus two backups hold the last three events.
	if len(results) != 3 {
		t.Fatalf("Expected 3 events across files, got %d", len(results))
	}
	for i, ev := range results {
		want := sai.NewOID(0, sai.ObjectTypeVirtualRouter, 0, uint64(i+3)).String()
		if ev.Key != want {
			t.Errorf("results[%d].Key = %s, want %s", i, ev.Key, want)
		}
	}
}

func TestFileRecorder_NewestKeepsOrder(t *testing.T) {
	r, _ := newTestRecorder(t, RotationConfig{})
	for i := 1; i <= 5; i++ {
		r.Record(NewEvent(OpGet, sai.NewOID(0, sai.ObjectTypePort, 0, uint64(i))).WithResult(nil))
	}

	results, err := r.Query(Filter{Limit: 2, Newest: true})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	var got []string
	for _, ev := range results {
		got = append(got, ev.Key)
	}
	want := []string{
		sai.NewOID(0, sai.ObjectTypePort, 0, 4).String(),
		sai.NewOID(0, sai.ObjectTypePort, 0, 5).String(),
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("newest keys = %v, want %v", got, want)
	}
}

func TestFileRecorder_RecordAfterClose(t *testing.T) {
	r, _ := newTestRecorder(t, RotationConfig{})
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := r.Record(NewEvent(OpGet, nil)); !errors.Is(err, util.ErrClosed) {
		t.Errorf("Record after Close = %v, want ErrClosed", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}
