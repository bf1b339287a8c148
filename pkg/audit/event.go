// Package audit records the operations applied through the metadata layer
// so a session can be inspected or replayed later.
package audit

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/newtron-network/saimeta/pkg/sai"
)

// Event is one recorded operation.
type Event struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Operation  string            `json:"operation"`
	Switch     string            `json:"switch,omitempty"`
	ObjectType string            `json:"object_type,omitempty"`
	Key        string            `json:"key,omitempty"`
	Attrs      map[string]string `json:"attrs,omitempty"`
	Items      int               `json:"items,omitempty"` // bulk calls only
	Status     string            `json:"status"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Duration   time.Duration     `json:"duration"`
}

// Operation names used in events.
const (
	OpCreate       = "create"
	OpRemove       = "remove"
	OpSet          = "set"
	OpGet          = "get"
	OpBulkCreate   = "bulk_create"
	OpBulkRemove   = "bulk_remove"
	OpBulkSet      = "bulk_set"
	OpGetStats     = "get_stats"
	OpClearStats   = "clear_stats"
	OpPopulate     = "populate"
	OpNotification = "notification"
)

// Filter selects recorded events. Zero fields match everything.
type Filter struct {
	Switch      string
	Operation   string
	ObjectType  string
	Key         string
	Status      string // SAI_STATUS_* name
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
	Newest      bool // Limit and Offset count back from the most recent event
}

// Matches reports whether ev passes every criterion of f.
func (f Filter) Matches(ev *Event) bool {
	switch {
	case f.Switch != "" && ev.Switch != f.Switch,
		f.Operation != "" && ev.Operation != f.Operation,
		f.ObjectType != "" && ev.ObjectType != f.ObjectType,
		f.Key != "" && ev.Key != f.Key,
		f.Status != "" && ev.Status != f.Status,
		!f.StartTime.IsZero() && ev.Timestamp.Before(f.StartTime),
		!f.EndTime.IsZero() && ev.Timestamp.After(f.EndTime),
		f.SuccessOnly && !ev.Success,
		f.FailureOnly && ev.Success:
		return false
	}
	return true
}

// page applies Offset and Limit to events, which are oldest first.
func (f Filter) page(events []*Event) []*Event {
	n := len(events)
	lo, hi := f.Offset, n
	if f.Newest {
		lo, hi = 0, n-f.Offset
		if f.Limit > 0 && hi-f.Limit > 0 {
			lo = hi - f.Limit
		}
	} else if f.Limit > 0 && lo+f.Limit < n {
		hi = lo + f.Limit
	}
	if lo >= hi || lo >= n {
		return nil
	}
	return events[lo:hi]
}

// NewEvent creates an event for an operation on an object.
func NewEvent(operation string, key sai.Key) *Event {
	e := &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		Operation: operation,
	}
	if key != nil {
		e.ObjectType = key.ObjectType().String()
		e.Key = key.String()
		if sw := key.SwitchID(); !sw.IsNull() {
			e.Switch = sw.String()
		}
	}
	return e
}

// WithObjectType sets the object type, for calls without a single key.
func (e *Event) WithObjectType(ot sai.ObjectType) *Event {
	e.ObjectType = ot.String()
	return e
}

// WithSwitch sets the switch.
func (e *Event) WithSwitch(sw sai.OID) *Event {
	e.Switch = sw.String()
	return e
}

// WithKey replaces the key, for a create whose id is known only afterward.
func (e *Event) WithKey(key sai.Key) *Event {
	e.Key = key.String()
	return e
}

// WithAttrs records rendered attribute values by name.
func (e *Event) WithAttrs(attrs map[string]string) *Event {
	e.Attrs = attrs
	return e
}

// WithItems sets the number of items of a bulk call.
func (e *Event) WithItems(n int) *Event {
	e.Items = n
	return e
}

// WithResult records the outcome.
func (e *Event) WithResult(err error) *Event {
	e.Status = sai.StatusOf(err).String()
	e.Success = err == nil
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

var idSeq atomic.Uint64

func generateID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), idSeq.Add(1))
}
