// Package channel defines the execution channel: the collaborator that
// applies validated operations to switch hardware or an emulation of it.
//
// Implementations report failures as sai statuses. A call whose effect is
// unknown (a timeout, a dropped connection after the request was sent)
// must return sai.StatusChannelIndeterminate so callers never assume either
// outcome.
package channel

import (
	"context"

	"github.com/newtron-network/saimeta/pkg/sai"
)

// Channel executes operations. Calls are synchronous; notifications are
// delivered on the implementation's own goroutine through the sink.
type Channel interface {
	// Create creates an OID object and returns its id. For a switch, sw is
	// ignored and the new switch id is returned.
	Create(ctx context.Context, ot sai.ObjectType, sw sai.OID, attrs []sai.Attribute) (sai.OID, error)
	CreateEntry(ctx context.Context, key sai.Key, attrs []sai.Attribute) error
	Remove(ctx context.Context, key sai.Key) error
	Set(ctx context.Context, key sai.Key, attr sai.Attribute) error
	Get(ctx context.Context, key sai.Key, ids []sai.AttrID) ([]sai.Attribute, error)

	// Bulk calls return one status per item. Under BulkStopOnError the
	// items after the first failure are reported as NotExecuted. The error
	// result is reserved for failures of the call as a whole.
	BulkCreate(ctx context.Context, ot sai.ObjectType, sw sai.OID, items [][]sai.Attribute, mode sai.BulkMode) ([]sai.OID, []sai.Status, error)
	BulkCreateEntries(ctx context.Context, keys []sai.Key, items [][]sai.Attribute, mode sai.BulkMode) ([]sai.Status, error)
	BulkRemove(ctx context.Context, keys []sai.Key, mode sai.BulkMode) ([]sai.Status, error)
	BulkSet(ctx context.Context, keys []sai.Key, attrs []sai.Attribute, mode sai.BulkMode) ([]sai.Status, error)

	GetStats(ctx context.Context, key sai.Key, ids []sai.StatID, mode sai.StatsMode) ([]uint64, error)
	ClearStats(ctx context.Context, key sai.Key, ids []sai.StatID) error

	// SetNotificationSink installs the function notifications are handed
	// to. A nil sink discards them.
	SetNotificationSink(sink func(sai.Notification))

	Close() error
}

// IsIndeterminate reports whether err means the call's effect is unknown.
func IsIndeterminate(err error) bool {
	return sai.StatusOf(err) == sai.StatusChannelIndeterminate
}

// Statuses returns n copies of s, the per-item result of a bulk call that
// failed as a whole.
func Statuses(n int, s sai.Status) []sai.Status {
	out := make([]sai.Status, n)
	for i := range out {
		out[i] = s
	}
	return out
}
