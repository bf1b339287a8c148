package sai

import "fmt"

// NotificationKind indexes the per-switch handler table.
type NotificationKind int

const (
	NotifySwitchStateChange NotificationKind = iota
	NotifySwitchShutdownRequest
	NotifyFdbEvent
	NotifyPortStateChange
	NotifyPacketEvent
	NotifyQueuePfcDeadlock
	NotifyBfdSessionStateChange
	NotifyNatEvent

	// NumNotificationKinds sizes handler tables.
	NumNotificationKinds
)

var notificationNames = [NumNotificationKinds]string{
	NotifySwitchStateChange:     "switch_state_change",
	NotifySwitchShutdownRequest: "switch_shutdown_request",
	NotifyFdbEvent:              "fdb_event",
	NotifyPortStateChange:       "port_state_change",
	NotifyPacketEvent:           "packet_event",
	NotifyQueuePfcDeadlock:      "queue_pfc_deadlock",
	NotifyBfdSessionStateChange: "bfd_session_state_change",
	NotifyNatEvent:              "nat_event",
}

// notifyAttrNames are the switch attributes carrying each handler.
var notifyAttrNames = [NumNotificationKinds]string{
	NotifySwitchStateChange:     "SAI_SWITCH_ATTR_SWITCH_STATE_CHANGE_NOTIFY",
	NotifySwitchShutdownRequest: "SAI_SWITCH_ATTR_SHUTDOWN_REQUEST_NOTIFY",
	NotifyFdbEvent:              "SAI_SWITCH_ATTR_FDB_EVENT_NOTIFY",
	NotifyPortStateChange:       "SAI_SWITCH_ATTR_PORT_STATE_CHANGE_NOTIFY",
	NotifyPacketEvent:           "SAI_SWITCH_ATTR_PACKET_EVENT_NOTIFY",
	NotifyQueuePfcDeadlock:      "SAI_SWITCH_ATTR_QUEUE_PFC_DEADLOCK_NOTIFY",
	NotifyBfdSessionStateChange: "SAI_SWITCH_ATTR_BFD_SESSION_STATE_CHANGE_NOTIFY",
	NotifyNatEvent:              "SAI_SWITCH_ATTR_NAT_EVENT_NOTIFY",
}

func (k NotificationKind) String() string {
	if k >= 0 && k < NumNotificationKinds {
		return notificationNames[k]
	}
	return fmt.Sprintf("notification(%d)", int(k))
}

// AttrName returns the name of the switch attribute that carries the
// handler for this kind.
func (k NotificationKind) AttrName() string {
	if k >= 0 && k < NumNotificationKinds {
		return notifyAttrNames[k]
	}
	return ""
}

// ParseNotificationKind resolves a kind by its wire name.
func ParseNotificationKind(name string) (NotificationKind, error) {
	for k, n := range notificationNames {
		if n == name {
			return NotificationKind(k), nil
		}
	}
	return -1, fmt.Errorf("unknown notification %q", name)
}

// Notification is an asynchronous event raised by a switch.
type Notification interface {
	Kind() NotificationKind
	SwitchID() OID
}

// NotificationHandler receives notifications after metadata processing.
type NotificationHandler func(Notification)

// SwitchOperStatus values.
const (
	SwitchOperStatusUnknown int32 = 0
	SwitchOperStatusUp      int32 = 1
	SwitchOperStatusDown    int32 = 2
	SwitchOperStatusFailed  int32 = 3
)

// SwitchStateChange reports a new switch operational status.
type SwitchStateChange struct {
	Switch OID
	Status int32
}

func (SwitchStateChange) Kind() NotificationKind { return NotifySwitchStateChange }
func (n SwitchStateChange) SwitchID() OID       { return n.Switch }

// SwitchShutdownRequest asks the application to shut the switch down.
type SwitchShutdownRequest struct {
	Switch OID
}

func (SwitchShutdownRequest) Kind() NotificationKind { return NotifySwitchShutdownRequest }
func (n SwitchShutdownRequest) SwitchID() OID       { return n.Switch }

// FdbEventType values.
type FdbEventType int32

const (
	FdbEventLearned FdbEventType = 0
	FdbEventAged    FdbEventType = 1
	FdbEventMove    FdbEventType = 2
	FdbEventFlushed FdbEventType = 3
)

var fdbEventNames = map[FdbEventType]string{
	FdbEventLearned: "SAI_FDB_EVENT_LEARNED",
	FdbEventAged:    "SAI_FDB_EVENT_AGED",
	FdbEventMove:    "SAI_FDB_EVENT_MOVE",
	FdbEventFlushed: "SAI_FDB_EVENT_FLUSHED",
}

func (t FdbEventType) String() string {
	if n, ok := fdbEventNames[t]; ok {
		return n
	}
	return fmt.Sprintf("SAI_FDB_EVENT_%d", int32(t))
}

// FdbEventData is one learned, aged, moved or flushed FDB entry.
type FdbEventData struct {
	Type  FdbEventType
	Entry FdbEntry
	Attrs []Attribute
}

// FdbEvent carries a batch of FDB events.
type FdbEvent struct {
	Switch OID
	Events []FdbEventData
}

func (FdbEvent) Kind() NotificationKind { return NotifyFdbEvent }
func (n FdbEvent) SwitchID() OID       { return n.Switch }

// PortOperStatus values.
const (
	PortOperStatusUnknown int32 = 0
	PortOperStatusUp      int32 = 1
	PortOperStatusDown    int32 = 2
)

// PortStatus is the new state of one port, bridge port or LAG.
type PortStatus struct {
	Port   OID
	Status int32
}

// PortStateChange carries a batch of port status changes.
type PortStateChange struct {
	Switch OID
	Events []PortStatus
}

func (PortStateChange) Kind() NotificationKind { return NotifyPortStateChange }
func (n PortStateChange) SwitchID() OID       { return n.Switch }

// QueueDeadlock is a PFC deadlock detected or recovered on a queue.
type QueueDeadlock struct {
	Queue OID
	Event int32
}

// QueuePfcDeadlock carries a batch of queue deadlock events.
type QueuePfcDeadlock struct {
	Switch OID
	Events []QueueDeadlock
}

func (QueuePfcDeadlock) Kind() NotificationKind { return NotifyQueuePfcDeadlock }
func (n QueuePfcDeadlock) SwitchID() OID       { return n.Switch }

// BfdSessionState is the new state of one BFD session.
type BfdSessionState struct {
	Session OID
	State   int32
}

// BfdSessionStateChange carries a batch of BFD session state changes.
type BfdSessionStateChange struct {
	Switch OID
	Events []BfdSessionState
}

func (BfdSessionStateChange) Kind() NotificationKind { return NotifyBfdSessionStateChange }
func (n BfdSessionStateChange) SwitchID() OID       { return n.Switch }

// NatEventData is one aged or hit NAT entry.
type NatEventData struct {
	Type  int32
	Entry NatEntry
}

// NatEvent carries a batch of NAT events.
type NatEvent struct {
	Switch OID
	Events []NatEventData
}

func (NatEvent) Kind() NotificationKind { return NotifyNatEvent }
func (n NatEvent) SwitchID() OID       { return n.Switch }

// PacketEvent delivers a packet trapped to the host.
type PacketEvent struct {
	Switch OID
	Buffer []byte
	Attrs  []Attribute
}

func (PacketEvent) Kind() NotificationKind { return NotifyPacketEvent }
func (n PacketEvent) SwitchID() OID       { return n.Switch }

// StatID identifies a counter within an object type's stat set.
type StatID int32

// StatsMode selects how counters are read.
type StatsMode int32

const (
	StatsModeRead         StatsMode = 0
	StatsModeReadAndClear StatsMode = 1
)

// IsValid reports whether m is a known mode.
func (m StatsMode) IsValid() bool {
	return m == StatsModeRead || m == StatsModeReadAndClear
}

// BulkMode selects the bulk error policy.
type BulkMode int

const (
	BulkStopOnError BulkMode = iota
	BulkContinueOnError
)

func (m BulkMode) String() string {
	if m == BulkContinueOnError {
		return "continue_on_error"
	}
	return "stop_on_error"
}
