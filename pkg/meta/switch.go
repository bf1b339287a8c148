package meta

import (
	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/schema"
)

// SwitchInstance is the per-switch state kept alongside the object store:
// the notification handler table and the operational state reported by
// notifications.
type SwitchInstance struct {
	ID                sai.OID
	OperStatus        int32
	ShutdownRequested bool

	schema   *schema.Schema
	handlers [sai.NumNotificationKinds]sai.NotificationHandler
}

func newSwitchInstance(s *schema.Schema, id sai.OID) *SwitchInstance {
	return &SwitchInstance{ID: id, schema: s, OperStatus: sai.SwitchOperStatusUnknown}
}

// UpdateNotifications replaces the handler slots named by notification
// attributes in attrs. Other known switch attributes are ignored; an id
// the switch schema does not know fails the whole update with no slot
// changed.
func (sw *SwitchInstance) UpdateNotifications(attrs []sai.Attribute) error {
	type update struct {
		kind    sai.NotificationKind
		handler sai.NotificationHandler
	}
	var updates []update
	for _, a := range attrs {
		md, ok := sw.schema.Attr(sai.ObjectTypeSwitch, a.ID)
		if !ok {
			return sai.Errorf(sai.StatusInvalidParameter, "switch attribute %d is unknown", a.ID)
		}
		kind, ok := notificationKindForAttr(md.Name)
		if !ok {
			continue
		}
		p, ok := a.Value.(sai.Pointer)
		if !ok {
			return sai.Errorf(sai.StatusInvalidParameter, "%s: value is not a handler", md.Name)
		}
		updates = append(updates, update{kind: kind, handler: p.Handler})
	}
	for _, u := range updates {
		sw.handlers[u.kind] = u.handler
	}
	return nil
}

// Handler returns the application handler for kind, or nil.
func (sw *SwitchInstance) Handler(kind sai.NotificationKind) sai.NotificationHandler {
	if kind < 0 || kind >= sai.NumNotificationKinds {
		return nil
	}
	return sw.handlers[kind]
}

func notificationKindForAttr(name string) (sai.NotificationKind, bool) {
	for k := sai.NotificationKind(0); k < sai.NumNotificationKinds; k++ {
		if k.AttrName() == name {
			return k, true
		}
	}
	return 0, false
}
