package asicdb

import (
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/schema"
	"github.com/newtron-network/saimeta/pkg/util"
)

// wireNotification is the JSON payload published on NOTIFICATIONS.
type wireNotification struct {
	Name   string      `json:"name"`
	Switch string      `json:"switch_id"`
	Status int32       `json:"status,omitempty"`
	Buffer []byte      `json:"buffer,omitempty"`
	Events []wireEvent `json:"events,omitempty"`
}

// wireEvent is one item of a batched notification. Type carries the FDB
// event type, NAT event type or deadlock event; State carries a port or
// BFD session state.
type wireEvent struct {
	Type  int32             `json:"type,omitempty"`
	State int32             `json:"state,omitempty"`
	OID   string            `json:"oid,omitempty"`
	Entry string            `json:"entry,omitempty"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// EncodeNotification renders n as a NOTIFICATIONS payload. Packet event
// attributes are not carried.
func EncodeNotification(s *schema.Schema, n sai.Notification) ([]byte, error) {
	w := wireNotification{Name: n.Kind().String(), Switch: n.SwitchID().String()}
	switch ev := n.(type) {
	case sai.SwitchStateChange:
		w.Status = ev.Status
	case sai.SwitchShutdownRequest:
	case sai.FdbEvent:
		for _, e := range ev.Events {
			attrs, err := EncodeAttrs(s, sai.ObjectTypeFdbEntry, e.Attrs)
			if err != nil {
				return nil, err
			}
			w.Events = append(w.Events, wireEvent{Type: int32(e.Type), Entry: e.Entry.String(), Attrs: attrs})
		}
	case sai.PortStateChange:
		for _, e := range ev.Events {
			w.Events = append(w.Events, wireEvent{OID: e.Port.String(), State: e.Status})
		}
	case sai.QueuePfcDeadlock:
		for _, e := range ev.Events {
			w.Events = append(w.Events, wireEvent{OID: e.Queue.String(), Type: e.Event})
		}
	case sai.BfdSessionStateChange:
		for _, e := range ev.Events {
			w.Events = append(w.Events, wireEvent{OID: e.Session.String(), State: e.State})
		}
	case sai.NatEvent:
		for _, e := range ev.Events {
			w.Events = append(w.Events, wireEvent{Type: e.Type, Entry: e.Entry.String()})
		}
	case sai.PacketEvent:
		w.Buffer = ev.Buffer
	default:
		return nil, fmt.Errorf("cannot encode %T", n)
	}
	return json.Marshal(w)
}

// DecodeNotification parses a NOTIFICATIONS payload.
func DecodeNotification(s *schema.Schema, payload []byte) (sai.Notification, error) {
	var w wireNotification
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("notification payload: %w", err)
	}
	kind, err := sai.ParseNotificationKind(w.Name)
	if err != nil {
		return nil, err
	}
	sw, err := sai.ParseOID(w.Switch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", w.Name, err)
	}

	switch kind {
	case sai.NotifySwitchStateChange:
		return sai.SwitchStateChange{Switch: sw, Status: w.Status}, nil
	case sai.NotifySwitchShutdownRequest:
		return sai.SwitchShutdownRequest{Switch: sw}, nil
	case sai.NotifyFdbEvent:
		n := sai.FdbEvent{Switch: sw}
		for _, e := range w.Events {
			key, err := sai.ParseKey(sai.ObjectTypeFdbEntry, e.Entry)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", w.Name, err)
			}
			attrs, err := DecodeAttrs(s, sai.ObjectTypeFdbEntry, e.Attrs)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", w.Name, err)
			}
			n.Events = append(n.Events, sai.FdbEventData{Type: sai.FdbEventType(e.Type), Entry: key.(sai.FdbEntry), Attrs: attrs})
		}
		return n, nil
	case sai.NotifyPortStateChange:
		n := sai.PortStateChange{Switch: sw}
		for _, e := range w.Events {
			oid, err := sai.ParseOID(e.OID)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", w.Name, err)
			}
			n.Events = append(n.Events, sai.PortStatus{Port: oid, Status: e.State})
		}
		return n, nil
	case sai.NotifyQueuePfcDeadlock:
		n := sai.QueuePfcDeadlock{Switch: sw}
		for _, e := range w.Events {
			oid, err := sai.ParseOID(e.OID)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", w.Name, err)
			}
			n.Events = append(n.Events, sai.QueueDeadlock{Queue: oid, Event: e.Type})
		}
		return n, nil
	case sai.NotifyBfdSessionStateChange:
		n := sai.BfdSessionStateChange{Switch: sw}
		for _, e := range w.Events {
			oid, err := sai.ParseOID(e.OID)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", w.Name, err)
			}
			n.Events = append(n.Events, sai.BfdSessionState{Session: oid, State: e.State})
		}
		return n, nil
	case sai.NotifyNatEvent:
		n := sai.NatEvent{Switch: sw}
		for _, e := range w.Events {
			key, err := sai.ParseKey(sai.ObjectTypeNatEntry, e.Entry)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", w.Name, err)
			}
			n.Events = append(n.Events, sai.NatEventData{Type: e.Type, Entry: key.(sai.NatEntry)})
		}
		return n, nil
	default:
		return sai.PacketEvent{Switch: sw, Buffer: w.Buffer}, nil
	}
}

// listen decodes NOTIFICATIONS messages and hands them to the sink until
// the subscription is closed.
func (c *Channel) listen(msgs <-chan *redis.Message) {
	defer c.wg.Done()
	for msg := range msgs {
		n, err := DecodeNotification(c.schema, []byte(msg.Payload))
		if err != nil {
			util.WithField("channel", msg.Channel).Warnf("dropping notification: %v", err)
			continue
		}
		if sink := c.currentSink(); sink != nil {
			sink(n)
		}
	}
}
