package sai

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"strconv"
)

// Key identifies an object. It is either an OID or one of the structured
// entry types below. Every implementation is a comparable value type so keys
// can be used directly as map keys.
type Key interface {
	ObjectType() ObjectType
	SwitchID() OID
	// Members returns the object ids embedded in the key other than the
	// switch id. They take part in the reference graph like attributes.
	Members() []KeyMember
	String() string
}

// KeyMember is an object id embedded in an entry key.
type KeyMember struct {
	Name    string
	OID     OID
	Allowed []ObjectType
}

// RouteEntry keys a route by virtual router and destination prefix.
type RouteEntry struct {
	Switch      OID
	VR          OID
	Destination netip.Prefix
}

func (RouteEntry) ObjectType() ObjectType { return ObjectTypeRouteEntry }
func (e RouteEntry) SwitchID() OID       { return e.Switch }
func (e RouteEntry) Members() []KeyMember {
	return []KeyMember{{Name: "vr", OID: e.VR, Allowed: []ObjectType{ObjectTypeVirtualRouter}}}
}
func (e RouteEntry) String() string {
	return encodeEntry(map[string]string{
		"switch_id": e.Switch.String(),
		"vr":        e.VR.String(),
		"dest":      e.Destination.String(),
	})
}

// NeighborEntry keys a neighbor by router interface and address.
type NeighborEntry struct {
	Switch OID
	RIF    OID
	IP     netip.Addr
}

func (NeighborEntry) ObjectType() ObjectType { return ObjectTypeNeighborEntry }
func (e NeighborEntry) SwitchID() OID       { return e.Switch }
func (e NeighborEntry) Members() []KeyMember {
	return []KeyMember{{Name: "rif", OID: e.RIF, Allowed: []ObjectType{ObjectTypeRouterInterface}}}
}
func (e NeighborEntry) String() string {
	return encodeEntry(map[string]string{
		"switch_id": e.Switch.String(),
		"rif":       e.RIF.String(),
		"ip":        e.IP.String(),
	})
}

// FdbEntry keys a unicast FDB entry by MAC and bridge or VLAN.
type FdbEntry struct {
	Switch OID
	MAC    MAC
	BVID   OID
}

func (FdbEntry) ObjectType() ObjectType { return ObjectTypeFdbEntry }
func (e FdbEntry) SwitchID() OID       { return e.Switch }
func (e FdbEntry) Members() []KeyMember {
	return []KeyMember{{Name: "bvid", OID: e.BVID, Allowed: []ObjectType{ObjectTypeBridge, ObjectTypeVlan}}}
}
func (e FdbEntry) String() string {
	return encodeEntry(map[string]string{
		"switch_id": e.Switch.String(),
		"mac":       e.MAC.String(),
		"bvid":      e.BVID.String(),
	})
}

// McastFdbEntry keys a multicast FDB entry.
type McastFdbEntry struct {
	Switch OID
	MAC    MAC
	BVID   OID
}

func (McastFdbEntry) ObjectType() ObjectType { return ObjectTypeMcastFdbEntry }
func (e McastFdbEntry) SwitchID() OID       { return e.Switch }
func (e McastFdbEntry) Members() []KeyMember {
	return []KeyMember{{Name: "bv_id", OID: e.BVID, Allowed: []ObjectType{ObjectTypeBridge, ObjectTypeVlan}}}
}
func (e McastFdbEntry) String() string {
	return encodeEntry(map[string]string{
		"switch_id": e.Switch.String(),
		"mac":       e.MAC.String(),
		"bv_id":     e.BVID.String(),
	})
}

// InsegEntry keys an MPLS in-segment by label.
type InsegEntry struct {
	Switch OID
	Label  uint32
}

func (InsegEntry) ObjectType() ObjectType { return ObjectTypeInsegEntry }
func (e InsegEntry) SwitchID() OID       { return e.Switch }
func (e InsegEntry) Members() []KeyMember { return nil }
func (e InsegEntry) String() string {
	return encodeEntry(map[string]string{
		"switch_id": e.Switch.String(),
		"label":     strconv.FormatUint(uint64(e.Label), 10),
	})
}

// NatEntry keys a NAT translation.
type NatEntry struct {
	Switch    OID
	VR        OID
	NatType   int32
	SrcIP     netip.Addr
	DstIP     netip.Addr
	Proto     uint8
	L4SrcPort uint16
	L4DstPort uint16
}

func (NatEntry) ObjectType() ObjectType { return ObjectTypeNatEntry }
func (e NatEntry) SwitchID() OID       { return e.Switch }
func (e NatEntry) Members() []KeyMember {
	return []KeyMember{{Name: "vr", OID: e.VR, Allowed: []ObjectType{ObjectTypeVirtualRouter}}}
}
func (e NatEntry) String() string {
	return encodeEntry(map[string]string{
		"switch_id":   e.Switch.String(),
		"vr":          e.VR.String(),
		"nat_type":    strconv.FormatInt(int64(e.NatType), 10),
		"src_ip":      addrString(e.SrcIP),
		"dst_ip":      addrString(e.DstIP),
		"proto":       strconv.FormatUint(uint64(e.Proto), 10),
		"l4_src_port": strconv.FormatUint(uint64(e.L4SrcPort), 10),
		"l4_dst_port": strconv.FormatUint(uint64(e.L4DstPort), 10),
	})
}

// L2mcEntry keys an L2 multicast entry.
type L2mcEntry struct {
	Switch      OID
	BVID        OID
	Type        int32
	Source      netip.Addr
	Destination netip.Addr
}

func (L2mcEntry) ObjectType() ObjectType { return ObjectTypeL2mcEntry }
func (e L2mcEntry) SwitchID() OID       { return e.Switch }
func (e L2mcEntry) Members() []KeyMember {
	return []KeyMember{{Name: "bv_id", OID: e.BVID, Allowed: []ObjectType{ObjectTypeBridge, ObjectTypeVlan}}}
}
func (e L2mcEntry) String() string {
	return encodeEntry(map[string]string{
		"switch_id":   e.Switch.String(),
		"bv_id":       e.BVID.String(),
		"type":        strconv.FormatInt(int64(e.Type), 10),
		"source":      addrString(e.Source),
		"destination": addrString(e.Destination),
	})
}

// IpmcEntry keys an IP multicast entry.
type IpmcEntry struct {
	Switch      OID
	VR          OID
	Type        int32
	Source      netip.Addr
	Destination netip.Addr
}

func (IpmcEntry) ObjectType() ObjectType { return ObjectTypeIpmcEntry }
func (e IpmcEntry) SwitchID() OID       { return e.Switch }
func (e IpmcEntry) Members() []KeyMember {
	return []KeyMember{{Name: "vr_id", OID: e.VR, Allowed: []ObjectType{ObjectTypeVirtualRouter}}}
}
func (e IpmcEntry) String() string {
	return encodeEntry(map[string]string{
		"switch_id":   e.Switch.String(),
		"vr_id":       e.VR.String(),
		"type":        strconv.FormatInt(int64(e.Type), 10),
		"source":      addrString(e.Source),
		"destination": addrString(e.Destination),
	})
}

// encodeEntry renders the canonical key form: a JSON object with sorted
// member names and no whitespace.
func encodeEntry(fields map[string]string) string {
	data, _ := json.Marshal(fields)
	return string(data)
}

func addrString(a netip.Addr) string {
	if !a.IsValid() {
		return ""
	}
	return a.String()
}

// ParseKey parses the canonical string form of a key of the given type.
func ParseKey(ot ObjectType, s string) (Key, error) {
	if !ot.IsEntry() {
		oid, err := ParseOID(s)
		if err != nil {
			return nil, err
		}
		if oid.ObjectType() != ot {
			return nil, fmt.Errorf("object id %s is not of type %s", oid, ot)
		}
		return oid, nil
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil, fmt.Errorf("invalid %s key %q: %w", ot, s, err)
	}
	p := &keyParser{fields: fields}
	sw := p.oid("switch_id")

	var key Key
	switch ot {
	case ObjectTypeRouteEntry:
		key = RouteEntry{Switch: sw, VR: p.oid("vr"), Destination: p.prefix("dest")}
	case ObjectTypeNeighborEntry:
		key = NeighborEntry{Switch: sw, RIF: p.oid("rif"), IP: p.addr("ip", false)}
	case ObjectTypeFdbEntry:
		key = FdbEntry{Switch: sw, MAC: p.mac("mac"), BVID: p.oid("bvid")}
	case ObjectTypeMcastFdbEntry:
		key = McastFdbEntry{Switch: sw, MAC: p.mac("mac"), BVID: p.oid("bv_id")}
	case ObjectTypeInsegEntry:
		key = InsegEntry{Switch: sw, Label: uint32(p.uint("label", 32))}
	case ObjectTypeNatEntry:
		key = NatEntry{
			Switch:    sw,
			VR:        p.oid("vr"),
			NatType:   int32(p.int("nat_type")),
			SrcIP:     p.addr("src_ip", true),
			DstIP:     p.addr("dst_ip", true),
			Proto:     uint8(p.uint("proto", 8)),
			L4SrcPort: uint16(p.uint("l4_src_port", 16)),
			L4DstPort: uint16(p.uint("l4_dst_port", 16)),
		}
	case ObjectTypeL2mcEntry:
		key = L2mcEntry{Switch: sw, BVID: p.oid("bv_id"), Type: int32(p.int("type")),
			Source: p.addr("source", true), Destination: p.addr("destination", false)}
	case ObjectTypeIpmcEntry:
		key = IpmcEntry{Switch: sw, VR: p.oid("vr_id"), Type: int32(p.int("type")),
			Source: p.addr("source", true), Destination: p.addr("destination", false)}
	default:
		return nil, fmt.Errorf("no entry key layout for %s", ot)
	}
	if p.err != nil {
		return nil, fmt.Errorf("invalid %s key %q: %w", ot, s, p.err)
	}
	return key, nil
}

// keyParser reads typed members and keeps the first error.
type keyParser struct {
	fields map[string]string
	err    error
}

func (p *keyParser) get(name string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v, ok := p.fields[name]
	if !ok {
		p.err = fmt.Errorf("missing member %q", name)
	}
	return v, ok
}

func (p *keyParser) oid(name string) OID {
	v, ok := p.get(name)
	if !ok {
		return NullOID
	}
	oid, err := ParseOID(v)
	if err != nil {
		p.err = err
	}
	return oid
}

func (p *keyParser) prefix(name string) netip.Prefix {
	v, ok := p.get(name)
	if !ok {
		return netip.Prefix{}
	}
	pfx, err := netip.ParsePrefix(v)
	if err != nil {
		p.err = err
	}
	return pfx
}

func (p *keyParser) addr(name string, optional bool) netip.Addr {
	v, ok := p.fields[name]
	if (!ok || v == "") && optional {
		return netip.Addr{}
	}
	v, ok = p.get(name)
	if !ok {
		return netip.Addr{}
	}
	a, err := netip.ParseAddr(v)
	if err != nil {
		p.err = err
	}
	return a
}

func (p *keyParser) mac(name string) MAC {
	v, ok := p.get(name)
	if !ok {
		return MAC{}
	}
	m, err := ParseMAC(v)
	if err != nil {
		p.err = err
	}
	return m
}

func (p *keyParser) uint(name string, bits int) uint64 {
	v, ok := p.get(name)
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, bits)
	if err != nil {
		p.err = err
	}
	return n
}

func (p *keyParser) int(name string) int64 {
	v, ok := p.get(name)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		p.err = err
	}
	return n
}
