package sai

import (
	"fmt"
	"net"
	"net/netip"
)

// ValueKind is the tag of an attribute value.
type ValueKind int

const (
	KindInvalid ValueKind = iota
	KindBool
	KindChardata
	KindU8
	KindS8
	KindU16
	KindS16
	KindU32
	KindS32
	KindU64
	KindS64
	KindMAC
	KindIPAddress
	KindIPPrefix
	KindObjectID
	KindObjectList
	KindU8List
	KindS8List
	KindU32List
	KindS32List
	KindIPAddressList
	KindU32Range
	KindS32Range
	KindACLField
	KindACLAction
	KindPointer
)

var kindNames = map[ValueKind]string{
	KindBool:          "bool",
	KindChardata:      "chardata",
	KindU8:            "u8",
	KindS8:            "s8",
	KindU16:           "u16",
	KindS16:           "s16",
	KindU32:           "u32",
	KindS32:           "s32",
	KindU64:           "u64",
	KindS64:           "s64",
	KindMAC:           "mac",
	KindIPAddress:     "ip_address",
	KindIPPrefix:      "ip_prefix",
	KindObjectID:      "object_id",
	KindObjectList:    "object_list",
	KindU8List:        "u8_list",
	KindS8List:        "s8_list",
	KindU32List:       "u32_list",
	KindS32List:       "s32_list",
	KindIPAddressList: "ip_address_list",
	KindU32Range:      "u32_range",
	KindS32Range:      "s32_range",
	KindACLField:      "acl_field",
	KindACLAction:     "acl_action",
	KindPointer:       "pointer",
}

func (k ValueKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseValueKind resolves a kind by its schema name.
func ParseValueKind(name string) (ValueKind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown value kind %q", name)
}

// IsList reports whether values of this kind carry a counted item list.
func (k ValueKind) IsList() bool {
	switch k {
	case KindObjectList, KindU8List, KindS8List, KindU32List, KindS32List, KindIPAddressList:
		return true
	}
	return false
}

// IsObject reports whether values of this kind hold object ids directly.
func (k ValueKind) IsObject() bool {
	return k == KindObjectID || k == KindObjectList
}

// Value is an attribute value. Exactly one concrete type exists per kind.
type Value interface {
	Kind() ValueKind
}

// AttrID identifies an attribute within its object type.
type AttrID int32

// Attribute pairs an attribute id with its value.
type Attribute struct {
	ID    AttrID
	Value Value
}

type (
	Bool     bool
	Chardata string
	U8       uint8
	S8       int8
	U16      uint16
	S16      int16
	U32      uint32
	S32      int32
	U64      uint64
	S64      int64
)

func (Bool) Kind() ValueKind     { return KindBool }
func (Chardata) Kind() ValueKind { return KindChardata }
func (U8) Kind() ValueKind       { return KindU8 }
func (S8) Kind() ValueKind       { return KindS8 }
func (U16) Kind() ValueKind      { return KindU16 }
func (S16) Kind() ValueKind      { return KindS16 }
func (U32) Kind() ValueKind      { return KindU32 }
func (S32) Kind() ValueKind      { return KindS32 }
func (U64) Kind() ValueKind      { return KindU64 }
func (S64) Kind() ValueKind      { return KindS64 }

// MAC is a 48-bit hardware address.
type MAC [6]byte

func (MAC) Kind() ValueKind { return KindMAC }

func (m MAC) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsZero reports whether every byte is zero.
func (m MAC) IsZero() bool { return m == MAC{} }

// ParseMAC parses the colon separated hex form.
func ParseMAC(s string) (MAC, error) {
	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return MAC{}, fmt.Errorf("invalid mac address %q", s)
	}
	var m MAC
	copy(m[:], hw)
	return m, nil
}

// IPAddress is an IPv4 or IPv6 address.
type IPAddress struct {
	netip.Addr
}

func (IPAddress) Kind() ValueKind { return KindIPAddress }

// IPPrefix is an address with a contiguous mask.
type IPPrefix struct {
	netip.Prefix
}

func (IPPrefix) Kind() ValueKind { return KindIPPrefix }

// List is a counted list. Count is the declared length; Items holds the
// data and must be nil when Count is zero.
type List[T comparable] struct {
	Count uint32
	Items []T
}

type (
	ObjectList    = List[OID]
	U8List        = List[uint8]
	S8List        = List[int8]
	U32List       = List[uint32]
	S32List       = List[int32]
	IPAddressList = List[IPAddress]
)

// NewList builds a list whose count matches its items.
func NewList[T comparable](items ...T) List[T] {
	if len(items) == 0 {
		return List[T]{}
	}
	return List[T]{Count: uint32(len(items)), Items: items}
}

func (l List[T]) Kind() ValueKind {
	var zero T
	switch any(zero).(type) {
	case OID:
		return KindObjectList
	case uint8:
		return KindU8List
	case int8:
		return KindS8List
	case uint32:
		return KindU32List
	case int32:
		return KindS32List
	case IPAddress:
		return KindIPAddressList
	}
	return KindInvalid
}

// Len returns the declared count.
func (l List[T]) Len() int { return int(l.Count) }

// U32Range is an inclusive unsigned range.
type U32Range struct {
	Min, Max uint32
}

func (U32Range) Kind() ValueKind { return KindU32Range }

// S32Range is an inclusive signed range.
type S32Range struct {
	Min, Max int32
}

func (S32Range) Kind() ValueKind { return KindS32Range }

// ACLField is an ACL match field. The kind of Data and Mask is declared by
// the attribute metadata; Mask is nil for object id data.
type ACLField struct {
	Enable bool
	Data   Value
	Mask   Value
}

func (ACLField) Kind() ValueKind { return KindACLField }

// ACLAction is an ACL action with an optional parameter.
type ACLAction struct {
	Enable    bool
	Parameter Value
}

func (ACLAction) Kind() ValueKind { return KindACLAction }

// Pointer holds a notification handler. A nil Handler clears the slot.
type Pointer struct {
	Handler NotificationHandler
}

func (Pointer) Kind() ValueKind { return KindPointer }

// ReferencedOIDs returns the non-null object ids carried by v, including the
// data and parameter of enabled ACL fields and actions.
func ReferencedOIDs(v Value) []OID {
	var out []OID
	switch val := v.(type) {
	case OID:
		if !val.IsNull() {
			out = append(out, val)
		}
	case ObjectList:
		for _, o := range val.Items {
			if !o.IsNull() {
				out = append(out, o)
			}
		}
	case ACLField:
		if val.Enable && val.Data != nil {
			out = append(out, ReferencedOIDs(val.Data)...)
		}
	case ACLAction:
		if val.Enable && val.Parameter != nil {
			out = append(out, ReferencedOIDs(val.Parameter)...)
		}
	}
	return out
}

// CarriesObjects reports whether values of the given kind, with the given
// ACL data kind, may hold object ids.
func CarriesObjects(kind, aclDataKind ValueKind) bool {
	if kind.IsObject() {
		return true
	}
	if kind == KindACLField || kind == KindACLAction {
		return aclDataKind.IsObject()
	}
	return false
}
