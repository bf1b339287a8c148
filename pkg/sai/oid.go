// Package sai defines the core vocabulary shared by every layer: object ids,
// object types, entry keys, attribute values, statuses and notifications.
package sai

import (
	"fmt"
	"strconv"
	"strings"
)

// OID is a 64-bit object id. The layout is
//
//	bits 56-63  switch index
//	bits 48-55  object type
//	bits 40-47  global context
//	bits  0-39  object index
//
// A switch object's index equals its switch index.
type OID uint64

// NullOID is the null object id.
const NullOID OID = 0

const (
	oidSwitchIndexShift   = 56
	oidObjectTypeShift    = 48
	oidGlobalContextShift = 40

	// MaxObjectIndex is the largest object index encodable in an OID.
	MaxObjectIndex = (uint64(1) << 40) - 1
)

// NewOID packs the OID fields.
func NewOID(switchIndex uint8, ot ObjectType, globalContext uint8, index uint64) OID {
	return OID(uint64(switchIndex)<<oidSwitchIndexShift |
		uint64(uint8(ot))<<oidObjectTypeShift |
		uint64(globalContext)<<oidGlobalContextShift |
		index&MaxObjectIndex)
}

// NewSwitchOID builds the OID of the switch with the given index.
func NewSwitchOID(switchIndex, globalContext uint8) OID {
	return NewOID(switchIndex, ObjectTypeSwitch, globalContext, uint64(switchIndex))
}

// IsNull reports whether o is the null object id.
func (o OID) IsNull() bool { return o == NullOID }

// SwitchIndex returns the switch index field.
func (o OID) SwitchIndex() uint8 { return uint8(uint64(o) >> oidSwitchIndexShift) }

// GlobalContext returns the global context field.
func (o OID) GlobalContext() uint8 { return uint8(uint64(o) >> oidGlobalContextShift) }

// Index returns the object index field.
func (o OID) Index() uint64 { return uint64(o) & MaxObjectIndex }

// ObjectType decodes the object type from the id bits. The null id and ids
// carrying an unknown type decode to ObjectTypeNull.
func (o OID) ObjectType() ObjectType {
	if o.IsNull() {
		return ObjectTypeNull
	}
	ot := ObjectType(uint8(uint64(o) >> oidObjectTypeShift))
	if !ot.IsValid() {
		return ObjectTypeNull
	}
	return ot
}

// SwitchID returns the id of the switch owning o. It is computed from the
// id bits only.
func (o OID) SwitchID() OID {
	if o.ObjectType() == ObjectTypeNull {
		return NullOID
	}
	return NewSwitchOID(o.SwitchIndex(), o.GlobalContext())
}

// Members returns nil; an object id key has no member references.
func (o OID) Members() []KeyMember { return nil }

// Kind returns KindObjectID.
func (o OID) Kind() ValueKind { return KindObjectID }

func (o OID) String() string {
	return fmt.Sprintf("oid:0x%x", uint64(o))
}

// ParseOID parses the "oid:0x..." form.
func ParseOID(s string) (OID, error) {
	hex, ok := strings.CutPrefix(s, "oid:0x")
	if !ok {
		return NullOID, fmt.Errorf("invalid object id %q: missing oid:0x prefix", s)
	}
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return NullOID, fmt.Errorf("invalid object id %q: %w", s, err)
	}
	return OID(v), nil
}
