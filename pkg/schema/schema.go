// Package schema holds the static per-object-type attribute metadata that
// drives validation. A Schema is read-only once loaded.
package schema

import (
	"sort"
	"strconv"

	"github.com/newtron-network/saimeta/pkg/sai"
)

// AttrFlags describe how an attribute may be used.
type AttrFlags uint32

const (
	FlagMandatoryOnCreate AttrFlags = 1 << iota
	FlagCreateOnly
	FlagCreateAndSet
	FlagReadOnly
	FlagKey
)

var flagNames = map[string]AttrFlags{
	"mandatory_on_create": FlagMandatoryOnCreate,
	"create_only":         FlagCreateOnly,
	"create_and_set":      FlagCreateAndSet,
	"read_only":           FlagReadOnly,
	"key":                 FlagKey,
}

// Condition makes an attribute conditional on another attribute's value.
type Condition struct {
	Attr  sai.AttrID
	Value sai.Value // sai.Bool or sai.S32
}

// Enum is the legal value set of an enum or enum-list attribute.
type Enum struct {
	Name   string
	values map[int32]string
	names  map[string]int32
}

// NewEnum builds an enum from a name to value map.
func NewEnum(name string, values map[string]int32) *Enum {
	e := &Enum{Name: name, values: make(map[int32]string, len(values)), names: make(map[string]int32, len(values))}
	for n, v := range values {
		e.values[v] = n
		e.names[n] = v
	}
	return e
}

// Contains reports whether v is a legal value.
func (e *Enum) Contains(v int32) bool {
	_, ok := e.values[v]
	return ok
}

// EnumName implements sai.EnumNames.
func (e *Enum) EnumName(v int32) (string, bool) {
	n, ok := e.values[v]
	return n, ok
}

// EnumValue implements sai.EnumNames.
func (e *Enum) EnumValue(name string) (int32, bool) {
	v, ok := e.names[name]
	return v, ok
}

// Len returns the number of legal values.
func (e *Enum) Len() int { return len(e.values) }

// AttrMetadata describes one attribute of one object type.
type AttrMetadata struct {
	ObjectType sai.ObjectType
	ID         sai.AttrID
	Name       string
	Kind       sai.ValueKind
	Flags      AttrFlags

	// AllowedObjectTypes lists the types an object id, object list, or
	// object-carrying ACL field/action may reference.
	AllowedObjectTypes []sai.ObjectType
	AllowNull          bool

	// ACLDataKind is the kind of an ACL field's data and mask or an ACL
	// action's parameter. KindInvalid means no parameter.
	ACLDataKind sai.ValueKind

	Enum       *Enum
	Default    sai.Value
	Conditions []Condition
}

func (md *AttrMetadata) IsMandatoryOnCreate() bool { return md.Flags&FlagMandatoryOnCreate != 0 }
func (md *AttrMetadata) IsCreateOnly() bool        { return md.Flags&FlagCreateOnly != 0 }
func (md *AttrMetadata) IsCreateAndSet() bool      { return md.Flags&FlagCreateAndSet != 0 }
func (md *AttrMetadata) IsReadOnly() bool          { return md.Flags&FlagReadOnly != 0 }
func (md *AttrMetadata) IsKey() bool               { return md.Flags&FlagKey != 0 }
func (md *AttrMetadata) IsConditional() bool       { return len(md.Conditions) > 0 }

// IsEnum reports whether the attribute is a single enum value.
func (md *AttrMetadata) IsEnum() bool { return md.Enum != nil && md.Kind == sai.KindS32 }

// IsEnumList reports whether the attribute is a list of enum values.
func (md *AttrMetadata) IsEnumList() bool { return md.Enum != nil && md.Kind == sai.KindS32List }

// CarriesObjects reports whether values of this attribute can hold object ids.
func (md *AttrMetadata) CarriesObjects() bool {
	return sai.CarriesObjects(md.Kind, md.ACLDataKind)
}

// Allows reports whether ot is a permitted reference target.
func (md *AttrMetadata) Allows(ot sai.ObjectType) bool {
	for _, a := range md.AllowedObjectTypes {
		if a == ot {
			return true
		}
	}
	return false
}

// Format renders a value of this attribute, using enum names.
func (md *AttrMetadata) Format(v sai.Value) string {
	return sai.FormatValue(v, md.enumNames())
}

// Parse parses a value of this attribute from its text form.
func (md *AttrMetadata) Parse(s string) (sai.Value, error) {
	return sai.ParseValue(md.Kind, s, sai.ParseOptions{Enum: md.enumNames(), ACLDataKind: md.ACLDataKind})
}

func (md *AttrMetadata) enumNames() sai.EnumNames {
	if md.Enum == nil {
		return nil
	}
	return md.Enum
}

// ObjectInfo describes one object type.
type ObjectInfo struct {
	Type  sai.ObjectType
	attrs []*AttrMetadata
	byID  map[sai.AttrID]*AttrMetadata
	byNm  map[string]*AttrMetadata
	stats []string
}

// Attr returns the metadata of an attribute.
func (oi *ObjectInfo) Attr(id sai.AttrID) (*AttrMetadata, bool) {
	md, ok := oi.byID[id]
	return md, ok
}

// AttrByName returns the metadata of an attribute by name.
func (oi *ObjectInfo) AttrByName(name string) (*AttrMetadata, bool) {
	md, ok := oi.byNm[name]
	return md, ok
}

// Attrs returns every attribute in id order.
func (oi *ObjectInfo) Attrs() []*AttrMetadata { return oi.attrs }

// KeyAttrs returns the key-flagged attributes in id order.
func (oi *ObjectInfo) KeyAttrs() []*AttrMetadata {
	var keys []*AttrMetadata
	for _, md := range oi.attrs {
		if md.IsKey() {
			keys = append(keys, md)
		}
	}
	return keys
}

// Stats returns counter names indexed by stat id.
func (oi *ObjectInfo) Stats() []string { return oi.stats }

// HasStat reports whether id is a declared counter.
func (oi *ObjectInfo) HasStat(id sai.StatID) bool {
	return id >= 0 && int(id) < len(oi.stats)
}

// StatName returns the counter name for id.
func (oi *ObjectInfo) StatName(id sai.StatID) string {
	if !oi.HasStat(id) {
		return ""
	}
	return oi.stats[id]
}

// StatID resolves a counter name.
func (oi *ObjectInfo) StatID(name string) (sai.StatID, bool) {
	for i, n := range oi.stats {
		if n == name {
			return sai.StatID(i), true
		}
	}
	return 0, false
}

// Schema is the full metadata table.
type Schema struct {
	objects map[sai.ObjectType]*ObjectInfo
}

// Object returns the description of an object type.
func (s *Schema) Object(ot sai.ObjectType) (*ObjectInfo, bool) {
	oi, ok := s.objects[ot]
	return oi, ok
}

// Attr returns the metadata of (ot, id).
func (s *Schema) Attr(ot sai.ObjectType, id sai.AttrID) (*AttrMetadata, bool) {
	oi, ok := s.objects[ot]
	if !ok {
		return nil, false
	}
	return oi.Attr(id)
}

// AttrByName returns the metadata of an attribute of ot by name.
func (s *Schema) AttrByName(ot sai.ObjectType, name string) (*AttrMetadata, bool) {
	oi, ok := s.objects[ot]
	if !ok {
		return nil, false
	}
	return oi.AttrByName(name)
}

// ObjectTypes returns the described types in numeric order.
func (s *Schema) ObjectTypes() []sai.ObjectType {
	types := make([]sai.ObjectType, 0, len(s.objects))
	for ot := range s.objects {
		types = append(types, ot)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// AttrName returns a printable attribute name, falling back to the number.
func (s *Schema) AttrName(ot sai.ObjectType, id sai.AttrID) string {
	if md, ok := s.Attr(ot, id); ok {
		return md.Name
	}
	return ot.String() + " attr " + strconv.Itoa(int(id))
}
