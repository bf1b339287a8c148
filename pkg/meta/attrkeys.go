package meta

import (
	"strings"

	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/schema"
)

// AttrKeyIndex enforces uniqueness of key-flagged attribute tuples per
// switch and object type, e.g. one VLAN object per VLAN id.
type AttrKeyIndex struct {
	schema *schema.Schema
	keys   map[string]sai.OID
	owners map[sai.OID]string
}

// NewAttrKeyIndex returns an empty index.
func NewAttrKeyIndex(s *schema.Schema) *AttrKeyIndex {
	return &AttrKeyIndex{
		schema: s,
		keys:   make(map[string]sai.OID),
		owners: make(map[sai.OID]string),
	}
}

// Tuple renders the canonical key tuple of an object about to be created.
// It returns false when the type has no key attributes or attrs does not
// carry all of them.
func (x *AttrKeyIndex) Tuple(ot sai.ObjectType, sw sai.OID, attrs []sai.Attribute) (string, bool) {
	oi, ok := x.schema.Object(ot)
	if !ok {
		return "", false
	}
	keyAttrs := oi.KeyAttrs()
	if len(keyAttrs) == 0 {
		return "", false
	}
	var b strings.Builder
	b.WriteString(sw.String())
	b.WriteByte(';')
	b.WriteString(ot.String())
	for _, md := range keyAttrs {
		v, ok := findAttr(attrs, md.ID)
		if !ok {
			return "", false
		}
		b.WriteByte(';')
		b.WriteString(md.Name)
		b.WriteByte('=')
		b.WriteString(md.Format(v))
	}
	return b.String(), true
}

// Owner returns the object holding tuple.
func (x *AttrKeyIndex) Owner(tuple string) (sai.OID, bool) {
	oid, ok := x.keys[tuple]
	return oid, ok
}

// Insert records that oid holds tuple.
func (x *AttrKeyIndex) Insert(tuple string, oid sai.OID) {
	x.keys[tuple] = oid
	x.owners[oid] = tuple
}

// Remove releases the tuple held by oid, if any.
func (x *AttrKeyIndex) Remove(oid sai.OID) {
	if tuple, ok := x.owners[oid]; ok {
		delete(x.keys, tuple)
		delete(x.owners, oid)
	}
}

// Rebuild re-derives the index from live objects.
func (x *AttrKeyIndex) Rebuild(objs []*Object) {
	x.Clear()
	for _, o := range objs {
		oid, ok := o.Key.(sai.OID)
		if !ok {
			continue
		}
		if tuple, ok := x.Tuple(o.Type, o.Switch, o.Attrs()); ok {
			x.Insert(tuple, oid)
		}
	}
}

// Len returns the number of indexed tuples.
func (x *AttrKeyIndex) Len() int { return len(x.keys) }

// Clear drops every tuple.
func (x *AttrKeyIndex) Clear() {
	x.keys = make(map[string]sai.OID)
	x.owners = make(map[sai.OID]string)
}

func findAttr(attrs []sai.Attribute, id sai.AttrID) (sai.Value, bool) {
	for _, a := range attrs {
		if a.ID == id {
			return a.Value, true
		}
	}
	return nil, false
}
