package asicdb

import (
	"fmt"
	"sort"
	"strings"

	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/schema"
)

// nullField marks a hash written for an object without attributes
// (SONiC convention: Redis cannot store an empty hash).
const nullField = "NULL"

// ObjectKey returns the ASIC_DB key of an object:
// "ASIC_STATE:SAI_OBJECT_TYPE_<TYPE>:<key>".
func ObjectKey(key sai.Key) string {
	return asicStatePrefix + key.ObjectType().String() + ":" + key.String()
}

// ParseObjectKey parses an ASIC_DB key back into an object key.
func ParseObjectKey(s string) (sai.Key, error) {
	rest, ok := strings.CutPrefix(s, asicStatePrefix)
	if !ok {
		return nil, fmt.Errorf("key %q has no %s prefix", s, asicStatePrefix)
	}
	name, k, ok := strings.Cut(rest, ":")
	if !ok {
		return nil, fmt.Errorf("key %q has no object key", s)
	}
	ot, err := sai.ParseObjectType(name)
	if err != nil {
		return nil, err
	}
	return sai.ParseKey(ot, k)
}

// EncodeAttrs renders attributes as hash fields keyed by attribute name.
// Pointer attributes only mean something inside this process and are not
// written.
func EncodeAttrs(s *schema.Schema, ot sai.ObjectType, attrs []sai.Attribute) (map[string]string, error) {
	fields := make(map[string]string, len(attrs))
	for _, a := range attrs {
		md, ok := s.Attr(ot, a.ID)
		if !ok {
			return nil, sai.Errorf(sai.StatusUnknownAttribute, "%s attribute %d", ot, a.ID)
		}
		if md.Kind == sai.KindPointer {
			continue
		}
		fields[md.Name] = md.Format(a.Value)
	}
	return fields, nil
}

// DecodeAttrs parses hash fields into attributes ordered by id. The NULL
// sentinel and pointer attributes are skipped.
func DecodeAttrs(s *schema.Schema, ot sai.ObjectType, fields map[string]string) ([]sai.Attribute, error) {
	attrs := make([]sai.Attribute, 0, len(fields))
	for name, text := range fields {
		if name == nullField {
			continue
		}
		md, ok := s.AttrByName(ot, name)
		if !ok {
			return nil, sai.Errorf(sai.StatusUnknownAttribute, "%s has no attribute %s", ot, name)
		}
		if md.Kind == sai.KindPointer {
			continue
		}
		v, err := md.Parse(text)
		if err != nil {
			return nil, sai.Errorf(sai.StatusInvalidParameter, "%s: %v", name, err)
		}
		attrs = append(attrs, sai.Attribute{ID: md.ID, Value: v})
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].ID < attrs[j].ID })
	return attrs, nil
}

// hsetArgs flattens fields for HSET, substituting the NULL sentinel for an
// empty hash.
func hsetArgs(fields map[string]string) []interface{} {
	if len(fields) == 0 {
		return []interface{}{nullField, nullField}
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	args := make([]interface{}, 0, len(fields)*2)
	for _, name := range names {
		args = append(args, name, fields[name])
	}
	return args
}
