package meta

import (
	"sort"

	"github.com/newtron-network/saimeta/pkg/sai"
)

// Object is one live record: an OID-keyed object or a structured entry.
type Object struct {
	Key    sai.Key
	Type   sai.ObjectType
	Switch sai.OID
	attrs  map[sai.AttrID]sai.Value
}

// Attr returns the current value of an attribute.
func (o *Object) Attr(id sai.AttrID) (sai.Value, bool) {
	v, ok := o.attrs[id]
	return v, ok
}

// Attrs returns every stored attribute in id order.
func (o *Object) Attrs() []sai.Attribute {
	out := make([]sai.Attribute, 0, len(o.attrs))
	for id, v := range o.attrs {
		out = append(out, sai.Attribute{ID: id, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Store is the table of live objects. It enforces key uniqueness and
// nothing else; reference checks belong to the caller.
type Store struct {
	objects map[sai.Key]*Object
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{objects: make(map[sai.Key]*Object)}
}

// Create adds a record.
func (s *Store) Create(key sai.Key, sw sai.OID, attrs []sai.Attribute) (*Object, error) {
	if _, ok := s.objects[key]; ok {
		return nil, sai.Errorf(sai.StatusAlreadyExists, "%s %s", key.ObjectType(), key)
	}
	o := &Object{
		Key:    key,
		Type:   key.ObjectType(),
		Switch: sw,
		attrs:  make(map[sai.AttrID]sai.Value, len(attrs)),
	}
	for _, a := range attrs {
		o.attrs[a.ID] = a.Value
	}
	s.objects[key] = o
	return o, nil
}

// Set replaces one attribute value.
func (s *Store) Set(key sai.Key, attr sai.Attribute) error {
	o, ok := s.objects[key]
	if !ok {
		return sai.Errorf(sai.StatusItemNotFound, "%s %s", key.ObjectType(), key)
	}
	o.attrs[attr.ID] = attr.Value
	return nil
}

// Get returns the values of the requested attributes in request order.
func (s *Store) Get(key sai.Key, ids []sai.AttrID) ([]sai.Attribute, error) {
	o, ok := s.objects[key]
	if !ok {
		return nil, sai.Errorf(sai.StatusItemNotFound, "%s %s", key.ObjectType(), key)
	}
	out := make([]sai.Attribute, len(ids))
	for i, id := range ids {
		v, ok := o.attrs[id]
		if !ok {
			return nil, sai.Errorf(sai.StatusAttributeNotSupported, "%s has no value for attribute %d", key, id)
		}
		out[i] = sai.Attribute{ID: id, Value: v}
	}
	return out, nil
}

// Remove deletes a record unconditionally.
func (s *Store) Remove(key sai.Key) error {
	if _, ok := s.objects[key]; !ok {
		return sai.Errorf(sai.StatusItemNotFound, "%s %s", key.ObjectType(), key)
	}
	delete(s.objects, key)
	return nil
}

// Lookup returns the record for key.
func (s *Store) Lookup(key sai.Key) (*Object, bool) {
	o, ok := s.objects[key]
	return o, ok
}

// Exists reports whether key is present.
func (s *Store) Exists(key sai.Key) bool {
	_, ok := s.objects[key]
	return ok
}

// ResolveObject implements ObjectResolver.
func (s *Store) ResolveObject(oid sai.OID) (sai.ObjectType, bool) {
	o, ok := s.objects[oid]
	if !ok {
		return sai.ObjectTypeNull, false
	}
	return o.Type, true
}

// Objects returns every record ordered by type, then key text.
func (s *Store) Objects() []*Object {
	out := make([]*Object, 0, len(s.objects))
	for _, o := range s.objects {
		out = append(out, o)
	}
	sortObjects(out)
	return out
}

// ObjectsOfSwitch returns the records owned by sw.
func (s *Store) ObjectsOfSwitch(sw sai.OID) []*Object {
	var out []*Object
	for _, o := range s.objects {
		if o.Switch == sw {
			out = append(out, o)
		}
	}
	sortObjects(out)
	return out
}

// CountByType returns the number of live records per object type.
func (s *Store) CountByType() map[sai.ObjectType]int {
	counts := make(map[sai.ObjectType]int)
	for _, o := range s.objects {
		counts[o.Type]++
	}
	return counts
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.objects) }

// Clear drops every record.
func (s *Store) Clear() {
	s.objects = make(map[sai.Key]*Object)
}

func sortObjects(objs []*Object) {
	sort.Slice(objs, func(i, j int) bool {
		if objs[i].Type != objs[j].Type {
			return objs[i].Type < objs[j].Type
		}
		return objs[i].Key.String() < objs[j].Key.String()
	})
}
