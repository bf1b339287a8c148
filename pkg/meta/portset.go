package meta

import (
	"sort"

	"github.com/newtron-network/saimeta/pkg/sai"
)

// PortRelatedSet indexes the objects a port owns (queues, scheduler groups,
// ingress priority groups) so they can be cleaned up with the port.
type PortRelatedSet struct {
	related map[sai.OID]map[sai.OID]struct{}
}

// NewPortRelatedSet returns an empty set.
func NewPortRelatedSet() *PortRelatedSet {
	return &PortRelatedSet{related: make(map[sai.OID]map[sai.OID]struct{})}
}

// Insert records that related belongs to port. A null related object is
// ignored; a null port is an error.
func (s *PortRelatedSet) Insert(port, related sai.OID) error {
	if related.IsNull() {
		return nil
	}
	if port.IsNull() {
		return sai.Errorf(sai.StatusInvalidParameter, "port-related object %s inserted with null port", related)
	}
	bucket := s.related[port]
	if bucket == nil {
		bucket = make(map[sai.OID]struct{})
		s.related[port] = bucket
	}
	bucket[related] = struct{}{}
	return nil
}

// PortRelatedObjects returns a copy of port's related objects, sorted.
func (s *PortRelatedSet) PortRelatedObjects(port sai.OID) []sai.OID {
	bucket := s.related[port]
	out := make([]sai.OID, 0, len(bucket))
	for oid := range bucket {
		out = append(out, oid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RemovePort drops port's bucket if present.
func (s *PortRelatedSet) RemovePort(port sai.OID) {
	delete(s.related, port)
}

// AllPorts returns every port with at least one related object, sorted.
func (s *PortRelatedSet) AllPorts() []sai.OID {
	out := make([]sai.OID, 0, len(s.related))
	for port, bucket := range s.related {
		if len(bucket) > 0 {
			out = append(out, port)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of related objects across all ports.
func (s *PortRelatedSet) Len() int {
	n := 0
	for _, bucket := range s.related {
		n += len(bucket)
	}
	return n
}

// Clear drops every bucket.
func (s *PortRelatedSet) Clear() {
	s.related = make(map[sai.OID]map[sai.OID]struct{})
}
