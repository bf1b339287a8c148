package meta

import (
	"sort"

	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/schema"
)

// ObjectResolver answers whether an object id names a live object and of
// which type.
type ObjectResolver interface {
	ResolveObject(oid sai.OID) (sai.ObjectType, bool)
}

// Edge is one reference from an object (or entry) to an object id.
type Edge struct {
	From sai.Key
	To   sai.OID
}

// RefGraph tracks which objects reference which. Edges form a set: an
// object referencing the same target through several attributes holds one
// edge.
type RefGraph struct {
	schema  *schema.Schema
	resolve ObjectResolver
	out     map[sai.Key]map[sai.OID]struct{}
	in      map[sai.OID]map[sai.Key]struct{}
}

// NewRefGraph returns an empty graph that checks targets through resolve.
func NewRefGraph(s *schema.Schema, resolve ObjectResolver) *RefGraph {
	return &RefGraph{
		schema:  s,
		resolve: resolve,
		out:     make(map[sai.Key]map[sai.OID]struct{}),
		in:      make(map[sai.OID]map[sai.Key]struct{}),
	}
}

// AddReferences records the edges implied by attrs and by the object id
// members of from's key. Every target must exist, be of an allowed type and
// live on switch sw. On failure no edge is recorded.
func (g *RefGraph) AddReferences(from sai.Key, sw sai.OID, attrs []sai.Attribute) error {
	targets, err := g.collect(from, sw, attrs)
	if err != nil {
		return err
	}
	for _, to := range targets {
		g.link(from, to)
	}
	return nil
}

// ReplaceReferences makes attrs (the full post-change attribute set of
// from) the sole source of from's outbound edges. On failure the previous
// edges are kept.
func (g *RefGraph) ReplaceReferences(from sai.Key, sw sai.OID, attrs []sai.Attribute) error {
	targets, err := g.collect(from, sw, attrs)
	if err != nil {
		return err
	}
	g.RemoveReferences(from)
	for _, to := range targets {
		g.link(from, to)
	}
	return nil
}

// RemoveReferences drops every outbound edge of from.
func (g *RefGraph) RemoveReferences(from sai.Key) {
	for to := range g.out[from] {
		refs := g.in[to]
		delete(refs, from)
		if len(refs) == 0 {
			delete(g.in, to)
		}
	}
	delete(g.out, from)
}

// CanRemove reports whether nothing references oid.
func (g *RefGraph) CanRemove(oid sai.OID) bool {
	return len(g.in[oid]) == 0
}

// InboundCount returns the number of objects referencing oid.
func (g *RefGraph) InboundCount(oid sai.OID) int {
	return len(g.in[oid])
}

// Referrers returns the keys referencing oid, sorted by key text.
func (g *RefGraph) Referrers(oid sai.OID) []sai.Key {
	out := make([]sai.Key, 0, len(g.in[oid]))
	for k := range g.in[oid] {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// References returns the targets of from's outbound edges.
func (g *RefGraph) References(from sai.Key) []sai.OID {
	out := make([]sai.OID, 0, len(g.out[from]))
	for to := range g.out[from] {
		out = append(out, to)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Rebuild discards every edge and derives the graph again from objs. Any
// dangling or mistyped reference fails the rebuild; the graph is left
// empty in that case.
func (g *RefGraph) Rebuild(objs []*Object) error {
	g.Clear()
	for _, o := range objs {
		if err := g.AddReferences(o.Key, o.Switch, o.Attrs()); err != nil {
			g.Clear()
			return err
		}
	}
	return nil
}

// Edges returns a sorted snapshot of every edge.
func (g *RefGraph) Edges() []Edge {
	var edges []Edge
	for from, targets := range g.out {
		for to := range targets {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i].From.String(), edges[j].From.String()
		if a != b {
			return a < b
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// Len returns the number of edges.
func (g *RefGraph) Len() int {
	n := 0
	for _, targets := range g.out {
		n += len(targets)
	}
	return n
}

// Clear drops every edge.
func (g *RefGraph) Clear() {
	g.out = make(map[sai.Key]map[sai.OID]struct{})
	g.in = make(map[sai.OID]map[sai.Key]struct{})
}

func (g *RefGraph) link(from sai.Key, to sai.OID) {
	if g.out[from] == nil {
		g.out[from] = make(map[sai.OID]struct{})
	}
	g.out[from][to] = struct{}{}
	if g.in[to] == nil {
		g.in[to] = make(map[sai.Key]struct{})
	}
	g.in[to][from] = struct{}{}
}

// collect validates and returns the distinct targets of from.
func (g *RefGraph) collect(from sai.Key, sw sai.OID, attrs []sai.Attribute) ([]sai.OID, error) {
	seen := make(map[sai.OID]bool)
	var targets []sai.OID
	add := func(what string, to sai.OID, allowed func(sai.ObjectType) bool) error {
		if err := g.check(what, to, sw, allowed); err != nil {
			return err
		}
		if !seen[to] {
			seen[to] = true
			targets = append(targets, to)
		}
		return nil
	}

	for _, m := range from.Members() {
		if m.OID.IsNull() {
			continue
		}
		allowed := m.Allowed
		err := add(from.ObjectType().String()+" key member "+m.Name, m.OID, func(ot sai.ObjectType) bool {
			for _, a := range allowed {
				if a == ot {
					return true
				}
			}
			return false
		})
		if err != nil {
			return nil, err
		}
	}

	for _, a := range attrs {
		oids := sai.ReferencedOIDs(a.Value)
		if len(oids) == 0 {
			continue
		}
		md, ok := g.schema.Attr(from.ObjectType(), a.ID)
		if !ok {
			return nil, sai.Errorf(sai.StatusUnknownAttribute, "%s attribute %d", from.ObjectType(), a.ID)
		}
		for _, to := range oids {
			if err := add(md.Name, to, md.Allows); err != nil {
				return nil, err
			}
		}
	}
	return targets, nil
}

func (g *RefGraph) check(what string, to, sw sai.OID, allowed func(sai.ObjectType) bool) error {
	ot, ok := g.resolve.ResolveObject(to)
	if !ok {
		return sai.Errorf(sai.StatusInvalidObjectReference, "%s: %s does not exist", what, to)
	}
	if !allowed(ot) {
		return sai.Errorf(sai.StatusInvalidObjectReference, "%s: %s is a %s, which is not allowed", what, to, ot)
	}
	if to.SwitchID() != sw {
		return sai.Errorf(sai.StatusInvalidObjectReference, "%s: %s belongs to switch %s, not %s", what, to, to.SwitchID(), sw)
	}
	return nil
}
