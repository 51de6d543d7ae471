// Package depgraph builds directed dependency graphs over package
// identifiers.
//
// A graph is built once per request (root, mode, depth) and replaced
// wholesale on the next build - it is never patched incrementally.
// Vertices are deduplicated by lowercased canonical identifier and edges
// by ordered (from, to) pair, so the structure is a simple directed graph
// regardless of how many paths reach a vertex.
package depgraph

import (
	"github.com/rednhax/varman/pkg/pkgid"
)

// Role classifies a vertex within one build.
type Role int

const (
	// RoleRoot is the traversal root.
	RoleRoot Role = iota
	// RoleDependency is a resolved declared dependency.
	RoleDependency
	// RoleDependent is a resolved reverse dependency.
	RoleDependent
	// RoleMissing is a declared dependency with no known metadata.
	// Missing vertices are leaves by construction.
	RoleMissing
)

// String returns the lowercase role name used in serialized output.
func (r Role) String() string {
	switch r {
	case RoleRoot:
		return "root"
	case RoleDependency:
		return "dependency"
	case RoleDependent:
		return "dependent"
	case RoleMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// Vertex is a node in the dependency graph. Identity for dedup purposes
// is the lowercased canonical identifier; Preview is presentation data
// that may be set after insertion and never affects identity.
type Vertex struct {
	ID      pkgid.Identifier
	Role    Role
	Preview string // lazily resolved preview-image reference, may stay empty
}

// Key returns the vertex dedup key.
func (v *Vertex) Key() string { return v.ID.DedupKey() }

// Edge is an ordered pair of vertex keys.
type Edge struct {
	From string
	To   string
}

// Graph holds the vertices and edges of one build, in insertion order.
type Graph struct {
	vertices []*Vertex
	edges    []Edge

	index   map[string]*Vertex
	edgeSet map[Edge]struct{}
	outDeg  map[string]int
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		index:   make(map[string]*Vertex),
		edgeSet: make(map[Edge]struct{}),
		outDeg:  make(map[string]int),
	}
}

// AddVertex inserts a vertex unless one with the same key already exists.
// It returns the canonical vertex for the key and whether it was newly
// inserted. An existing vertex keeps its original role.
func (g *Graph) AddVertex(id pkgid.Identifier, role Role) (*Vertex, bool) {
	key := id.DedupKey()
	if v, ok := g.index[key]; ok {
		return v, false
	}
	v := &Vertex{ID: id, Role: role}
	g.index[key] = v
	g.vertices = append(g.vertices, v)
	return v, true
}

// AddEdge inserts the ordered edge (from, to) unless already present.
func (g *Graph) AddEdge(from, to *Vertex) bool {
	e := Edge{From: from.Key(), To: to.Key()}
	if _, ok := g.edgeSet[e]; ok {
		return false
	}
	g.edgeSet[e] = struct{}{}
	g.edges = append(g.edges, e)
	g.outDeg[e.From]++
	return true
}

// Vertex looks up a vertex by dedup key.
func (g *Graph) Vertex(key string) (*Vertex, bool) {
	v, ok := g.index[key]
	return v, ok
}

// Vertices returns all vertices in insertion order.
func (g *Graph) Vertices() []*Vertex { return g.vertices }

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge { return g.edges }

// OutDegree returns the number of outgoing edges for a vertex key.
func (g *Graph) OutDegree(key string) int { return g.outDeg[key] }

// VertexCount returns the number of vertices.
func (g *Graph) VertexCount() int { return len(g.vertices) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }
