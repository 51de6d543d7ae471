package depgraph

import (
	"github.com/rednhax/varman/pkg/pkgid"
)

// Mode selects the traversal direction of a build.
type Mode int

const (
	// ModeDependencies walks declared dependencies away from the root.
	ModeDependencies Mode = iota
	// ModeDependents walks the reverse-dependency index toward the root.
	ModeDependents
	// ModeBoth collects direct dependencies and direct dependents of the
	// root only (single level in each direction, shared root vertex).
	ModeBoth
)

// MetadataLookup returns the declared dependency specs for an identifier,
// or false when no metadata is known. A false result is expected and
// produces a Missing vertex, not an error.
type MetadataLookup func(pkgid.Identifier) ([]string, bool)

// DependentsLookup returns all known dependents of an identifier, as
// precomputed by the metadata source.
type DependentsLookup func(pkgid.Identifier) []pkgid.Identifier

// Builder configures graph construction. The zero value builds a
// dependencies-only graph of depth 1 once MaxDepth is set.
type Builder struct {
	Mode       Mode
	MaxDepth   int
	Metadata   MetadataLookup
	Dependents DependentsLookup
}

// frame is one pending expansion on the worklist.
type frame struct {
	vertex *Vertex
	deps   []string // declared specs, only used in dependencies direction
	depth  int
}

// Build constructs the graph for root. rootDeps are the root's own
// declared dependency specs, supplied by the caller because the root's
// metadata record is already in hand.
//
// The traversal is an explicit worklist sharing one dedup table, so
// diamond shapes collapse into a single vertex and cycles in the declared
// dependency data terminate: a vertex is inserted before its children are
// expanded, and an already-inserted vertex is never expanded again.
// Vertex and edge insertion order follows the caller's iteration order.
func (b Builder) Build(root pkgid.Identifier, rootDeps []string) *Graph {
	g := NewGraph()
	rv, _ := g.AddVertex(root, RoleRoot)

	switch b.Mode {
	case ModeDependencies:
		b.walkDependencies(g, rv, rootDeps)
	case ModeDependents:
		b.walkDependents(g, rv)
	case ModeBoth:
		one := b
		one.MaxDepth = 1
		one.walkDependencies(g, rv, rootDeps)
		one.walkDependents(g, rv)
	}
	return g
}

// walkDependencies expands declared dependencies depth-first, matching the
// order a recursive traversal would visit them.
func (b Builder) walkDependencies(g *Graph, root *Vertex, rootDeps []string) {
	if b.MaxDepth < 1 {
		return
	}
	stack := []frame{{vertex: root, deps: rootDeps, depth: 1}}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var children []frame
		for _, spec := range cur.deps {
			id := pkgid.ParseSpec(spec)
			if id.IsOpaque() || id.Name == "" {
				// Malformed spec: skipped, never fatal.
				continue
			}

			deps, found := b.lookupMetadata(id)
			role := RoleDependency
			if !found {
				role = RoleMissing
			}

			target, inserted := g.AddVertex(id, role)
			g.AddEdge(cur.vertex, target)

			if found && inserted && cur.depth < b.MaxDepth {
				children = append(children, frame{vertex: target, deps: deps, depth: cur.depth + 1})
			}
		}

		// Push in reverse so declaration order is preserved on the stack.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// walkDependents mirrors walkDependencies over the reverse lookup. Edges
// point from the dependent to the package it depends on.
func (b Builder) walkDependents(g *Graph, root *Vertex) {
	if b.MaxDepth < 1 || b.Dependents == nil {
		return
	}
	stack := []frame{{vertex: root, depth: 1}}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var children []frame
		for _, dep := range b.Dependents(cur.vertex.ID) {
			if dep.IsOpaque() || dep.Name == "" {
				continue
			}

			target, inserted := g.AddVertex(dep, RoleDependent)
			g.AddEdge(target, cur.vertex)

			if inserted && cur.depth < b.MaxDepth {
				children = append(children, frame{vertex: target, depth: cur.depth + 1})
			}
		}

		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// lookupMetadata guards against a nil Metadata func so a builder wired
// only for dependents mode can still run ModeBoth.
func (b Builder) lookupMetadata(id pkgid.Identifier) ([]string, bool) {
	if b.Metadata == nil {
		return nil, false
	}
	return b.Metadata(id)
}
