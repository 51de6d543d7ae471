package depgraph

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
)

// dot attributes per vertex role. Missing packages stand out so a user
// can spot unresolvable references at a glance.
var roleAttrs = map[Role]string{
	RoleRoot:       `style="rounded,filled,bold", fillcolor=lightyellow`,
	RoleDependency: `style="rounded,filled", fillcolor=white`,
	RoleDependent:  `style="rounded,filled", fillcolor=lightblue`,
	RoleMissing:    `style="rounded,filled,dashed", fillcolor=lightgrey, fontcolor=red`,
}

// ToDOT converts a graph to Graphviz DOT format. The resulting string can
// be rendered with [RenderSVG] or fed to an external dot binary.
func ToDOT(g *Graph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph deps {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for _, v := range g.Vertices() {
		attrs := []string{fmt.Sprintf("label=%q", v.ID.Canonical())}
		if a, ok := roleAttrs[v.Role]; ok {
			attrs = append(attrs, a)
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", v.Key(), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	parsed, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer parsed.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, parsed, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
