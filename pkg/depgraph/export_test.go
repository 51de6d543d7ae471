package depgraph

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/rednhax/varman/pkg/pkgid"
)

func sampleGraph(t *testing.T) *Graph {
	t.Helper()
	meta := metadataFixture{
		"alice.a.1": nil,
	}
	root := pkgid.Normalize("Alice.R.2")
	return depsBuilder(meta, 2).Build(root, []string{"Alice.A.1", "Bob.Gone.3"})
}

func TestSerializeRoundTrip(t *testing.T) {
	g := sampleGraph(t)

	data, err := MarshalGraph(g)
	if err != nil {
		t.Fatalf("MarshalGraph() error: %v", err)
	}

	var out Serialized
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Nodes) != 3 || len(out.Edges) != 2 {
		t.Fatalf("got %d nodes / %d edges, want 3 / 2", len(out.Nodes), len(out.Edges))
	}
	if out.Nodes[0].Role != "root" {
		t.Errorf("first node role = %q, want root", out.Nodes[0].Role)
	}
	var missing bool
	for _, n := range out.Nodes {
		if n.Role == "missing" {
			missing = true
		}
	}
	if !missing {
		t.Error("expected a missing node in serialized output")
	}
}

func TestToDOT(t *testing.T) {
	g := sampleGraph(t)
	dot := ToDOT(g)

	if !strings.HasPrefix(dot, "digraph deps {") {
		t.Errorf("unexpected DOT prefix: %q", dot[:min(len(dot), 40)])
	}
	if !strings.Contains(dot, `"alice.r.2" -> "alice.a.1"`) {
		t.Error("DOT output missing root -> dependency edge")
	}
	if !strings.Contains(dot, "dashed") {
		t.Error("missing vertices should render dashed")
	}
}
