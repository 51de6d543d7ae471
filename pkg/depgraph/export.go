package depgraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Serialized is the canonical JSON format for a built graph, consumed by
// the HTTP API and the graph command. Insertion order is preserved so a
// presentation layer gets a stable layout across identical builds.
type Serialized struct {
	Nodes []SerializedNode `json:"nodes"`
	Edges []Edge           `json:"edges"`
}

// SerializedNode is one vertex in serialized form.
type SerializedNode struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Preview string `json:"preview,omitempty"`
}

// Serialize converts a graph to its JSON-ready form.
func Serialize(g *Graph) Serialized {
	out := Serialized{
		Nodes: make([]SerializedNode, len(g.vertices)),
		Edges: make([]Edge, len(g.edges)),
	}
	for i, v := range g.vertices {
		out.Nodes[i] = SerializedNode{
			ID:      v.ID.Canonical(),
			Role:    v.Role.String(),
			Preview: v.Preview,
		}
	}
	copy(out.Edges, g.edges)
	return out
}

// MarshalGraph converts a graph to indented JSON bytes.
func MarshalGraph(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteGraph(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraph writes a graph as JSON to w.
func WriteGraph(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Serialize(g)); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	return nil
}
