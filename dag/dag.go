// Package dag renders call graphs as Graphviz DOT.
package dag

import (
	"fmt"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
)

// Graph is a directed graph whose nodes and edges carry DOT attributes.
type Graph struct {
	*simple.DirectedGraph
	attrs     encoding.Attributes
	nodeAttrs encoding.Attributes
	edgeAttrs encoding.Attributes
}

func New() *Graph {
	g := &Graph{DirectedGraph: simple.NewDirectedGraph()}
	_ = g.attrs.SetAttribute(encoding.Attribute{Key: "rankdir", Value: "TB"})
	_ = g.nodeAttrs.SetAttribute(encoding.Attribute{Key: "shape", Value: "box"})
	return g
}

// DOTAttributers implements dot.Attributers.
func (g *Graph) DOTAttributers() (graph, node, edge encoding.Attributer) {
	return &g.attrs, &g.nodeAttrs, &g.edgeAttrs
}

// Add adds a new node with the given label. When parent is non-nil an
// edge from parent to the new node is added.
func (g *Graph) Add(parent *Node, label string) *Node {
	n := &Node{Node: g.DirectedGraph.NewNode()}
	n.SetLabel(label)
	g.DirectedGraph.AddNode(n)
	if parent != nil {
		g.DirectedGraph.SetEdge(g.DirectedGraph.NewEdge(parent, n))
	}
	return n
}

// Children returns the direct successors of n in insertion order of ID.
func (g *Graph) Children(n graph.Node) []*Node {
	var out []*Node
	it := g.From(n.ID())
	for it.Next() {
		if child, ok := it.Node().(*Node); ok {
			out = append(out, child)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// ExportToDot exports the graph to Graphviz .dot format.
func (g *Graph) ExportToDot(name string) (string, error) {
	data, err := dot.Marshal(g, name, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to export graph to DOT format: %v", err)
	}
	return string(data), nil
}

type Node struct {
	graph.Node
	attrs encoding.Attributes
}

func (n *Node) Attributes() []encoding.Attribute {
	return n.attrs.Attributes()
}

func (n *Node) SetAttribute(attr encoding.Attribute) error {
	return n.attrs.SetAttribute(attr)
}

// SetLabel sets the quoted DOT label.
func (n *Node) SetLabel(label string) {
	_ = n.attrs.SetAttribute(encoding.Attribute{Key: "label", Value: strconv.Quote(label)})
}

// SetColor sets the node outline color.
func (n *Node) SetColor(color string) {
	_ = n.attrs.SetAttribute(encoding.Attribute{Key: "color", Value: color})
}
