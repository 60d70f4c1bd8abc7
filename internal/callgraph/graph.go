// Package callgraph builds a directed call graph from call-site records and
// answers bounded caller/callee queries over it.
package callgraph

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"

	"github.com/coral-mesh/dwarfsql/internal/extract"
)

// ErrUnknownFunction is returned for a root that is not in the graph.
var ErrUnknownFunction = errors.New("function not in call graph")

// Node is a function, keyed by its DIE offset.
type Node struct {
	Offset uint64 `json:"id"`
	Name   string `json:"name"`
}

// Hit is a node reached by a traversal, with its distance from the root.
type Hit struct {
	Node
	Depth int `json:"depth"`
}

// Direction selects which edges a traversal follows.
type Direction string

const (
	Callees Direction = "callees"
	Callers Direction = "callers"
)

// Graph is an immutable call graph.
type Graph struct {
	g      graph.Graph[uint64, Node]
	byName map[string][]uint64
}

func nodeHash(n Node) uint64 { return n.Offset }

func newGraph() *Graph {
	return &Graph{
		g:      graph.New(nodeHash, graph.Directed()),
		byName: make(map[string][]uint64),
	}
}

// Build creates a graph with one edge per distinct caller/callee pair.
// Calls whose target is unknown are ignored.
func Build(calls []extract.CallSite) (*Graph, error) {
	cg := newGraph()
	for _, c := range calls {
		if c.CallerOffset == 0 || c.CalleeOffset == 0 {
			continue
		}
		if err := cg.addNode(Node{Offset: c.CallerOffset, Name: c.CallerName}); err != nil {
			return nil, err
		}
		if err := cg.addNode(Node{Offset: c.CalleeOffset, Name: c.CalleeName}); err != nil {
			return nil, err
		}
		if err := cg.addEdge(c.CallerOffset, c.CalleeOffset); err != nil {
			return nil, err
		}
	}
	return cg, nil
}

func (cg *Graph) addNode(n Node) error {
	if n.Name == "" {
		n.Name = fmt.Sprintf("0x%x", n.Offset)
	}
	err := cg.g.AddVertex(n, graph.VertexAttribute("label", n.Name))
	switch {
	case errors.Is(err, graph.ErrVertexAlreadyExists):
		return nil
	case err != nil:
		return fmt.Errorf("failed to add function %s: %w", n.Name, err)
	}
	cg.byName[n.Name] = append(cg.byName[n.Name], n.Offset)
	return nil
}

func (cg *Graph) addEdge(from, to uint64) error {
	if err := cg.g.AddEdge(from, to); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return fmt.Errorf("failed to add call 0x%x -> 0x%x: %w", from, to, err)
	}
	return nil
}

// Order returns the number of functions.
func (cg *Graph) Order() int {
	n, _ := cg.g.Order()
	return n
}

// Size returns the number of distinct calls.
func (cg *Graph) Size() int {
	n, _ := cg.g.Size()
	return n
}

// Lookup returns the functions with the given name.
func (cg *Graph) Lookup(name string) []Node {
	var out []Node
	for _, off := range cg.byName[name] {
		if n, err := cg.g.Vertex(off); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// Nodes returns every function ordered by name.
func (cg *Graph) Nodes() []Node {
	adj, _ := cg.g.AdjacencyMap()
	out := make([]Node, 0, len(adj))
	for off := range adj {
		if n, err := cg.g.Vertex(off); err == nil {
			out = append(out, n)
		}
	}
	sortNodes(out)
	return out
}

// Edges returns every call as a caller/callee pair, ordered by caller.
func (cg *Graph) Edges() [][2]Node {
	var out [][2]Node
	adj, _ := cg.g.AdjacencyMap()
	for _, from := range cg.Nodes() {
		targets := cg.neighbours(adj[from.Offset])
		for _, to := range targets {
			out = append(out, [2]Node{from, to})
		}
	}
	return out
}

// Walk returns the functions reachable from root within depth steps in the
// given direction, in breadth-first order. The root itself is excluded.
func (cg *Graph) Walk(root uint64, dir Direction, depth int) ([]Hit, error) {
	if _, err := cg.g.Vertex(root); err != nil {
		return nil, fmt.Errorf("0x%x: %w", root, ErrUnknownFunction)
	}

	var (
		edges map[uint64]map[uint64]graph.Edge[uint64]
		err   error
	)
	switch dir {
	case Callees:
		edges, err = cg.g.AdjacencyMap()
	case Callers:
		edges, err = cg.g.PredecessorMap()
	default:
		return nil, fmt.Errorf("unknown direction %q", dir)
	}
	if err != nil {
		return nil, err
	}

	type item struct {
		off   uint64
		depth int
	}
	visited := map[uint64]bool{root: true}
	queue := []item{{root, 0}}
	var hits []Hit

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= depth {
			continue
		}
		for _, n := range cg.neighbours(edges[cur.off]) {
			if visited[n.Offset] {
				continue
			}
			visited[n.Offset] = true
			hits = append(hits, Hit{Node: n, Depth: cur.depth + 1})
			queue = append(queue, item{n.Offset, cur.depth + 1})
		}
	}
	return hits, nil
}

// Callees returns the functions root calls, transitively up to depth.
func (cg *Graph) Callees(root uint64, depth int) ([]Hit, error) {
	return cg.Walk(root, Callees, depth)
}

// Callers returns the functions calling root, transitively up to depth.
func (cg *Graph) Callers(root uint64, depth int) ([]Hit, error) {
	return cg.Walk(root, Callers, depth)
}

// Neighbourhood returns the subgraph spanned by root and the hits of a walk.
func (cg *Graph) Neighbourhood(root uint64, dir Direction, depth int) (*Graph, error) {
	hits, err := cg.Walk(root, dir, depth)
	if err != nil {
		return nil, err
	}

	keep := map[uint64]bool{root: true}
	for _, h := range hits {
		keep[h.Offset] = true
	}

	sub := newGraph()
	for _, n := range cg.Nodes() {
		if keep[n.Offset] {
			if err := sub.addNode(n); err != nil {
				return nil, err
			}
		}
	}
	for _, e := range cg.Edges() {
		if keep[e[0].Offset] && keep[e[1].Offset] {
			if err := sub.addEdge(e[0].Offset, e[1].Offset); err != nil {
				return nil, err
			}
		}
	}
	return sub, nil
}

// WriteDOT renders the graph in Graphviz DOT format.
func (cg *Graph) WriteDOT(w io.Writer) error {
	return draw.DOT(cg.g, w)
}

func (cg *Graph) neighbours(edges map[uint64]graph.Edge[uint64]) []Node {
	out := make([]Node, 0, len(edges))
	for off := range edges {
		if n, err := cg.g.Vertex(off); err == nil {
			out = append(out, n)
		}
	}
	sortNodes(out)
	return out
}

func sortNodes(nodes []Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Name != nodes[j].Name {
			return nodes[i].Name < nodes[j].Name
		}
		return nodes[i].Offset < nodes[j].Offset
	})
}
