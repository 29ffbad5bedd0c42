// Package topology generates a synthetic scale free peer network using
// preferential attachment. Every new node connects to existing nodes with a
// probability proportional to their current degree.
package topology

import (
	"math/rand/v2"
	"sort"
	"sync"
)

// NodeID identifies a node in the network. Ids are dense and assigned in
// order starting at zero.
type NodeID uint64

// Edge represents a directed connection between two nodes.
type Edge struct {
	From NodeID `json:"from"`
	To   NodeID `json:"to"`
}

// Snapshot is a copy of the network state suitable for encoding.
type Snapshot struct {
	Nodes   int    `json:"nodes"`
	Edges   []Edge `json:"edges"`
	Degrees []int  `json:"degrees"`
}

// =============================================================================

// Option represents a function that can configure the network.
type Option func(n *Network)

// WithRand sets the random source used for sampling. This allows tests to
// produce a repeatable network.
func WithRand(rnd *rand.Rand) Option {
	return func(n *Network) {
		n.rnd = rnd
	}
}

// Network maintains the set of nodes and the multiset of edges. The network
// only grows.
type Network struct {
	mu    sync.Mutex
	nodes int
	edges []Edge
	rnd   *rand.Rand
}

// New constructs a network seeded with a complete digraph on the specified
// number of nodes. Every ordered pair of distinct nodes is an edge, so each
// undirected connection is counted twice.
func New(initialNodes int, options ...Option) *Network {
	if initialNodes < 0 {
		initialNodes = 0
	}

	n := Network{
		nodes: initialNodes,
		edges: make([]Edge, 0, initialNodes*(initialNodes-1)),
		rnd:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}

	for _, option := range options {
		option(&n)
	}

	for i := range initialNodes {
		for j := range initialNodes {
			if i != j {
				n.edges = append(n.edges, Edge{From: NodeID(i), To: NodeID(j)})
			}
		}
	}

	return &n
}

// AddNode adds a new node and draws m edges from it to existing nodes,
// sampling with replacement weighted by degree. Duplicate edges are kept. An
// m less than one is treated as one. When every existing node has a degree
// of zero the draw is uniform. The first node of an empty network gets no
// edges since there is nothing to attach to.
func (n *Network) AddNode(m int) NodeID {
	n.mu.Lock()
	defer n.mu.Unlock()

	if m < 1 {
		m = 1
	}

	id := NodeID(n.nodes)
	existing := n.nodes
	n.nodes++

	if existing == 0 {
		return id
	}

	// Degrees are recomputed from the edges on every call.
	degrees := n.degrees()

	// Running totals of the degrees are used to map a random number onto a
	// target node.
	cumulative := make([]int, existing)
	total := 0
	for i := range existing {
		total += degrees[i]
		cumulative[i] = total
	}

	for range m {
		var target int
		switch total {
		case 0:
			target = n.rnd.IntN(existing)
		default:
			r := n.rnd.IntN(total)
			target = sort.Search(existing, func(i int) bool { return cumulative[i] > r })
		}

		n.edges = append(n.edges, Edge{From: id, To: NodeID(target)})
	}

	return id
}

// NodeCount returns the number of nodes in the network.
func (n *Network) NodeCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.nodes
}

// EdgeCount returns the number of edges in the network.
func (n *Network) EdgeCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.edges)
}

// Edges returns a copy of the edges in the order they were added.
func (n *Network) Edges() []Edge {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]Edge(nil), n.edges...)
}

// Degrees returns the degree of every node, indexed by node id.
func (n *Network) Degrees() []int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.degrees()
}

// Snapshot returns a copy of the current state of the network.
func (n *Network) Snapshot() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()

	return Snapshot{
		Nodes:   n.nodes,
		Edges:   append([]Edge(nil), n.edges...),
		Degrees: n.degrees(),
	}
}

// =============================================================================

// degrees counts the occurrences of every node across both ends of all
// edges. The caller must hold the lock.
func (n *Network) degrees() []int {
	degrees := make([]int, n.nodes)
	for _, e := range n.edges {
		degrees[e.From]++
		degrees[e.To]++
	}

	return degrees
}
