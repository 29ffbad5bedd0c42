package commands

import (
	"fmt"
	"io"
	"slices"

	"github.com/ardanlabs/scalefree/foundation/blockchain/topology"
)

// Hub is a node and its degree.
type Hub struct {
	Node   topology.NodeID
	Degree int
}

// Hubs returns the top nodes of the network ordered by degree. Ties keep
// the lower node id first.
func Hubs(network *topology.Network, top int) []Hub {
	degrees := network.Degrees()

	hubs := make([]Hub, len(degrees))
	for i, d := range degrees {
		hubs[i] = Hub{Node: topology.NodeID(i), Degree: d}
	}

	slices.SortStableFunc(hubs, func(a, b Hub) int {
		return b.Degree - a.Degree
	})

	return hubs[:min(top, len(hubs))]
}

// Topology grows a network to the specified size and prints its hubs.
func Topology(w io.Writer, initial int, nodes int, edgesPerNode int) {
	network := topology.New(initial)
	for network.NodeCount() < nodes {
		network.AddNode(edgesPerNode)
	}

	fmt.Fprintf(w, "Nodes: %d  Edges: %d\n\n", network.NodeCount(), network.EdgeCount())
	for _, hub := range Hubs(network, 10) {
		fmt.Fprintf(w, "Node: %-6d Degree: %d\n", hub.Node, hub.Degree)
	}
}
