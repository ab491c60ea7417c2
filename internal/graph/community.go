package graph

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/topo"
)

// Community detector names accepted by NewDetector
const (
	DetectorComponents       = "components"
	DetectorLouvain          = "louvain"
	DetectorLabelPropagation = "label_propagation"
)

// CommunityDetector partitions an undirected graph into groups of nodes
type CommunityDetector interface {
	Name() string
	Detect(g gonum.Undirected) [][]gonum.Node
}

// NewDetector returns the detector registered under name.
// resolution only applies to Louvain; values <= 0 mean 1.
func NewDetector(name string, resolution float64) (CommunityDetector, error) {
	switch name {
	case "", DetectorComponents:
		return ComponentsDetector{}, nil
	case DetectorLouvain:
		return NewLouvainDetector(resolution), nil
	case DetectorLabelPropagation:
		return NewLabelPropagationDetector(), nil
	default:
		return nil, fmt.Errorf("unknown community detector %q", name)
	}
}

// ComponentsDetector groups claims by connected component
type ComponentsDetector struct{}

// Name returns "components"
func (ComponentsDetector) Name() string { return DetectorComponents }

// Detect returns the connected components of g
func (ComponentsDetector) Detect(g gonum.Undirected) [][]gonum.Node {
	return topo.ConnectedComponents(g)
}

// LouvainDetector maximizes modularity with the Louvain method
type LouvainDetector struct {
	Resolution float64
	Seed       uint64 // Fixed seed keeps partitions stable between runs
}

// NewLouvainDetector creates a Louvain detector at the given resolution
func NewLouvainDetector(resolution float64) *LouvainDetector {
	if resolution <= 0 {
		resolution = 1
	}
	return &LouvainDetector{Resolution: resolution, Seed: 1}
}

// Name returns "louvain"
func (d *LouvainDetector) Name() string { return DetectorLouvain }

// Detect returns the communities of the best partition found.
// A graph without edges has no modular structure, so each node is its own group.
func (d *LouvainDetector) Detect(g gonum.Undirected) [][]gonum.Node {
	if !hasEdges(g) {
		return topo.ConnectedComponents(g)
	}
	reduced := community.Modularize(g, d.Resolution, rand.NewPCG(d.Seed, d.Seed))
	return reduced.Communities()
}

func hasEdges(g gonum.Undirected) bool {
	nodes := g.Nodes()
	for nodes.Next() {
		if g.From(nodes.Node().ID()).Len() > 0 {
			return true
		}
	}
	return false
}

// LabelPropagationDetector groups nodes by repeatedly adopting the label
// with the highest total edge weight among their neighbors
type LabelPropagationDetector struct {
	MaxIterations int
}

// NewLabelPropagationDetector creates a detector with 20 iterations
func NewLabelPropagationDetector() *LabelPropagationDetector {
	return &LabelPropagationDetector{MaxIterations: 20}
}

// Name returns "label_propagation"
func (d *LabelPropagationDetector) Name() string { return DetectorLabelPropagation }

// Detect runs label propagation. Nodes are visited in ID order and ties keep
// the current label when it is among the best, otherwise take the smallest,
// so the result is deterministic. Isolated nodes form their own group.
func (d *LabelPropagationDetector) Detect(g gonum.Undirected) [][]gonum.Node {
	nodes := gonum.NodesOf(g.Nodes())
	slices.SortFunc(nodes, func(a, b gonum.Node) int { return cmp.Compare(a.ID(), b.ID()) })

	labels := make(map[int64]int64, len(nodes))
	for _, n := range nodes {
		labels[n.ID()] = n.ID()
	}

	weighted, _ := g.(gonum.Weighted)

	for iter := 0; iter < d.MaxIterations; iter++ {
		changed := 0
		for _, n := range nodes {
			u := n.ID()
			scores := make(map[int64]float64)
			neighbors := g.From(u)
			for neighbors.Next() {
				v := neighbors.Node().ID()
				w := 1.0
				if weighted != nil {
					if ew, ok := weighted.Weight(u, v); ok {
						w = ew
					}
				}
				scores[labels[v]] += w
			}
			if len(scores) == 0 {
				continue
			}

			var top float64
			for _, score := range scores {
				top = max(top, score)
			}
			best := labels[u]
			if scores[best] != top {
				best = -1
				for label, score := range scores {
					if score == top && (best < 0 || label < best) {
						best = label
					}
				}
			}
			if best != labels[u] {
				labels[u] = best
				changed++
			}
		}
		if changed == 0 {
			break
		}
	}

	groups := make(map[int64][]gonum.Node)
	var order []int64
	for _, n := range nodes {
		label := labels[n.ID()]
		if _, seen := groups[label]; !seen {
			order = append(order, label)
		}
		groups[label] = append(groups[label], n)
	}

	out := make([][]gonum.Node, 0, len(order))
	for _, label := range order {
		out = append(out, groups[label])
	}
	return out
}
