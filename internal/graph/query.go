package graph

import (
	"cmp"
	"slices"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/graph/network"

	"github.com/ppiankov/claimcheck/internal/model"
)

// RankedClaim is a claim annotated with its betweenness centrality
type RankedClaim struct {
	model.Claim
	Centrality float64 `json:"centrality"`
}

// CommunityClaims partitions the graph with the configured detector and
// returns the claim IDs of each community. Communities are ordered by size,
// members by insertion order. Graphs with fewer than 2 claims yield nil.
func (c *ClaimGraph) CommunityClaims() [][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.claims) < 2 {
		return nil
	}

	groups := c.detector.Detect(c.g)
	sets := make([][]int64, 0, len(groups))
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		ids := make([]int64, len(group))
		for i, n := range group {
			ids[i] = n.ID()
		}
		slices.Sort(ids)
		sets = append(sets, ids)
	}
	slices.SortFunc(sets, func(a, b []int64) int {
		if n := cmp.Compare(len(b), len(a)); n != 0 {
			return n
		}
		return cmp.Compare(a[0], b[0])
	})

	communities := make([][]string, len(sets))
	for i, set := range sets {
		members := make([]string, len(set))
		for j, id := range set {
			members[j] = c.claims[id].ID
		}
		communities[i] = members
	}

	c.logger.Debug("communities detected",
		zap.String("detector", c.detector.Name()),
		zap.Int("communities", len(communities)))

	return communities
}

// CentralClaims returns the topN claims by betweenness centrality, highest
// first; ties keep insertion order. Scores are normalized by (n-1)(n-2), so
// the middle of a three-node path scores 1. Graphs with fewer than 2 claims
// yield nil.
func (c *ClaimGraph) CentralClaims(topN int) []RankedClaim {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := len(c.claims)
	if n < 2 || topN <= 0 {
		return nil
	}

	// Betweenness counts each unordered pair once per direction
	raw := network.Betweenness(c.g)
	scale := 0.0
	if n > 2 {
		scale = 1 / float64((n-1)*(n-2))
	}

	ranked := make([]RankedClaim, n)
	for id, claim := range c.claims {
		ranked[id] = RankedClaim{Claim: claim, Centrality: raw[int64(id)] * scale}
	}
	slices.SortStableFunc(ranked, func(a, b RankedClaim) int {
		return cmp.Compare(b.Centrality, a.Centrality)
	})

	if topN < len(ranked) {
		ranked = ranked[:topN]
	}
	return ranked
}
