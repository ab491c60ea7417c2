// Package graph maintains the claim similarity graph: claims are linked by
// TF-IDF cosine similarity and can be queried for neighborhoods,
// communities and central claims.
package graph

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/ppiankov/claimcheck/internal/model"
)

// DefaultThreshold is the similarity an edge must exceed
const DefaultThreshold = 0.3

// ClaimGraph is an undirected similarity graph over claims.
// It is safe for concurrent use: AddClaim and FromJSON take the write lock,
// queries share the read lock.
type ClaimGraph struct {
	mu sync.RWMutex

	g      *simple.WeightedUndirectedGraph
	claims []model.Claim // indexed by gonum node ID
	ids    map[string]int64
	types  map[[2]int64]string

	threshold float64
	detector  CommunityDetector
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a ClaimGraph
type Option func(*ClaimGraph)

// WithThreshold sets the similarity threshold for new edges
func WithThreshold(threshold float64) Option {
	return func(c *ClaimGraph) { c.threshold = threshold }
}

// WithDetector sets the community detection algorithm
func WithDetector(d CommunityDetector) Option {
	return func(c *ClaimGraph) {
		if d != nil {
			c.detector = d
		}
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *ClaimGraph) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the clock used to stamp claims added without a timestamp
func WithClock(now func() time.Time) Option {
	return func(c *ClaimGraph) { c.now = now }
}

// New creates an empty claim graph
func New(opts ...Option) *ClaimGraph {
	c := &ClaimGraph{
		threshold: DefaultThreshold,
		detector:  ComponentsDetector{},
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	c.reset()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ClaimGraph) reset() {
	c.g = simple.NewWeightedUndirectedGraph(0, 0)
	c.claims = nil
	c.ids = make(map[string]int64)
	c.types = make(map[[2]int64]string)
}

// AddClaim inserts claim and links it to every existing claim whose
// similarity exceeds the threshold. An empty ID is replaced by a UUID.
// It returns the claim's ID.
func (c *ClaimGraph) AddClaim(claim model.Claim) (string, error) {
	if claim.ID == "" {
		claim.ID = uuid.NewString()
	}
	if !model.InUnitRange(claim.Confidence) {
		return "", fmt.Errorf("claim %s: confidence %.4f outside [0,1]", claim.ID, claim.Confidence)
	}
	if claim.Status == "" {
		claim.Status = model.ClaimStatusUnknown
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.ids[claim.ID]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateClaim, claim.ID)
	}
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = c.now().UTC()
	}

	node := c.addNode(claim)
	linked := c.linkSimilar(node)

	c.logger.Debug("claim added",
		zap.String("claim_id", claim.ID),
		zap.Int("nodes", len(c.claims)),
		zap.Int("edges", linked))

	return claim.ID, nil
}

func (c *ClaimGraph) addNode(claim model.Claim) gonum.Node {
	node := simple.Node(int64(len(c.claims)))
	c.g.AddNode(node)
	c.claims = append(c.claims, claim)
	c.ids[claim.ID] = node.ID()
	return node
}

// linkSimilar rebuilds the TF-IDF space over all claim texts and adds an
// edge from node to each existing claim above the threshold.
// This is O(n * vocabulary) per insertion.
func (c *ClaimGraph) linkSimilar(node gonum.Node) int {
	if len(c.claims) < 2 {
		return 0
	}

	docs := make([]string, len(c.claims))
	for i, claim := range c.claims {
		docs[i] = claimText(claim)
	}
	vectors := vectorize(docs)

	self := vectors[node.ID()]
	linked := 0
	for id := range c.claims {
		other := int64(id)
		if other == node.ID() {
			continue
		}
		sim := cosine(self, vectors[other])
		if sim <= c.threshold || sim <= 0 {
			continue
		}
		c.setEdge(other, node.ID(), sim, model.EdgeTypeSimilarity)
		linked++
	}
	return linked
}

func (c *ClaimGraph) setEdge(from, to int64, weight float64, edgeType string) {
	c.g.SetWeightedEdge(c.g.NewWeightedEdge(simple.Node(from), simple.Node(to), weight))
	c.types[pairKey(from, to)] = edgeType
}

// claimText is the text used for similarity; claims without text fall back
// to their subject, predicate and object.
func claimText(claim model.Claim) string {
	if strings.TrimSpace(claim.Text) != "" {
		return claim.Text
	}
	return strings.Join([]string{claim.Subject, claim.Predicate, claim.Object}, " ")
}

func pairKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}

// Len returns the number of claims
func (c *ClaimGraph) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.claims)
}

// Claim returns the claim with the given ID
func (c *ClaimGraph) Claim(id string) (model.Claim, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	nid, ok := c.ids[id]
	if !ok {
		return model.Claim{}, false
	}
	return c.claims[nid], true
}

// Claims returns every claim in insertion order
func (c *ClaimGraph) Claims() []model.Claim {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.claims)
}

// Edges returns every edge, ordered by source then target insertion order
func (c *ClaimGraph) Edges() []model.SimilarityEdge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.edges()
}

func (c *ClaimGraph) edges() []model.SimilarityEdge {
	keys := make([][2]int64, 0, len(c.types))
	for k := range c.types {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b [2]int64) int {
		if n := cmp.Compare(a[0], b[0]); n != 0 {
			return n
		}
		return cmp.Compare(a[1], b[1])
	})

	edges := make([]model.SimilarityEdge, 0, len(keys))
	for _, k := range keys {
		w, _ := c.g.Weight(k[0], k[1])
		edges = append(edges, model.SimilarityEdge{
			Source: c.claims[k[0]].ID,
			Target: c.claims[k[1]].ID,
			Weight: w,
			Type:   c.types[k],
		})
	}
	return edges
}

// ConnectedClaims returns the claims reachable from id within maxDepth hops,
// excluding id itself, in insertion order. An unknown id yields nil.
func (c *ClaimGraph) ConnectedClaims(id string, maxDepth int) []model.Claim {
	c.mu.RLock()
	defer c.mu.RUnlock()

	start, ok := c.ids[id]
	if !ok || maxDepth <= 0 {
		return nil
	}

	visited := map[int64]bool{start: true}
	frontier := []int64{start}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []int64
		for _, nid := range frontier {
			neighbors := c.g.From(nid)
			for neighbors.Next() {
				n := neighbors.Node().ID()
				if visited[n] {
					continue
				}
				visited[n] = true
				next = append(next, n)
			}
		}
		frontier = next
	}

	delete(visited, start)
	return c.claimsOf(visited)
}

func (c *ClaimGraph) claimsOf(set map[int64]bool) []model.Claim {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	claims := make([]model.Claim, len(ids))
	for i, id := range ids {
		claims[i] = c.claims[id]
	}
	return claims
}
