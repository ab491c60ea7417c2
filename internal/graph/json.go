package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/model"
)

// NodeTypeClaim tags every node in the persisted form
const NodeTypeClaim = "claim"

type nodeJSON struct {
	model.Claim
	Type string `json:"type"`
}

type document struct {
	Nodes []nodeJSON             `json:"nodes"`
	Edges []model.SimilarityEdge `json:"edges"`
}

type rawDocument struct {
	Nodes *[]nodeJSON             `json:"nodes"`
	Edges *[]model.SimilarityEdge `json:"edges"`
}

// ToJSON serializes every node with its attributes and every edge
func (c *ClaimGraph) ToJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc := document{
		Nodes: make([]nodeJSON, len(c.claims)),
		Edges: c.edges(),
	}
	for i, claim := range c.claims {
		doc.Nodes[i] = nodeJSON{Claim: claim, Type: NodeTypeClaim}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal graph: %w", err)
	}
	return data, nil
}

// FromJSON replaces the graph with the one described by data.
// Loading is all-or-nothing: on a *DeserializationError the graph is unchanged.
func (c *ClaimGraph) FromJSON(data []byte) error {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return &DeserializationError{Reason: "malformed JSON", Err: err}
	}
	if raw.Nodes == nil {
		return &DeserializationError{Reason: `missing "nodes"`}
	}
	if raw.Edges == nil {
		return &DeserializationError{Reason: `missing "edges"`}
	}

	staged := &ClaimGraph{}
	staged.reset()

	for i, n := range *raw.Nodes {
		if n.ID == "" {
			return &DeserializationError{Reason: fmt.Sprintf("node %d has no id", i)}
		}
		if _, dup := staged.ids[n.ID]; dup {
			return &DeserializationError{Reason: fmt.Sprintf("duplicate node id %q", n.ID)}
		}
		if !model.InUnitRange(n.Confidence) {
			return &DeserializationError{Reason: fmt.Sprintf("node %q confidence %.4f outside [0,1]", n.ID, n.Confidence)}
		}
		staged.addNode(n.Claim)
	}

	for i, e := range *raw.Edges {
		from, ok := staged.ids[e.Source]
		if !ok {
			return &DeserializationError{Reason: fmt.Sprintf("edge %d references unknown source %q", i, e.Source)}
		}
		to, ok := staged.ids[e.Target]
		if !ok {
			return &DeserializationError{Reason: fmt.Sprintf("edge %d references unknown target %q", i, e.Target)}
		}
		if from == to {
			return &DeserializationError{Reason: fmt.Sprintf("edge %d is a self loop on %q", i, e.Source)}
		}
		if !(e.Weight > 0 && e.Weight <= 1) {
			return &DeserializationError{Reason: fmt.Sprintf("edge %d weight %.4f outside (0,1]", i, e.Weight)}
		}
		if _, dup := staged.types[pairKey(from, to)]; dup {
			return &DeserializationError{Reason: fmt.Sprintf("duplicate edge %q-%q", e.Source, e.Target)}
		}
		edgeType := e.Type
		if edgeType == "" {
			edgeType = model.EdgeTypeSimilarity
		}
		staged.setEdge(from, to, e.Weight, edgeType)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.g, c.claims, c.ids, c.types = staged.g, staged.claims, staged.ids, staged.types

	c.logger.Debug("graph loaded",
		zap.Int("nodes", len(c.claims)),
		zap.Int("edges", len(c.types)))
	return nil
}

// Save writes the graph to path through a temp file
func (c *ClaimGraph) Save(path string) error {
	data, err := c.ToJSON()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create graph dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".graph-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write graph: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close graph file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename graph file: %w", err)
	}
	return nil
}

// Load replaces the graph with the snapshot at path.
// A missing file leaves the graph empty and is not an error.
func (c *ClaimGraph) Load(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read graph: %w", err)
	}
	return c.FromJSON(data)
}
