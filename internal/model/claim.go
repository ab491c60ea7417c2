package model

import "time"

// Claim is a factual assertion tracked by the claim graph
type Claim struct {
	ID         string    `json:"id"`      // Unique node identifier
	Text       string    `json:"text"`    // The claim text itself
	Subject    string    `json:"subject"` // Optional subject/predicate/object decomposition
	Predicate  string    `json:"predicate"`
	Object     string    `json:"object"`
	Confidence float64   `json:"confidence"` // Confidence carried over from analysis (0-1)
	Status     string    `json:"status"`     // Free-form status label (e.g., "Unverified")
	CreatedAt  time.Time `json:"created_at"` // When the claim entered the graph
}

// ClaimStatusUnknown is used when a claim is added without a status
const ClaimStatusUnknown = "Unknown"

// ClaimComponents is the structural decomposition the clarity analyzer extracts
type ClaimComponents struct {
	Text       string `json:"text,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Predicate  string `json:"predicate,omitempty"`
	Object     string `json:"object,omitempty"`
	Quantifier string `json:"quantifier,omitempty"`
}

// Completeness returns the weighted presence of the claim's structural parts
func (c ClaimComponents) Completeness() float64 {
	score := 0.0
	if c.Subject != "" {
		score += 0.3
	}
	if c.Predicate != "" {
		score += 0.3
	}
	if c.Object != "" {
		score += 0.3
	}
	if c.Quantifier != "" {
		score += 0.1
	}
	return score
}

// EdgeTypeSimilarity tags edges created from text similarity
const EdgeTypeSimilarity = "similarity"

// SimilarityEdge is an undirected weighted relation between two claims
type SimilarityEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"` // Cosine similarity in (0,1]
	Type   string  `json:"type"`
}
