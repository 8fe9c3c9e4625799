package models

import "time"

// DecisionSource records who produced a confidence score.
type DecisionSource string

const (
	DecisionSourceExternal DecisionSource = "external_service"
	DecisionSourceFallback DecisionSource = "fallback_heuristic"
)

// CandidatePair is a cross-source pair that survived the similarity floor.
// Pairs only live for the duration of a run.
type CandidatePair struct {
	Crawl      CrawlRecord    `json:"crawl"`
	Registry   RegistryRecord `json:"registry"`
	BlockKey   string         `json:"block_key"`
	Similarity float64        `json:"similarity"`
	Rank       int            `json:"rank"`
}

// MatchDecision is the adjudicated verdict on a CandidatePair.
type MatchDecision struct {
	Pair       CandidatePair  `json:"pair"`
	Confidence int            `json:"confidence"`
	Rationale  string         `json:"rationale"`
	Source     DecisionSource `json:"source"`
	DecidedAt  time.Time      `json:"decided_at"`
	Cached     bool           `json:"cached,omitempty"`
}

// MatchDecisionRecord is the persisted audit row for a decision.
type MatchDecisionRecord struct {
	ID             string    `json:"id" db:"id"`
	RunID          string    `json:"run_id" db:"run_id"`
	CrawlID        string    `json:"crawl_id" db:"crawl_id"`
	BusinessNumber string    `json:"business_number" db:"business_number"`
	BlockKey       string    `json:"block_key" db:"block_key"`
	Similarity     float64   `json:"similarity" db:"similarity"`
	Confidence     int       `json:"confidence" db:"confidence"`
	Rationale      string    `json:"rationale" db:"rationale"`
	Source         string    `json:"source" db:"source"`
	Accepted       bool      `json:"accepted" db:"accepted"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
