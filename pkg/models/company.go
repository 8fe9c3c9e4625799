package models

import "time"

// UnifiedCompany is the canonical merged view of a company, keyed by business number.
type UnifiedCompany struct {
	BusinessNumber string    `json:"business_number" db:"business_number"`
	CompanyName    string    `json:"company_name" db:"company_name"`
	EntityType     string    `json:"entity_type" db:"entity_type"`
	EntityStatus   string    `json:"entity_status" db:"entity_status"`
	Address        string    `json:"address" db:"address"`
	Postcode       string    `json:"postcode" db:"postcode"`
	State          string    `json:"state" db:"state"`
	EffectiveDate  string    `json:"effective_date" db:"effective_date"`
	Industry       string    `json:"industry" db:"industry"`
	SourceURL      string    `json:"source_url" db:"source_url"`
	Confidence     int       `json:"confidence" db:"confidence"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// RunStatus is the terminal state of a pipeline run.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunSummary reports what a pipeline run did.
type RunSummary struct {
	RunID              string        `json:"run_id"`
	Status             RunStatus     `json:"status"`
	Error              string        `json:"error,omitempty"`
	StartedAt          time.Time     `json:"started_at"`
	FinishedAt         time.Time     `json:"finished_at"`
	Duration           time.Duration `json:"duration"`
	CrawlRecords       int           `json:"crawl_records"`
	RegistryRecords    int           `json:"registry_records"`
	SkippedRecords     int           `json:"skipped_records"`
	Blocks             int           `json:"blocks"`
	Candidates         int           `json:"candidates"`
	Decisions          int           `json:"decisions"`
	ExternalDecisions  int           `json:"external_decisions"`
	FallbackDecisions  int           `json:"fallback_decisions"`
	Accepted           int           `json:"accepted"`
	UnifiedCompanies   int           `json:"unified_companies"`
	PersistedCompanies int           `json:"persisted_companies"`
	PublishedEvents    int           `json:"published_events"`
}
