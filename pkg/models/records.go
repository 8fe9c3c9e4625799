package models

// Source identifies which input batch a record came from.
type Source string

const (
	SourceCrawl    Source = "crawl"
	SourceRegistry Source = "registry"
)

// CrawlRecord is a company mention extracted from a web crawl.
type CrawlRecord struct {
	ID       string  `json:"id" yaml:"id" db:"id" validate:"required"`
	Name     *string `json:"company_name" yaml:"company_name" db:"company_name"`
	Industry *string `json:"industry" yaml:"industry" db:"industry"`
	URL      *string `json:"url" yaml:"url" db:"url"`
}

// RegistryRecord is an entry from the official business registry.
type RegistryRecord struct {
	ID             string  `json:"id" yaml:"id" db:"id"`
	BusinessNumber string  `json:"abn" yaml:"abn" db:"abn" validate:"required"`
	Name           *string `json:"entity_name" yaml:"entity_name" db:"entity_name"`
	EntityType     *string `json:"entity_type" yaml:"entity_type" db:"entity_type"`
	EntityStatus   *string `json:"entity_status" yaml:"entity_status" db:"entity_status"`
	Address        *string `json:"address" yaml:"address" db:"address"`
	Postcode       *string `json:"postcode" yaml:"postcode" db:"postcode"`
	State          *string `json:"state" yaml:"state" db:"state"`
	EffectiveDate  *string `json:"start_date" yaml:"start_date" db:"start_date"`
}

// NormalizedRecord carries the matching view of a source record.
// Index points back into the batch the record was loaded from.
type NormalizedRecord struct {
	Source        Source `json:"source"`
	Index         int    `json:"index"`
	MatchName     string `json:"match_name"`
	CanonicalName string `json:"canonical_name"`
	BlockKey      string `json:"block_key"`
}

// Deref returns the value of a nullable column or "" when absent.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr is a convenience for building nullable fields.
func StringPtr(s string) *string {
	return &s
}
