package adjudication

import (
	"encoding/json"
	"fmt"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
)

type promptCrawlRecord struct {
	Name     string `json:"company_name"`
	Industry string `json:"industry,omitempty"`
	URL      string `json:"url,omitempty"`
}

type promptRegistryRecord struct {
	BusinessNumber string `json:"abn"`
	Name           string `json:"entity_name"`
	EntityType     string `json:"entity_type,omitempty"`
	EntityStatus   string `json:"entity_status,omitempty"`
	Address        string `json:"address,omitempty"`
	Postcode       string `json:"postcode,omitempty"`
	State          string `json:"state,omitempty"`
}

const promptTemplate = `Given two company records:
Record 1 (web crawl): %s
Record 2 (business registry): %s

Are these likely the same legal entity? Respond only with a JSON object of the form
{"confidence": <integer 0-100>, "reasoning": "<one sentence>"}`

// BuildPrompt renders both records of a pair as JSON inside the instruction text.
func BuildPrompt(pair models.CandidatePair) (string, error) {
	crawl, err := json.Marshal(promptCrawlRecord{
		Name:     models.Deref(pair.Crawl.Name),
		Industry: models.Deref(pair.Crawl.Industry),
		URL:      models.Deref(pair.Crawl.URL),
	})
	if err != nil {
		return "", err
	}

	registry, err := json.Marshal(promptRegistryRecord{
		BusinessNumber: pair.Registry.BusinessNumber,
		Name:           models.Deref(pair.Registry.Name),
		EntityType:     models.Deref(pair.Registry.EntityType),
		EntityStatus:   models.Deref(pair.Registry.EntityStatus),
		Address:        normalizers.FromNullable(pair.Registry.Address, normalizers.NormalizeAddress),
		Postcode:       models.Deref(pair.Registry.Postcode),
		State:          models.Deref(pair.Registry.State),
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(promptTemplate, crawl, registry), nil
}
