package merging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func decision(abn string, confidence int) models.MatchDecision {
	return models.MatchDecision{
		Pair: models.CandidatePair{
			Crawl: models.CrawlRecord{
				ID:       "crawl-" + abn,
				Name:     models.StringPtr("Example Pty Ltd"),
				Industry: models.StringPtr("retail"),
				URL:      models.StringPtr("example.com.au"),
			},
			Registry: models.RegistryRecord{
				BusinessNumber: abn,
				Name:           models.StringPtr("EXAMPLE"),
				EntityType:     models.StringPtr("Australian Private Company"),
				EntityStatus:   models.StringPtr("Active"),
				Address:        models.StringPtr("1 Main St, Sydney"),
				Postcode:       models.StringPtr("2000"),
				State:          models.StringPtr("nsw"),
				EffectiveDate:  models.StringPtr("2001-07-01"),
			},
			Similarity: 100,
		},
		Confidence: confidence,
		Source:     models.DecisionSourceExternal,
	}
}

func TestAccept_CeilingIsInclusive(t *testing.T) {
	u := NewUnifier(DefaultCeiling)

	accepted := u.Accept([]models.MatchDecision{
		decision("1", 89),
		decision("2", 90),
		decision("3", 100),
		decision("4", 80),
	})

	require.Len(t, accepted, 2)
	assert.Equal(t, "2", accepted[0].Pair.Registry.BusinessNumber)
	assert.Equal(t, "3", accepted[1].Pair.Registry.BusinessNumber)
}

func TestUnify_FallbackConfidenceBelowCeiling(t *testing.T) {
	d := decision("12345678901", 80)
	d.Source = models.DecisionSourceFallback

	assert.Empty(t, NewUnifier(DefaultCeiling).Unify([]models.MatchDecision{d}))
}

func TestMerge_FieldSources(t *testing.T) {
	company := NewUnifier(DefaultCeiling).Merge(decision("12345678901", 95))

	assert.Equal(t, models.UnifiedCompany{
		BusinessNumber: "12345678901",
		CompanyName:    "EXAMPLE",
		EntityType:     "Australian Private Company",
		EntityStatus:   "Active",
		Address:        "1 Main St, Sydney",
		Postcode:       "2000",
		State:          "nsw",
		EffectiveDate:  "2001-07-01",
		Industry:       "retail",
		SourceURL:      "example.com.au",
		Confidence:     95,
	}, company)
}

func TestMerge_NameFallsBackToCrawl(t *testing.T) {
	d := decision("12345678901", 95)
	d.Pair.Registry.Name = models.StringPtr("   ")

	company := NewUnifier(DefaultCeiling).Merge(d)
	assert.Equal(t, "Example Pty Ltd", company.CompanyName)

	d.Pair.Registry.Name = nil
	d.Pair.Crawl.Name = nil
	assert.Equal(t, "", NewUnifier(DefaultCeiling).Merge(d).CompanyName)
}

func TestDedupe_KeepsLast(t *testing.T) {
	companies := []models.UnifiedCompany{
		{BusinessNumber: "A", SourceURL: "first.example"},
		{BusinessNumber: "B", SourceURL: "b.example"},
		{BusinessNumber: "A", SourceURL: "second.example"},
	}

	deduped := Dedupe(companies)

	require.Len(t, deduped, 2)
	assert.Equal(t, "A", deduped[0].BusinessNumber)
	assert.Equal(t, "second.example", deduped[0].SourceURL)
	assert.Equal(t, "B", deduped[1].BusinessNumber)
}

func TestUnify(t *testing.T) {
	first := decision("12345678901", 92)
	second := decision("12345678901", 97)
	second.Pair.Crawl.URL = models.StringPtr("example.com")
	other := decision("98765432109", 90)
	rejected := decision("11111111111", 89)

	companies := NewUnifier(DefaultCeiling).Unify([]models.MatchDecision{first, other, rejected, second})

	require.Len(t, companies, 2)
	assert.Equal(t, "12345678901", companies[0].BusinessNumber)
	assert.Equal(t, "example.com", companies[0].SourceURL)
	assert.Equal(t, 97, companies[0].Confidence)
	assert.Equal(t, "98765432109", companies[1].BusinessNumber)
}

func TestUnify_DropsBlankBusinessNumber(t *testing.T) {
	assert.Empty(t, NewUnifier(DefaultCeiling).Unify([]models.MatchDecision{decision("  ", 99)}))
}
