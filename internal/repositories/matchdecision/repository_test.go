package matchdecision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func decision(crawlID, abn string, confidence int) models.MatchDecision {
	return models.MatchDecision{
		Pair: models.CandidatePair{
			Crawl:      models.CrawlRecord{ID: crawlID},
			Registry:   models.RegistryRecord{BusinessNumber: abn},
			BlockKey:   "exa",
			Similarity: 95.5,
		},
		Confidence: confidence,
		Rationale:  "because",
		Source:     models.DecisionSourceFallback,
	}
}

func TestToRecords(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	records := toRecords("run-1", []models.MatchDecision{
		decision("c1", "A", 89),
		decision("c2", "A", 90),
		decision("c1", "A", 95),
	}, 90, now)

	require.Len(t, records, 2)

	assert.Equal(t, "c1", records[0].CrawlID)
	assert.Equal(t, 95, records[0].Confidence)
	assert.True(t, records[0].Accepted)

	assert.Equal(t, "c2", records[1].CrawlID)
	assert.True(t, records[1].Accepted)

	for _, r := range records {
		assert.Equal(t, "run-1", r.RunID)
		assert.Equal(t, "fallback_heuristic", r.Source)
		assert.Equal(t, now, r.CreatedAt)
		assert.NotEmpty(t, r.ID)
	}
}

func TestToRecords_NotAcceptedBelowCeiling(t *testing.T) {
	records := toRecords("run-1", []models.MatchDecision{decision("c1", "A", 80)}, 90, time.Now())
	require.Len(t, records, 1)
	assert.False(t, records[0].Accepted)
}
