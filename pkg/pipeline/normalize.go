package pipeline

import (
	"github.com/Ramsey-B/clover/pkg/blocking"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
)

func normalize(index *blocking.Index, source models.Source, i int, name *string) models.NormalizedRecord {
	canonical := normalizers.FromNullable(name, normalizers.CanonicalName)
	return models.NormalizedRecord{
		Source:        source,
		Index:         i,
		MatchName:     normalizers.FromNullable(name, normalizers.MatchName),
		CanonicalName: canonical,
		BlockKey:      index.Key(canonical),
	}
}

func normalizeCrawl(index *blocking.Index, records []models.CrawlRecord) []models.NormalizedRecord {
	out := make([]models.NormalizedRecord, len(records))
	for i, rec := range records {
		out[i] = normalize(index, models.SourceCrawl, i, rec.Name)
	}
	return out
}

func normalizeRegistry(index *blocking.Index, records []models.RegistryRecord) []models.NormalizedRecord {
	out := make([]models.NormalizedRecord, len(records))
	for i, rec := range records {
		out[i] = normalize(index, models.SourceRegistry, i, rec.Name)
	}
	return out
}
