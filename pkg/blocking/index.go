package blocking

import (
	"sort"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Block pairs the records of both sources that share a block key.
type Block struct {
	Key      string
	Crawl    []models.NormalizedRecord
	Registry []models.NormalizedRecord
}

// Index groups normalized records by block key.
type Index struct {
	keyer Keyer
}

// NewIndex creates an index that keys records with keyer
func NewIndex(keyer Keyer) *Index {
	return &Index{keyer: keyer}
}

// Key returns the block key for a canonical name
func (i *Index) Key(canonicalName string) string {
	return i.keyer.Key(canonicalName)
}

// Build returns one Block per key present in both sources, ordered by key.
// Keys found on only one side are skipped, so names whose keys differ
// ("theacme" vs "acme" under prefix keying) are never compared.
func (i *Index) Build(crawl, registry []models.NormalizedRecord) []Block {
	crawlByKey := Partition(crawl)
	registryByKey := Partition(registry)

	keys := make([]string, 0, len(crawlByKey))
	for key := range crawlByKey {
		if _, ok := registryByKey[key]; ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	blocks := make([]Block, 0, len(keys))
	for _, key := range keys {
		blocks = append(blocks, Block{
			Key:      key,
			Crawl:    crawlByKey[key],
			Registry: registryByKey[key],
		})
	}
	return blocks
}

// Partition groups records by their BlockKey, keeping input order within each group.
func Partition(records []models.NormalizedRecord) map[string][]models.NormalizedRecord {
	groups := make(map[string][]models.NormalizedRecord)
	for _, rec := range records {
		groups[rec.BlockKey] = append(groups[rec.BlockKey], rec)
	}
	return groups
}
