package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Generate creates a deterministic fingerprint for record data.
// The fingerprint is a SHA256 hash of the canonicalized JSON.
func Generate(data map[string]any) string {
	hash := sha256.Sum256([]byte(canonicalize(data)))
	return hex.EncodeToString(hash[:])
}

// Pair fingerprints the fields an adjudicator sees for a candidate pair, so
// a cached verdict is reused only while both records are unchanged.
func Pair(pair models.CandidatePair) string {
	c, r := pair.Crawl, pair.Registry
	return Generate(map[string]any{
		"crawl": map[string]any{
			"id":       c.ID,
			"name":     models.Deref(c.Name),
			"industry": models.Deref(c.Industry),
			"url":      models.Deref(c.URL),
		},
		"registry": map[string]any{
			"abn":           r.BusinessNumber,
			"name":          models.Deref(r.Name),
			"entity_type":   models.Deref(r.EntityType),
			"entity_status": models.Deref(r.EntityStatus),
			"address":       models.Deref(r.Address),
			"postcode":      models.Deref(r.Postcode),
			"state":         models.Deref(r.State),
		},
	})
}

// canonicalize creates a deterministic string representation by sorting
// map keys and recursing into nested structures
func canonicalize(data any) string {
	switch v := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		b.WriteString("{")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(",")
			}
			keyJSON, _ := json.Marshal(k)
			b.Write(keyJSON)
			b.WriteString(":")
			b.WriteString(canonicalize(v[k]))
		}
		b.WriteString("}")
		return b.String()
	case []any:
		var b strings.Builder
		b.WriteString("[")
		for i, item := range v {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(canonicalize(item))
		}
		b.WriteString("]")
		return b.String()
	default:
		encoded, _ := json.Marshal(v)
		return string(encoded)
	}
}
