// Package blocking partitions normalized records so only same-block pairs are compared.
package blocking

import (
	"fmt"
	"sort"

	"github.com/Ramsey-B/clover/pkg/phonetic"
)

// DefaultSentinel is the block key shared by every record with an empty canonical name.
const DefaultSentinel = "zzz"

// Keyer derives a block key from a canonical name. Implementations must be pure.
type Keyer interface {
	Key(canonicalName string) string
}

// KeyerFunc adapts a function to Keyer
type KeyerFunc func(string) string

func (f KeyerFunc) Key(canonicalName string) string {
	return f(canonicalName)
}

// PrefixKeyer keys on the first Length characters of the canonical name.
type PrefixKeyer struct {
	Length   int
	Sentinel string
}

func (k PrefixKeyer) Key(canonicalName string) string {
	if canonicalName == "" {
		return sentinel(k.Sentinel)
	}
	runes := []rune(canonicalName)
	if len(runes) <= k.Length {
		return canonicalName
	}
	return string(runes[:k.Length])
}

// SoundexKeyer keys on the Soundex code, grouping names that sound alike.
type SoundexKeyer struct {
	Sentinel string
}

func (k SoundexKeyer) Key(canonicalName string) string {
	code := phonetic.Soundex(canonicalName)
	if code == "" {
		return sentinel(k.Sentinel)
	}
	return code
}

// MetaphoneKeyer keys on the first Length Metaphone codes.
type MetaphoneKeyer struct {
	Length   int
	Sentinel string
}

func (k MetaphoneKeyer) Key(canonicalName string) string {
	code := phonetic.Metaphone(canonicalName)
	if code == "" {
		return sentinel(k.Sentinel)
	}
	if k.Length > 0 && len(code) > k.Length {
		return code[:k.Length]
	}
	return code
}

// NGramKeyer keys on the alphabetically smallest n-gram of the name, which
// tolerates a leading token such as "the" that a prefix key would not.
type NGramKeyer struct {
	N        int
	Sentinel string
}

func (k NGramKeyer) Key(canonicalName string) string {
	runes := []rune(canonicalName)
	if len(runes) == 0 {
		return sentinel(k.Sentinel)
	}
	if len(runes) <= k.N {
		return canonicalName
	}

	grams := make([]string, 0, len(runes)-k.N+1)
	for i := 0; i+k.N <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+k.N]))
	}
	sort.Strings(grams)
	return grams[0]
}

// NewKeyer builds the keyer for a configured strategy.
func NewKeyer(strategy string, length int, sentinelKey string) (Keyer, error) {
	if length < 1 {
		return nil, fmt.Errorf("block key length must be at least 1, got %d", length)
	}

	switch strategy {
	case "", "prefix":
		return PrefixKeyer{Length: length, Sentinel: sentinelKey}, nil
	case "soundex":
		return SoundexKeyer{Sentinel: sentinelKey}, nil
	case "metaphone":
		return MetaphoneKeyer{Length: length, Sentinel: sentinelKey}, nil
	case "ngram":
		return NGramKeyer{N: length, Sentinel: sentinelKey}, nil
	default:
		return nil, fmt.Errorf("unsupported block strategy: %s (use 'prefix', 'soundex', 'metaphone' or 'ngram')", strategy)
	}
}

func sentinel(s string) string {
	if s == "" {
		return DefaultSentinel
	}
	return s
}
