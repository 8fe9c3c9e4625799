package phonetic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSoundex(t *testing.T) {
	tests := map[string]string{
		"Robert":   "R163",
		"Rupert":   "R163",
		"Tymczak":  "T522",
		"Ashcraft": "A261",
		"A":        "A000",
		"":         "",
		"123":      "",
	}

	for input, expected := range tests {
		assert.Equal(t, expected, Soundex(input), "input %q", input)
	}
}

func TestMetaphone(t *testing.T) {
	assert.Equal(t, "AKM", Metaphone("acme"))
	assert.Equal(t, Metaphone("acme"), Metaphone("akme"))
	assert.Equal(t, "", Metaphone(""))
	assert.LessOrEqual(t, len(Metaphone("supercalifragilistic")), 6)
}
