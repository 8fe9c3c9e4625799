package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Acme Pty Ltd", "acme"},
		{"ACME CORP", "acmecorp"},
		{"The Acme Co", "theacmeco"},
		{"Example Pty Ltd", "example"},
		{"  Example Pty. Ltd.  ", "example"},
		{"Widgets Proprietary Limited", "widgets"},
		{"Café Holdings", "cafeholdings"},
		{"Smith & Sons (Aust) Pty Ltd", "smithsonsaust"},
		{"pty-ltd", ""},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalName(tt.input))
		})
	}
}

func TestCanonicalName_Idempotent(t *testing.T) {
	inputs := []string{
		"Acme Pty Ltd",
		"ACME CORP",
		"pty-ltd",
		"Pty.Ltd Holdings",
		"Ünïcode Pty Limited",
		"ptyptyltdltd",
		"  weird   spacing\tpty ltd ",
		"!!!",
	}

	for _, in := range inputs {
		once := CanonicalName(in)
		assert.Equal(t, once, CanonicalName(once), "input %q", in)
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, "acme", Clean("Acme Pty Ltd"))
	assert.Equal(t, "acme corp", Clean("  ACME   CORP "))
	assert.Equal(t, "acme holdings", Clean("Acme PTY LTD Holdings"))
	assert.Equal(t, "", Clean(""))

	for _, in := range []string{"Acme Pty Ltd", "pty pty ltd ltd", " A  b "} {
		once := Clean(in)
		assert.Equal(t, once, Clean(once), "input %q", in)
	}
}

func TestMatchName(t *testing.T) {
	assert.Equal(t, "acme corp", MatchName("ACME-CORP"))
	assert.Equal(t, "smith sons aust", MatchName("Smith & Sons (Aust) Pty Ltd"))
	assert.Equal(t, "", MatchName("Pty Ltd"))

	for _, in := range []string{"ACME-CORP", "pty-ltd", "Café Pty. Ltd."} {
		once := MatchName(in)
		assert.Equal(t, once, MatchName(once), "input %q", in)
	}
}

func TestFromNullable(t *testing.T) {
	assert.Equal(t, "", FromNullable(nil, CanonicalName))

	name := "Acme Pty Ltd"
	assert.Equal(t, "acme", FromNullable(&name, CanonicalName))
}

func TestRegistry(t *testing.T) {
	fn, ok := Get("canonical")
	assert.True(t, ok)
	assert.Equal(t, "acme", fn("Acme Pty Ltd"))

	assert.Equal(t, "value", Apply("value", "does_not_exist"))
	assert.Equal(t, "acmecorp", ApplyChain("  ACME Corp ", "trim", "lowercase", "alphanumeric"))
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "1 main st, sydney", NormalizeAddress(" 1 Main Street,   Sydney "))
	assert.Equal(t, "unit 4 lvl 2, 10 george pde", NormalizeAddress("Unit 4 Level 2, 10 George Parade"))
}
