package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"drive_id", "drive_id", 0},
		{"drive_ld", "drive_id", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestClosestMatch(t *testing.T) {
	assert.Equal(t, "tenant_id", closestMatch("tenat_id", knownKeysList))
	assert.Equal(t, "from_address", closestMatch("from_adress", knownKeysList))
	assert.Empty(t, closestMatch("completely_unrelated", knownKeysList))
}

func TestLoad_UnknownKeyWithoutSuggestion(t *testing.T) {
	path := writeTestConfig(t, `completely_unrelated = 1`)

	_, err := Load(path)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), `unknown config key "completely_unrelated"`)
		assert.NotContains(t, err.Error(), "did you mean")
	}
}
