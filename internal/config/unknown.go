package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys are the valid top-level keys in the config file.
var knownKeys = map[string]bool{
	// Credentials
	"tenant_id": true, "client_id": true, "client_secret": true, "scope": true, "delegation_mode": true,
	// Files
	"drive_id": true, "root_base_path": true, "scratch_dir": true, "upload_parallelism": true,
	// Mail
	"from_address": true,
	// Logging
	"log_level": true, "log_format": true,
	// Network
	"graph_url": true, "login_url": true, "request_timeout": true, "fragment_timeout": true,
}

// knownKeysList is the sorted slice form of knownKeys, sorted so ties in
// edit distance produce deterministic suggestions.
var knownKeysList = func() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	errs := make([]error, 0, len(undecoded))

	for _, key := range undecoded {
		// Report only the leaf so a typo inside a stray table still gets a suggestion.
		name := key[len(key)-1]

		if suggestion := closestMatch(name, knownKeysList); suggestion != "" {
			errs = append(errs, fmt.Errorf("unknown config key %q — did you mean %q?", key.String(), suggestion))

			continue
		}

		errs = append(errs, fmt.Errorf("unknown config key %q", key.String()))
	}

	return errors.Join(errs...)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings using a
// single-row pair instead of a full matrix.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
