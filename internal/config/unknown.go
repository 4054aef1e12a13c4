package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownTopKeys are the valid top-level keys: plain values and section names.
var knownTopKeys = map[string]bool{
	"state_dir": true,
	"sync":      true, "calendar": true, "google": true, "gradescope": true,
	"server": true, "logging": true, "network": true,
}

// knownSectionKeys are the valid keys inside each section.
var knownSectionKeys = map[string]map[string]bool{
	"sync": {
		"schedule": true, "user_batch_size": true, "fetch_timeout": true, "batch_timeout": true,
	},
	"calendar":   {"workers": true, "requests_per_second": true},
	"google":     {"client_id": true, "client_secret": true, "redirect_url": true},
	"gradescope": {"base_url": true, "workers": true},
	"server":     {"listen": true},
	"logging": {
		"log_level": true, "log_file": true, "log_format": true, "log_retention_days": true,
	},
	"network": {"connect_timeout": true, "user_agent": true},
}

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	// Keys below an unknown section are reported once, at the section.
	seenTop := make(map[string]bool)

	for _, key := range md.Undecoded() {
		top := key[0]

		if !knownTopKeys[top] {
			if !seenTop[top] {
				seenTop[top] = true
				errs = append(errs, keyError(top, "", sortedKeys(knownTopKeys)))
			}

			continue
		}

		if err := sectionKeyError(key); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// sectionKeyError describes an undecoded key inside a known section.
func sectionKeyError(key toml.Key) error {
	top := key[0]

	section, ok := knownSectionKeys[top]
	if !ok || len(key) < 2 {
		return nil
	}

	return keyError(key[1], top, sortedKeys(section))
}

func keyError(name, section string, known []string) error {
	where := ""
	if section != "" {
		where = fmt.Sprintf(" in [%s]", section)
	}

	if suggestion := closestMatch(name, known); suggestion != "" {
		return fmt.Errorf("unknown config key %q%s, did you mean %q?", name, where, suggestion)
	}

	return fmt.Errorf("unknown config key %q%s", name, where)
}

// sortedKeys gives deterministic suggestions when two candidates have the
// same edit distance.
func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(strings.ToLower(unknown), k)
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

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	// Single-row optimization.
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
