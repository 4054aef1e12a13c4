package cache

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Key identifies an assignment within one user's cache. It is the owning
// course ID joined to the source-assigned ID (or a sanitized name when the
// source exposes no stable ID) by a dash, e.g. "123456-7890123".
type Key string

// keySeparator joins the course and assignment parts of a Key.
const keySeparator = "-"

// NewKey builds the composite key for an assignment in a course.
func NewKey(courseID, assignmentID string) Key {
	return Key(courseID + keySeparator + assignmentID)
}

// String returns the key as stored.
func (k Key) String() string {
	return string(k)
}

// CourseID returns the course part of the key, or "" if the key has no
// separator.
func (k Key) CourseID() string {
	before, _, found := strings.Cut(string(k), keySeparator)
	if !found {
		return ""
	}

	return before
}

// SanitizeName turns a display name into a stable key component: NFC
// normalized, lowercased, with every run of non-alphanumeric runes collapsed
// to a single underscore. Returns "" for names without letters or digits.
func SanitizeName(name string) string {
	normalized := norm.NFC.String(strings.TrimSpace(name))

	var b strings.Builder
	pendingSep := false

	for _, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}

			b.WriteRune(unicode.ToLower(r))
			pendingSep = false

			continue
		}

		pendingSep = true
	}

	return b.String()
}
