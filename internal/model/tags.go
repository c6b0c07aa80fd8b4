package model

import (
	"regexp"
	"strings"
)

const (
	MaxTags   = 20
	TagMaxLen = 50
)

var invalidTagChars = regexp.MustCompile(`[^a-z0-9_-]`)

// NormalizeTags lowercases tags, strips characters outside [a-z0-9_-], and
// drops empties and tags over 50 characters. At most 20 tags are kept, in
// input order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		tag = invalidTagChars.ReplaceAllString(tag, "")
		if tag == "" || len(tag) > TagMaxLen {
			continue
		}
		out = append(out, tag)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}
