package model

import (
	"strings"
	"testing"
)

func TestNormalizeTags(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{"lowercases and trims", []string{" Work ", "HOME"}, []string{"work", "home"}},
		{"strips invalid chars", []string{"foo bar!", "a/b"}, []string{"foobar", "ab"}},
		{"drops empties", []string{"", "  ", "!!!"}, []string{}},
		{"keeps hyphens and underscores", []string{"side-project", "deep_work"}, []string{"side-project", "deep_work"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeTags(tc.in)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v want %v", got, tc.want)
				}
			}
		})
	}
}

func TestNormalizeTagsLimits(t *testing.T) {
	long := strings.Repeat("a", TagMaxLen+1)
	if got := NormalizeTags([]string{long}); len(got) != 0 {
		t.Fatalf("overlong tag should be dropped, got %v", got)
	}

	many := make([]string, MaxTags+5)
	for i := range many {
		many[i] = "tag" + string(rune('a'+i))
	}
	if got := NormalizeTags(many); len(got) != MaxTags {
		t.Fatalf("expected cap at %d tags, got %d", MaxTags, len(got))
	}
}
