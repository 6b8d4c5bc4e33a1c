package commitment

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
)

// Matcher recognizes one commitment type, with its aliases, at the start of
// a line and captures the rest of the line as content.
type Matcher struct {
	keywords []string
	re       *regexp.Regexp
}

// NewMatcher builds a matcher for the given keywords. Keywords are tried
// longest first, so LANGUAGES is never cut short at LANGUAGE. Words inside a
// multi-word keyword may be separated by any horizontal whitespace.
func NewMatcher(keywords ...string) *Matcher {
	sorted := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = normalizeKeyword(kw); kw != "" && !slices.Contains(sorted, kw) {
			sorted = append(sorted, kw)
		}
	}
	slices.SortStableFunc(sorted, func(a, b string) int {
		return cmp.Compare(len(b), len(a))
	})

	alternatives := make([]string, len(sorted))
	for i, kw := range sorted {
		words := strings.Fields(kw)
		for j, w := range words {
			words[j] = regexp.QuoteMeta(w)
		}
		alternatives[i] = strings.Join(words, `[ \t]+`)
	}
	pattern := `(?s)^[ \t]*(` + strings.Join(alternatives, "|") + `)\b[ \t]*(.*)$`

	return &Matcher{
		keywords: sorted,
		re:       regexp.MustCompile(pattern),
	}
}

// Keywords returns the normalized keywords, longest first.
func (m *Matcher) Keywords() []string {
	return slices.Clone(m.keywords)
}

// Match reports whether line starts with one of the keywords. The returned
// keyword has its inner whitespace collapsed; content is trimmed and may span
// several lines when line does.
func (m *Matcher) Match(line string) (keyword, content string, ok bool) {
	if len(m.keywords) == 0 {
		return "", "", false
	}
	sub := m.re.FindStringSubmatch(line)
	if sub == nil {
		return "", "", false
	}
	return normalizeKeyword(sub[1]), strings.TrimSpace(sub[2]), true
}

// normalizeKeyword collapses whitespace runs to single spaces.
func normalizeKeyword(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
