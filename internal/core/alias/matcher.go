package alias

import (
	"strings"
	"unicode"
)

type Match struct {
	Start   int
	End     int
	Surface string
	Value   string
}

// Matcher finds dictionary phrases in text using greedy longest match over
// tokens, so a phrase only ever matches whole tokens.
type Matcher struct {
	dict   map[string]string
	maxLen int
}

func NewMatcher(pairs map[string]string) *Matcher {
	m := &Matcher{dict: make(map[string]string, len(pairs)), maxLen: 1}
	for surface, value := range pairs {
		key := phraseKey(surface)
		if key == "" {
			continue
		}
		m.dict[key] = value
		if n := len(strings.Fields(key)); n > m.maxLen {
			m.maxLen = n
		}
	}
	return m
}

func (m *Matcher) Len() int {
	return len(m.dict)
}

// FindAll returns non-overlapping matches, leftmost first, preferring the
// longest phrase at each position.
func (m *Matcher) FindAll(text string) []Match {
	tokens := Tokenize(text)
	var matches []Match
	for i := 0; i < len(tokens); {
		n, value, ok := m.longest(text, tokens[i:])
		if !ok {
			i++
			continue
		}
		start, end := tokens[i].Start, tokens[i+n-1].End
		matches = append(matches, Match{Start: start, End: end, Surface: text[start:end], Value: value})
		i += n
	}
	return matches
}

// Replace substitutes every match with its value and reports how many
// substitutions were made.
func (m *Matcher) Replace(text string) (string, int) {
	matches := m.FindAll(text)
	if len(matches) == 0 {
		return text, 0
	}
	var b strings.Builder
	last := 0
	for _, match := range matches {
		b.WriteString(text[last:match.Start])
		b.WriteString(match.Value)
		last = match.End
	}
	b.WriteString(text[last:])
	return b.String(), len(matches)
}

func (m *Matcher) longest(text string, tokens []Token) (int, string, bool) {
	limit := m.maxLen
	if limit > len(tokens) {
		limit = len(tokens)
	}
	for n := limit; n >= 1; n-- {
		if !spacedOnly(text, tokens[:n]) {
			continue
		}
		parts := make([]string, n)
		for j := range parts {
			parts[j] = tokens[j].Text
		}
		if value, ok := m.dict[strings.Join(parts, " ")]; ok {
			return n, value, true
		}
	}
	return 0, "", false
}

// spacedOnly reports whether consecutive tokens are separated by whitespace alone.
func spacedOnly(text string, tokens []Token) bool {
	for j := 1; j < len(tokens); j++ {
		gap := text[tokens[j-1].End:tokens[j].Start]
		if gap == "" || strings.TrimFunc(gap, unicode.IsSpace) != "" {
			return false
		}
	}
	return true
}

func phraseKey(s string) string {
	tokens := Tokenize(strings.ToLower(s))
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}
