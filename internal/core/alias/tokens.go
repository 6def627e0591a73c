package alias

import "unicode"

// Token is a run of letters (with combining marks) or a run of digits.
// Start and End are byte offsets into the scanned text.
type Token struct {
	Text  string
	Start int
	End   int
}

const (
	classNone = iota
	classWord
	classDigit
)

func runeClass(r rune) int {
	switch {
	case unicode.IsLetter(r), unicode.IsMark(r), r == '\u200c', r == '\u200d':
		return classWord
	case unicode.IsDigit(r):
		return classDigit
	default:
		return classNone
	}
}

// Tokenize splits text into word and digit runs. "2kg" yields "2" and "kg";
// Indic vowel signs and viramas stay inside their word.
func Tokenize(text string) []Token {
	var tokens []Token
	start, class := -1, classNone
	for i, r := range text {
		c := runeClass(r)
		if c == class {
			continue
		}
		if class != classNone {
			tokens = append(tokens, Token{Text: text[start:i], Start: start, End: i})
		}
		start, class = i, c
	}
	if class != classNone {
		tokens = append(tokens, Token{Text: text[start:], Start: start, End: len(text)})
	}
	return tokens
}

// IsWord reports whether the token is made of letters and marks only.
func (t Token) IsWord() bool {
	for _, r := range t.Text {
		if runeClass(r) != classWord {
			return false
		}
	}
	return t.Text != ""
}
