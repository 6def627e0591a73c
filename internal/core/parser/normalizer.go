package parser

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rl1809/voice-inventory/internal/core/alias"
	"github.com/rl1809/voice-inventory/internal/port"
)

const LanguageEnglish = "en"

// Normalized is the English-leaning text the classifier and extractor read.
type Normalized struct {
	Text          string
	Language      string
	Substitutions int
	Translated    bool
}

type Normalizer struct {
	table      *alias.Table
	translator port.Translator
	log        *zap.Logger
}

func NewNormalizer(table *alias.Table, translator port.Translator, log *zap.Logger) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{table: table, translator: translator, log: log}
}

func (n *Normalizer) Normalize(ctx context.Context, text, language string) Normalized {
	out := Normalized{Text: Fold(text)}
	out.Language = resolveLanguage(language, out.Text)
	if out.Language == LanguageEnglish {
		return out
	}

	if m := n.table.Regional(out.Language); m != nil {
		out.Text, out.Substitutions = m.Replace(out.Text)
	}
	if out.Substitutions > 0 || n.translator == nil {
		return out
	}

	translated, err := n.translator.Translate(ctx, text, out.Language)
	if err != nil {
		n.log.Warn("translation failed, using untranslated text",
			zap.String("language", out.Language), zap.Error(err))
		return out
	}
	if translated = Fold(translated); translated != "" {
		out.Text = translated
		out.Translated = true
	}
	return out
}

var foldChain = transform.Chain(norm.NFC, runes.Map(foldRune))

// Fold NFC-normalizes and lowercases text, maps Indic digits and typographic
// punctuation to ASCII, and collapses whitespace.
func Fold(text string) string {
	folded, _, err := transform.String(foldChain, text)
	if err != nil {
		folded = norm.NFC.String(text)
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

var digitZeros = []rune{'\u0966', '\u0ce6', '\u0be6', '\u0c66'}

func foldRune(r rune) rune {
	switch r {
	case '\u2018', '\u2019', '`':
		return '\''
	case '\u201c', '\u201d':
		return '"'
	case '\u2013', '\u2014', '\u2212':
		return '-'
	case '\u00a0', '\u202f':
		return ' '
	}
	if r > unicode.MaxASCII && unicode.IsDigit(r) {
		for _, zero := range digitZeros {
			if r >= zero && r <= zero+9 {
				return '0' + (r - zero)
			}
		}
	}
	return r
}

// DetectScript names the supported language whose script dominates text, or "".
func DetectScript(text string) string {
	counts := make(map[string]int, len(scripts))
	for _, r := range text {
		for _, s := range scripts {
			if unicode.Is(s.table, r) {
				counts[s.lang]++
				break
			}
		}
	}
	best, top := "", 0
	for _, s := range scripts {
		if counts[s.lang] > top {
			best, top = s.lang, counts[s.lang]
		}
	}
	return best
}

var scripts = []struct {
	lang  string
	table *unicode.RangeTable
}{
	{"hi", unicode.Devanagari},
	{"kn", unicode.Kannada},
	{"ta", unicode.Tamil},
	{"te", unicode.Telugu},
}

func resolveLanguage(declared, text string) string {
	lang := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	switch lang {
	case "", "auto":
		if detected := DetectScript(text); detected != "" {
			return detected
		}
		return LanguageEnglish
	case LanguageEnglish:
		if detected := DetectScript(text); detected != "" {
			return detected
		}
	}
	return lang
}
