package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kljensen/snowball"

	"github.com/rl1809/voice-inventory/internal/core/alias"
)

type Entities struct {
	Product        string
	ProductSurface string
	// ProductGuessed is set when the product is an unknown noun rather than a table entry.
	ProductGuessed bool
	Quantity       *float64
	Price          *float64
}

func (e Entities) HasProduct() bool {
	return e.Product != ""
}

const (
	// number accepts Indian (1,00,000) and Western (1,000,000) digit grouping.
	number  = `(\d{1,3}(?:,\d{2,3})*,\d{3}(?:\.\d+)?|\d+(?:\.\d+)?)`
	kgUnit  = `(?:kgs|kg|kilograms|kilogram|kilos|kilo)`
	curWord = `(?:rupees|rupee|rs|inr|bucks)`
)

type quantityRule struct {
	pattern *regexp.Regexp
	convert func(string) (float64, bool)
}

var quantityRules = []quantityRule{
	{
		pattern: regexp.MustCompile(`\b(one|two|three|four|five|six|seven|eight|nine|ten|half|quarter)\s+(?:a\s+|of\s+a\s+)?` + kgUnit + `\b`),
		convert: func(s string) (float64, bool) {
			v, ok := quantityWords[s]
			return v, ok
		},
	},
	{
		pattern: regexp.MustCompile(`\b` + number + `\s*` + kgUnit + `\b`),
		convert: scaled(1),
	},
	{
		pattern: regexp.MustCompile(`\b` + number + `\s*(?:grams|gram|gms|gm|g)\b`),
		convert: func(s string) (float64, bool) {
			v, err := parseAmount(s)
			return v / 1000, err == nil
		},
	},
	{
		pattern: regexp.MustCompile(`\b` + number + `\s*(?:quintals|quintal|qtl)\b`),
		convert: scaled(100),
	},
}

func scaled(factor float64) func(string) (float64, bool) {
	return func(s string) (float64, bool) {
		v, err := parseAmount(s)
		return v * factor, err == nil
	}
}

func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

// fragment reports whether text[start:end] is only part of a longer number
// the grouping pattern could not read, such as "1,500" or "5000" in "1,5000".
func fragment(text string, start, end int) bool {
	if start >= 1 && isDigit(text[start-1]) {
		return true
	}
	if start >= 2 && text[start-1] == ',' && isDigit(text[start-2]) {
		return true
	}
	if end < len(text) && isDigit(text[end]) {
		return true
	}
	return end+1 < len(text) && text[end] == ',' && isDigit(text[end+1])
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

type priceRule struct {
	pattern *regexp.Regexp
	spelled bool
	// skipUnits rejects an amount that is immediately followed by a weight unit.
	skipUnits bool
}

var priceRules = []priceRule{
	{pattern: regexp.MustCompile(`\b(` + spelledNumberPattern + `)\s*(?:` + curWord + `\b|₹)`), spelled: true},
	{pattern: regexp.MustCompile(`₹\s*(` + spelledNumberPattern + `)\b`), spelled: true},
	{pattern: regexp.MustCompile(`(?:₹|\brs\.?|\binr)\s*` + number)},
	{pattern: regexp.MustCompile(number + `\s*₹`)},
	{pattern: regexp.MustCompile(`\b` + number + `\s*` + curWord + `\b`)},
	{pattern: regexp.MustCompile(`\b` + number + `\s*/-`)},
	{
		pattern:   regexp.MustCompile(`(?:\b(?:at|for|price|cost|costs|rate|priced|to)\b|@)\s*(?:(?:is|of|at|to)\s+)?(?:₹|rs\.?)?\s*` + number),
		skipUnits: true,
	},
	{pattern: regexp.MustCompile(`\b` + number + `\s*(?:per|/)\s*` + kgUnit + `\b`)},
}

var weightUnitAhead = regexp.MustCompile(`^\s*(?:` + kgUnit + `|grams|gram|gms|gm|g|quintals|quintal|qtl)\b`)

// EntityExtractor pulls product, quantity and price out of normalized text.
// Each entity is found independently; quantity and price never share a number.
type EntityExtractor struct {
	table     *alias.Table
	stemIndex map[string]string
}

func NewEntityExtractor(table *alias.Table) *EntityExtractor {
	e := &EntityExtractor{table: table, stemIndex: make(map[string]string)}
	for _, name := range table.ProductNames() {
		entry, _ := table.Product(name)
		e.indexStem(name, name)
		for _, v := range entry.Variants["en"] {
			e.indexStem(v, name)
		}
	}
	return e
}

func (e *EntityExtractor) indexStem(word, canonical string) {
	if strings.ContainsRune(word, ' ') {
		return
	}
	stem := stemWord(word)
	if _, taken := e.stemIndex[stem]; !taken {
		e.stemIndex[stem] = canonical
	}
}

func stemWord(word string) string {
	stem, err := snowball.Stem(word, "english", true)
	if err != nil || stem == "" {
		return word
	}
	return stem
}

func (e *EntityExtractor) Extract(text string) Entities {
	var out Entities
	out.Product, out.ProductSurface = e.Product(text)
	if out.Product != "" {
		_, known := e.table.Rank(out.Product)
		out.ProductGuessed = !known
	}
	if q, ok := e.Quantity(text); ok {
		out.Quantity = &q
	}
	if p, ok := e.Price(text); ok {
		out.Price = &p
	}
	return out
}

// Product returns the canonical product key and the text it was read from.
// Known products win in table order; an unknown noun is the last resort.
func (e *EntityExtractor) Product(text string) (string, string) {
	best, surface, bestRank := "", "", -1
	for _, m := range e.table.Products().FindAll(text) {
		rank, _ := e.table.Rank(m.Value)
		if bestRank < 0 || rank < bestRank {
			best, surface, bestRank = m.Value, m.Surface, rank
		}
	}
	if best != "" {
		return best, surface
	}

	tokens := alias.Tokenize(text)
	for _, tok := range tokens {
		if !isASCII(tok.Text) || e.table.IsStopword(tok.Text) {
			continue
		}
		if canonical, ok := e.stemIndex[stemWord(tok.Text)]; ok {
			rank, _ := e.table.Rank(canonical)
			if bestRank < 0 || rank < bestRank {
				best, surface, bestRank = canonical, tok.Text, rank
			}
		}
	}
	if best != "" {
		return best, surface
	}

	for _, tok := range tokens {
		if tok.IsWord() && utf8.RuneCountInString(tok.Text) > 2 && !e.table.IsStopword(tok.Text) {
			return tok.Text, tok.Text
		}
	}
	return "", ""
}

// Canonical maps a free-form product name onto the table, or returns it folded.
func (e *EntityExtractor) Canonical(name string) string {
	name = Fold(name)
	if name == "" {
		return ""
	}
	product, _ := e.Product(name)
	if _, known := e.table.Rank(product); known {
		return product
	}
	return name
}

func (e *EntityExtractor) Quantity(text string) (float64, bool) {
	for _, rule := range quantityRules {
		for _, loc := range rule.pattern.FindAllStringSubmatchIndex(text, -1) {
			if fragment(text, loc[2], loc[3]) {
				continue
			}
			if v, ok := rule.convert(text[loc[2]:loc[3]]); ok {
				return v, true
			}
		}
	}
	return 0, false
}

func (e *EntityExtractor) Price(text string) (float64, bool) {
	for _, rule := range priceRules {
		for _, loc := range rule.pattern.FindAllStringSubmatchIndex(text, -1) {
			if rule.skipUnits && weightUnitAhead.MatchString(text[loc[1]:]) {
				continue
			}
			raw := text[loc[2]:loc[3]]
			if fragment(text, loc[2], loc[3]) {
				continue
			}
			if rule.spelled {
				if v, ok := parseNumberWords(raw); ok {
					return v, true
				}
				continue
			}
			if v, err := parseAmount(raw); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
