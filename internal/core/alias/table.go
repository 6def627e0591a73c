package alias

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var defaultData []byte

var ErrDuplicateAlias = errors.New("alias maps to more than one canonical token")

type Kind string

const (
	KindAction   Kind = "action"
	KindUnit     Kind = "unit"
	KindCurrency Kind = "currency"
	KindNumeral  Kind = "numeral"
	KindFiller   Kind = "filler"
	KindProduct  Kind = "product"
)

type Entry struct {
	Canonical string              `yaml:"canonical"`
	Kind      Kind                `yaml:"kind"`
	Category  string              `yaml:"category"`
	Variants  map[string][]string `yaml:"variants"`
}

type file struct {
	Languages []string `yaml:"languages"`
	Words     []Entry  `yaml:"words"`
	Products  []Entry  `yaml:"products"`
	Stopwords []string `yaml:"stopwords"`
}

// Table maps regional vocabulary to English canonical tokens. It is
// immutable once built and safe for concurrent use.
type Table struct {
	languages    []string
	products     []Entry
	productRank  map[string]int
	stopwords    map[string]struct{}
	regional     map[string]*Matcher
	productMatch *Matcher
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the table built from the embedded vocabulary.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Parse(defaultData)
		if err != nil {
			panic(fmt.Sprintf("alias: embedded table: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}

func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Table, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("alias: decode: %w", err)
	}

	t := &Table{
		productRank: make(map[string]int, len(f.Products)),
		stopwords:   make(map[string]struct{}, len(f.Stopwords)),
		regional:    make(map[string]*Matcher, len(f.Languages)),
	}
	for _, lang := range f.Languages {
		t.languages = append(t.languages, strings.ToLower(lang))
	}

	perLang := make(map[string]map[string]string, len(t.languages))
	for _, lang := range t.languages {
		perLang[lang] = make(map[string]string)
	}
	productPairs := make(map[string]string)

	for _, e := range f.Words {
		e.Canonical = clean(e.Canonical)
		for lang, variants := range e.Variants {
			pairs, ok := perLang[lang]
			if !ok {
				continue
			}
			for _, v := range variants {
				if err := put(pairs, clean(v), e.Canonical); err != nil {
					return nil, err
				}
			}
		}
	}

	for i, e := range f.Products {
		e.Canonical = clean(e.Canonical)
		e.Kind = KindProduct
		if e.Category == "" {
			e.Category = "Grocery"
		}
		if _, dup := t.productRank[e.Canonical]; dup {
			return nil, fmt.Errorf("alias: product %q listed twice", e.Canonical)
		}
		t.productRank[e.Canonical] = i
		t.products = append(t.products, e)

		if err := put(productPairs, e.Canonical, e.Canonical); err != nil {
			return nil, err
		}
		for lang, variants := range e.Variants {
			for _, v := range variants {
				v = clean(v)
				if err := put(productPairs, v, e.Canonical); err != nil {
					return nil, err
				}
				if pairs, ok := perLang[lang]; ok {
					if err := put(pairs, v, e.Canonical); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	for _, w := range f.Stopwords {
		t.stopwords[clean(w)] = struct{}{}
	}
	for lang, pairs := range perLang {
		t.regional[lang] = NewMatcher(pairs)
	}
	t.productMatch = NewMatcher(productPairs)
	return t, nil
}

func put(pairs map[string]string, surface, canonical string) error {
	if surface == "" {
		return nil
	}
	if existing, ok := pairs[surface]; ok && existing != canonical {
		return fmt.Errorf("alias: %q -> %q and %q: %w", surface, existing, canonical, ErrDuplicateAlias)
	}
	pairs[surface] = canonical
	return nil
}

func clean(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(strings.ToLower(s))), " ")
}

func (t *Table) Languages() []string {
	return append([]string(nil), t.languages...)
}

// Supports reports whether the table carries vocabulary for lang.
func (t *Table) Supports(lang string) bool {
	_, ok := t.regional[lang]
	return ok
}

// Regional returns the substitution matcher for lang, or nil.
func (t *Table) Regional(lang string) *Matcher {
	return t.regional[lang]
}

// Products matches canonical names and every variant in every language.
func (t *Table) Products() *Matcher {
	return t.productMatch
}

// Rank is the position of a product in table order.
func (t *Table) Rank(canonical string) (int, bool) {
	i, ok := t.productRank[canonical]
	return i, ok
}

func (t *Table) Product(canonical string) (Entry, bool) {
	i, ok := t.productRank[canonical]
	if !ok {
		return Entry{}, false
	}
	return t.products[i], true
}

func (t *Table) ProductNames() []string {
	names := make([]string, len(t.products))
	for i, p := range t.products {
		names[i] = p.Canonical
	}
	return names
}

func (t *Table) IsStopword(token string) bool {
	_, ok := t.stopwords[token]
	return ok
}
