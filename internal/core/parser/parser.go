package parser

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/rl1809/voice-inventory/internal/core/alias"
	"github.com/rl1809/voice-inventory/internal/core/domain"
	"github.com/rl1809/voice-inventory/internal/port"
)

// Strategy is one way of reading an utterance. It reports false when it has
// nothing to offer so the next strategy can try.
type Strategy interface {
	TryParse(ctx context.Context, text, language string) (domain.ParsedCommand, bool)
}

type StrategyFunc func(ctx context.Context, text, language string) (domain.ParsedCommand, bool)

func (f StrategyFunc) TryParse(ctx context.Context, text, language string) (domain.ParsedCommand, bool) {
	return f(ctx, text, language)
}

// Chain runs strategies left to right and returns the first result.
type Chain []Strategy

func (c Chain) TryParse(ctx context.Context, text, language string) (domain.ParsedCommand, bool) {
	for _, s := range c {
		if cmd, ok := s.TryParse(ctx, text, language); ok {
			return cmd, true
		}
	}
	return domain.ParsedCommand{}, false
}

// Parser turns free-form text into a ParsedCommand. It holds no mutable state
// and is safe for concurrent use.
type Parser struct {
	table      *alias.Table
	normalizer *Normalizer
	classifier *IntentClassifier
	extractor  *EntityExtractor
	fallbacks  Chain
	log        *zap.Logger
}

// New builds a parser over table. translator and fallback are optional.
func New(table *alias.Table, translator port.Translator, fallback port.FallbackParser, log *zap.Logger) *Parser {
	if table == nil {
		table = alias.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	p := &Parser{
		table:      table,
		normalizer: NewNormalizer(table, translator, log),
		classifier: NewIntentClassifier(nil),
		extractor:  NewEntityExtractor(table),
		log:        log,
	}
	if fallback != nil {
		p.fallbacks = append(p.fallbacks, p.portStrategy(fallback))
	}
	return p
}

func (p *Parser) Parse(ctx context.Context, text, language string) domain.ParsedCommand {
	n := p.normalizer.Normalize(ctx, text, language)
	cmd := p.interpret(text, n)

	needsHelp := cmd.Action == domain.ActionUnknown ||
		(n.Language != LanguageEnglish && n.Substitutions == 0)
	if !needsHelp || len(p.fallbacks) == 0 {
		return cmd
	}
	if alt, ok := p.fallbacks.TryParse(ctx, text, n.Language); ok {
		alt.NormalizedText = n.Text
		return alt
	}
	return cmd
}

func (p *Parser) interpret(raw string, n Normalized) domain.ParsedCommand {
	ent := p.extractor.Extract(n.Text)
	action, _, explicit := p.classifier.Classify(n.Text)
	hasQuantity, hasPrice := ent.Quantity != nil, ent.Price != nil

	product := ent.Product
	if ent.ProductGuessed && !explicit && !hasQuantity && !hasPrice {
		product = ""
	}

	if !explicit {
		switch {
		case hasQuantity || hasPrice:
			action = domain.ActionAdd
		case product != "":
			action = domain.ActionStock
		default:
			action = domain.ActionUnknown
		}
	}

	cmd := domain.ParsedCommand{
		Action:         action,
		QuantityKg:     ent.Quantity,
		PricePerKg:     ent.Price,
		RawText:        raw,
		NormalizedText: n.Text,
		Language:       n.Language,
		Source:         domain.SourceRules,
	}
	if product != "" {
		cmd.ProductKey = &product
		cmd.ProductDisplay = displayName(raw, product)
	}
	applyAddDefaults(&cmd)

	cmd.Confidence = Score(Signals{
		Action:   action != domain.ActionUnknown,
		Product:  product != "",
		Quantity: hasQuantity,
		Price:    hasPrice,
	})
	return cmd
}

// applyAddDefaults gives a product-bearing add 1 kg when no quantity was said,
// and turns an add that still lacks something into an incomplete command.
// Price is never defaulted.
func applyAddDefaults(cmd *domain.ParsedCommand) {
	if cmd.Action != domain.ActionAdd {
		return
	}
	if cmd.ProductKey != nil && cmd.QuantityKg == nil {
		one := 1.0
		cmd.QuantityKg = &one
	}

	var missing []string
	if cmd.ProductKey == nil {
		missing = append(missing, domain.FieldProduct)
	}
	if cmd.QuantityKg == nil {
		missing = append(missing, domain.FieldQuantity)
	}
	if cmd.PricePerKg == nil {
		missing = append(missing, domain.FieldPrice)
	}
	if len(missing) > 0 {
		cmd.Action = domain.ActionIncomplete
		cmd.Missing = missing
	}
}

func (p *Parser) portStrategy(fallback port.FallbackParser) Strategy {
	return StrategyFunc(func(ctx context.Context, text, language string) (domain.ParsedCommand, bool) {
		got, err := fallback.TryParse(ctx, text, language)
		if err != nil {
			p.log.Warn("fallback parser failed", zap.String("language", language), zap.Error(err))
			return domain.ParsedCommand{}, false
		}
		if got == nil || !got.Action.Valid() || got.Action == domain.ActionUnknown {
			return domain.ParsedCommand{}, false
		}
		return p.adopt(*got, text, language), true
	})
}

// adopt re-canonicalizes and re-scores a command produced outside the rule pipeline.
func (p *Parser) adopt(got domain.ParsedCommand, text, language string) domain.ParsedCommand {
	cmd := domain.ParsedCommand{
		Action:   got.Action,
		RawText:  text,
		Language: language,
		Source:   got.Source,
	}
	if cmd.Source == "" {
		cmd.Source = domain.SourceLLM
	}
	if name := p.extractor.Canonical(got.Product()); name != "" {
		cmd.ProductKey = &name
		cmd.ProductDisplay = name
	}
	if got.QuantityKg != nil && *got.QuantityKg >= 0 {
		q := *got.QuantityKg
		cmd.QuantityKg = &q
	}
	if got.PricePerKg != nil && *got.PricePerKg >= 0 {
		pr := *got.PricePerKg
		cmd.PricePerKg = &pr
	}
	hasQuantity := cmd.QuantityKg != nil
	if cmd.Action == domain.ActionIncomplete {
		cmd.Action = domain.ActionAdd
	}
	applyAddDefaults(&cmd)

	cmd.Confidence = Score(Signals{
		Action:   true,
		Product:  cmd.ProductKey != nil,
		Quantity: hasQuantity,
		Price:    cmd.PricePerKg != nil,
	})
	return cmd
}

// Canonical maps a product name typed by a user onto its canonical key.
func (p *Parser) Canonical(name string) string {
	return p.extractor.Canonical(name)
}

// Category returns the table category for a canonical product.
func (p *Parser) Category(canonical string) string {
	if entry, ok := p.table.Product(canonical); ok {
		return entry.Category
	}
	return "Grocery"
}

// displayName keeps the user's casing when the raw text spells the product out.
func displayName(raw, product string) string {
	if !isASCII(raw) {
		return product
	}
	if i := strings.Index(strings.ToLower(raw), product); i >= 0 {
		return raw[i : i+len(product)]
	}
	return product
}
