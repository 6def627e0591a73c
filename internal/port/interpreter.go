package port

import (
	"context"

	"github.com/rl1809/voice-inventory/internal/core/domain"
)

type FallbackParser interface {
	// TryParse returns nil when it has no better reading of the text
	TryParse(ctx context.Context, text, language string) (*domain.ParsedCommand, error)
}

type Translator interface {
	// Translate renders text in English
	Translate(ctx context.Context, text, language string) (string, error)
}
