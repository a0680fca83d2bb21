// Package encoder provides sentence encoders that map text to dense vectors.
// The encoder is built once at startup and injected into the scorer.
package encoder

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"aigrader/internal/config"
)

// Encoder maps each input text to a fixed-dimension vector. Implementations
// must be deterministic for fixed model weights and safe for concurrent use.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// New builds the encoder selected by cfg.Provider.
func New(cfg config.EncoderConfig, log *zap.Logger) (Encoder, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAI(cfg, log)
	case "hashing":
		return NewHashing(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown encoder provider %q", cfg.Provider)
	}
}
