package encoder

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"aigrader/internal/config"
)

// OpenAI encodes text through an OpenAI-compatible /embeddings endpoint.
// Self-hosted servers (text-embeddings-inference, vLLM, Ollama) can serve the
// sentence-transformers model the grader was calibrated on.
type OpenAI struct {
	client     *openai.Client
	model      string
	dimensions int
	log        *zap.Logger
}

// NewOpenAI creates an encoder for cfg.Endpoint using cfg.Model.
func NewOpenAI(cfg config.EncoderConfig, log *zap.Logger) (*OpenAI, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("encoder endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("encoder model is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	clientConfig.HTTPClient = &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	return &OpenAI{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		log:        log.Named("encoder"),
	}, nil
}

// Encode embeds all non-empty texts in one request. Blank or whitespace-only
// texts are not sent, since most servers reject them, and map to a zero
// vector. Cosine similarity against a zero vector is 0.0, so an empty
// submission always scores 0.0.
func (e *OpenAI) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	inputs := make([]string, 0, len(texts))
	positions := make([]int, 0, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		inputs = append(inputs, t)
		positions = append(positions, i)
	}

	out := make([][]float32, len(texts))
	dim := e.dimensions

	if len(inputs) > 0 {
		start := time.Now()
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(e.model),
			Input: inputs,
		})
		if err != nil {
			e.log.Error("embedding request failed",
				zap.String("model", e.model),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			return nil, fmt.Errorf("create embeddings: %w", err)
		}
		if len(resp.Data) != len(inputs) {
			return nil, fmt.Errorf("create embeddings: got %d vectors for %d inputs", len(resp.Data), len(inputs))
		}

		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(inputs) {
				return nil, fmt.Errorf("create embeddings: index %d out of range", d.Index)
			}
			out[positions[d.Index]] = d.Embedding
			dim = len(d.Embedding)
		}

		e.log.Debug("embedding request completed",
			zap.String("model", e.model),
			zap.Int("inputs", len(inputs)),
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Duration("elapsed", time.Since(start)))
	}

	for i := range out {
		if out[i] == nil {
			out[i] = make([]float32, dim)
		}
	}
	return out, nil
}
