// Package scorer computes semantic similarity between a submission and the
// answer key.
package scorer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"aigrader/internal/apperrors"
	"aigrader/internal/encoder"
)

// Scorer encodes two texts and returns their cosine similarity in [-1, 1].
// It holds no state besides its injected encoder, so scores are as
// deterministic as the encoder itself.
type Scorer struct {
	enc      encoder.Encoder
	timeout  time.Duration
	log      *zap.Logger
	observer prometheus.Observer
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithTimeout bounds every encoder call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Scorer) { s.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Scorer) { s.log = log.Named("scorer") }
}

// WithEncodeObserver records encoder latency in seconds.
func WithEncodeObserver(o prometheus.Observer) Option {
	return func(s *Scorer) { s.observer = o }
}

// New returns a Scorer backed by enc.
func New(enc encoder.Encoder, opts ...Option) *Scorer {
	s := &Scorer{enc: enc, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score returns cos(encode(candidate), encode(reference)). Both texts are
// encoded in one batch. Encoder deadlines surface as apperrors.ErrTimeout,
// other encoder faults as apperrors.ErrEncoderFailure.
func (s *Scorer) Score(ctx context.Context, candidate, reference string) (float64, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	vecs, err := s.enc.Encode(ctx, []string{candidate, reference})
	if s.observer != nil {
		s.observer.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			s.log.Warn("encoder timed out", zap.Duration("timeout", s.timeout), zap.Error(err))
			return 0, fmt.Errorf("%w: encode: %v", apperrors.ErrTimeout, err)
		}
		s.log.Error("encoder failed", zap.Error(err))
		return 0, fmt.Errorf("%w: %v", apperrors.ErrEncoderFailure, err)
	}
	if len(vecs) != 2 {
		return 0, fmt.Errorf("%w: expected 2 vectors, got %d", apperrors.ErrEncoderFailure, len(vecs))
	}

	score, err := Cosine(vecs[0], vecs[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrEncoderFailure, err)
	}
	return score, nil
}

// Cosine returns dot(a,b) / (|a| * |b|), accumulated in float64 and clamped
// to [-1, 1]. A zero vector on either side yields 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimensions differ: %d vs %d", len(a), len(b))
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	switch {
	case math.IsNaN(sim):
		return 0, errors.New("similarity is NaN")
	case sim > 1:
		return 1, nil
	case sim < -1:
		return -1, nil
	}
	return sim, nil
}
