package encoder

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// Hashing is a deterministic offline encoder based on signed feature hashing
// of lower-cased word tokens, with common English stop words dropped. It has
// no notion of synonyms; use it for development and tests, not for grading.
type Hashing struct {
	dim int
}

// NewHashing returns a Hashing encoder producing dim-sized vectors.
func NewHashing(dim int) (*Hashing, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("hashing encoder: dimensions must be positive, got %d", dim)
	}
	return &Hashing{dim: dim}, nil
}

// Encode implements Encoder.
func (h *Hashing) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *Hashing) vector(text string) []float32 {
	v := make([]float32, h.dim)
	for _, tok := range tokenize(text) {
		f := fnv.New64a()
		_, _ = f.Write([]byte(tok))
		sum := f.Sum64()
		idx := sum % uint64(h.dim)
		if sum>>63 == 1 {
			v[idx]--
		} else {
			v[idx]++
		}
	}
	return v
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if _, skip := stopWords[f]; !skip {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "from": {}, "has": {}, "have": {},
	"in": {}, "into": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "their": {}, "this": {}, "to": {},
	"was": {}, "were": {}, "which": {}, "with": {},
}
