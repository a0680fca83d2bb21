package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"aigrader/internal/apperrors"
	"aigrader/internal/extractor"
	"aigrader/internal/metrics"
	"aigrader/internal/model"
	"aigrader/internal/reference"
	"aigrader/internal/repository"
	"aigrader/internal/storage"
)

const defaultMaxUploadBytes = 20 << 20

// TextExtractor turns an uploaded document into plain text.
type TextExtractor interface {
	Extract(data []byte, filename string) (string, error)
}

// SimilarityScorer returns the semantic similarity of two texts in [-1, 1].
type SimilarityScorer interface {
	Score(ctx context.Context, candidate, reference string) (float64, error)
}

// SubmissionResult is the service-level DTO for a graded submission.
type SubmissionResult struct {
	Filename        string    `json:"filename"`
	ExtractedText   string    `json:"extracted_text"`
	SimilarityScore float64   `json:"similarity_score"`
	ComparisonID    int64     `json:"comparison_id"`
	StorageKey      string    `json:"storage_key"`
	Timestamp       time.Time `json:"timestamp"`
}

// GradingService defines the grading use cases.
type GradingService interface {
	// UploadAnswerKey stores the raw document, extracts its text and makes it
	// the active answer key, replacing any previous one.
	UploadAnswerKey(ctx context.Context, r io.Reader, filename, contentType string, size int64) (*model.AnswerKey, error)

	// UploadSubmission grades a student document against the active answer key
	// and records the result in the user's ledger. Steps run strictly in order:
	// store, extract, score, record. If recording fails the stored object is
	// deleted again.
	UploadSubmission(ctx context.Context, userID int64, r io.Reader, filename, contentType string, size int64) (*SubmissionResult, error)

	// ListComparisons returns the user's graded submissions, newest first.
	ListComparisons(ctx context.Context, userID int64) ([]model.Comparison, error)
}

// Option configures the grading service.
type Option func(*gradingService)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *gradingService) { s.log = log.Named("grading") }
}

// WithMetrics records submission outcomes and scores.
func WithMetrics(m *metrics.Grading) Option {
	return func(s *gradingService) { s.metrics = m }
}

// WithMaxUploadBytes caps how much of an upload is read. Non-positive values
// keep the default of 20 MiB.
func WithMaxUploadBytes(n int64) Option {
	return func(s *gradingService) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithTracer overrides the tracer used for pipeline spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *gradingService) { s.tracer = t }
}

type gradingService struct {
	store    storage.Storage
	repo     repository.ComparisonRepository
	keys     *reference.Store
	ext      TextExtractor
	scorer   SimilarityScorer
	log      *zap.Logger
	metrics  *metrics.Grading
	tracer   trace.Tracer
	maxBytes int64
}

// NewGradingService constructs a new GradingService.
func NewGradingService(
	store storage.Storage,
	repo repository.ComparisonRepository,
	keys *reference.Store,
	ext TextExtractor,
	scorer SimilarityScorer,
	opts ...Option,
) GradingService {
	s := &gradingService{
		store:    store,
		repo:     repo,
		keys:     keys,
		ext:      ext,
		scorer:   scorer,
		log:      zap.NewNop(),
		tracer:   otel.Tracer("aigrader/internal/service"),
		maxBytes: defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *gradingService) UploadAnswerKey(ctx context.Context, r io.Reader, filename, contentType string, size int64) (key *model.AnswerKey, err error) {
	ctx, span := s.tracer.Start(ctx, "grading.UploadAnswerKey",
		trace.WithAttributes(attribute.String("grader.filename", filename)))
	defer func() {
		s.metrics.ObserveAnswerKey(outcomeOf(err))
		endSpan(span, err)
	}()

	if r == nil {
		return nil, apperrors.ErrReaderNil
	}
	format, err := extractor.Detect(filename)
	if err != nil {
		return nil, err
	}
	data, err := s.readUpload(r, size)
	if err != nil {
		return nil, err
	}

	objInfo, err := s.put(ctx, storage.PrefixAnswerKeys, filename, format, contentType, data, nil)
	if err != nil {
		return nil, err
	}

	text, err := s.ext.Extract(data, filename)
	if err != nil {
		s.log.Warn("answer key extraction failed",
			zap.String("filename", filename),
			zap.String("storage_key", objInfo.Key),
			zap.Error(err))
		return nil, err
	}

	k := model.AnswerKey{
		Text:       text,
		Filename:   filename,
		StorageKey: objInfo.Key,
		UploadedAt: time.Now().UTC(),
	}
	s.keys.Set(k)

	s.log.Info("answer key replaced",
		zap.String("filename", filename),
		zap.String("storage_key", objInfo.Key),
		zap.Int("text_len", len(text)))
	return &k, nil
}

func (s *gradingService) UploadSubmission(ctx context.Context, userID int64, r io.Reader, filename, contentType string, size int64) (res *SubmissionResult, err error) {
	ctx, span := s.tracer.Start(ctx, "grading.UploadSubmission",
		trace.WithAttributes(
			attribute.Int64("grader.user_id", userID),
			attribute.String("grader.filename", filename),
		))
	defer func() {
		s.metrics.ObserveSubmission(outcomeOf(err))
		endSpan(span, err)
	}()

	if r == nil {
		return nil, apperrors.ErrReaderNil
	}
	if userID <= 0 {
		return nil, apperrors.ErrInvalidUserID
	}
	// The answer key is checked before the format and before anything is stored.
	key, ok := s.keys.Get()
	if !ok || key.Text == "" {
		return nil, apperrors.ErrNoReferenceKey
	}
	format, err := extractor.Detect(filename)
	if err != nil {
		return nil, err
	}

	data, err := s.readUpload(r, size)
	if err != nil {
		return nil, err
	}

	objInfo, err := s.put(ctx, storage.PrefixSubmissions, filename, format, contentType, data,
		map[string]string{"user-id": fmt.Sprint(userID)})
	if err != nil {
		return nil, err
	}

	text, err := s.ext.Extract(data, filename)
	if err != nil {
		s.log.Warn("submission extraction failed",
			zap.Int64("user_id", userID),
			zap.String("storage_key", objInfo.Key),
			zap.Error(err))
		return nil, err
	}

	score, err := s.scorer.Score(ctx, text, key.Text)
	if err != nil {
		return nil, fmt.Errorf("score submission: %w", err)
	}
	span.SetAttributes(attribute.Float64("grader.similarity_score", score))

	stored, err := s.repo.Record(ctx, &model.Comparison{
		UserID:          userID,
		Filename:        filename,
		StorageKey:      objInfo.Key,
		SimilarityScore: score,
	})
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(context.WithoutCancel(ctx), objInfo.Key); delErr != nil {
			s.log.Error("rollback delete failed",
				zap.String("storage_key", objInfo.Key),
				zap.Error(delErr))
			return nil, fmt.Errorf("record comparison: %w; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("record comparison: %w", err)
	}

	s.metrics.ObserveScore(stored.SimilarityScore)
	s.log.Info("submission graded",
		zap.Int64("user_id", userID),
		zap.Int64("comparison_id", stored.ID),
		zap.String("filename", filename),
		zap.Float64("similarity_score", stored.SimilarityScore))

	return &SubmissionResult{
		Filename:        filename,
		ExtractedText:   text,
		SimilarityScore: stored.SimilarityScore,
		ComparisonID:    stored.ID,
		StorageKey:      stored.StorageKey,
		Timestamp:       stored.Timestamp,
	}, nil
}

func (s *gradingService) ListComparisons(ctx context.Context, userID int64) ([]model.Comparison, error) {
	// No user can own a non-positive id, so the ledger is not consulted.
	if userID <= 0 {
		return []model.Comparison{}, nil
	}
	ctx, span := s.tracer.Start(ctx, "grading.ListComparisons",
		trace.WithAttributes(attribute.Int64("grader.user_id", userID)))
	items, err := s.repo.ListByUser(ctx, userID)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// readUpload buffers the whole upload; both extractors need random access.
func (s *gradingService) readUpload(r io.Reader, size int64) ([]byte, error) {
	if size > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes declared", apperrors.ErrUploadTooLarge, size)
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", apperrors.ErrUploadTooLarge, s.maxBytes)
	}
	return data, nil
}

func (s *gradingService) put(ctx context.Context, prefix, filename string, format extractor.Format, contentType string, data []byte, meta map[string]string) (storage.ObjectInfo, error) {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = format.ContentType()
	}
	md := map[string]string{"original-filename": filename}
	for k, v := range meta {
		md[k] = v
	}

	objInfo, err := s.store.Put(ctx, storage.ObjectKey(prefix, filename), bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: contentType,
		Metadata:    md,
	})
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("upload to storage: %w", err)
	}
	return objInfo, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// outcomeOf maps a pipeline error to its metrics label.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, apperrors.ErrNoReferenceKey):
		return metrics.OutcomeNoKey
	case errors.Is(err, apperrors.ErrUnsupportedFormat):
		return metrics.OutcomeUnsupported
	case errors.Is(err, apperrors.ErrExtraction):
		return metrics.OutcomeExtraction
	case errors.Is(err, apperrors.ErrTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, apperrors.ErrEncoderFailure):
		return metrics.OutcomeEncoder
	case errors.Is(err, apperrors.ErrUnknownUser):
		return metrics.OutcomeUnknownUser
	case errors.Is(err, apperrors.ErrPersistence):
		return metrics.OutcomePersistence
	case errors.Is(err, apperrors.ErrReaderNil),
		errors.Is(err, apperrors.ErrInvalidUserID),
		errors.Is(err, apperrors.ErrUploadTooLarge):
		return metrics.OutcomeInvalidUpload
	default:
		return metrics.OutcomeInternal
	}
}
