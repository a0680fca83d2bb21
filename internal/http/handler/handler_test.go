package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aigrader/internal/apperrors"
	"aigrader/internal/config"
	"aigrader/internal/http/middleware"
	"aigrader/internal/model"
	"aigrader/internal/service"
	serviceMocks "aigrader/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// multipartBody builds a form with an optional file part and extra fields.
func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadAnswerKey(t *testing.T) {
	mockSvc := new(serviceMocks.MockGradingService)
	app := fiber.New()
	app.Post("/api/upload_answer_key/", UploadAnswerKey(mockSvc))

	t.Run("success", func(t *testing.T) {
		body, ct := multipartBody(t, "key.docx", []byte("docx"), nil)
		mockSvc.On("UploadAnswerKey", mock.Anything, mock.Anything, "key.docx", mock.Anything, int64(4)).
			Return(&model.AnswerKey{Filename: "key.docx", StorageKey: "answer-keys/u/key.docx"}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/upload_answer_key/", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result answerKeyResponse
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, "key.docx", result.Filename)
		assert.Equal(t, "uploaded", result.Status)
		assert.Equal(t, "answer-keys/u/key.docx", result.StorageKey)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/upload_answer_key/", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FILE_REQUIRED", res.Error.Code)
	})

	t.Run("unsupported format", func(t *testing.T) {
		body, ct := multipartBody(t, "key.txt", []byte("plain"), nil)
		mockSvc.On("UploadAnswerKey", mock.Anything, mock.Anything, "key.txt", mock.Anything, mock.Anything).
			Return(nil, &apperrors.UnsupportedFormatError{Filename: "key.txt"}).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/upload_answer_key/", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "UNSUPPORTED_FORMAT", res.Error.Code)
		assert.Equal(t, "key.txt", res.Filename)
		mockSvc.AssertExpectations(t)
	})
}

func TestUploadSubmission(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.RequestID())
	mockSvc := new(serviceMocks.MockGradingService)
	app.Post("/api/upload/", UploadSubmission(mockSvc))

	t.Run("success", func(t *testing.T) {
		body, ct := multipartBody(t, "essay.docx", []byte("hello world"), map[string]string{"user_id": "7"})
		ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
		expected := &service.SubmissionResult{
			Filename:        "essay.docx",
			ExtractedText:   "hello world",
			SimilarityScore: 0.87,
			ComparisonID:    42,
			StorageKey:      "submissions/u/essay.docx",
			Timestamp:       ts,
		}
		mockSvc.On("UploadSubmission", mock.Anything, int64(7), mock.Anything, "essay.docx", mock.Anything, int64(11)).
			Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/upload/", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.SubmissionResult
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, int64(42), result.ComparisonID)
		assert.Equal(t, 0.87, result.SimilarityScore)
		assert.Equal(t, "hello world", result.ExtractedText)
		assert.True(t, ts.Equal(result.Timestamp))
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		body, ct := multipartBody(t, "", nil, map[string]string{"user_id": "7"})
		req := httptest.NewRequest(http.MethodPost, "/api/upload/", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FILE_REQUIRED", res.Error.Code)
	})

	for _, uid := range []string{"", "abc", "0", "-3"} {
		t.Run(fmt.Sprintf("invalid user_id %q", uid), func(t *testing.T) {
			body, ct := multipartBody(t, "essay.docx", []byte("x"), map[string]string{"user_id": uid})
			req := httptest.NewRequest(http.MethodPost, "/api/upload/", body)
			req.Header.Set("Content-Type", ct)
			resp, _ := app.Test(req)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var res errorPayload
			json.NewDecoder(resp.Body).Decode(&res)
			assert.Equal(t, "INVALID_USER_ID", res.Error.Code)
			assert.Equal(t, "essay.docx", res.Filename)
		})
	}

	errorCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"no reference key", apperrors.ErrNoReferenceKey, http.StatusConflict, "NO_REFERENCE_KEY"},
		{"unsupported format", &apperrors.UnsupportedFormatError{Filename: "essay.docx"}, http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT"},
		{"extraction", fmt.Errorf("%w: essay.docx: zip: not a valid zip file", apperrors.ErrExtraction), http.StatusUnprocessableEntity, "EXTRACTION_FAILED"},
		{"encoder", fmt.Errorf("score submission: %w", apperrors.ErrEncoderFailure), http.StatusBadGateway, "ENCODER_FAILURE"},
		{"timeout", fmt.Errorf("score submission: %w", apperrors.ErrTimeout), http.StatusGatewayTimeout, "TIMEOUT"},
		{"unknown user", fmt.Errorf("record comparison: %w", apperrors.ErrUnknownUser), http.StatusNotFound, "UNKNOWN_USER"},
		{"persistence", fmt.Errorf("record comparison: %w", apperrors.ErrPersistence), http.StatusInternalServerError, "PERSISTENCE_ERROR"},
		{"too large", apperrors.ErrUploadTooLarge, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
		{"unexpected", errors.New("upload to storage: connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := multipartBody(t, "essay.docx", []byte("x"), map[string]string{"user_id": "7"})
			mockSvc.On("UploadSubmission", mock.Anything, int64(7), mock.Anything, "essay.docx", mock.Anything, mock.Anything).
				Return(nil, tc.err).Once()

			req := httptest.NewRequest(http.MethodPost, "/api/upload/", body)
			req.Header.Set("Content-Type", ct)
			req.Header.Set(middleware.RequestIDHeader, "rid-1")
			resp, _ := app.Test(req)

			assert.Equal(t, tc.status, resp.StatusCode)
			var res errorPayload
			json.NewDecoder(resp.Body).Decode(&res)
			assert.Equal(t, tc.code, res.Error.Code)
			assert.Equal(t, "essay.docx", res.Filename)
			assert.Equal(t, "rid-1", res.RequestID)
			assert.NotContains(t, res.Error.Message, "connection refused")
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestListComparisons(t *testing.T) {
	mockSvc := new(serviceMocks.MockGradingService)
	app := fiber.New()
	app.Get("/api/comparisons/:user_id", ListComparisons(mockSvc))

	t.Run("success", func(t *testing.T) {
		now := time.Now().UTC()
		items := []model.Comparison{
			{ID: 2, UserID: 7, Filename: "b.pdf", SimilarityScore: 0.4, Timestamp: now},
			{ID: 1, UserID: 7, Filename: "a.docx", SimilarityScore: 0.9, Timestamp: now.Add(-time.Minute)},
		}
		mockSvc.On("ListComparisons", mock.Anything, int64(7)).Return(items, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/comparisons/7", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result []model.Comparison
		json.NewDecoder(resp.Body).Decode(&result)
		require.Len(t, result, 2)
		assert.Equal(t, int64(2), result[0].ID)
		assert.Equal(t, int64(1), result[1].ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		mockSvc.On("ListComparisons", mock.Anything, int64(8)).Return(nil, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/comparisons/8", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.JSONEq(t, "[]", buf.String())
		mockSvc.AssertExpectations(t)
	})

	t.Run("zero user id is an empty list", func(t *testing.T) {
		mockSvc.On("ListComparisons", mock.Anything, int64(0)).Return([]model.Comparison{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/comparisons/0", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.JSONEq(t, "[]", buf.String())
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid user id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/comparisons/abc", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_USER_ID", res.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("ListComparisons", mock.Anything, int64(7)).Return(nil, apperrors.ErrPersistence).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/comparisons/7", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockGradingService)
	// Register all routes
	RegisterRoutes(app, nil, mockSvc)

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		// Fiber returns 405 by default if route exists but method doesn't match
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "METHOD_NOT_ALLOWED", res.Error.Code)
	})

	t.Run("comparisons route is mounted", func(t *testing.T) {
		mockSvc.On("ListComparisons", mock.Anything, int64(3)).Return([]model.Comparison{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/comparisons/3", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("health without database", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestErrorHandler_BodyLimit(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
		BodyLimit:    16,
	})
	app.Post("/api/upload/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/api/upload/", bytes.NewReader(bytes.Repeat([]byte("a"), 64)))
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	var res errorPayload
	json.NewDecoder(resp.Body).Decode(&res)
	assert.Equal(t, "FILE_TOO_LARGE", res.Error.Code)
}

func TestUploadSubmission_BodyLimitLeavesRoomForMultipart(t *testing.T) {
	cfg := &config.AppConfig{MaxUploadMB: 1}
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
		BodyLimit:    cfg.BodyLimitBytes(),
	})
	mockSvc := new(serviceMocks.MockGradingService)
	app.Post("/api/upload/", UploadSubmission(mockSvc))

	t.Run("file at the limit reaches the service", func(t *testing.T) {
		content := bytes.Repeat([]byte("a"), cfg.MaxUploadBytes())
		mockSvc.On("UploadSubmission", mock.Anything, int64(7), mock.Anything, "essay.docx", mock.Anything, int64(len(content))).
			Return(&service.SubmissionResult{Filename: "essay.docx", ComparisonID: 1}, nil).Once()

		body, ct := multipartBody(t, "essay.docx", content, map[string]string{"user_id": "7"})
		req := httptest.NewRequest(http.MethodPost, "/api/upload/", body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("file over the limit keeps the upload error shape", func(t *testing.T) {
		content := bytes.Repeat([]byte("a"), cfg.MaxUploadBytes()+1)
		mockSvc.On("UploadSubmission", mock.Anything, int64(7), mock.Anything, "essay.docx", mock.Anything, int64(len(content))).
			Return(nil, apperrors.ErrUploadTooLarge).Once()

		body, ct := multipartBody(t, "essay.docx", content, map[string]string{"user_id": "7"})
		req := httptest.NewRequest(http.MethodPost, "/api/upload/", body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FILE_TOO_LARGE", res.Error.Code)
		assert.Equal(t, "essay.docx", res.Filename)
		mockSvc.AssertExpectations(t)
	})
}
