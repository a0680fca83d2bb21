package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"aigrader/internal/apperrors"
	"aigrader/internal/http/middleware"
)

// errorPayload defines the standardized error response body.
// Filename is set on upload endpoints only.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Filename  string        `json:"filename,omitempty"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_USER_ID", "NO_REFERENCE_KEY")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return writeUploadError(c, status, "", code, message)
}

func writeUploadError(c *fiber.Ctx, status int, filename, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Filename:  filename,
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// serviceError maps a grading pipeline error to its HTTP status, code and
// safe message.
type serviceError struct {
	target  error
	status  int
	code    string
	message string
}

// Order matters: the first matching sentinel wins.
var serviceErrors = []serviceError{
	{apperrors.ErrNoReferenceKey, fiber.StatusConflict, "NO_REFERENCE_KEY", "answer key is not uploaded yet"},
	{apperrors.ErrUnsupportedFormat, fiber.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT", "unsupported file type, upload a .docx or .pdf file"},
	{apperrors.ErrUploadTooLarge, fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file is too large"},
	{apperrors.ErrExtraction, fiber.StatusUnprocessableEntity, "EXTRACTION_FAILED", "could not extract text from the document"},
	{apperrors.ErrTimeout, fiber.StatusGatewayTimeout, "TIMEOUT", "the operation timed out"},
	{apperrors.ErrEncoderFailure, fiber.StatusBadGateway, "ENCODER_FAILURE", "similarity scoring is unavailable"},
	{apperrors.ErrUnknownUser, fiber.StatusNotFound, "UNKNOWN_USER", "user does not exist"},
	{apperrors.ErrInvalidUserID, fiber.StatusBadRequest, "INVALID_USER_ID", "invalid user id"},
	{apperrors.ErrReaderNil, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required"},
	{apperrors.ErrPersistence, fiber.StatusInternalServerError, "PERSISTENCE_ERROR", "could not store the result"},
}

func classify(err error) (status int, code, message string) {
	for _, se := range serviceErrors {
		if errors.Is(err, se.target) {
			return se.status, se.code, se.message
		}
	}
	return fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "FILE_TOO_LARGE", "file is too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
