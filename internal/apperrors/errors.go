// Package apperrors holds the error taxonomy shared by the grading pipeline.
// Callers classify failures with errors.Is / errors.As; transport layers map
// them to response codes.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrExtraction        = errors.New("text extraction failed")
	ErrNoReferenceKey    = errors.New("answer key is not uploaded yet")
	ErrUnknownUser       = errors.New("unknown user")
	ErrPersistence       = errors.New("persistence error")
	ErrEncoderFailure    = errors.New("encoder failure")
	ErrTimeout           = errors.New("operation timed out")
	ErrReaderNil         = errors.New("reader is nil")
	ErrInvalidUserID     = errors.New("invalid user id")
	ErrUploadTooLarge    = errors.New("upload exceeds size limit")
)

// UnsupportedFormatError reports an upload whose format cannot be extracted.
type UnsupportedFormatError struct {
	Filename string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnsupportedFormat, e.Filename)
}

// Is lets errors.Is(err, ErrUnsupportedFormat) match.
func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}
