package model

import "time"

// AnswerKey is the reference document submissions are graded against.
type AnswerKey struct {
	Text       string    `json:"-"`
	Filename   string    `json:"filename"`
	StorageKey string    `json:"storage_key"`
	UploadedAt time.Time `json:"uploaded_at"`
}
