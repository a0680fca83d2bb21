package model

import "time"

// Comparison is one scored submission stored in the ledger.
// It carries no persistence tags so it can travel between layers unchanged.
type Comparison struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Filename        string    `json:"filename"`
	StorageKey      string    `json:"storage_key,omitempty"`
	SimilarityScore float64   `json:"similarity_score"`
	Timestamp       time.Time `json:"timestamp"`
}
