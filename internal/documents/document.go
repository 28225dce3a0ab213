// Package documents registers documents awaiting classification. A document
// row tracks status and counts; its block-indexed content map is stored as a
// JSON blob.
package documents

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/arbiter/internal/citations"
)

// Document lifecycle states.
const (
	StatusPending  = "pending"
	StatusReview   = "review"
	StatusApproved = "approved"
	StatusComplete = "complete"
)

// Statuses lists every document status.
func Statuses() []string {
	return []string{StatusPending, StatusReview, StatusApproved, StatusComplete}
}

// Document represents a registered document and its content map reference.
type Document struct {
	ID         uuid.UUID `json:"id"`
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	PageCount  int       `json:"page_count"`
	BlockCount int       `json:"block_count"`
	StorageKey string    `json:"storage_key"`
	Status     string    `json:"status"`
	UploadedAt time.Time `json:"uploaded_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateCommand registers a document with the content map produced by the
// document processor.
type CreateCommand struct {
	Filename string               `json:"filename"`
	Content  citations.ContentMap `json:"content_map"`
}

// BatchResult reports the outcome of a single document within a batch
// registration. Exactly one of Document and Error is set.
type BatchResult struct {
	Document *Document `json:"document,omitempty"`
	Filename string    `json:"filename"`
	Error    string    `json:"error,omitempty"`
}
