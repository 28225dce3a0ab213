package documents

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/arbiter/internal/citations"
	"github.com/JaimeStill/arbiter/pkg/pagination"
)

// System defines the public contract for document domain operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, id uuid.UUID) (*Document, error)
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)
	CreateBatch(ctx context.Context, cmds []CreateCommand) []BatchResult
	Delete(ctx context.Context, id uuid.UUID) error

	// Content downloads and decodes the stored content map of a document.
	Content(ctx context.Context, id uuid.UUID) (citations.ContentMap, error)
}
