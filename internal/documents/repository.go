package documents

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/arbiter/internal/citations"
	"github.com/JaimeStill/arbiter/pkg/pagination"
	"github.com/JaimeStill/arbiter/pkg/query"
	"github.com/JaimeStill/arbiter/pkg/repository"
	"github.com/JaimeStill/arbiter/pkg/storage"
)

const (
	contentType     = "application/json"
	batchWorkers    = 4
	contentFilename = "content.json"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a document repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Filename")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Document, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	data, err := json.Marshal(cmd.Content.Sorted())
	if err != nil {
		return nil, fmt.Errorf("marshal content map: %w", err)
	}

	id := uuid.New()
	key := buildStorageKey(id)

	if err := r.storage.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return nil, fmt.Errorf("upload content map: %w", err)
	}

	q := `
		INSERT INTO documents(id, filename, size_bytes, page_count, block_count, storage_key, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, filename, size_bytes, page_count, block_count, storage_key, status, uploaded_at, updated_at`

	insertArgs := []any{
		id,
		sanitizeFilename(cmd.Filename),
		int64(len(data)),
		cmd.Content.Pages(),
		len(cmd.Content),
		key,
		StatusPending,
	}

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		return repository.QueryOne(ctx, tx, q, insertArgs, scanDocument)
	})

	if err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document registered",
		"id", d.ID,
		"filename", d.Filename,
		"pages", d.PageCount,
		"blocks", d.BlockCount,
	)
	return &d, nil
}

func (r *repo) CreateBatch(ctx context.Context, cmds []CreateCommand) []BatchResult {
	results := make([]BatchResult, len(cmds))

	var g errgroup.Group
	g.SetLimit(batchWorkers)

	for i, cmd := range cmds {
		g.Go(func() error {
			results[i].Filename = cmd.Filename
			d, err := r.Create(ctx, cmd)
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].Document = d
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM documents WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if delErr := r.storage.Delete(ctx, doc.StorageKey); delErr != nil {
		r.logger.Warn(
			"blob delete failed after DB delete",
			"key", doc.StorageKey,
			"error", delErr,
		)
	}

	r.logger.Info("document deleted", "id", id)
	return nil
}

func (r *repo) Content(ctx context.Context, id uuid.UUID) (citations.ContentMap, error) {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	rc, err := r.storage.Download(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: content map missing for %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("download content map: %w", err)
	}
	defer rc.Close()

	var content citations.ContentMap
	if err := json.NewDecoder(rc).Decode(&content); err != nil {
		return nil, fmt.Errorf("%w: decode content map: %w", ErrInvalidContent, err)
	}
	return content, nil
}

func validateCommand(cmd CreateCommand) error {
	if strings.TrimSpace(cmd.Filename) == "" {
		return fmt.Errorf("%w: filename required", ErrInvalidContent)
	}
	if len(cmd.Content) == 0 {
		return fmt.Errorf("%w: content map is empty", ErrInvalidContent)
	}
	if err := cmd.Content.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidContent, err)
	}
	return nil
}

func buildStorageKey(id uuid.UUID) string {
	return fmt.Sprintf("documents/%s/%s", id, contentFilename)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "" || name == "/" {
		name = "document"
	}
	return name
}
