package documents

import (
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/JaimeStill/arbiter/pkg/query"
	"github.com/JaimeStill/arbiter/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("filename", "Filename").
	Project("size_bytes", "SizeBytes").
	Project("page_count", "PageCount").
	Project("block_count", "BlockCount").
	Project("storage_key", "StorageKey").
	Project("status", "Status").
	Project("uploaded_at", "UploadedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "UploadedAt", Descending: true}

// Filters narrows document lists. Nil fields add no condition. Filename
// matches case-insensitively anywhere in the name; the upload window is
// half open.
type Filters struct {
	Status         *string    `json:"status,omitempty"`
	Filename       *string    `json:"filename,omitempty"`
	PageCount      *int       `json:"page_count,omitempty"`
	UploadedAfter  *time.Time `json:"uploaded_after,omitempty"`
	UploadedBefore *time.Time `json:"uploaded_before,omitempty"`
}

func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereContains("Filename", f.Filename).
		WhereEquals("PageCount", f.PageCount).
		WhereRange("UploadedAt", f.UploadedAfter, f.UploadedBefore)
}

// FiltersFromQuery reads filters from query parameters. Unknown statuses
// and unparsable numbers or RFC 3339 times are dropped.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); slices.Contains(Statuses(), s) {
		f.Status = &s
	}
	if fn := values.Get("filename"); fn != "" {
		f.Filename = &fn
	}
	if n, err := strconv.Atoi(values.Get("page_count")); err == nil {
		f.PageCount = &n
	}
	f.UploadedAfter = parseTime(values.Get("uploaded_after"))
	f.UploadedBefore = parseTime(values.Get("uploaded_before"))

	return f
}

func parseTime(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.Filename,
		&d.SizeBytes,
		&d.PageCount,
		&d.BlockCount,
		&d.StorageKey,
		&d.Status,
		&d.UploadedAt,
		&d.UpdatedAt,
	)
	return d, err
}
