package documents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/arbiter/internal/citations"
	"github.com/JaimeStill/arbiter/internal/documents"
	"github.com/JaimeStill/arbiter/pkg/pagination"
)

type mockSystem struct {
	listFn        func(ctx context.Context, page pagination.PageRequest, filters documents.Filters) (*pagination.PageResult[documents.Document], error)
	findFn        func(ctx context.Context, id uuid.UUID) (*documents.Document, error)
	createFn      func(ctx context.Context, cmd documents.CreateCommand) (*documents.Document, error)
	createBatchFn func(ctx context.Context, cmds []documents.CreateCommand) []documents.BatchResult
	deleteFn      func(ctx context.Context, id uuid.UUID) error
	contentFn     func(ctx context.Context, id uuid.UUID) (citations.ContentMap, error)
}

func (m *mockSystem) Handler(maxUploadSize int64) *documents.Handler {
	return newTestHandler(m, maxUploadSize)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters documents.Filters) (*pagination.PageResult[documents.Document], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) Create(ctx context.Context, cmd documents.CreateCommand) (*documents.Document, error) {
	return m.createFn(ctx, cmd)
}

func (m *mockSystem) CreateBatch(ctx context.Context, cmds []documents.CreateCommand) []documents.BatchResult {
	return m.createBatchFn(ctx, cmds)
}

func (m *mockSystem) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

func (m *mockSystem) Content(ctx context.Context, id uuid.UUID) (citations.ContentMap, error) {
	return m.contentFn(ctx, id)
}

func newTestHandler(sys documents.System, maxUploadSize int64) *documents.Handler {
	return documents.NewHandler(
		sys,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
		maxUploadSize,
	)
}

func setupMux(h *documents.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

func sampleDoc() documents.Document {
	return documents.Document{
		ID:         uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
		Filename:   "report.pdf",
		SizeBytes:  1024,
		PageCount:  2,
		BlockCount: 3,
		StorageKey: "documents/550e8400-e29b-41d4-a716-446655440000/content.json",
		Status:     documents.StatusPending,
		UploadedAt: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func sampleContent() citations.ContentMap {
	return citations.ContentMap{
		{Page: 1, BlockIndex: 0, Text: "Quarterly revenue summary"},
		{Page: 1, BlockIndex: 1, Text: "Internal use only"},
		{Page: 2, BlockIndex: 0, Text: "Appendix"},
	}
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(data)
}

func TestHandlerList(t *testing.T) {
	doc := sampleDoc()
	sys := &mockSystem{
		listFn: func(_ context.Context, _ pagination.PageRequest, _ documents.Filters) (*pagination.PageResult[documents.Document], error) {
			result := pagination.NewPageResult([]documents.Document{doc}, 1, 1, 20)
			return &result, nil
		},
	}

	mux := setupMux(newTestHandler(sys, 1<<20))

	t.Run("returns paginated list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/documents", nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var result pagination.PageResult[documents.Document]
		if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result.Total != 1 {
			t.Errorf("total = %d, want 1", result.Total)
		}
		if len(result.Data) != 1 || result.Data[0].ID != doc.ID {
			t.Errorf("data = %+v, want [%v]", result.Data, doc.ID)
		}
	})

	t.Run("passes query filters", func(t *testing.T) {
		var captured documents.Filters
		sys.listFn = func(_ context.Context, _ pagination.PageRequest, f documents.Filters) (*pagination.PageResult[documents.Document], error) {
			captured = f
			result := pagination.NewPageResult([]documents.Document{}, 0, 1, 20)
			return &result, nil
		}

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/documents?status=review&filename=report", nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if captured.Status == nil || *captured.Status != "review" {
			t.Errorf("status filter = %v, want review", captured.Status)
		}
		if captured.Filename == nil || *captured.Filename != "report" {
			t.Errorf("filename filter = %v, want report", captured.Filename)
		}
	})
}

func TestHandlerFind(t *testing.T) {
	doc := sampleDoc()

	tests := []struct {
		name   string
		path   string
		findFn func(context.Context, uuid.UUID) (*documents.Document, error)
		want   int
	}{
		{
			name: "found",
			path: "/documents/" + doc.ID.String(),
			findFn: func(_ context.Context, id uuid.UUID) (*documents.Document, error) {
				if id != doc.ID {
					return nil, documents.ErrNotFound
				}
				return &doc, nil
			},
			want: http.StatusOK,
		},
		{
			name: "invalid uuid",
			path: "/documents/not-a-uuid",
			want: http.StatusBadRequest,
		},
		{
			name: "not found",
			path: "/documents/" + uuid.NewString(),
			findFn: func(_ context.Context, _ uuid.UUID) (*documents.Document, error) {
				return nil, documents.ErrNotFound
			},
			want: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := setupMux(newTestHandler(&mockSystem{findFn: tt.findFn}, 1<<20))

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandlerContent(t *testing.T) {
	doc := sampleDoc()
	sys := &mockSystem{
		contentFn: func(_ context.Context, id uuid.UUID) (citations.ContentMap, error) {
			if id != doc.ID {
				return nil, documents.ErrNotFound
			}
			return sampleContent(), nil
		},
	}
	mux := setupMux(newTestHandler(sys, 1<<20))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/documents/"+doc.ID.String()+"/content", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got citations.ContentMap
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 3 || got[1].Text != "Internal use only" {
		t.Errorf("content = %+v, want sample content", got)
	}
}

func TestHandlerSearch(t *testing.T) {
	t.Run("normalizes pagination", func(t *testing.T) {
		var capturedPage pagination.PageRequest
		sys := &mockSystem{
			listFn: func(_ context.Context, page pagination.PageRequest, _ documents.Filters) (*pagination.PageResult[documents.Document], error) {
				capturedPage = page
				result := pagination.NewPageResult([]documents.Document{}, 0, page.Page, page.PageSize)
				return &result, nil
			},
		}
		mux := setupMux(newTestHandler(sys, 1<<20))

		body := jsonBody(t, documents.SearchRequest{
			PageRequest: pagination.PageRequest{Page: 0, PageSize: 0},
		})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/documents/search", body)
		req.Header.Set("Content-Type", "application/json")
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if capturedPage.Page != 1 {
			t.Errorf("page = %d, want 1 (normalized)", capturedPage.Page)
		}
		if capturedPage.PageSize != 20 {
			t.Errorf("page_size = %d, want 20 (default)", capturedPage.PageSize)
		}
	})

	t.Run("invalid json returns 400", func(t *testing.T) {
		mux := setupMux(newTestHandler(&mockSystem{}, 1<<20))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/documents/search", strings.NewReader("not json"))
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerCreate(t *testing.T) {
	doc := sampleDoc()

	t.Run("registers document", func(t *testing.T) {
		var captured documents.CreateCommand
		sys := &mockSystem{
			createFn: func(_ context.Context, cmd documents.CreateCommand) (*documents.Document, error) {
				captured = cmd
				return &doc, nil
			},
		}
		mux := setupMux(newTestHandler(sys, 1<<20))

		body := jsonBody(t, documents.CreateCommand{Filename: "report.pdf", Content: sampleContent()})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/documents", body))

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", rec.Code)
		}
		if captured.Filename != "report.pdf" {
			t.Errorf("filename = %q, want report.pdf", captured.Filename)
		}
		if len(captured.Content) != 3 {
			t.Errorf("blocks = %d, want 3", len(captured.Content))
		}
	})

	t.Run("unknown field returns 400", func(t *testing.T) {
		mux := setupMux(newTestHandler(&mockSystem{}, 1<<20))

		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"filename":"a.pdf","content_map":[],"external_id":4}`)
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/documents", body))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("oversized body returns 413", func(t *testing.T) {
		mux := setupMux(newTestHandler(&mockSystem{}, 64))

		body := jsonBody(t, documents.CreateCommand{Filename: "report.pdf", Content: sampleContent()})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/documents", body))

		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", rec.Code)
		}
	})

	t.Run("system error maps status", func(t *testing.T) {
		sys := &mockSystem{
			createFn: func(_ context.Context, _ documents.CreateCommand) (*documents.Document, error) {
				return nil, documents.ErrInvalidContent
			},
		}
		mux := setupMux(newTestHandler(sys, 1<<20))

		body := jsonBody(t, documents.CreateCommand{Filename: "report.pdf"})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/documents", body))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerCreateBatch(t *testing.T) {
	doc := sampleDoc()

	t.Run("reports per-document results", func(t *testing.T) {
		sys := &mockSystem{
			createBatchFn: func(_ context.Context, cmds []documents.CreateCommand) []documents.BatchResult {
				return []documents.BatchResult{
					{Filename: cmds[0].Filename, Document: &doc},
					{Filename: cmds[1].Filename, Error: "invalid document content"},
				}
			},
		}
		mux := setupMux(newTestHandler(sys, 1<<20))

		body := jsonBody(t, documents.BatchRequest{Documents: []documents.CreateCommand{
			{Filename: "a.pdf", Content: sampleContent()},
			{Filename: "b.pdf"},
		}})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/documents/batch", body))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var got []documents.BatchResult
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("results = %d, want 2", len(got))
		}
		if got[0].Document == nil || got[1].Error == "" {
			t.Errorf("results = %+v, want success then failure", got)
		}
	})

	t.Run("empty batch returns 400", func(t *testing.T) {
		mux := setupMux(newTestHandler(&mockSystem{}, 1<<20))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/documents/batch", strings.NewReader(`{"documents":[]}`)))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerDelete(t *testing.T) {
	docID := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")

	t.Run("deletes document", func(t *testing.T) {
		var capturedID uuid.UUID
		sys := &mockSystem{
			deleteFn: func(_ context.Context, id uuid.UUID) error {
				capturedID = id
				return nil
			},
		}
		mux := setupMux(newTestHandler(sys, 1<<20))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("DELETE", "/documents/"+docID.String(), nil))

		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
		if capturedID != docID {
			t.Errorf("id = %v, want %v", capturedID, docID)
		}
	})

	t.Run("not found returns 404", func(t *testing.T) {
		sys := &mockSystem{
			deleteFn: func(_ context.Context, _ uuid.UUID) error {
				return documents.ErrNotFound
			},
		}
		mux := setupMux(newTestHandler(sys, 1<<20))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("DELETE", "/documents/"+uuid.NewString(), nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHandlerRoutes(t *testing.T) {
	group := newTestHandler(&mockSystem{}, 1<<20).Routes()

	if group.Prefix != "/documents" {
		t.Errorf("prefix = %q, want /documents", group.Prefix)
	}

	want := []struct {
		method  string
		pattern string
	}{
		{"GET", ""},
		{"GET", "/{id}"},
		{"GET", "/{id}/content"},
		{"POST", ""},
		{"POST", "/batch"},
		{"POST", "/search"},
		{"DELETE", "/{id}"},
	}

	if len(group.Routes) != len(want) {
		t.Fatalf("route count = %d, want %d", len(group.Routes), len(want))
	}

	for i, w := range want {
		r := group.Routes[i]
		if r.Method != w.method || r.Pattern != w.pattern {
			t.Errorf("route[%d] = %s %s, want %s %s", i, r.Method, r.Pattern, w.method, w.pattern)
		}
	}
}
