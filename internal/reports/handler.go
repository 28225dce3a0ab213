package reports

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/arbiter/pkg/handlers"
	"github.com/JaimeStill/arbiter/pkg/routes"
	"github.com/JaimeStill/arbiter/pkg/storage"
)

// Handler serves the live accuracy report and the export history.
type Handler struct {
	exporter *Exporter
	logger   *slog.Logger
}

// NewHandler creates a Handler over exp.
func NewHandler(exp *Exporter, logger *slog.Logger) *Handler {
	return &Handler{
		exporter: exp,
		logger:   logger.With("handler", "accuracy"),
	}
}

// Routes returns the route group definition for accuracy endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/accuracy",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.Report},
			{Method: "GET", Pattern: "/text", Handler: h.Text},
			{Method: "GET", Pattern: "/exports", Handler: h.History},
			{Method: "POST", Pattern: "/exports", Handler: h.Export},
			{Method: "GET", Pattern: "/exports/latest", Handler: h.Latest},
		},
	}
}

// Report returns the live accuracy report as JSON.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.exporter.Report())
}

// Text renders the live accuracy report as aligned plain text.
func (h *Handler) Text(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := h.exporter.Report().WriteText(w); err != nil {
		h.logger.Error("render report", "error", err)
	}
}

// History lists exported reports, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	objs, err := h.exporter.History(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, objs)
}

// Export writes the current report to blob storage.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	exp, err := h.exporter.Export(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusCreated, exp)
}

// Latest returns the most recently exported report.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	report, err := h.exporter.Latest(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, report)
}

// MapHTTPStatus maps report errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNoExports) || errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
