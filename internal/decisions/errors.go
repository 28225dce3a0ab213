package decisions

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/arbiter/internal/category"
	"github.com/JaimeStill/arbiter/internal/consensus"
	"github.com/JaimeStill/arbiter/internal/documents"
	"github.com/JaimeStill/arbiter/internal/engine"
	"github.com/JaimeStill/arbiter/pkg/handlers"
)

// Domain errors for decision operations.
var (
	ErrNotFound       = errors.New("decision not found")
	ErrDuplicate        = errors.New("decision already exists")
	ErrAlreadyCorrected = errors.New("decision already corrected")
	ErrInvalidCommand   = errors.New("invalid decision command")
)

// MapHTTPStatus maps decision domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, documents.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrAlreadyCorrected):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCommand),
		errors.Is(err, handlers.ErrInvalidBody),
		errors.Is(err, engine.ErrInvalidRequest),
		errors.Is(err, consensus.ErrInvalidDraft),
		errors.Is(err, consensus.ErrTooManyDrafts),
		errors.Is(err, category.ErrInvalidCategory),
		errors.Is(err, documents.ErrInvalidContent):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrDraftFailed):
		return http.StatusBadGateway
	case errors.Is(err, engine.ErrHalted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
