package documents

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/arbiter/pkg/handlers"
)

var (
	ErrNotFound       = errors.New("document not found")
	ErrDuplicate      = errors.New("document already exists")
	ErrTooLarge       = errors.New("content map exceeds maximum upload size")
	ErrInvalidContent = errors.New("invalid document content")
)

// MapHTTPStatus returns the response status for a document error.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidContent), errors.Is(err, handlers.ErrInvalidBody):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
