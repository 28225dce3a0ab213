package api

import (
	"github.com/JaimeStill/arbiter/internal/decisions"
	"github.com/JaimeStill/arbiter/internal/documents"
	"github.com/JaimeStill/arbiter/internal/reports"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Documents documents.System
	Decisions decisions.System
	Accuracy  *reports.Handler
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	docsSystem := documents.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	decisionsSystem := decisions.New(
		runtime.Database.Connection(),
		runtime.Engine,
		docsSystem,
		runtime.Notifier,
		runtime.Logger,
		runtime.Pagination,
	)

	return &Domain{
		Documents: docsSystem,
		Decisions: decisionsSystem,
		Accuracy:  reports.NewHandler(runtime.Exporter, runtime.Logger),
	}
}
