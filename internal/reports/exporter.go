// Package reports exports accuracy reports to blob storage, on demand or on
// a cron schedule, and reads back the export history.
package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/JaimeStill/arbiter/internal/accuracy"
	"github.com/JaimeStill/arbiter/pkg/formatting"
	"github.com/JaimeStill/arbiter/pkg/storage"
)

// ErrNoExports is returned when no report has been exported yet.
var ErrNoExports = errors.New("no accuracy reports exported")

// Source produces the report to export. *engine.Engine and
// *accuracy.Tracker satisfy it.
type Source interface {
	Report() accuracy.Report
}

// Export identifies the blobs written by one export.
type Export struct {
	JSONKey    string    `json:"json_key"`
	TextKey    string    `json:"text_key"`
	ExportedAt time.Time `json:"exported_at"`
}

// Exporter writes accuracy reports under a key prefix.
type Exporter struct {
	source Source
	store  storage.System
	prefix string
	now    func() time.Time
	logger *slog.Logger
}

// NewExporter creates an Exporter writing beneath prefix.
func NewExporter(source Source, store storage.System, prefix string, logger *slog.Logger) *Exporter {
	return &Exporter{
		source: source,
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
		logger: logger.With("system", "reports"),
	}
}

// WithClock replaces the exporter's time source.
func (e *Exporter) WithClock(now func() time.Time) *Exporter {
	e.now = now
	return e
}

// Report returns the current report without exporting it.
func (e *Exporter) Report() accuracy.Report {
	return e.source.Report()
}

// Export uploads the current report as JSON and as text. Keys are
// partitioned by UTC date: <prefix>/2006/01/02/accuracy-20060102T150405Z.json.
func (e *Exporter) Export(ctx context.Context) (*Export, error) {
	report := e.source.Report()
	at := e.now().UTC()
	base := e.key(at)

	var js bytes.Buffer
	if err := report.WriteJSON(&js); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	var txt bytes.Buffer
	if err := report.WriteText(&txt); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	exp := &Export{
		JSONKey:    base + ".json",
		TextKey:    base + ".txt",
		ExportedAt: at,
	}

	size := int64(js.Len() + txt.Len())

	if err := e.store.Upload(ctx, exp.JSONKey, &js, "application/json"); err != nil {
		return nil, err
	}
	if err := e.store.Upload(ctx, exp.TextKey, &txt, "text/plain; charset=utf-8"); err != nil {
		return nil, err
	}

	e.logger.Info(
		"accuracy report exported",
		"key", exp.JSONKey,
		"macro_f1", report.MacroF1,
		"observations", report.TotalObservations,
		"size", formatting.FormatBytes(size, 1),
	)
	return exp, nil
}

// History lists exported JSON reports, newest first.
func (e *Exporter) History(ctx context.Context) ([]storage.Object, error) {
	objs, err := e.store.List(ctx, e.prefix+"/")
	if err != nil {
		return nil, err
	}

	out := slices.DeleteFunc(objs, func(o storage.Object) bool {
		return !strings.HasSuffix(o.Key, ".json")
	})
	slices.SortFunc(out, func(a, b storage.Object) int {
		return strings.Compare(b.Key, a.Key)
	})
	return out, nil
}

// Latest downloads and decodes the most recent export.
func (e *Exporter) Latest(ctx context.Context) (*accuracy.Report, error) {
	history, err := e.History(ctx)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, ErrNoExports
	}

	rc, err := e.store.Download(ctx, history[0].Key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r accuracy.Report
	if err := json.NewDecoder(rc).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", history[0].Key, err)
	}
	return &r, nil
}

func (e *Exporter) key(at time.Time) string {
	name := "accuracy-" + at.Format("20060102T150405Z")
	return path.Join(e.prefix, at.Format("2006/01/02"), name)
}
