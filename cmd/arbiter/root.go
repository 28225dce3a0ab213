package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/arbiter/internal/accuracy"
	"github.com/JaimeStill/arbiter/internal/config"
	"github.com/JaimeStill/arbiter/internal/engine"
	"github.com/JaimeStill/arbiter/internal/infrastructure"
	"github.com/JaimeStill/arbiter/internal/pipeline"
)

// app carries state shared by every subcommand. The journal is opened lazily
// so help and usage output never touch the filesystem.
type app struct {
	journalPath string
	verbose     bool

	cfg     *config.Config
	logger  *slog.Logger
	journal *accuracy.BadgerJournal
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "arbiter",
		Short:         "Classify documents and track decision accuracy offline",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.journalPath, "journal", "", "accuracy journal directory (default: engine.journal_path)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newClassifyCmd(a),
		newCorrectCmd(a),
		newReportCmd(a),
	)
	return root
}

func (a *app) load() error {
	cfg, err := config.LoadOffline()
	if err != nil {
		return err
	}
	if a.journalPath != "" {
		cfg.Engine.JournalPath = a.journalPath
	}

	level := cfg.LogLevelValue()
	if a.verbose {
		level = slog.LevelDebug
	}

	a.cfg = cfg
	a.logger = infrastructure.NewLogger(os.Stderr, cfg.LogFormat, level).With("module", "cli")
	return nil
}

// engine opens the journal, replays it, and builds an engine. A model-backed
// engine is built only when online is set. Callers defer a.close.
func (a *app) engine(ctx context.Context, online bool) (*engine.Engine, error) {
	journal, err := accuracy.OpenBadgerJournal(a.cfg.Engine.JournalPath)
	if err != nil {
		return nil, err
	}
	a.journal = journal

	tracker := accuracy.NewTracker(accuracy.WithJournal(journal))

	build := pipeline.NewOffline
	if online {
		build = pipeline.New
	}

	eng, err := build(a.cfg, tracker, a.logger)
	if err != nil {
		a.close()
		return nil, err
	}
	if _, err := eng.Restore(ctx); err != nil {
		return nil, fmt.Errorf("replay %s: %w", a.cfg.Engine.JournalPath, err)
	}
	return eng, nil
}

func (a *app) close() error {
	if a.journal == nil {
		return nil
	}
	err := a.journal.Close()
	a.journal = nil
	return err
}
