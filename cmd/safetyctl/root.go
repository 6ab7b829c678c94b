package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/indiasafety/safetyindex/internal/backend"
	"github.com/indiasafety/safetyindex/internal/ingest"
	"github.com/indiasafety/safetyindex/internal/resilience"
	"github.com/indiasafety/safetyindex/internal/safety"
	"github.com/indiasafety/safetyindex/internal/storage"
	"github.com/indiasafety/safetyindex/internal/upload"
)

// app holds the collaborators opened once for a command run.
type app struct {
	log     zerolog.Logger
	kind    string
	backend *backend.Backend
	config  backend.Config
	safety  *safety.Service
	uploads *upload.Service
}

// RootCommand creates the safetyctl command tree.
func RootCommand(log zerolog.Logger) *cobra.Command {
	a := &app{log: log}

	rootCmd := &cobra.Command{
		Use:          "safetyctl",
		Short:        "Safety index administration CLI",
		Version:      Version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&a.kind, "backend", "", "Data backend: supabase, postgres or mock (default: from DATA_BACKEND)")

	// Commands that touch the data store open it lazily; token does not.
	openStore := func(cmd *cobra.Command, _ []string) error {
		return a.open(cmd)
	}

	subcommands := []*cobra.Command{
		seedCommand(a),
		statesCommand(a),
		importCommand(a),
		exportCommand(a),
	}
	for _, sub := range subcommands {
		sub.PersistentPreRunE = openStore
		sub.PersistentPostRun = func(*cobra.Command, []string) { a.close() }
	}
	rootCmd.AddCommand(subcommands...)
	rootCmd.AddCommand(tokenCommand())

	return rootCmd
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := backend.ConfigFromEnv()
	if err != nil {
		return err
	}
	if a.kind != "" {
		cfg.Kind = backend.Kind(a.kind)
	}

	b, err := backend.Open(cmd.Context(), cfg, backend.Options{
		Registry: resilience.NewRegistry(),
		Logger:   a.log,
	})
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}

	a.backend = b
	a.config = cfg
	a.safety = safety.NewService(safety.ServiceConfig{
		States:       b.States,
		Records:      b.Safety,
		SnapshotDate: cfg.SnapshotDate,
		Logger:       a.log,
	})
	a.uploads = upload.NewService(b.Uploads, a.log)
	a.log.Debug().Str("backend", b.Name()).Msg("backend opened")
	return nil
}

func (a *app) importer(store storage.Store) *ingest.Importer {
	return ingest.New(ingest.Config{
		States:  a.backend.States,
		Safety:  a.safety,
		Uploads: a.uploads,
		Store:   store,
		Logger:  a.log,
	})
}

func (a *app) close() {
	if a.backend != nil {
		a.backend.Close()
	}
}
