package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/matchpoint/internal/engine"
	"github.com/roach88/matchpoint/internal/store"
)

// DBOptions is embedded by every command that touches the database.
type DBOptions struct {
	*RootOptions
	Database string
}

func addDBFlag(cmd *cobra.Command, opts *DBOptions) {
	cmd.Flags().StringVar(&opts.Database, "db", "",
		"path to SQLite database (default $MATCHPOINT_DB or matchpoint.db)")
}

// session is an open store and an engine that processes commands inline.
type session struct {
	store  *store.Store
	engine *engine.Engine
}

// openSession opens the database and builds an engine over it. Commands
// run through Engine.Process, so no command loop is started. Matches are
// rebuilt from their point log, so undo works across invocations.
func openSession(opts *DBOptions) (*session, error) {
	path := databasePath(opts.Database)
	slog.Debug("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	eng := engine.New(st, engine.UUIDv7Generator{},
		engine.WithReplayResume(),
		engine.WithLogger(slog.Default()),
	)
	return &session{store: st, engine: eng}, nil
}

func (s *session) process(ctx context.Context, cmd engine.Command) (engine.Outcome, error) {
	return s.engine.Process(ctx, cmd)
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
