package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/roach88/matchpoint/internal/engine"
	"github.com/roach88/matchpoint/internal/server"
	"github.com/roach88/matchpoint/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	DBOptions
	Addr    string
	Origins []string
	Rate    float64
	Burst   int
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{DBOptions: DBOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and websocket updates",
		Long: `Start the engine's command loop behind an HTTP API.

Scoreboard updates and notices are pushed to websocket clients on
/matches/{id}/ws. Mutating requests can be rate limited across all clients
with --rate (requests per second, 0 for unlimited) and --burst.

Examples:
  matchpoint serve --addr :8080
  matchpoint serve --origins https://scores.example.com --rate 5 --burst 10`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	addDBFlag(cmd, &opts.DBOptions)
	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().StringSliceVar(&opts.Origins, "origins", []string{"*"}, "allowed CORS and websocket origins")
	cmd.Flags().Float64Var(&opts.Rate, "rate", 0, "mutating requests per second across all clients (0 = unlimited)")
	cmd.Flags().IntVar(&opts.Burst, "burst", 10, "rate limiter burst size")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	if opts.Rate < 0 || opts.Burst < 1 {
		return NewExitError(ExitCommandError, "--rate must be >= 0 and --burst >= 1")
	}

	path := databasePath(opts.Database)
	slog.Info("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := server.NewHub()
	eng := engine.New(st, engine.UUIDv7Generator{},
		engine.WithUpdateSink(hub),
		engine.WithReplayResume(),
	)

	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	srv := server.New(ctx, eng, st, hub,
		server.WithAllowedOrigins(opts.Origins...),
		server.WithRateLimit(limit, opts.Burst),
	)

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to listen", err)
	}
	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := eng.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("engine: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", ln.Addr())
	slog.Info("serving", "addr", ln.Addr().String(), "db", path)

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	slog.Info("server stopped gracefully")
	return nil
}
