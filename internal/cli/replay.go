package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/matchpoint/internal/report"
)

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DBOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <match-id>",
		Short: "Rebuild a match from its point log and verify it",
		Long: `Rebuild a match from its stored point log and compare the result with
the stored document.

The replayed state's canonical digest must equal the stored digest, and
every mirrored point row must agree with the replayed point log. Nothing is
written to the database.

Exit codes:
  0 - Replay reproduces the stored match
  1 - Digest or point mismatch, or the match cannot be loaded
  2 - Usage error

Examples:
  matchpoint replay 0192f3a4-...
  matchpoint replay --db ./club.db 0192f3a4-... --format json`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}
	addDBFlag(cmd, opts)
	return cmd
}

func runReplay(opts *DBOptions, id string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	sess, err := openSession(opts)
	if err != nil {
		return f.Fail(ExitFailure, "failed to open database", err)
	}
	defer sess.Close()

	res, err := sess.store.Replay(commandContext(cmd), id)
	if err != nil {
		return f.Fail(ExitFailure, "replay failed", err)
	}

	if !res.Match() {
		return f.FailCode(ExitFailure, "REPLAY_MISMATCH",
			fmt.Sprintf("replay of %s does not reproduce the stored match", id), res)
	}
	if f.Format == "json" {
		return f.Success(res)
	}

	fmt.Fprintf(f.Writer, "✓ %s: %d points replayed\n", res.MatchID, res.Points)
	fmt.Fprintf(f.Writer, "  digest %s\n", res.ReplayedDigest)
	fmt.Fprintf(f.Writer, "  sets   %s\n", report.SetLine(&res.State))
	return nil
}
