package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/cobra"

	"github.com/roach88/matchpoint/internal/engine"
	"github.com/roach88/matchpoint/internal/report"
	"github.com/roach88/matchpoint/internal/scoring"
	"github.com/roach88/matchpoint/internal/store"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DBOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [match-id]",
		Short: "Show scoreboard and statistics for a match",
		Long: `Show the scoreboard, status banner and statistics of a match.

Without a match ID the most recently updated match still in progress is
shown, which is how an interrupted session is resumed.`,
		Args:          usageArgs(cobra.MaximumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args, cmd)
		},
	}
	addDBFlag(cmd, opts)
	return cmd
}

func runShow(opts *DBOptions, args []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	sess, err := openSession(opts)
	if err != nil {
		return f.Fail(ExitFailure, "failed to open database", err)
	}
	defer sess.Close()

	var id string
	if len(args) == 1 {
		id = args[0]
	} else {
		rec, err := sess.store.LatestResumable(ctx)
		if err != nil {
			return f.Fail(ExitFailure, "no match to resume", err)
		}
		id = rec.ID
		f.VerboseLog("resuming match %s", id)
	}

	out, err := sess.process(ctx, engine.Command{Kind: engine.CommandShow, MatchID: id})
	if err != nil {
		return f.Fail(ExitFailure, "show failed", err)
	}
	if f.Format == "json" {
		return f.Success(out)
	}

	fmt.Fprintf(f.Writer, "Match %s\n", out.MatchID)
	fmt.Fprint(f.Writer, report.Scoreboard(&out.State))
	fmt.Fprintln(f.Writer)
	return report.WriteSummary(f.Writer, &out.State, time.Now())
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	DBOptions
	Player string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{DBOptions: DBOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored matches",
		Long: `List stored matches, most recently updated first.

--player keeps matches where either player's name fuzzily contains the
query, ignoring case and accents ("jo" matches "Jóhann").`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}
	addDBFlag(cmd, &opts.DBOptions)
	cmd.Flags().StringVar(&opts.Player, "player", "", "filter by player name")
	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	sess, err := openSession(&opts.DBOptions)
	if err != nil {
		return f.Fail(ExitFailure, "failed to open database", err)
	}
	defer sess.Close()

	all, err := sess.store.ListMatches(commandContext(cmd))
	if err != nil {
		return f.Fail(ExitFailure, "failed to list matches", err)
	}
	matches := filterByPlayer(all, opts.Player)

	if f.Format == "json" {
		return f.Success(map[string]any{"matches": matches})
	}
	if len(matches) == 0 {
		fmt.Fprintln(f.Writer, "No matches found.")
		return nil
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPLAYERS\tSTATUS")
	for _, m := range matches {
		fmt.Fprintf(tw, "%s\t%s vs %s\t%s\n", m.ID, m.Player1, m.Player2, matchStatus(m))
	}
	return tw.Flush()
}

// filterByPlayer keeps matches where either name fuzzily matches query.
// An empty query keeps everything.
func filterByPlayer(matches []store.MatchSummary, query string) []store.MatchSummary {
	query = strings.TrimSpace(query)
	out := make([]store.MatchSummary, 0, len(matches))
	for _, m := range matches {
		if query == "" ||
			fuzzy.MatchNormalizedFold(query, m.Player1) ||
			fuzzy.MatchNormalizedFold(query, m.Player2) {
			out = append(out, m)
		}
	}
	return out
}

func matchStatus(m store.MatchSummary) string {
	switch {
	case !m.MatchOver:
		return "in progress"
	case m.Winner == scoring.Player1:
		return "won by " + m.Player1
	case m.Winner == scoring.Player2:
		return "won by " + m.Player2
	default:
		return "suspended"
	}
}
