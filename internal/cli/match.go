package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/matchpoint/internal/config"
	"github.com/roach88/matchpoint/internal/engine"
	"github.com/roach88/matchpoint/internal/report"
	"github.com/roach88/matchpoint/internal/scoring"
)

// NewOptions holds flags for the new command.
type NewOptions struct {
	DBOptions
	Player1     string
	Player2     string
	Umpire      string
	Court       string
	BestOf      int
	FinalSet    string
	Deuce       string
	FirstServer int
}

// NewNewCommand creates the new command.
func NewNewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NewOptions{DBOptions: DBOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "new [config-file]",
		Short: "Start a new match",
		Long: `Start a new match from a config file (.cue, .yaml, .yml or .json) or
from flags. The config is checked against the match schema either way.

Examples:
  matchpoint new match.yaml
  matchpoint new --player1 Alice --player2 Bob --best-of 5 --deuce noAd`,
		Args:          usageArgs(cobra.MaximumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNew(opts, args, cmd)
		},
	}

	addDBFlag(cmd, &opts.DBOptions)
	cmd.Flags().StringVar(&opts.Player1, "player1", "", "name of player 1")
	cmd.Flags().StringVar(&opts.Player2, "player2", "", "name of player 2")
	cmd.Flags().StringVar(&opts.Umpire, "umpire", "", "umpire name")
	cmd.Flags().StringVar(&opts.Court, "court", "", "court type (Hard|Clay|Grass|Carpet|Indoor)")
	cmd.Flags().IntVar(&opts.BestOf, "best-of", 3, "number of sets (1|3|5)")
	cmd.Flags().StringVar(&opts.FinalSet, "final-set", "", "final set rule (tiebreak|tiebreak10|advantage)")
	cmd.Flags().StringVar(&opts.Deuce, "deuce", "", "deuce rule (advantage|noAd)")
	cmd.Flags().IntVar(&opts.FirstServer, "first-server", 1, "player serving first (1|2)")

	return cmd
}

func runNew(opts *NewOptions, args []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	cfg, err := newMatchConfig(opts, args, cmd)
	if err != nil {
		if scoring.IsInvalidConfig(err) {
			return f.Fail(ExitFailure, "invalid match config", err)
		}
		return f.Fail(ExitCommandError, "cannot read match config", err)
	}

	sess, err := openSession(&opts.DBOptions)
	if err != nil {
		return f.Fail(ExitFailure, "failed to open database", err)
	}
	defer sess.Close()

	out, err := sess.process(commandContext(cmd), engine.Command{Kind: engine.CommandNew, Config: &cfg})
	if err != nil {
		return f.Fail(ExitFailure, "failed to create match", err)
	}
	if f.Format == "json" {
		return f.Success(out)
	}
	fmt.Fprintf(f.Writer, "Match %s\n", out.MatchID)
	writeOutcome(f.Writer, out)
	return nil
}

// newMatchConfig loads the config file argument, or builds the config from
// the flags that were set. Mixing the two is a usage error.
func newMatchConfig(opts *NewOptions, args []string, cmd *cobra.Command) (scoring.Config, error) {
	flags := map[string]string{
		"player1":      "player1",
		"player2":      "player2",
		"umpire":       "umpire",
		"court":        "courtType",
		"best-of":      "format",
		"final-set":    "finalSetType",
		"deuce":        "deuceType",
		"first-server": "firstServer",
	}
	doc := make(map[string]any)
	for flag, key := range flags {
		if !cmd.Flags().Changed(flag) {
			continue
		}
		switch flag {
		case "player1":
			doc[key] = opts.Player1
		case "player2":
			doc[key] = opts.Player2
		case "umpire":
			doc[key] = opts.Umpire
		case "court":
			doc[key] = opts.Court
		case "best-of":
			doc[key] = opts.BestOf
		case "final-set":
			doc[key] = opts.FinalSet
		case "deuce":
			doc[key] = opts.Deuce
		case "first-server":
			doc[key] = opts.FirstServer
		}
	}

	if len(args) == 1 {
		if len(doc) > 0 {
			return scoring.Config{}, fmt.Errorf("config file and match flags cannot be combined")
		}
		return config.LoadMatchConfig(args[0])
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return scoring.Config{}, err
	}
	return config.Parse(data, config.FormatJSON, "flags")
}

// PointOptions holds flags for the point command.
type PointOptions struct {
	DBOptions
	Type string
}

// NewPointCommand creates the point command.
func NewPointCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PointOptions{DBOptions: DBOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "point <match-id> <player>",
		Short: "Credit a point to a player",
		Long: `Credit one point to player 1 or 2 ("1", "p1", "player1", ...).

--type records how the point was won: normal, ace, doubleFault or
unforcedError. An ace is credited to the server and a double fault to the
receiver; the player argument is ignored for those two types.`,
		Args:          usageArgs(cobra.ExactArgs(2)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(opts.RootOptions, cmd)
			player, err := scoring.ParsePlayer(args[1])
			if err != nil {
				return f.Fail(ExitFailure, "point rejected", err)
			}
			return runMatchCommand(&opts.DBOptions, cmd, "point rejected", engine.Command{
				Kind:      engine.CommandPoint,
				MatchID:   args[0],
				Player:    player,
				PointType: scoring.PointType(opts.Type),
			})
		},
	}

	addDBFlag(cmd, &opts.DBOptions)
	cmd.Flags().StringVar(&opts.Type, "type", string(scoring.PointNormal), "point type (normal|ace|doubleFault|unforcedError)")

	return cmd
}

// NewUndoCommand creates the undo command.
func NewUndoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DBOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "undo <match-id>",
		Short:         "Revert the most recent point, retirement or suspension",
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatchCommand(opts, cmd, "undo rejected", engine.Command{
				Kind:    engine.CommandUndo,
				MatchID: args[0],
			})
		},
	}
	addDBFlag(cmd, opts)
	return cmd
}

// NewRetireCommand creates the retire command.
func NewRetireCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DBOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "retire <match-id> <player>",
		Short:         "End the match with the given player retiring",
		Args:          usageArgs(cobra.ExactArgs(2)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(opts.RootOptions, cmd)
			player, err := scoring.ParsePlayer(args[1])
			if err != nil {
				return f.Fail(ExitFailure, "retire rejected", err)
			}
			return runMatchCommand(opts, cmd, "retire rejected", engine.Command{
				Kind:    engine.CommandRetire,
				MatchID: args[0],
				Player:  player,
			})
		},
	}
	addDBFlag(cmd, opts)
	return cmd
}

// NewSuspendCommand creates the suspend command.
func NewSuspendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DBOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "suspend <match-id>",
		Short:         "End the match as suspended, with no winner",
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatchCommand(opts, cmd, "suspend rejected", engine.Command{
				Kind:    engine.CommandSuspend,
				MatchID: args[0],
			})
		},
	}
	addDBFlag(cmd, opts)
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DBOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "delete <match-id>",
		Short:         "Remove a stored match",
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(opts.RootOptions, cmd)
			sess, err := openSession(opts)
			if err != nil {
				return f.Fail(ExitFailure, "failed to open database", err)
			}
			defer sess.Close()

			out, err := sess.process(commandContext(cmd), engine.Command{
				Kind:    engine.CommandDelete,
				MatchID: args[0],
			})
			if err != nil {
				return f.Fail(ExitFailure, "delete failed", err)
			}
			if f.Format == "json" {
				return f.Success(map[string]string{"deleted": out.MatchID})
			}
			fmt.Fprintf(f.Writer, "Deleted match %s\n", out.MatchID)
			return nil
		},
	}
	addDBFlag(cmd, opts)
	return cmd
}

// runMatchCommand applies one mutating command and prints the outcome.
func runMatchCommand(opts *DBOptions, cmd *cobra.Command, failure string, c engine.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	sess, err := openSession(opts)
	if err != nil {
		return f.Fail(ExitFailure, "failed to open database", err)
	}
	defer sess.Close()

	out, err := sess.process(commandContext(cmd), c)
	if err != nil {
		return f.Fail(ExitFailure, failure, err)
	}
	f.VerboseLog("match %s seq %d digest %s", out.MatchID, out.Seq, out.Digest)
	if f.Format == "json" {
		return f.Success(out)
	}
	writeOutcome(f.Writer, out)
	return nil
}

// writeOutcome prints the scoreboard, any notices, then the banner or
// result line.
func writeOutcome(w io.Writer, out engine.Outcome) {
	s := &out.State
	fmt.Fprint(w, report.Scoreboard(s))
	for _, n := range out.Notices {
		fmt.Fprintf(w, "» %s\n", report.NoticeText(s.Config, n))
	}
	if result := report.Result(s); result != "" {
		fmt.Fprintln(w, result)
	} else if banner := report.Banner(s); banner != "" {
		fmt.Fprintln(w, banner)
	}
}
