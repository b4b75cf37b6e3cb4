package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/matchpoint/internal/config"
	"github.com/roach88/matchpoint/internal/scoring"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a match config file",
		Long: `Load a match config file (.cue, .yaml, .yml or .json), check it against
the match schema and print the config with defaults applied.

Exit codes:
  0 - Config is valid
  1 - Config is invalid
  2 - File cannot be read or has an unsupported extension`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	cfg, err := config.LoadMatchConfig(path)
	if err != nil {
		if scoring.IsInvalidConfig(err) {
			return f.Fail(ExitFailure, fmt.Sprintf("%s is not a valid match config", path), err)
		}
		return f.Fail(ExitCommandError, fmt.Sprintf("cannot read %s", path), err)
	}

	if f.Format == "json" {
		return f.Success(cfg)
	}

	fmt.Fprintf(f.Writer, "✓ %s\n", path)
	fmt.Fprintf(f.Writer, "  %s vs %s, best of %d\n", cfg.Player1, cfg.Player2, cfg.Format)
	fmt.Fprintf(f.Writer, "  court %s, final set %s, deuce %s, player %d serves first\n",
		cfg.CourtType, cfg.FinalSetType, cfg.DeuceType, cfg.FirstServer)
	if cfg.Umpire != "" {
		fmt.Fprintf(f.Writer, "  umpire %s\n", cfg.Umpire)
	}
	return nil
}
