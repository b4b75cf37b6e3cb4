package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/matchpoint/internal/engine"
	"github.com/roach88/matchpoint/internal/report"
	"github.com/roach88/matchpoint/internal/scoring"
	"github.com/roach88/matchpoint/internal/store"
	"github.com/roach88/matchpoint/internal/testutil"
)

// PointInterval is how far the scenario wall clock moves on every reading.
const PointInterval = 25 * time.Second

// harness executes one scenario against a private engine and store.
type harness struct {
	store   *store.Store
	engine  *engine.Engine
	clock   *testutil.FixedClock
	matchID string
	state   scoring.State
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Decode and validate the match config
//  2. Create the match through the engine
//  3. Execute setup steps (any error aborts)
//  4. Execute flow steps, checking expect clauses
//  5. Replay the stored point log and compare digests
//  6. Evaluate assertions
//
// An error return means the scenario could not be executed at all; failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	cfg, err := scenario.MatchConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewFixedClock(time.Time{}, PointInterval)
	h := &harness{
		store: st,
		engine: engine.New(st, testutil.NewSequentialIDGenerator("match"),
			engine.WithWallClock(clock),
			engine.WithLogger(logger),
		),
		clock:  clock,
		logger: logger,
	}

	ctx := context.Background()
	out, err := h.engine.Process(ctx, engine.Command{Kind: engine.CommandNew, Config: &cfg})
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	h.matchID = out.MatchID
	h.state = out.State

	result := NewResult()
	result.MatchID = h.matchID

	for i, step := range scenario.Setup {
		ev, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("setup step %d (%s): %w", i, step.Action, err)
		}
		ev.Setup = true
		result.addTrace(ev, &h.state)
	}

	for i, step := range scenario.Flow {
		ev, err := h.execute(ctx, step)
		if err != nil {
			ev.Error = errorCode(err)
		}
		ev = result.addTrace(ev, &h.state)
		checkExpect(result, i, step, ev, &h.state)

		h.logger.Info("flow step completed",
			"step", i,
			"action", step.Action,
			"seq", ev.Seq,
			"error", ev.Error,
		)
	}

	if err := h.finish(ctx, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs one step and returns its trace event. On error the event
// carries whatever the step did before failing.
func (h *harness) execute(ctx context.Context, step Step) (TraceEvent, error) {
	ev := TraceEvent{Action: step.Action, Player: scoring.Player(step.Player)}

	switch step.Action {
	case ActionPoint, ActionPoints:
		ev.Type = step.Type
		if ev.Type == "" {
			ev.Type = scoring.PointNormal
		}
		n := 1
		if step.Action == ActionPoints {
			n = step.Count
			ev.Count = n
		}
		for i := 0; i < n; i++ {
			if err := h.apply(ctx, &ev, engine.Command{
				Kind:      engine.CommandPoint,
				Player:    ev.Player,
				PointType: ev.Type,
			}); err != nil {
				return ev, err
			}
		}
		return ev, nil

	case ActionUndo:
		return ev, h.apply(ctx, &ev, engine.Command{Kind: engine.CommandUndo})
	case ActionRetire:
		return ev, h.apply(ctx, &ev, engine.Command{Kind: engine.CommandRetire, Player: ev.Player})
	case ActionSuspend:
		return ev, h.apply(ctx, &ev, engine.Command{Kind: engine.CommandSuspend})
	default:
		return ev, fmt.Errorf("unknown action %q", step.Action)
	}
}

// apply submits cmd for the scenario's match and folds its outcome into ev.
func (h *harness) apply(ctx context.Context, ev *TraceEvent, cmd engine.Command) error {
	cmd.MatchID = h.matchID
	out, err := h.engine.Process(ctx, cmd)
	if err != nil {
		return err
	}
	h.state = out.State
	ev.Seq = out.Seq
	ev.Reopened = out.Reopened
	ev.Notices = append(ev.Notices, out.Notices...)
	return nil
}

// finish loads the stored match, checks that its point log replays to the
// same digest and fills the result's final fields.
func (h *harness) finish(ctx context.Context, result *Result) error {
	rec, err := h.store.LoadMatch(ctx, h.matchID)
	if err != nil {
		return fmt.Errorf("failed to load final state: %w", err)
	}
	result.Final = rec.State
	result.Digest = rec.Digest

	replayed, err := h.store.Replay(ctx, h.matchID)
	if err != nil {
		return fmt.Errorf("failed to replay match: %w", err)
	}
	if !replayed.Match() {
		result.AddError(fmt.Sprintf("replay mismatch: stored digest %s, replayed %s, point mismatches %v",
			replayed.StoredDigest, replayed.ReplayedDigest, replayed.PointMismatch))
	}

	var buf bytes.Buffer
	if err := report.WriteSummary(&buf, &result.Final, h.clock.Peek()); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	result.Summary = buf.String()
	return nil
}

// checkExpect compares a flow step's outcome with its expect clause. A step
// without an expect clause must succeed.
func checkExpect(result *Result, index int, step Step, ev TraceEvent, s *scoring.State) {
	exp := step.Expect
	if exp == nil {
		if ev.Error != "" {
			result.AddError(fmt.Sprintf("flow[%d] %s: unexpected error %s", index, step.Action, ev.Error))
		}
		return
	}

	mismatch := func(field string, want, got any) {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected %s %v, got %v", index, step.Action, field, want, got))
	}

	if exp.Error != ev.Error {
		mismatch("error", quoteEmpty(exp.Error), quoteEmpty(ev.Error))
	}
	if exp.MatchOver != nil && *exp.MatchOver != s.MatchOver {
		mismatch("matchOver", *exp.MatchOver, s.MatchOver)
	}
	if exp.Reopened != nil {
		if *exp.Reopened != ev.Reopened {
			mismatch("reopened", *exp.Reopened, ev.Reopened)
		}
	}
	if exp.Points != "" && exp.Points != ev.Points {
		mismatch("points", exp.Points, ev.Points)
	}
	if exp.Games != "" && exp.Games != ev.Games {
		mismatch("games", exp.Games, ev.Games)
	}
	if exp.Sets != "" && exp.Sets != ev.Sets {
		mismatch("sets", exp.Sets, ev.Sets)
	}
	if exp.Server != 0 && scoring.Player(exp.Server) != s.Server {
		mismatch("server", exp.Server, int(s.Server))
	}
	if exp.Status != "" && exp.Status != string(s.Status().Kind) {
		mismatch("status", exp.Status, s.Status().Kind)
	}
}

// errorCode returns the machine-readable code of a scoring or engine error,
// or the error text for anything else.
func errorCode(err error) string {
	if code := scoring.CodeOf(err); code != "" {
		return string(code)
	}
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return err.Error()
}

func quoteEmpty(s string) string {
	if s == "" {
		return `""`
	}
	return s
}
