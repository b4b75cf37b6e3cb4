package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/matchpoint/internal/scoring"
	"github.com/roach88/matchpoint/internal/store"
)

// CommandKind names an engine command.
type CommandKind string

const (
	CommandNew     CommandKind = "new"
	CommandPoint   CommandKind = "point"
	CommandUndo    CommandKind = "undo"
	CommandRetire  CommandKind = "retire"
	CommandSuspend CommandKind = "suspend"
	CommandShow    CommandKind = "show"
	CommandDelete  CommandKind = "delete"
)

// mutates reports whether the kind changes an existing match.
func (k CommandKind) mutates() bool {
	switch k {
	case CommandPoint, CommandUndo, CommandRetire, CommandSuspend:
		return true
	}
	return false
}

// Command is one request to the engine.
//
// Field use by kind:
//   - new: Config
//   - point: MatchID, Player, PointType (credited through Match.ScoreTyped)
//   - retire: MatchID, Player
//   - undo, suspend, show, delete: MatchID
type Command struct {
	Kind      CommandKind
	MatchID   string
	Config    *scoring.Config
	Player    scoring.Player
	PointType scoring.PointType
}

// Outcome is the engine's answer to an accepted command.
type Outcome struct {
	Seq       int64            `json:"seq"`
	MatchID   string           `json:"matchId"`
	MatchOver bool             `json:"matchOver"`
	Reopened  bool             `json:"reopened,omitempty"`
	Digest    string           `json:"digest,omitempty"`
	Notices   []scoring.Notice `json:"notices,omitempty"`
	State     scoring.State    `json:"state"`
}

// UpdateSink receives the outcome of every accepted point, undo, retire and
// suspend command, in seq order. Called from the engine goroutine;
// implementations must not block.
type UpdateSink interface {
	Publish(out Outcome)
}

// Engine serialises scoring commands for any number of matches.
//
// CRITICAL: All mutations happen on one goroutine. Either Run is serving
// the queue and callers use Submit, or no Run loop exists and a single
// caller uses Process directly (the CLI). Never both.
//
// Live matches, and with them their undo ledgers, are cached by ID. A cache
// miss resumes the match from the store with an empty ledger, so undo does
// not reach across process restarts, unless WithReplayResume is set.
//
// INVARIANTS:
//   - every accepted mutating command is saved before its Outcome is returned
//   - a failed save evicts the live match so memory never runs ahead of the store
type Engine struct {
	store        *store.Store
	clock        *Clock
	ids          IDGenerator
	queue        *commandQueue
	live         map[string]*scoring.Match
	sink         UpdateSink
	wall         scoring.Clock
	historyDepth int
	replayResume bool
	logger       *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithUpdateSink forwards the outcome of every accepted mutating command to
// sink.
func WithUpdateSink(sink UpdateSink) EngineOption {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithWallClock sets the wall clock handed to every match.
func WithWallClock(c scoring.Clock) EngineOption {
	return func(e *Engine) {
		e.wall = c
	}
}

// WithHistoryDepth sets the undo depth of every match.
//
// Default: scoring.DefaultHistoryDepth (50).
func WithHistoryDepth(depth int) EngineOption {
	return func(e *Engine) {
		e.historyDepth = depth
	}
}

// WithReplayResume makes a cache miss rebuild the match by replaying its
// stored point log, so the undo ledger survives a restart and a finished
// match can be reopened by undo. The CLI, which starts a fresh engine per
// command, relies on this.
func WithReplayResume() EngineOption {
	return func(e *Engine) {
		e.replayResume = true
	}
}

// WithLogger sets the logger passed to matches. Defaults to slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine backed by s that names new matches with ids.
func New(s *store.Store, ids IDGenerator, opts ...EngineOption) *Engine {
	e := &Engine{
		store:        s,
		clock:        NewClock(),
		ids:          ids,
		queue:        newCommandQueue(),
		live:         make(map[string]*scoring.Match),
		historyDepth: scoring.DefaultHistoryDepth,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit hands cmd to the Run loop and waits for its outcome.
// Safe to call from any goroutine.
//
// Returns an ENGINE_STOPPED error once Stop has been called, or ctx.Err()
// if ctx ends first. A command whose wait was abandoned may still be applied.
func (e *Engine) Submit(ctx context.Context, cmd Command) (Outcome, error) {
	r := &request{cmd: cmd, reply: make(chan reply, 1)}
	if !e.queue.Enqueue(r) {
		return Outcome{}, NewEngineStoppedError()
	}
	select {
	case rep := <-r.reply:
		return rep.outcome, rep.err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Process applies cmd on the calling goroutine.
//
// CRITICAL: Only for callers that do not run the Run loop.
func (e *Engine) Process(ctx context.Context, cmd Command) (Outcome, error) {
	return e.process(ctx, cmd)
}

// Run serves submitted commands until ctx is cancelled or Stop is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// After Stop, requests already queued are still processed before Run
// returns nil. On cancellation, queued requests are answered with
// ENGINE_STOPPED and Run returns ctx.Err().
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting")

	for {
		if r, ok := e.queue.TryDequeue(); ok {
			out, err := e.process(ctx, r.cmd)
			if err != nil {
				logCommandError(r.cmd, err)
			}
			r.reply <- reply{outcome: out, err: err}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			e.rejectPending()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel is closed once the queue is closed.
			if e.queue.Len() == 0 && e.stopped() {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the command queue. Run drains what is queued and returns.
func (e *Engine) Stop() {
	e.queue.Close()
}

// QueueLen returns the number of commands waiting for the Run loop.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// LiveCount returns the number of cached matches.
func (e *Engine) LiveCount() int {
	return len(e.live)
}

func (e *Engine) stopped() bool {
	e.queue.mu.Lock()
	defer e.queue.mu.Unlock()
	return e.queue.closed
}

func (e *Engine) rejectPending() {
	for {
		r, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		r.reply <- reply{err: NewEngineStoppedError()}
	}
}

// process routes a command to its handler.
// CRITICAL: Called only from the goroutine that owns the engine.
func (e *Engine) process(ctx context.Context, cmd Command) (Outcome, error) {
	seq := e.clock.Next()
	slog.Debug("processing command",
		"seq", seq,
		"kind", string(cmd.Kind),
		"match_id", cmd.MatchID,
	)

	var (
		out Outcome
		err error
	)
	switch cmd.Kind {
	case CommandNew:
		out, err = e.newMatch(ctx, cmd)
	case CommandPoint, CommandUndo, CommandRetire, CommandSuspend:
		out, err = e.mutate(ctx, cmd)
	case CommandShow:
		out, err = e.show(ctx, cmd.MatchID)
	case CommandDelete:
		out, err = e.delete(ctx, cmd.MatchID)
	default:
		err = NewUnknownCommandError(cmd.Kind)
	}
	if err != nil {
		return Outcome{}, err
	}
	out.Seq = seq
	if e.sink != nil && cmd.Kind.mutates() {
		e.sink.Publish(out)
	}
	return out, nil
}

func (e *Engine) newMatch(ctx context.Context, cmd Command) (Outcome, error) {
	if cmd.Config == nil {
		return Outcome{}, scoring.NewInvalidConfigError([]string{"config is required"})
	}
	cfg := cmd.Config.WithDefaults()
	m, err := scoring.New(cfg, e.matchOptions()...)
	if err != nil {
		return Outcome{}, err
	}

	id := e.ids.Generate()
	e.live[id] = m
	out, err := e.commit(ctx, id, m)
	if err != nil {
		return Outcome{}, err
	}
	slog.Info("match created", "match_id", id, "player1", cfg.Player1, "player2", cfg.Player2)
	return out, nil
}

func (e *Engine) mutate(ctx context.Context, cmd Command) (Outcome, error) {
	m, err := e.load(ctx, cmd)
	if err != nil {
		return Outcome{}, err
	}

	var reopened bool
	switch cmd.Kind {
	case CommandPoint:
		_, err = m.ScoreTyped(cmd.Player, cmd.PointType)
	case CommandUndo:
		var res scoring.UndoResult
		res, err = m.Undo()
		reopened = res.Reopened
	case CommandRetire:
		err = m.Retire(cmd.Player)
	case CommandSuspend:
		err = m.Suspend()
	}
	if err != nil {
		return Outcome{}, err
	}

	out, err := e.commit(ctx, cmd.MatchID, m)
	if err != nil {
		return Outcome{}, err
	}
	out.Reopened = reopened
	return out, nil
}

// load returns the live match for cmd, resuming it from the store on a
// cache miss. A stored match that is already over cannot be resumed: the
// mutating commands report MATCH_OVER and undo reports NOT_RESUMABLE.
func (e *Engine) load(ctx context.Context, cmd Command) (*scoring.Match, error) {
	if m, ok := e.live[cmd.MatchID]; ok {
		return m, nil
	}

	if e.replayResume {
		return e.rebuild(ctx, cmd.MatchID)
	}

	rec, err := e.store.LoadMatch(ctx, cmd.MatchID)
	if err != nil {
		return nil, e.storeError(cmd.MatchID, err)
	}
	if rec.State.MatchOver {
		if cmd.Kind == CommandUndo {
			return nil, scoring.NewNotResumableError()
		}
		return nil, scoring.NewMatchOverError(string(cmd.Kind))
	}

	m, err := scoring.Resume(rec.State, e.matchOptions()...)
	if err != nil {
		return nil, err
	}
	e.live[cmd.MatchID] = m
	slog.Info("match resumed", "match_id", cmd.MatchID, "points", len(rec.State.PointLog))
	return m, nil
}

// rebuild replays the stored match into the live cache. Mutations on a
// finished match are then rejected by the scoring rules themselves.
func (e *Engine) rebuild(ctx context.Context, id string) (*scoring.Match, error) {
	wall := e.wall
	if wall == nil {
		wall = systemClock{}
	}
	m, err := e.store.Rebuild(ctx, id, wall, e.matchOptions()...)
	if err != nil {
		return nil, e.storeError(id, err)
	}
	e.live[id] = m
	slog.Info("match rebuilt", "match_id", id, "history", m.HistoryLen())
	return m, nil
}

// commit saves the match, drains its notices and builds the outcome.
func (e *Engine) commit(ctx context.Context, id string, m *scoring.Match) (Outcome, error) {
	state := m.State()
	digest, err := e.store.SaveMatch(ctx, id, state, store.WithUndoDepth(m.HistoryLen()))
	if err != nil {
		delete(e.live, id)
		return Outcome{}, fmt.Errorf("commit %s: %w", id, err)
	}

	notices := m.Notices().Drain()
	return Outcome{
		MatchID:   id,
		MatchOver: state.MatchOver,
		Digest:    digest,
		Notices:   notices,
		State:     state,
	}, nil
}

func (e *Engine) show(ctx context.Context, id string) (Outcome, error) {
	if m, ok := e.live[id]; ok {
		state := m.State()
		return Outcome{MatchID: id, MatchOver: state.MatchOver, State: state}, nil
	}
	rec, err := e.store.LoadMatch(ctx, id)
	if err != nil {
		return Outcome{}, e.storeError(id, err)
	}
	return Outcome{
		MatchID:   id,
		MatchOver: rec.State.MatchOver,
		Digest:    rec.Digest,
		State:     rec.State,
	}, nil
}

func (e *Engine) delete(ctx context.Context, id string) (Outcome, error) {
	delete(e.live, id)
	if err := e.store.DeleteMatch(ctx, id); err != nil {
		return Outcome{}, e.storeError(id, err)
	}
	slog.Info("match deleted", "match_id", id)
	return Outcome{MatchID: id}, nil
}

func (e *Engine) matchOptions() []scoring.Option {
	opts := []scoring.Option{
		scoring.WithHistoryDepth(e.historyDepth),
		scoring.WithLogger(e.logger),
	}
	if e.wall != nil {
		opts = append(opts, scoring.WithClock(e.wall))
	}
	return opts
}

// storeError maps store sentinels onto engine errors.
func (e *Engine) storeError(id string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return NewUnknownMatchError(id, "")
	case errors.Is(err, store.ErrDiscarded):
		return NewUnknownMatchError(id, "stored document was malformed and has been discarded")
	default:
		return err
	}
}

// logCommandError logs a rejected or failed command. Rule violations are
// expected traffic and stay at debug level.
func logCommandError(cmd Command, err error) {
	var se *scoring.Error
	if errors.As(err, &se) {
		slog.Debug("command rejected",
			"kind", string(cmd.Kind),
			"match_id", cmd.MatchID,
			"code", string(se.Code),
		)
		return
	}
	slog.Error("command failed",
		"kind", string(cmd.Kind),
		"match_id", cmd.MatchID,
		"error", err,
	)
}
