package engine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matchpoint/internal/scoring"
	"github.com/roach88/matchpoint/internal/store"
	"github.com/roach88/matchpoint/internal/testutil"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// recordingSink collects published outcomes.
type recordingSink struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *recordingSink) Publish(out Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, out)
}

func (r *recordingSink) published() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Outcome(nil), r.outcomes...)
}

func (r *recordingSink) kinds() []scoring.NoticeKind {
	var out []scoring.NoticeKind
	for _, o := range r.published() {
		for _, n := range o.Notices {
			out = append(out, n.Kind)
		}
	}
	return out
}

func newTestEngine(t *testing.T, s *store.Store, opts ...EngineOption) *Engine {
	t.Helper()
	base := []EngineOption{
		WithWallClock(testutil.NewFixedClock(time.Time{}, time.Second)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(s, testutil.NewSequentialIDGenerator("match"), append(base, opts...)...)
}

func testConfig() *scoring.Config {
	return &scoring.Config{Umpire: "Ref", Player1: "Alice", Player2: "Bob"}
}

func mustProcess(t *testing.T, e *Engine, cmd Command) Outcome {
	t.Helper()
	out, err := e.Process(context.Background(), cmd)
	require.NoError(t, err)
	return out
}

func point(id string, p scoring.Player) Command {
	return Command{Kind: CommandPoint, MatchID: id, Player: p, PointType: scoring.PointNormal}
}

func TestEngine_NewMatch(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, s)

	out := mustProcess(t, e, Command{Kind: CommandNew, Config: testConfig()})
	assert.Equal(t, "match-0001", out.MatchID)
	assert.Equal(t, int64(1), out.Seq)
	assert.Equal(t, scoring.BestOf3, out.State.Config.Format, "defaults are applied")
	assert.NotEmpty(t, out.Digest)
	assert.Equal(t, 1, e.LiveCount())

	rec, err := s.LoadMatch(context.Background(), "match-0001")
	require.NoError(t, err)
	assert.Equal(t, out.State, rec.State)
}

func TestEngine_NewMatch_InvalidConfig(t *testing.T) {
	e := newTestEngine(t, setupTestStore(t))

	_, err := e.Process(context.Background(), Command{Kind: CommandNew})
	assert.True(t, scoring.IsInvalidConfig(err))

	_, err = e.Process(context.Background(), Command{Kind: CommandNew, Config: &scoring.Config{Player1: "A"}})
	assert.True(t, scoring.IsInvalidConfig(err))
	assert.Zero(t, e.LiveCount())
}

func TestEngine_PointAndUndo(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, s)
	id := mustProcess(t, e, Command{Kind: CommandNew, Config: testConfig()}).MatchID

	out := mustProcess(t, e, Command{Kind: CommandPoint, MatchID: id, Player: scoring.Player2, PointType: scoring.PointAce})
	assert.Equal(t, scoring.Score{1, 0}, out.State.GamePoints, "ace is credited to the server")
	assert.Equal(t, scoring.Score{1, 0}, out.State.Stats.Aces)

	out = mustProcess(t, e, Command{Kind: CommandUndo, MatchID: id})
	assert.Equal(t, scoring.Score{0, 0}, out.State.GamePoints)
	assert.Empty(t, out.State.PointLog)
	assert.Equal(t, []scoring.NoticeKind{scoring.NoticeUndo}, kindsOf(out.Notices))

	_, err := e.Process(context.Background(), Command{Kind: CommandUndo, MatchID: id})
	assert.True(t, scoring.IsCannotUndo(err))

	rows, err := s.ReadPoints(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEngine_RejectedCommandDoesNotSave(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, s)
	first := mustProcess(t, e, Command{Kind: CommandNew, Config: testConfig()})

	_, err := e.Process(context.Background(), point(first.MatchID, scoring.Player(3)))
	require.Error(t, err)
	assert.Equal(t, scoring.ErrCodeInvalidPlayer, scoring.CodeOf(err))

	rec, err := s.LoadMatch(context.Background(), first.MatchID)
	require.NoError(t, err)
	assert.Equal(t, first.Digest, rec.Digest)
}

func TestEngine_UnknownMatch(t *testing.T) {
	e := newTestEngine(t, setupTestStore(t))

	for _, kind := range []CommandKind{CommandPoint, CommandUndo, CommandRetire, CommandSuspend, CommandShow, CommandDelete} {
		_, err := e.Process(context.Background(), Command{Kind: kind, MatchID: "nope", Player: scoring.Player1, PointType: scoring.PointNormal})
		assert.True(t, IsUnknownMatch(err), "kind %s", kind)
	}
}

func TestEngine_UnknownCommand(t *testing.T) {
	e := newTestEngine(t, setupTestStore(t))
	_, err := e.Process(context.Background(), Command{Kind: "serve"})

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeUnknownCommand, re.Code)
}

func TestEngine_ResumeFromStore(t *testing.T) {
	s := setupTestStore(t)
	e1 := newTestEngine(t, s)
	id := mustProcess(t, e1, Command{Kind: CommandNew, Config: testConfig()}).MatchID
	mustProcess(t, e1, point(id, scoring.Player1))
	mustProcess(t, e1, point(id, scoring.Player1))

	// A fresh engine has nothing cached and resumes from the store.
	e2 := newTestEngine(t, s)
	out := mustProcess(t, e2, point(id, scoring.Player1))
	assert.Equal(t, scoring.Score{3, 0}, out.State.GamePoints)
	assert.Len(t, out.State.PointLog, 3)

	mustProcess(t, e2, Command{Kind: CommandUndo, MatchID: id})
	_, err := e2.Process(context.Background(), Command{Kind: CommandUndo, MatchID: id})
	assert.True(t, scoring.IsCannotUndo(err), "undo does not reach past the resume point")
}

func TestEngine_FinishedMatchIsNotResumed(t *testing.T) {
	s := setupTestStore(t)
	e1 := newTestEngine(t, s)
	id := mustProcess(t, e1, Command{Kind: CommandNew, Config: testConfig()}).MatchID
	out := mustProcess(t, e1, Command{Kind: CommandRetire, MatchID: id, Player: scoring.Player1})
	assert.True(t, out.MatchOver)

	e2 := newTestEngine(t, s)
	_, err := e2.Process(context.Background(), point(id, scoring.Player1))
	assert.True(t, scoring.IsMatchOver(err))
	_, err = e2.Process(context.Background(), Command{Kind: CommandUndo, MatchID: id})
	assert.True(t, scoring.IsNotResumable(err))

	shown := mustProcess(t, e2, Command{Kind: CommandShow, MatchID: id})
	assert.True(t, shown.MatchOver)
	assert.Equal(t, scoring.Player2, shown.State.Winner)

	// The engine that finished the match can still undo it.
	undone := mustProcess(t, e1, Command{Kind: CommandUndo, MatchID: id})
	assert.True(t, undone.Reopened)
	assert.False(t, undone.MatchOver)
}

func TestEngine_Delete(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, s)
	id := mustProcess(t, e, Command{Kind: CommandNew, Config: testConfig()}).MatchID

	mustProcess(t, e, Command{Kind: CommandDelete, MatchID: id})
	assert.Zero(t, e.LiveCount())

	_, err := e.Process(context.Background(), Command{Kind: CommandShow, MatchID: id})
	assert.True(t, IsUnknownMatch(err))
}

func TestEngine_UpdateSink(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, setupTestStore(t), WithUpdateSink(sink))
	id := mustProcess(t, e, Command{Kind: CommandNew, Config: testConfig()}).MatchID

	for i := 0; i < 4; i++ {
		mustProcess(t, e, point(id, scoring.Player1))
	}
	mustProcess(t, e, Command{Kind: CommandShow, MatchID: id})
	_, err := e.Process(context.Background(), Command{Kind: CommandUndo, MatchID: "nope"})
	require.Error(t, err)
	last := mustProcess(t, e, Command{Kind: CommandSuspend, MatchID: id})

	// Only accepted mutations are published: new, show and the failed
	// undo are not.
	published := sink.published()
	require.Len(t, published, 5)
	for i, out := range published {
		assert.Equal(t, id, out.MatchID)
		if i > 0 {
			assert.Greater(t, out.Seq, published[i-1].Seq)
		}
	}
	assert.Equal(t, "1-0", published[3].State.GameScore())
	assert.Equal(t, last.Seq, published[4].Seq)
	assert.True(t, published[4].MatchOver)
	assert.Equal(t, []scoring.NoticeKind{scoring.NoticeChangeEnds, scoring.NoticeSuspended}, sink.kinds())
}

func TestEngine_RunAndSubmit(t *testing.T) {
	e := newTestEngine(t, setupTestStore(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	out, err := e.Submit(ctx, Command{Kind: CommandNew, Config: testConfig()})
	require.NoError(t, err)
	id := out.MatchID

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Submit(ctx, point(id, scoring.Player1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	shown, err := e.Submit(ctx, Command{Kind: CommandShow, MatchID: id})
	require.NoError(t, err)
	assert.Equal(t, scoring.Score{2, 0}, shown.State.CurrentGames())
	assert.Len(t, shown.State.PointLog, 8)
	assert.Equal(t, int64(10), shown.Seq)

	e.Stop()
	require.NoError(t, <-done)

	_, err = e.Submit(ctx, Command{Kind: CommandShow, MatchID: id})
	assert.True(t, IsEngineStopped(err))
}

func TestEngine_RunCancelled(t *testing.T) {
	e := newTestEngine(t, setupTestStore(t))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	_, err := e.Submit(context.Background(), Command{Kind: CommandShow, MatchID: "x"})
	assert.True(t, IsEngineStopped(err))
}

func TestEngine_SubmitContextTimeout(t *testing.T) {
	e := newTestEngine(t, setupTestStore(t))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// No Run loop is serving the queue.
	_, err := e.Submit(ctx, Command{Kind: CommandShow, MatchID: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func kindsOf(notices []scoring.Notice) []scoring.NoticeKind {
	out := make([]scoring.NoticeKind, len(notices))
	for i, n := range notices {
		out[i] = n.Kind
	}
	return out
}

func TestEngine_ReplayResume(t *testing.T) {
	s := setupTestStore(t)
	e1 := newTestEngine(t, s)
	id := mustProcess(t, e1, Command{Kind: CommandNew, Config: testConfig()}).MatchID
	for i := 0; i < 4; i++ {
		mustProcess(t, e1, point(id, scoring.Player1))
	}
	mustProcess(t, e1, point(id, scoring.Player2))

	// The point log is replayed, so undo reaches back past the restart.
	e2 := newTestEngine(t, s, WithReplayResume())
	out := mustProcess(t, e2, Command{Kind: CommandUndo, MatchID: id})
	require.Len(t, out.Notices, 1, "notices raised while replaying are not re-sent")
	assert.Equal(t, scoring.NoticeUndo, out.Notices[0].Kind)
	assert.Equal(t, scoring.Score{0, 0}, out.State.GamePoints)

	out = mustProcess(t, e2, Command{Kind: CommandUndo, MatchID: id})
	assert.Equal(t, scoring.Score{0, 0}, out.State.CurrentGames())
	assert.Equal(t, scoring.Score{3, 0}, out.State.GamePoints)
	assert.Len(t, out.State.PointLog, 3)
}

func TestEngine_ReplayResumeKeepsUndoDepth(t *testing.T) {
	s := setupTestStore(t)
	fresh := func() *Engine {
		return newTestEngine(t, s, WithReplayResume(), WithHistoryDepth(3))
	}
	ctx := context.Background()

	id := mustProcess(t, fresh(), Command{Kind: CommandNew, Config: testConfig()}).MatchID
	for i := 0; i < 5; i++ {
		mustProcess(t, fresh(), point(id, scoring.Player1))
	}

	// Each restart rebuilds the ledger only as deep as the live one was.
	for i := 0; i < 3; i++ {
		mustProcess(t, fresh(), Command{Kind: CommandUndo, MatchID: id})
	}
	_, err := fresh().Process(ctx, Command{Kind: CommandUndo, MatchID: id})
	assert.True(t, scoring.IsCannotUndo(err))

	out := mustProcess(t, fresh(), point(id, scoring.Player2))
	assert.Len(t, out.State.PointLog, 3)
	mustProcess(t, fresh(), Command{Kind: CommandUndo, MatchID: id})
	_, err = fresh().Process(ctx, Command{Kind: CommandUndo, MatchID: id})
	assert.True(t, scoring.IsCannotUndo(err))

	shown := mustProcess(t, fresh(), Command{Kind: CommandShow, MatchID: id})
	assert.Len(t, shown.State.PointLog, 2)
}

func TestEngine_ReplayResumeReopensFinishedMatch(t *testing.T) {
	s := setupTestStore(t)
	e1 := newTestEngine(t, s)
	id := mustProcess(t, e1, Command{Kind: CommandNew, Config: testConfig()}).MatchID
	mustProcess(t, e1, point(id, scoring.Player1))
	mustProcess(t, e1, Command{Kind: CommandRetire, MatchID: id, Player: scoring.Player2})

	e2 := newTestEngine(t, s, WithReplayResume())
	_, err := e2.Process(context.Background(), point(id, scoring.Player1))
	assert.True(t, scoring.IsMatchOver(err))

	out := mustProcess(t, e2, Command{Kind: CommandUndo, MatchID: id})
	assert.True(t, out.Reopened)
	assert.False(t, out.MatchOver)

	out = mustProcess(t, e2, point(id, scoring.Player1))
	assert.Equal(t, scoring.Score{2, 0}, out.State.GamePoints)
}

func TestEngine_ReplayResumeUnknownMatch(t *testing.T) {
	e := newTestEngine(t, setupTestStore(t), WithReplayResume())
	_, err := e.Process(context.Background(), point("nope", scoring.Player1))
	assert.True(t, IsUnknownMatch(err))
}
