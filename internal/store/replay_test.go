package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matchpoint/internal/ir"
	"github.com/roach88/matchpoint/internal/scoring"
	"github.com/roach88/matchpoint/internal/testutil"
)

func TestReplay_LiveMatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Two love games then a deuce game with advantages both ways.
	scorers := append(repeat(scoring.Player1, 4), repeat(scoring.Player2, 4)...)
	scorers = append(scorers,
		scoring.Player1, scoring.Player1, scoring.Player1,
		scoring.Player2, scoring.Player2, scoring.Player2,
		scoring.Player1, scoring.Player2, scoring.Player2,
	)
	m := playedMatch(t, scorers...)
	_, err := s.SaveMatch(ctx, "m1", m.State())
	require.NoError(t, err)

	res, err := s.Replay(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, res.Match())
	assert.Equal(t, len(scorers), res.Points)
	assert.Equal(t, res.StoredDigest, res.ReplayedDigest)
	assert.Empty(t, res.PointMismatch)
	assert.Equal(t, m.State(), res.State)
}

func TestReplay_FinishedMatches(t *testing.T) {
	tests := []struct {
		name   string
		finish func(*scoring.Match) error
	}{
		{"retired", func(m *scoring.Match) error { return m.Retire(scoring.Player1) }},
		{"suspended", func(m *scoring.Match) error { return m.Suspend() }},
		{"won", func(m *scoring.Match) error {
			for i := 0; i < 2*6*4; i++ {
				if _, err := m.ScorePoint(scoring.Player2, scoring.PointNormal); err != nil {
					return err
				}
			}
			return nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestStore(t)
			ctx := context.Background()
			m := playedMatch(t, scoring.Player1, scoring.Player1)
			require.NoError(t, tt.finish(m))
			require.True(t, m.State().MatchOver)

			_, err := s.SaveMatch(ctx, "m1", m.State())
			require.NoError(t, err)

			res, err := s.Replay(ctx, "m1")
			require.NoError(t, err)
			assert.True(t, res.Match())
			assert.Equal(t, m.State().EndTime, res.State.EndTime)
		})
	}
}

func TestReplay_DetectsTamperedDocument(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	m := playedMatch(t, scoring.Player1, scoring.Player2)

	state := m.State()
	state.Stats.Aces = scoring.Score{5, 0}
	_, err := s.SaveMatch(ctx, "m1", state)
	require.NoError(t, err)

	res, err := s.Replay(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, res.Match())
	assert.NotEqual(t, res.StoredDigest, res.ReplayedDigest)
}

func TestReplay_DetectsTamperedPoint(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, err := s.SaveMatch(ctx, "m1", playedMatch(t, scoring.Player1, scoring.Player2).State())
	require.NoError(t, err)

	_, err = s.DB().Exec(`UPDATE points SET id = ? WHERE match_id = 'm1' AND idx = 1`,
		ir.MustStateDigest([]byte(`{}`)))
	require.NoError(t, err)

	res, err := s.Replay(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, res.Match())
	assert.Equal(t, []int{1}, res.PointMismatch)
}

func TestReplay_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Replay(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplayClock(t *testing.T) {
	c := &replayClock{times: []int64{10, 20}}
	assert.Equal(t, int64(10), c.Now().UnixMilli())
	assert.Equal(t, int64(20), c.Now().UnixMilli())
	assert.Equal(t, int64(20), c.Now().UnixMilli(), "exhausted clock repeats the last instant")

	empty := &replayClock{}
	assert.Equal(t, int64(0), empty.Now().UnixMilli())
}

func TestRebuild_RestoresHistory(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	m := playedMatch(t, repeat(scoring.Player1, 5)...)
	_, err := s.SaveMatch(ctx, "m1", m.State())
	require.NoError(t, err)

	wall := testutil.NewFixedClock(testutil.DefaultStart.Add(time.Hour), time.Second)
	rebuilt, err := s.Rebuild(ctx, "m1", wall)
	require.NoError(t, err)
	assert.Equal(t, m.State(), rebuilt.State())
	assert.Equal(t, 5, rebuilt.HistoryLen())
	assert.Equal(t, 0, rebuilt.Notices().Len(), "replay notices are drained")

	_, err = rebuilt.ScorePoint(scoring.Player2, scoring.PointNormal)
	require.NoError(t, err)
	log := rebuilt.State().PointLog
	assert.Equal(t, testutil.DefaultStart.Add(time.Hour).UnixMilli(), log[len(log)-1].Timestamp,
		"new points are stamped by the wall clock")

	for i := 0; i < 6; i++ {
		_, err := rebuilt.Undo()
		require.NoError(t, err)
	}
	assert.Empty(t, rebuilt.State().PointLog)
}

func TestRebuild_TrimsToStoredUndoDepth(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	m := playedMatch(t, repeat(scoring.Player1, 5)...)
	_, err := s.SaveMatch(ctx, "m1", m.State(), WithUndoDepth(2))
	require.NoError(t, err)

	rec, err := s.LoadMatch(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, rec.UndoDepth)
	assert.Equal(t, 2, *rec.UndoDepth)

	rebuilt, err := s.Rebuild(ctx, "m1", nil)
	require.NoError(t, err)
	assert.Equal(t, m.State(), rebuilt.State())
	assert.Equal(t, 2, rebuilt.HistoryLen())

	for i := 0; i < 2; i++ {
		_, err := rebuilt.Undo()
		require.NoError(t, err)
	}
	_, err = rebuilt.Undo()
	assert.True(t, scoring.IsCannotUndo(err))
	assert.Len(t, rebuilt.State().PointLog, 3)

	// A save without a depth records it as unknown again.
	_, err = s.SaveMatch(ctx, "m1", m.State())
	require.NoError(t, err)
	rec, err = s.LoadMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, rec.UndoDepth)
}

func TestRebuild_NotFound(t *testing.T) {
	_, err := createTestStore(t).Rebuild(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplayClock_After(t *testing.T) {
	wall := testutil.NewFixedClock(time.UnixMilli(500), 0)
	c := &replayClock{times: []int64{10}, after: wall}
	assert.Equal(t, int64(10), c.Now().UnixMilli())
	assert.Equal(t, int64(500), c.Now().UnixMilli())
}
