package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matchpoint/internal/scoring"
	"github.com/roach88/matchpoint/internal/testutil"
)

func newMatch(t *testing.T) *scoring.Match {
	t.Helper()
	cfg := scoring.Config{Umpire: "Ref", Player1: "Alice", Player2: "Bob"}.WithDefaults()
	m, err := scoring.New(cfg, scoring.WithClock(testutil.NewFixedClock(time.Time{}, 30*time.Second)))
	require.NoError(t, err)
	return m
}

func score(t *testing.T, m *scoring.Match, p scoring.Player, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := m.ScorePoint(p, scoring.PointNormal)
		require.NoError(t, err)
	}
}

func tb(a, b int) *scoring.Score {
	return &scoring.Score{a, b}
}

func TestSetLine(t *testing.T) {
	tests := []struct {
		name string
		sets []scoring.Score
		tbs  []*scoring.Score
		want string
	}{
		{"fresh", []scoring.Score{{0, 0}}, []*scoring.Score{nil}, "0-0"},
		{"in progress", []scoring.Score{{6, 4}, {3, 2}}, []*scoring.Score{nil, nil}, "6-4 3-2"},
		{"tiebreak won by player 1", []scoring.Score{{7, 6}}, []*scoring.Score{tb(7, 5)}, "7-6(5)"},
		{"tiebreak won by player 2", []scoring.Score{{6, 7}, {0, 0}}, []*scoring.Score{tb(10, 12), nil}, "6(10)-7 0-0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &scoring.State{SetScores: tt.sets, TiebreakFinalScores: tt.tbs}
			assert.Equal(t, tt.want, SetLine(s))
		})
	}
}

func TestBanner(t *testing.T) {
	m := newMatch(t)
	s := m.State()
	assert.Empty(t, Banner(&s))

	score(t, m, scoring.Player2, 3)
	s = m.State()
	assert.Equal(t, "3 Break Points — Bob", Banner(&s))

	score(t, m, scoring.Player1, 3)
	score(t, m, scoring.Player1, 1)
	s = m.State()
	assert.Equal(t, "Game Point — Alice", Banner(&s))
}

func TestNoticeText(t *testing.T) {
	cfg := scoring.Config{Player1: "Alice", Player2: "Bob"}
	sc := scoring.Score{6, 4}
	tests := []struct {
		notice scoring.Notice
		want   string
	}{
		{scoring.Notice{Kind: scoring.NoticeChangeEnds}, "Change Ends"},
		{scoring.Notice{Kind: scoring.NoticeGame, Player: scoring.Player1}, "Game Alice"},
		{scoring.Notice{Kind: scoring.NoticeBreak, Player: scoring.Player2}, "Break! Bob"},
		{scoring.Notice{Kind: scoring.NoticeTiebreakStarted, Target: 10}, "Tiebreak to 10"},
		{scoring.Notice{Kind: scoring.NoticeSetWon, Player: scoring.Player1, Score: &sc}, "Set Alice 6-4"},
		{scoring.Notice{Kind: scoring.NoticeMatchWon, Player: scoring.Player2}, "Bob wins!"},
		{scoring.Notice{Kind: scoring.NoticeRetired, Player: scoring.Player1}, "Alice retired"},
		{scoring.Notice{Kind: scoring.NoticeSuspended}, "Match suspended"},
		{scoring.Notice{Kind: scoring.NoticeUndo}, "Undo"},
	}

	for _, tt := range tests {
		t.Run(string(tt.notice.Kind), func(t *testing.T) {
			assert.Equal(t, tt.want, NoticeText(cfg, tt.notice))
		})
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0m"},
		{59 * time.Second, "0m"},
		{42*time.Minute + 30*time.Second, "42m"},
		{time.Hour, "1h 0m"},
		{65 * time.Minute, "1h 5m"},
		{3*time.Hour + 12*time.Minute, "3h 12m"},
		{-time.Minute, "0m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Duration(tt.d), tt.d.String())
	}
}

func TestResult(t *testing.T) {
	m := newMatch(t)
	s := m.State()
	assert.Empty(t, Result(&s))

	require.NoError(t, m.Retire(scoring.Player1))
	s = m.State()
	assert.Equal(t, "Bob wins (Alice retired)", Result(&s))

	_, err := m.Undo()
	require.NoError(t, err)
	require.NoError(t, m.Suspend())
	s = m.State()
	assert.Equal(t, "Match suspended", Result(&s))

	_, err = m.Undo()
	require.NoError(t, err)
	score(t, m, scoring.Player1, 2*6*4)
	s = m.State()
	assert.Equal(t, "Alice wins 2-0", Result(&s))
}

func TestScoreboard(t *testing.T) {
	m := newMatch(t)
	score(t, m, scoring.Player1, 4)
	score(t, m, scoring.Player2, 2)
	s := m.State()

	want := "  Alice  1     0\n" +
		"* Bob    0     30\n"
	assert.Equal(t, want, Scoreboard(&s))
}

func TestStatsTable(t *testing.T) {
	s := &scoring.State{Stats: scoring.Stats{
		Aces:             scoring.Score{3, 1},
		BreakPointsWon:   scoring.Score{2, 0},
		BreakPointsFaced: scoring.Score{1, 5},
		PointsWon:        scoring.Score{40, 31},
	}}
	rows := StatsTable(s)
	require.Len(t, rows, 5)
	assert.Equal(t, StatRow{"Aces", "3", "1"}, rows[0])
	assert.Equal(t, StatRow{"Break Points Won", "2/5", "0/1"}, rows[3])
	assert.Equal(t, StatRow{"Total Points", "40", "31"}, rows[4])
}

func TestPointTempo(t *testing.T) {
	s := &scoring.State{}
	_, ok := PointTempo(s)
	assert.False(t, ok)

	s.PointLog = []scoring.PointRecord{{Timestamp: 0}, {Timestamp: 20_000}, {Timestamp: 30_000}, {Timestamp: 90_000}}
	tempo, ok := PointTempo(s)
	require.True(t, ok)
	assert.Equal(t, 4, tempo.Points)
	assert.Equal(t, 30*time.Second, tempo.Mean)
	assert.Equal(t, 20*time.Second, tempo.Median)
	assert.Equal(t, time.Minute, tempo.Max)
}

func TestWriteSummary(t *testing.T) {
	m := newMatch(t)
	score(t, m, scoring.Player1, 4)
	require.NoError(t, m.Retire(scoring.Player2))
	s := m.State()

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, &s, testutil.DefaultStart))
	out := buf.String()

	assert.Contains(t, out, "Alice vs Bob")
	assert.Contains(t, out, "Alice wins (Bob retired)")
	assert.Contains(t, out, "Sets:")
	assert.Contains(t, out, "1-0")
	assert.Contains(t, out, "Duration:")
	assert.Contains(t, out, "Umpire:")
	assert.Contains(t, out, "Break Points Won")
	assert.Contains(t, out, "mean 30s")
	assert.NotContains(t, out, "Game:")
}
