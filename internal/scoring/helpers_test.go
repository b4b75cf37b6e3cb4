package scoring

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/matchpoint/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(mutate ...func(*Config)) Config {
	cfg := Config{Umpire: "Ref", Player1: "Alice", Player2: "Bob"}.WithDefaults()
	for _, f := range mutate {
		f(&cfg)
	}
	return cfg
}

func newTestMatch(t *testing.T, mutate ...func(*Config)) *Match {
	t.Helper()
	m, err := New(testConfig(mutate...),
		WithClock(testutil.NewFixedClock(time.Time{}, time.Second)),
		WithLogger(discardLogger()),
	)
	require.NoError(t, err)
	return m
}

func noAd(c *Config) { c.DeuceType = DeuceNoAd }

func bestOf(f Format) func(*Config) {
	return func(c *Config) { c.Format = f }
}

func finalSet(r FinalSetRule) func(*Config) {
	return func(c *Config) { c.FinalSetType = r }
}

func scoreN(t *testing.T, m *Match, p Player, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := m.ScorePoint(p, PointNormal)
		require.NoError(t, err)
	}
}

// winGames wins n games for p, each from love.
func winGames(t *testing.T, m *Match, p Player, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		scoreN(t, m, p, 4)
	}
}

// reachSixAll alternates game wins from 0-0 until the set stands at 6-6.
func reachSixAll(t *testing.T, m *Match) {
	t.Helper()
	for i := 0; i < 6; i++ {
		winGames(t, m, Player1, 1)
		winGames(t, m, Player2, 1)
	}
}

// stateWith returns a fresh best-of-3 state adjusted by mutate.
func stateWith(mutate func(*State)) *State {
	s := newState(testConfig(), testutil.DefaultStart)
	if mutate != nil {
		mutate(&s)
	}
	return &s
}

func kinds(notices []Notice) []NoticeKind {
	out := make([]NoticeKind, len(notices))
	for i, n := range notices {
		out[i] = n.Kind
	}
	return out
}
