package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/matchpoint/internal/scoring"
	"github.com/roach88/matchpoint/internal/testutil"
)

// createTestStore opens a store in a temporary directory, closed on cleanup.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// playedMatch returns a match in which the given scorers each won one point.
func playedMatch(t *testing.T, scorers ...scoring.Player) *scoring.Match {
	t.Helper()
	cfg := scoring.Config{Umpire: "Ref", Player1: "Alice", Player2: "Bob"}.WithDefaults()
	m, err := scoring.New(cfg, scoring.WithClock(testutil.NewFixedClock(time.Time{}, time.Second)))
	require.NoError(t, err)
	for _, p := range scorers {
		_, err := m.ScorePoint(p, scoring.PointNormal)
		require.NoError(t, err)
	}
	return m
}

func repeat(p scoring.Player, n int) []scoring.Player {
	out := make([]scoring.Player, n)
	for i := range out {
		out[i] = p
	}
	return out
}
