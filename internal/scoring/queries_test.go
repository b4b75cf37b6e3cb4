package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBreakPoint(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*State)
		want   bool
	}{
		{"love all", nil, false},
		{"0-40", func(s *State) { s.GamePoints = Score{0, 3} }, true},
		{"30-40", func(s *State) { s.GamePoints = Score{2, 3} }, true},
		{"40-0", func(s *State) { s.GamePoints = Score{3, 0} }, false},
		{"deuce", func(s *State) { s.GamePoints = Score{3, 3} }, false},
		{"advantage receiver", func(s *State) { s.GamePoints = Score{3, 3}; s.Advantage = Player2 }, true},
		{"advantage server", func(s *State) { s.GamePoints = Score{3, 3}; s.Advantage = Player1 }, false},
		{"no-ad deuce", func(s *State) { s.GamePoints = Score{3, 3}; s.Config.DeuceType = DeuceNoAd }, true},
		{"player 2 serving at 40-0", func(s *State) { s.Server = Player2; s.GamePoints = Score{3, 0} }, true},
		{"tiebreak", func(s *State) { s.IsTiebreak = true; s.TiebreakPoints = Score{0, 6} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stateWith(tt.mutate).IsBreakPoint())
		})
	}
}

func TestCountPointOpportunities(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*State)
		p1, p2 int
	}{
		{"love all", nil, 0, 0},
		{"40-0", func(s *State) { s.GamePoints = Score{3, 0} }, 3, 0},
		{"40-30", func(s *State) { s.GamePoints = Score{3, 2} }, 1, 0},
		{"15-40", func(s *State) { s.GamePoints = Score{1, 3} }, 0, 2},
		{"deuce", func(s *State) { s.GamePoints = Score{3, 3} }, 0, 0},
		{"advantage player 1", func(s *State) { s.GamePoints = Score{3, 3}; s.Advantage = Player1 }, 1, 0},
		{"no-ad deuce", func(s *State) { s.GamePoints = Score{3, 3}; s.Config.DeuceType = DeuceNoAd }, 1, 1},
		{"tiebreak 6-4", func(s *State) { s.IsTiebreak = true; s.TiebreakPoints = Score{6, 4} }, 2, 0},
		{"tiebreak 5-4", func(s *State) { s.IsTiebreak = true; s.TiebreakPoints = Score{5, 4} }, 0, 0},
		{"tiebreak 6-6", func(s *State) { s.IsTiebreak = true; s.TiebreakPoints = Score{6, 6} }, 0, 0},
		{"tiebreak 8-9", func(s *State) { s.IsTiebreak = true; s.TiebreakPoints = Score{8, 9} }, 0, 1},
		{"super tiebreak 9-6", func(s *State) {
			s.IsTiebreak = true
			s.TiebreakTarget = 10
			s.TiebreakPoints = Score{9, 6}
		}, 3, 0},
		{"super tiebreak 7-2", func(s *State) {
			s.IsTiebreak = true
			s.TiebreakTarget = 10
			s.TiebreakPoints = Score{7, 2}
		}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := stateWith(tt.mutate)
			assert.Equal(t, tt.p1, s.CountPointOpportunities(Player1))
			assert.Equal(t, tt.p2, s.CountPointOpportunities(Player2))
			assert.Equal(t, tt.p1 > 0, s.IsAboutToWinGame(Player1))
			assert.Equal(t, tt.p2 > 0, s.IsAboutToWinGame(Player2))
		})
	}
}

func TestWouldWinSet(t *testing.T) {
	tests := []struct {
		name  string
		games Score
		tb    bool
		want  bool
	}{
		{"5-3", Score{5, 3}, false, true},
		{"5-4", Score{5, 4}, false, true},
		{"5-5", Score{5, 5}, false, false},
		{"6-5", Score{6, 5}, false, true},
		{"4-0", Score{4, 0}, false, false},
		{"tiebreak", Score{6, 6}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := stateWith(func(s *State) {
				s.SetScores[0] = tt.games
				s.IsTiebreak = tt.tb
			})
			assert.Equal(t, tt.want, s.WouldWinSet(Player1))
		})
	}
}

func TestPointDisplay(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*State)
		p1, p2 string
		score  string
	}{
		{"love all", nil, "0", "0", "0-0"},
		{"15-30", func(s *State) { s.GamePoints = Score{1, 2} }, "15", "30", "15-30"},
		{"40-15", func(s *State) { s.GamePoints = Score{3, 1} }, "40", "15", "40-15"},
		{"deuce", func(s *State) { s.GamePoints = Score{3, 3} }, "40", "40", "40-40"},
		{"advantage player 2", func(s *State) { s.GamePoints = Score{3, 3}; s.Advantage = Player2 }, "-", "AD", "40-AD"},
		{"tiebreak", func(s *State) { s.IsTiebreak = true; s.TiebreakPoints = Score{5, 3} }, "5", "3", "5-3"},
		{"match over", func(s *State) { s.MatchOver = true; s.GamePoints = Score{2, 0} }, "-", "-", "---"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := stateWith(tt.mutate)
			assert.Equal(t, tt.p1, s.PointDisplay(Player1))
			assert.Equal(t, tt.p2, s.PointDisplay(Player2))
			assert.Equal(t, tt.score, s.PointScore())
		})
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*State)
		want   Status
	}{
		{"nothing pending", nil, Status{Kind: StatusNone}},
		{"game point", func(s *State) { s.GamePoints = Score{3, 1} }, Status{Kind: StatusGamePoint, Player: Player1, Count: 2, Priority: 1}},
		{"break points", func(s *State) { s.GamePoints = Score{0, 3} }, Status{Kind: StatusBreakPoint, Player: Player2, Count: 3, Priority: 2}},
		{"set point", func(s *State) {
			s.SetScores[0] = Score{5, 3}
			s.GamePoints = Score{3, 0}
		}, Status{Kind: StatusSetPoint, Player: Player1, Count: 3, Priority: 3}},
		{"match point outranks game point", func(s *State) {
			s.CurrentSet = 1
			s.SetScores = []Score{{6, 0}, {5, 1}}
			s.TiebreakFinalScores = []*Score{nil, nil}
			s.SetsWon = Score{1, 0}
			s.GamePoints = Score{3, 0}
		}, Status{Kind: StatusMatchPoint, Player: Player1, Count: 3, Priority: 4}},
		{"no-ad deuce prefers the break point", func(s *State) {
			s.Config.DeuceType = DeuceNoAd
			s.GamePoints = Score{3, 3}
		}, Status{Kind: StatusBreakPoint, Player: Player2, Count: 1, Priority: 2}},
		{"tiebreak set point", func(s *State) {
			s.SetScores[0] = Score{6, 6}
			s.IsTiebreak = true
			s.TiebreakPoints = Score{4, 6}
		}, Status{Kind: StatusSetPoint, Player: Player2, Count: 2, Priority: 3}},
		{"match over", func(s *State) {
			s.MatchOver = true
			s.GamePoints = Score{3, 0}
		}, Status{Kind: StatusNone}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stateWith(tt.mutate).Status())
		})
	}
}

// Best of 3 with one set won, or best of 5 with two: the leading player
// serving at 40-0 holds three match points.
func TestStatus_MatchPointFromPlay(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		sets   int
	}{
		{"best of 3", BestOf3, 1},
		{"best of 5", BestOf5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMatch(t, bestOf(tt.format))
			winGames(t, m, Player1, 6*tt.sets)
			winGames(t, m, Player1, 5)
			winGames(t, m, Player2, 1)
			scoreN(t, m, Player1, 3)

			s := m.State()
			require.Equal(t, Player1, s.Server)
			require.Equal(t, Score{5, 1}, s.CurrentGames())
			assert.Equal(t, 3, s.CountPointOpportunities(Player1))
			assert.True(t, s.IsMatchPoint())
			assert.True(t, s.IsSetPoint())
			assert.True(t, s.IsGamePoint())
			assert.Equal(t, Status{Kind: StatusMatchPoint, Player: Player1, Count: 3, Priority: 4}, s.Status())
		})
	}
}

func TestIsSetPoint_Tiebreak(t *testing.T) {
	s := stateWith(func(s *State) {
		s.SetScores[0] = Score{6, 6}
		s.IsTiebreak = true
		s.TiebreakPoints = Score{6, 5}
	})
	assert.True(t, s.IsSetPoint())
	assert.False(t, s.IsGamePoint(), "game point is an ordinary-game notion")
	assert.False(t, s.IsMatchPoint())
}
