package scoring

import "strconv"

// Derived-state queries. Every function here is a pure read of State and is
// recomputed on each call.

var pointLadder = [4]string{"0", "15", "30", "40"}

// inDeuce reports whether both players have reached 40.
func (s *State) inDeuce() bool {
	return s.GamePoints[0] >= 3 && s.GamePoints[1] >= 3
}

// IsBreakPoint reports whether the receiver wins the game by winning the
// next point. Always false inside a tiebreak.
func (s *State) IsBreakPoint() bool {
	if s.IsTiebreak {
		return false
	}
	recv := s.Receiver()
	if s.GamePoints.Of(recv) >= 3 && s.GamePoints.Of(s.Server) < 3 {
		return true
	}
	if s.inDeuce() && s.Advantage == recv {
		return true
	}
	// Under no-ad every deuce point decides the game.
	return s.Config.DeuceType == DeuceNoAd && s.inDeuce()
}

// IsAboutToWinGame reports whether p wins the current game by winning the
// next point.
func (s *State) IsAboutToWinGame(p Player) bool {
	if !p.Valid() {
		return false
	}
	mine, theirs := s.pointsFor(p)
	if s.IsTiebreak {
		return mine >= s.TiebreakTarget-1 && mine > theirs
	}
	if mine >= 3 && theirs < 3 {
		return true
	}
	if s.inDeuce() && s.Advantage == p {
		return true
	}
	return s.Config.DeuceType == DeuceNoAd && s.inDeuce()
}

// CountPointOpportunities returns how many consecutive points p could lose
// and still close out the game: 3 at 40-0, 1 with advantage, the lead in a
// tiebreak once p is within one point of the target.
func (s *State) CountPointOpportunities(p Player) int {
	if !p.Valid() {
		return 0
	}
	mine, theirs := s.pointsFor(p)
	if s.IsTiebreak {
		if mine >= s.TiebreakTarget-1 && mine > theirs {
			return mine - theirs
		}
		return 0
	}
	if mine >= 3 && theirs >= 3 {
		if s.Advantage == p {
			return 1
		}
		if s.Config.DeuceType == DeuceNoAd && s.Advantage == PlayerNone {
			return 1
		}
		return 0
	}
	if mine >= 3 {
		return 3 - theirs
	}
	return 0
}

// WouldWinSet reports whether winning the current game also wins the set
// for p. A tiebreak game always decides the set.
func (s *State) WouldWinSet(p Player) bool {
	if !p.Valid() {
		return false
	}
	if s.IsTiebreak {
		return true
	}
	g := s.CurrentGames()
	mine, theirs := g.Of(p)+1, g.Of(p.Opponent())
	return mine >= 6 && mine-theirs >= 2
}

// WouldWinMatch reports whether winning the current game also wins the
// match for p.
func (s *State) WouldWinMatch(p Player) bool {
	return s.WouldWinSet(p) && s.SetsWon.Of(p) == s.SetsNeeded()-1
}

// IsGamePoint reports whether the server wins the game by winning the next
// point. Always false inside a tiebreak.
func (s *State) IsGamePoint() bool {
	if s.IsTiebreak {
		return false
	}
	recv := s.Receiver()
	if s.GamePoints.Of(s.Server) >= 3 && s.GamePoints.Of(recv) < 3 {
		return true
	}
	return s.inDeuce() && s.Advantage == s.Server
}

// IsSetPoint reports whether either player would win the set by winning the
// next point.
func (s *State) IsSetPoint() bool {
	g := s.CurrentGames()
	for _, p := range []Player{Player1, Player2} {
		if g.Of(p) >= 5 && g.Of(p) > g.Of(p.Opponent()) && s.IsAboutToWinGame(p) {
			return true
		}
		if s.IsTiebreak {
			mine, theirs := s.TiebreakPoints.Of(p), s.TiebreakPoints.Of(p.Opponent())
			if mine >= s.TiebreakTarget-1 && mine > theirs {
				return true
			}
		}
	}
	return false
}

// IsMatchPoint reports whether the next point can end the match.
func (s *State) IsMatchPoint() bool {
	if s.MatchOver {
		return false
	}
	for _, p := range []Player{Player1, Player2} {
		if s.IsAboutToWinGame(p) && s.WouldWinMatch(p) {
			return true
		}
	}
	return false
}

// PointDisplay returns the scoreboard point label for p: 0, 15, 30, 40, AD
// or "-" for the player facing advantage. Tiebreak points are shown as
// digits, and a finished match shows "-".
func (s *State) PointDisplay(p Player) string {
	if s.MatchOver || !p.Valid() {
		return "-"
	}
	if s.IsTiebreak {
		return strconv.Itoa(s.TiebreakPoints.Of(p))
	}
	mine, theirs := s.pointsFor(p)
	if mine >= 3 && theirs >= 3 {
		switch s.Advantage {
		case PlayerNone:
			return "40"
		case p:
			return "AD"
		default:
			return "-"
		}
	}
	if mine > 3 {
		mine = 3
	}
	return pointLadder[mine]
}

// PointScore returns the point score as it is written into the point log,
// e.g. "15-30", "AD-40" or "3-2" in a tiebreak.
func (s *State) PointScore() string {
	if s.IsTiebreak {
		return s.TiebreakPoints.String()
	}
	if s.inDeuce() && s.Advantage != PlayerNone && !s.MatchOver {
		if s.Advantage == Player1 {
			return "AD-40"
		}
		return "40-AD"
	}
	return s.PointDisplay(Player1) + "-" + s.PointDisplay(Player2)
}

// GameScore returns the game score of the current set, e.g. "3-2".
func (s *State) GameScore() string {
	return s.CurrentGames().String()
}

// StatusKind labels the most important pending opportunity.
type StatusKind string

const (
	StatusNone       StatusKind = "none"
	StatusGamePoint  StatusKind = "game_point"
	StatusBreakPoint StatusKind = "break_point"
	StatusSetPoint   StatusKind = "set_point"
	StatusMatchPoint StatusKind = "match_point"
)

// Status describes the opportunity a scoreboard banner should show.
type Status struct {
	Kind     StatusKind `json:"kind"`
	Player   Player     `json:"player,omitempty"`
	Count    int        `json:"count,omitempty"`
	Priority int        `json:"priority"`
}

// Status selects the highest-priority opportunity across both players:
// match point (4), set point (3), break point (2, receiver only), game
// point (1). Player 1 is evaluated first and keeps ties.
func (s *State) Status() Status {
	best := Status{Kind: StatusNone}
	if s.MatchOver {
		return best
	}
	for _, p := range []Player{Player1, Player2} {
		if !s.IsAboutToWinGame(p) {
			continue
		}
		count := s.CountPointOpportunities(p)
		if count == 0 {
			continue
		}
		cur := Status{Player: p, Count: count}
		switch {
		case s.WouldWinMatch(p):
			cur.Kind, cur.Priority = StatusMatchPoint, 4
		case s.WouldWinSet(p):
			cur.Kind, cur.Priority = StatusSetPoint, 3
		case s.Server != p:
			cur.Kind, cur.Priority = StatusBreakPoint, 2
		default:
			cur.Kind, cur.Priority = StatusGamePoint, 1
		}
		if cur.Priority > best.Priority {
			best = cur
		}
	}
	return best
}

// pointsFor returns (p's points, opponent's points) in the active game or
// tiebreak.
func (s *State) pointsFor(p Player) (int, int) {
	if s.IsTiebreak {
		return s.TiebreakPoints.Of(p), s.TiebreakPoints.Of(p.Opponent())
	}
	return s.GamePoints.Of(p), s.GamePoints.Of(p.Opponent())
}
