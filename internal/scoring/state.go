package scoring

import (
	"fmt"
	"time"
)

// Score is a (player 1, player 2) pair of counters.
type Score [2]int

// Of returns the counter for p.
func (s Score) Of(p Player) int {
	return s[p.Index()]
}

// Total returns the sum of both counters.
func (s Score) Total() int {
	return s[0] + s[1]
}

func (s Score) String() string {
	return fmt.Sprintf("%d-%d", s[0], s[1])
}

// Stats holds per-player match statistics.
type Stats struct {
	Aces             Score `json:"aces"`
	DoubleFaults     Score `json:"doubleFaults"`
	UnforcedErrors   Score `json:"unforcedErrors"`
	BreakPointsWon   Score `json:"breakPointsWon"`
	BreakPointsFaced Score `json:"breakPointsFaced"`
	PointsWon        Score `json:"pointsWon"`
}

// PointRecord is one entry of the point log, captured before the point was applied.
type PointRecord struct {
	Set        int       `json:"set"` // 1-based
	GameScore  string    `json:"gameScore"`
	PointScore string    `json:"pointScore"`
	Server     Player    `json:"server"`
	Scorer     Player    `json:"scorer"`
	Type       PointType `json:"type"`
	IsTiebreak bool      `json:"isTiebreak"`
	Timestamp  int64     `json:"timestamp"` // Unix milliseconds
}

// State is the full representation of one match.
//
// Field order and JSON names define the persisted document. The history
// ledger is held by Match, so a State never contains it.
//
// INVARIANTS:
//   - len(SetScores) == CurrentSet+1 == len(TiebreakFinalScores)
//   - GamePoints[i] <= 3 outside a transition
//   - IsTiebreak implies GamePoints == [0,0] and Advantage == 0
//   - !IsTiebreak implies TiebreakPoints == [0,0]
type State struct {
	Config              Config        `json:"config"`
	Server              Player        `json:"server"`
	CurrentSet          int           `json:"currentSet"`
	SetScores           []Score       `json:"setScores"`
	SetsWon             Score         `json:"setsWon"`
	GamePoints          Score         `json:"gamePoints"`
	IsTiebreak          bool          `json:"isTiebreak"`
	TiebreakTarget      int           `json:"tiebreakTarget"`
	TiebreakFirstServer Player        `json:"tiebreakFirstServer"`
	TiebreakPoints      Score         `json:"tiebreakPoints"`
	Advantage           Player        `json:"advantage"`
	MatchOver           bool          `json:"matchOver"`
	Winner              Player        `json:"winner"`
	Retirement          Retirement    `json:"retirement"`
	Stats               Stats         `json:"stats"`
	TiebreakFinalScores []*Score      `json:"tiebreakFinalScores"`
	StartTime           int64         `json:"startTime"`
	EndTime             *int64        `json:"endTime"`
	PointLog            []PointRecord `json:"pointLog"`
}

// newState builds the zeroed state for a validated config.
func newState(cfg Config, start time.Time) State {
	return State{
		Config:              cfg,
		Server:              cfg.FirstServer,
		CurrentSet:          0,
		SetScores:           []Score{{0, 0}},
		TiebreakTarget:      7,
		TiebreakFirstServer: cfg.FirstServer,
		TiebreakFinalScores: []*Score{nil},
		StartTime:           start.UnixMilli(),
		PointLog:            []PointRecord{},
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	c := s.cloneWithoutLog()
	c.PointLog = make([]PointRecord, len(s.PointLog))
	copy(c.PointLog, s.PointLog)
	return c
}

// cloneWithoutLog deep-copies every field except the point log, which is left nil.
func (s State) cloneWithoutLog() State {
	c := s
	c.SetScores = make([]Score, len(s.SetScores))
	copy(c.SetScores, s.SetScores)
	c.TiebreakFinalScores = make([]*Score, len(s.TiebreakFinalScores))
	for i, tb := range s.TiebreakFinalScores {
		if tb != nil {
			v := *tb
			c.TiebreakFinalScores[i] = &v
		}
	}
	if s.EndTime != nil {
		v := *s.EndTime
		c.EndTime = &v
	}
	c.PointLog = nil
	return c
}

// CurrentGames returns the game score of the set in progress.
func (s *State) CurrentGames() Score {
	return s.SetScores[s.CurrentSet]
}

// Receiver returns the player receiving the current point.
func (s *State) Receiver() Player {
	return s.Server.Opponent()
}

// SetsNeeded returns the number of sets required to win the match.
func (s *State) SetsNeeded() int {
	return s.Config.Format.SetsNeeded()
}

// IsDecidingSet reports whether both players are one set from winning.
func (s *State) IsDecidingSet() bool {
	need := s.SetsNeeded() - 1
	return s.SetsWon[0] == need && s.SetsWon[1] == need
}

// Duration returns the elapsed match time. For a match in progress the
// elapsed time runs to now.
func (s *State) Duration(now time.Time) time.Duration {
	end := now.UnixMilli()
	if s.EndTime != nil {
		end = *s.EndTime
	}
	if end < s.StartTime {
		return 0
	}
	return time.Duration(end-s.StartTime) * time.Millisecond
}

// ValidateState checks a document against the State invariants. It is used
// before a persisted document is handed to Resume; the engine never sees a
// partially valid state.
func ValidateState(s *State) error {
	if err := s.Config.Validate(); err != nil {
		return NewInvalidStateError(fmt.Sprintf("config: %v", err))
	}
	if !s.Server.Valid() {
		return NewInvalidStateError(fmt.Sprintf("server must be 1 or 2, got %d", s.Server))
	}
	if !s.TiebreakFirstServer.Valid() {
		return NewInvalidStateError(fmt.Sprintf("tiebreakFirstServer must be 1 or 2, got %d", s.TiebreakFirstServer))
	}
	if s.CurrentSet < 0 || s.CurrentSet >= int(s.Config.Format) {
		return NewInvalidStateError(fmt.Sprintf("currentSet %d out of range for best of %d", s.CurrentSet, s.Config.Format))
	}
	if len(s.SetScores) != s.CurrentSet+1 {
		return NewInvalidStateError(fmt.Sprintf("setScores has %d entries, want %d", len(s.SetScores), s.CurrentSet+1))
	}
	if len(s.TiebreakFinalScores) != len(s.SetScores) {
		return NewInvalidStateError(fmt.Sprintf("tiebreakFinalScores has %d entries, want %d", len(s.TiebreakFinalScores), len(s.SetScores)))
	}
	for i, g := range s.SetScores {
		if g[0] < 0 || g[1] < 0 {
			return NewInvalidStateError(fmt.Sprintf("setScores[%d] has a negative count", i))
		}
	}
	need := s.SetsNeeded()
	if s.SetsWon[0] < 0 || s.SetsWon[1] < 0 || s.SetsWon[0] > need || s.SetsWon[1] > need {
		return NewInvalidStateError(fmt.Sprintf("setsWon %v out of range", s.SetsWon))
	}
	if !s.MatchOver && (s.SetsWon[0] == need || s.SetsWon[1] == need) {
		return NewInvalidStateError("a player holds the winning number of sets but the match is not over")
	}
	for _, p := range s.GamePoints {
		if p < 0 || p > 3 {
			return NewInvalidStateError(fmt.Sprintf("gamePoints %v out of range", s.GamePoints))
		}
	}
	if s.Advantage != PlayerNone && !s.Advantage.Valid() {
		return NewInvalidStateError(fmt.Sprintf("advantage must be 0, 1 or 2, got %d", s.Advantage))
	}
	if s.Advantage != PlayerNone && (s.GamePoints[0] < 3 || s.GamePoints[1] < 3) {
		return NewInvalidStateError("advantage held outside deuce")
	}
	if s.IsTiebreak {
		if s.GamePoints != (Score{}) || s.Advantage != PlayerNone {
			return NewInvalidStateError("game counters must be reset during a tiebreak")
		}
	} else if s.TiebreakPoints != (Score{}) {
		return NewInvalidStateError("tiebreak counters must be reset outside a tiebreak")
	}
	if s.TiebreakTarget != 7 && s.TiebreakTarget != 10 {
		return NewInvalidStateError(fmt.Sprintf("tiebreakTarget must be 7 or 10, got %d", s.TiebreakTarget))
	}
	if s.Winner != PlayerNone && !s.Winner.Valid() {
		return NewInvalidStateError(fmt.Sprintf("winner must be 0, 1 or 2, got %d", s.Winner))
	}
	if s.PointLog == nil {
		s.PointLog = []PointRecord{}
	}
	return nil
}
