package scoring

import (
	"log/slog"
	"time"
)

// Clock supplies wall time for startTime, endTime and point timestamps.
// Implemented by the system clock (production) and testutil.FixedClock (tests).
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Result is returned by ScorePoint.
type Result struct {
	MatchOver bool `json:"matchOver"`
}

// UndoResult is returned by Undo.
type UndoResult struct {
	// Reopened is true when the undone call had finished the match. Callers
	// must reverse any completion side effects (timers, summary screens).
	Reopened bool `json:"reopened"`
}

// Match is the scoring state machine for one match.
//
// CRITICAL: Match is not safe for concurrent use. Every method runs to
// completion before the next may begin; callers sharing a Match across
// goroutines serialise access externally.
//
// INVARIANTS:
//   - a rejected call leaves State untouched
//   - every accepted mutating call pushes exactly one ledger snapshot
//   - Undo pops exactly one snapshot and at most one point-log entry
type Match struct {
	state   State
	ledger  *Ledger
	notices *NoticeQueue
	clock   Clock
	logger  *slog.Logger
}

// Option configures a Match.
type Option func(*Match)

// WithClock sets the wall clock used for timestamps.
func WithClock(c Clock) Option {
	return func(m *Match) {
		m.clock = c
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Match) {
		m.logger = l
	}
}

// WithHistoryDepth sets the undo ledger capacity.
//
// Default: 50 snapshots (DefaultHistoryDepth).
func WithHistoryDepth(depth int) Option {
	return func(m *Match) {
		m.ledger = NewLedger(depth)
	}
}

// WithNoticeQueue routes notices into q instead of a private queue.
func WithNoticeQueue(q *NoticeQueue) Option {
	return func(m *Match) {
		m.notices = q
	}
}

func newMatch(opts []Option) *Match {
	m := &Match{
		clock:  systemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.ledger == nil {
		m.ledger = NewLedger(DefaultHistoryDepth)
	}
	if m.notices == nil {
		m.notices = NewNoticeQueue(DefaultNoticeCapacity)
	}
	return m
}

// New validates cfg and starts a match with all counters at zero.
// The config is used as given; call Config.WithDefaults first to fill unset fields.
func New(cfg Config, opts ...Option) (*Match, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := newMatch(opts)
	m.state = newState(cfg, m.clock.Now())
	m.logger.Debug("match started",
		"player1", cfg.Player1,
		"player2", cfg.Player2,
		"format", int(cfg.Format),
		"first_server", cfg.FirstServer.String(),
	)
	return m, nil
}

// Resume rebuilds a Match from a persisted document. The ledger starts empty,
// so the restored match cannot undo past this point.
//
// Returns a NOT_RESUMABLE error for a finished match and an INVALID_STATE
// error for a document that breaks a State invariant.
func Resume(state State, opts ...Option) (*Match, error) {
	if state.MatchOver {
		return nil, NewNotResumableError()
	}
	s := state.Clone()
	if err := ValidateState(&s); err != nil {
		return nil, err
	}
	m := newMatch(opts)
	m.state = s
	m.logger.Debug("match resumed", "points", len(s.PointLog))
	return m, nil
}

// State returns a deep copy of the current state.
func (m *Match) State() State {
	return m.state.Clone()
}

// Notices returns the outbound notice queue.
func (m *Match) Notices() *NoticeQueue {
	return m.notices
}

// HistoryLen returns the number of undoable calls.
func (m *Match) HistoryLen() int {
	return m.ledger.Len()
}

// TrimHistory forgets all but the n most recent undoable calls.
func (m *Match) TrimHistory(n int) {
	m.ledger.Trim(n)
}

// ScoreTyped credits a point recorded against player by type: an ace goes to
// the server, a double fault to the receiver, and normal points or unforced
// errors to player.
func (m *Match) ScoreTyped(player Player, t PointType) (Result, error) {
	if m.state.MatchOver {
		return Result{MatchOver: true}, NewMatchOverError("score point")
	}
	if !t.Valid() {
		return Result{}, NewInvalidPointTypeError(t)
	}
	scorer := player
	switch t {
	case PointAce:
		scorer = m.state.Server
	case PointDoubleFault:
		scorer = m.state.Receiver()
	}
	return m.ScorePoint(scorer, t)
}

// ScorePoint credits one point of type t to scorer.
//
// Preconditions are checked before any mutation: the match must be live,
// scorer must be 1 or 2 and t a known point type.
func (m *Match) ScorePoint(scorer Player, t PointType) (Result, error) {
	if m.state.MatchOver {
		return Result{MatchOver: true}, NewMatchOverError("score point")
	}
	if !scorer.Valid() {
		return Result{}, NewInvalidPlayerError(int(scorer))
	}
	if !t.Valid() {
		return Result{}, NewInvalidPointTypeError(t)
	}

	m.ledger.Push(Snapshot{State: m.state.cloneWithoutLog(), LoggedPoint: true})

	s := &m.state
	server := s.Server
	receiver := s.Receiver()

	s.Stats.PointsWon[scorer.Index()]++
	switch t {
	case PointAce:
		s.Stats.Aces[server.Index()]++
	case PointDoubleFault:
		s.Stats.DoubleFaults[server.Index()]++
	case PointUnforcedError:
		s.Stats.UnforcedErrors[scorer.Opponent().Index()]++
	}

	// Break points are counted once per point, from the pre-point score.
	if !s.IsTiebreak && s.IsBreakPoint() {
		s.Stats.BreakPointsFaced[server.Index()]++
		if scorer == receiver {
			s.Stats.BreakPointsWon[receiver.Index()]++
		}
	}

	s.PointLog = append(s.PointLog, PointRecord{
		Set:        s.CurrentSet + 1,
		GameScore:  s.GameScore(),
		PointScore: s.PointScore(),
		Server:     server,
		Scorer:     scorer,
		Type:       t,
		IsTiebreak: s.IsTiebreak,
		Timestamp:  m.clock.Now().UnixMilli(),
	})

	if s.IsTiebreak {
		m.scoreTiebreakPoint(scorer)
	} else {
		m.scoreGamePoint(scorer)
	}

	m.logger.Debug("point scored",
		"scorer", scorer.String(),
		"type", string(t),
		"set", s.CurrentSet+1,
		"games", s.GameScore(),
		"points", s.PointScore(),
		"match_over", s.MatchOver,
	)
	return Result{MatchOver: s.MatchOver}, nil
}

// Undo restores the state captured before the most recent mutating call.
//
// Returns a CANNOT_UNDO error, leaving the state unchanged, when the ledger
// is empty.
func (m *Match) Undo() (UndoResult, error) {
	snap, ok := m.ledger.Pop()
	if !ok {
		return UndoResult{}, NewCannotUndoError()
	}

	wasOver := m.state.MatchOver
	log := m.state.PointLog
	if snap.LoggedPoint && len(log) > 0 {
		log[len(log)-1] = PointRecord{}
		log = log[:len(log)-1]
	}
	restored := snap.State
	restored.PointLog = log
	m.state = restored

	res := UndoResult{Reopened: wasOver && !m.state.MatchOver}
	m.notify(Notice{Kind: NoticeUndo, Severity: SeverityNormal})
	m.logger.Debug("undo",
		"points", len(m.state.PointLog),
		"history", m.ledger.Len(),
		"reopened", res.Reopened,
	)
	return res, nil
}

// Retire ends the match with p withdrawing. The opponent is recorded as the
// winner and every score counter is left as it was. Retire can be undone.
func (m *Match) Retire(p Player) error {
	if m.state.MatchOver {
		return NewMatchOverError("retire")
	}
	if !p.Valid() {
		return NewInvalidPlayerError(int(p))
	}
	m.ledger.Push(Snapshot{State: m.state.cloneWithoutLog()})

	m.state.Retirement = RetiredBy(p)
	m.finish(p.Opponent())
	m.notify(Notice{Kind: NoticeRetired, Severity: SeverityMajor, Player: p})
	m.logger.Info("player retired", "player", p.String(), "winner", m.state.Winner.String())
	return nil
}

// Suspend ends the match without a winner. Suspend can be undone.
func (m *Match) Suspend() error {
	if m.state.MatchOver {
		return NewMatchOverError("suspend")
	}
	m.ledger.Push(Snapshot{State: m.state.cloneWithoutLog()})

	m.state.Retirement = Suspension()
	m.finish(PlayerNone)
	m.notify(Notice{Kind: NoticeSuspended, Severity: SeverityMajor})
	m.logger.Info("match suspended")
	return nil
}

func (m *Match) scoreGamePoint(scorer Player) {
	s := &m.state
	if s.inDeuce() {
		if s.Config.DeuceType == DeuceNoAd {
			m.winGame(scorer)
			return
		}
		switch s.Advantage {
		case PlayerNone:
			s.Advantage = scorer
		case scorer:
			m.winGame(scorer)
		default:
			s.Advantage = PlayerNone
		}
		return
	}

	s.GamePoints[scorer.Index()]++
	if s.GamePoints.Of(scorer) > 3 {
		m.winGame(scorer)
	}
}

func (m *Match) scoreTiebreakPoint(scorer Player) {
	s := &m.state
	s.TiebreakPoints[scorer.Index()]++

	p1, p2 := s.TiebreakPoints[0], s.TiebreakPoints[1]
	if (p1 >= s.TiebreakTarget || p2 >= s.TiebreakTarget) && abs(p1-p2) >= 2 {
		m.winGame(scorer)
		return
	}

	// The first server serves one point, then each player serves two.
	total := p1 + p2
	if total%2 == 1 {
		s.Server = s.Server.Opponent()
	}
	if total%6 == 0 {
		m.notify(Notice{Kind: NoticeChangeEnds, Severity: SeverityNormal})
	}
}

func (m *Match) winGame(scorer Player) {
	s := &m.state
	wasTiebreak := s.IsTiebreak

	if wasTiebreak {
		final := s.TiebreakPoints
		s.TiebreakFinalScores[s.CurrentSet] = &final
	}
	s.SetScores[s.CurrentSet][scorer.Index()]++
	isBreak := !wasTiebreak && scorer == s.Receiver()

	s.GamePoints = Score{}
	s.Advantage = PlayerNone
	s.IsTiebreak = false
	s.TiebreakPoints = Score{}

	games := s.CurrentGames()
	if setWon(games) {
		m.winSet(scorer)
		return
	}

	if wasTiebreak {
		s.Server = s.TiebreakFirstServer.Opponent()
	} else {
		s.Server = s.Server.Opponent()
	}

	if games[0] == 6 && games[1] == 6 && m.shouldPlayTiebreak() {
		m.startTiebreak()
		return
	}

	switch {
	case games.Total()%2 == 1:
		m.notify(Notice{Kind: NoticeChangeEnds, Severity: SeverityNormal, Player: scorer, Score: &games})
	case isBreak:
		m.notify(Notice{Kind: NoticeBreak, Severity: SeverityNormal, Player: scorer, Score: &games})
	default:
		m.notify(Notice{Kind: NoticeGame, Severity: SeverityNormal, Player: scorer, Score: &games})
	}
}

// setWon applies the set-win rule: six or more games with a two-game lead,
// or 7-6 after a tiebreak.
func setWon(g Score) bool {
	if g[0] >= 6 && g[0]-g[1] >= 2 {
		return true
	}
	if g[1] >= 6 && g[1]-g[0] >= 2 {
		return true
	}
	return (g[0] == 7 && g[1] == 6) || (g[0] == 6 && g[1] == 7)
}

// shouldPlayTiebreak is false only in the deciding set under the advantage
// final-set rule.
func (m *Match) shouldPlayTiebreak() bool {
	if !m.state.IsDecidingSet() {
		return true
	}
	return m.state.Config.FinalSetType != FinalSetAdvantage
}

func (m *Match) startTiebreak() {
	s := &m.state
	s.IsTiebreak = true
	s.TiebreakPoints = Score{}
	s.TiebreakFirstServer = s.Server
	if s.IsDecidingSet() && s.Config.FinalSetType == FinalSetTiebreak10 {
		s.TiebreakTarget = 10
	} else {
		s.TiebreakTarget = 7
	}
	m.notify(Notice{Kind: NoticeTiebreakStarted, Severity: SeverityMajor, Target: s.TiebreakTarget})
}

func (m *Match) winSet(scorer Player) {
	s := &m.state
	s.SetsWon[scorer.Index()]++
	finished := s.CurrentGames()

	if s.SetsWon.Of(scorer) >= s.SetsNeeded() {
		m.winMatch(scorer)
		return
	}

	decidedByTiebreak := s.TiebreakFinalScores[s.CurrentSet] != nil
	s.CurrentSet++
	s.SetScores = append(s.SetScores, Score{})
	s.TiebreakFinalScores = append(s.TiebreakFinalScores, nil)

	if decidedByTiebreak {
		s.Server = s.TiebreakFirstServer.Opponent()
	} else {
		s.Server = s.Server.Opponent()
	}

	m.notify(Notice{Kind: NoticeSetWon, Severity: SeverityMajor, Player: scorer, Score: &finished})
	if finished.Total()%2 == 1 {
		m.notify(Notice{Kind: NoticeChangeEnds, Severity: SeverityNormal, Deferred: true})
	}
	m.logger.Debug("set won", "winner", scorer.String(), "score", finished.String())
}

func (m *Match) winMatch(scorer Player) {
	m.finish(scorer)
	sets := m.state.SetsWon
	m.notify(Notice{Kind: NoticeMatchWon, Severity: SeverityMajor, Player: scorer, Score: &sets})
	m.logger.Info("match won", "winner", scorer.String(), "sets", m.state.SetsWon.String())
}

// finish marks the match over with winner and stamps the end time.
func (m *Match) finish(winner Player) {
	end := m.clock.Now().UnixMilli()
	m.state.MatchOver = true
	m.state.Winner = winner
	m.state.EndTime = &end
}

// notify enqueues n. A closed queue drops the notice.
func (m *Match) notify(n Notice) {
	if !m.notices.Enqueue(n) {
		m.logger.Debug("notice dropped", "kind", string(n.Kind))
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
