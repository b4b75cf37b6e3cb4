package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matchpoint/internal/scoring"
)

func resultWithNotices(notices ...scoring.Notice) *Result {
	r := NewResult()
	r.Trace = append(r.Trace, TraceEvent{Action: ActionPoint, Notices: notices})
	return r
}

func notice(kind scoring.NoticeKind, p scoring.Player) scoring.Notice {
	return scoring.Notice{Kind: kind, Player: p}
}

func TestAssertNoticeContains(t *testing.T) {
	r := resultWithNotices(
		notice(scoring.NoticeChangeEnds, scoring.Player1),
		notice(scoring.NoticeBreak, scoring.Player2),
	)

	tests := []struct {
		name    string
		a       Assertion
		wantErr bool
	}{
		{"kind only", Assertion{Type: AssertNoticeContains, Notice: scoring.NoticeBreak}, false},
		{"kind and player", Assertion{Type: AssertNoticeContains, Notice: scoring.NoticeBreak, Player: 2}, false},
		{"wrong player", Assertion{Type: AssertNoticeContains, Notice: scoring.NoticeBreak, Player: 1}, true},
		{"missing kind", Assertion{Type: AssertNoticeContains, Notice: scoring.NoticeSetWon}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(r, []Assertion{tt.a})
			if tt.wantErr {
				require.Len(t, errs, 1)
				assert.Contains(t, errs[0], "Assertion failed: notice_contains")
				assert.Contains(t, errs[0], "[2] break player 2")
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestAssertNoticeOrder(t *testing.T) {
	r := resultWithNotices(
		notice(scoring.NoticeChangeEnds, scoring.Player1),
		notice(scoring.NoticeBreak, scoring.Player2),
		notice(scoring.NoticeChangeEnds, scoring.Player1),
		notice(scoring.NoticeSetWon, scoring.Player1),
	)

	tests := []struct {
		name    string
		order   []scoring.NoticeKind
		wantErr string
	}{
		{"in order", []scoring.NoticeKind{scoring.NoticeChangeEnds, scoring.NoticeBreak, scoring.NoticeSetWon}, ""},
		{"gaps allowed", []scoring.NoticeKind{scoring.NoticeChangeEnds, scoring.NoticeSetWon}, ""},
		{"out of order", []scoring.NoticeKind{scoring.NoticeSetWon, scoring.NoticeBreak}, "set_won (pos 4) should be before break (pos 2)"},
		{"missing", []scoring.NoticeKind{scoring.NoticeChangeEnds, scoring.NoticeMatchWon}, "missing notice: match_won"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(r, []Assertion{{Type: AssertNoticeOrder, Notices: tt.order}})
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestAssertNoticeCount(t *testing.T) {
	r := resultWithNotices(
		notice(scoring.NoticeChangeEnds, scoring.Player1),
		notice(scoring.NoticeChangeEnds, scoring.Player2),
	)

	assert.Empty(t, EvaluateAssertions(r, []Assertion{{Type: AssertNoticeCount, Notice: scoring.NoticeChangeEnds, Count: 2}}))
	assert.Empty(t, EvaluateAssertions(r, []Assertion{{Type: AssertNoticeCount, Notice: scoring.NoticeUndo, Count: 0}}))

	errs := EvaluateAssertions(r, []Assertion{{Type: AssertNoticeCount, Notice: scoring.NoticeChangeEnds, Count: 3}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Expected: 3 occurrences of change_ends")
	assert.Contains(t, errs[0], "Actual: 2 occurrences")
}

func TestAssertFinalState(t *testing.T) {
	cfg := scoring.Config{Umpire: "Ref", Player1: "Alice", Player2: "Bob"}.WithDefaults()
	m, err := scoring.New(cfg)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := m.ScorePoint(scoring.Player1, scoring.PointNormal)
		require.NoError(t, err)
	}
	r := NewResult()
	r.Final = m.State()

	tests := []struct {
		name    string
		expect  map[string]any
		wantErr string
	}{
		{"strings and ints", map[string]any{"games": "1-0", "server": 2, "pointsPlayed": 4}, ""},
		{"bool", map[string]any{"matchOver": false, "isTiebreak": false}, ""},
		{"float from yaml", map[string]any{"currentSet": 0.0}, ""},
		{"retirement", map[string]any{"retirement": "none", "winner": 0}, ""},
		{"mismatch", map[string]any{"games": "0-1"}, `field "games" = 0-1`},
		{"type mismatch", map[string]any{"server": "2"}, `field "server" = 2 (type string)`},
		{"unknown field", map[string]any{"surface": "Clay"}, `field "surface" to exist`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(r, []Assertion{{Type: AssertFinalState, Expect: tt.expect}})
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestStateFields_Retirement(t *testing.T) {
	tests := []struct {
		r    scoring.Retirement
		want string
	}{
		{scoring.Retirement{}, "none"},
		{scoring.RetiredBy(scoring.Player2), "player2"},
		{scoring.Suspension(), "suspended"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			m, err := scoring.New(scoring.Config{Player1: "Alice", Player2: "Bob"}.WithDefaults())
			require.NoError(t, err)
			s := m.State()
			s.Retirement = tt.r
			assert.Equal(t, tt.want, StateFields(&s)["retirement"])
		})
	}
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: "trace_count"}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `unknown assertion type "trace_count"`)
}
