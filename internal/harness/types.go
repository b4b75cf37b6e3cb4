package harness

import (
	"github.com/roach88/matchpoint/internal/report"
	"github.com/roach88/matchpoint/internal/scoring"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq      int64             `json:"seq"`
	Action   string            `json:"action"`
	Player   scoring.Player    `json:"player,omitempty"`
	Type     scoring.PointType `json:"type,omitempty"`
	Count    int               `json:"count,omitempty"`
	Setup    bool              `json:"setup,omitempty"`
	Error    string            `json:"error,omitempty"`
	Reopened bool              `json:"reopened,omitempty"`
	Points   string            `json:"points"`
	Games    string            `json:"games"`
	Sets     string            `json:"sets"`
	Notices  []scoring.Notice  `json:"notices,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	MatchID string `json:"matchId"`

	// Trace holds the setup and flow steps in execution order.
	Trace []TraceEvent `json:"trace"`

	Errors []string `json:"errors,omitempty"`

	// Final is the match state after the last step.
	Final scoring.State `json:"final"`

	// Digest is the stored digest of Final.
	Digest string `json:"digest"`

	// Summary is report.WriteSummary of Final.
	Summary string `json:"summary"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addTrace appends a step with the scoreboard it left behind and returns
// the completed event.
func (r *Result) addTrace(ev TraceEvent, s *scoring.State) TraceEvent {
	ev.Points = s.PointScore()
	ev.Games = s.GameScore()
	ev.Sets = report.SetLine(s)
	r.Trace = append(r.Trace, ev)
	return ev
}

// notices returns every notice in the trace, in emission order.
func (r *Result) notices() []scoring.Notice {
	var out []scoring.Notice
	for _, ev := range r.Trace {
		out = append(out, ev.Notices...)
	}
	return out
}
