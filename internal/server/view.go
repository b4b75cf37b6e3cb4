package server

import (
	"github.com/roach88/matchpoint/internal/engine"
	"github.com/roach88/matchpoint/internal/report"
	"github.com/roach88/matchpoint/internal/scoring"
)

// MatchView is the API representation of a match: the raw state plus the
// derived scoreboard a client would otherwise recompute.
type MatchView struct {
	ID        string           `json:"id"`
	Seq       int64            `json:"seq,omitempty"`
	Digest    string           `json:"digest,omitempty"`
	MatchOver bool             `json:"matchOver"`
	Reopened  bool             `json:"reopened,omitempty"`
	Sets      string           `json:"sets"`
	Games     string           `json:"games"`
	Points    string           `json:"points"`
	Server    scoring.Player   `json:"server"`
	Status    scoring.Status   `json:"status"`
	Banner    string           `json:"banner,omitempty"`
	Result    string           `json:"result,omitempty"`
	Notices   []NoticeView     `json:"notices,omitempty"`
	Stats     []report.StatRow `json:"stats"`
	State     scoring.State    `json:"state"`
}

// NoticeView is a notice with its display text.
type NoticeView struct {
	scoring.Notice
	Text string `json:"text"`
}

func newMatchView(out engine.Outcome) MatchView {
	s := out.State
	v := MatchView{
		ID:        out.MatchID,
		Seq:       out.Seq,
		Digest:    out.Digest,
		MatchOver: s.MatchOver,
		Reopened:  out.Reopened,
		Sets:      report.SetLine(&s),
		Games:     s.GameScore(),
		Points:    s.PointScore(),
		Server:    s.Server,
		Status:    s.Status(),
		Banner:    report.Banner(&s),
		Result:    report.Result(&s),
		Stats:     report.StatsTable(&s),
		State:     s,
	}
	for _, n := range out.Notices {
		v.Notices = append(v.Notices, NoticeView{Notice: n, Text: report.NoticeText(s.Config, n)})
	}
	return v
}
