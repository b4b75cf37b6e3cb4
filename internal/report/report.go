// Package report renders match state as plain text: scoreboard lines,
// status banners, notice messages, the statistics table and the end of
// match summary.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/matchpoint/internal/scoring"
)

// SetLine returns the set scores from player 1's side, e.g. "6-4 6(5)-7 3-2".
// A finished tiebreak set carries the loser's tiebreak points beside the
// loser's games.
func SetLine(s *scoring.State) string {
	parts := make([]string, 0, len(s.SetScores))
	for i, g := range s.SetScores {
		left, right := strconv.Itoa(g[0]), strconv.Itoa(g[1])
		if i < len(s.TiebreakFinalScores) && s.TiebreakFinalScores[i] != nil {
			tb := *s.TiebreakFinalScores[i]
			loser := min(tb[0], tb[1])
			if g[0] > g[1] {
				right = fmt.Sprintf("%s(%d)", right, loser)
			} else {
				left = fmt.Sprintf("%s(%d)", left, loser)
			}
		}
		parts = append(parts, left+"-"+right)
	}
	return strings.Join(parts, " ")
}

// Scoreboard returns a two-line scoreboard: name, sets, current point. The
// server is marked with "*".
func Scoreboard(s *scoring.State) string {
	var b strings.Builder
	width := max(len([]rune(s.Config.Player1)), len([]rune(s.Config.Player2)))
	for _, p := range []scoring.Player{scoring.Player1, scoring.Player2} {
		mark := " "
		if !s.MatchOver && s.Server == p {
			mark = "*"
		}
		name := s.Config.PlayerName(p)
		pad := strings.Repeat(" ", width-len([]rune(name)))
		fmt.Fprintf(&b, "%s %s%s ", mark, name, pad)
		for i, g := range s.SetScores {
			cell := strconv.Itoa(g.Of(p))
			if i < len(s.TiebreakFinalScores) && s.TiebreakFinalScores[i] != nil {
				tb := *s.TiebreakFinalScores[i]
				if g.Of(p) < g.Of(p.Opponent()) {
					cell += fmt.Sprintf("(%d)", min(tb[0], tb[1]))
				}
			}
			fmt.Fprintf(&b, " %-5s", cell)
		}
		fmt.Fprintf(&b, " %s\n", s.PointDisplay(p))
	}
	return b.String()
}

// Banner returns the status banner for the most important pending
// opportunity, e.g. "Match Point — Alice" or "2 Break Points — Bob".
// Returns "" when nothing is pending.
func Banner(s *scoring.State) string {
	st := s.Status()
	if st.Kind == scoring.StatusNone {
		return ""
	}
	label := map[scoring.StatusKind]string{
		scoring.StatusMatchPoint: "Match Point",
		scoring.StatusSetPoint:   "Set Point",
		scoring.StatusBreakPoint: "Break Point",
		scoring.StatusGamePoint:  "Game Point",
	}[st.Kind]
	if st.Count > 1 {
		label = fmt.Sprintf("%d %ss", st.Count, label)
	}
	return label + " — " + s.Config.PlayerName(st.Player)
}

// NoticeText returns the message shown for n.
func NoticeText(cfg scoring.Config, n scoring.Notice) string {
	name := cfg.PlayerName(n.Player)
	switch n.Kind {
	case scoring.NoticeChangeEnds:
		return "Change Ends"
	case scoring.NoticeGame:
		return "Game " + name
	case scoring.NoticeBreak:
		return "Break! " + name
	case scoring.NoticeTiebreakStarted:
		return fmt.Sprintf("Tiebreak to %d", n.Target)
	case scoring.NoticeSetWon:
		if n.Score != nil {
			return fmt.Sprintf("Set %s %s", name, n.Score.String())
		}
		return "Set " + name
	case scoring.NoticeMatchWon:
		return name + " wins!"
	case scoring.NoticeRetired:
		return name + " retired"
	case scoring.NoticeSuspended:
		return "Match suspended"
	case scoring.NoticeUndo:
		return "Undo"
	default:
		return string(n.Kind)
	}
}

// Duration formats elapsed match time as "1h 5m", or "42m" under an hour.
// Partial minutes are dropped.
func Duration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Minute)
	hrs, mins := total/60, total%60
	if hrs > 0 {
		return fmt.Sprintf("%dh %dm", hrs, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

// Result returns the one-line outcome of a finished match, or "" while it
// is in progress.
func Result(s *scoring.State) string {
	if !s.MatchOver {
		return ""
	}
	switch {
	case s.Retirement.Suspended:
		return "Match suspended"
	case s.Retirement.Player.Valid():
		return fmt.Sprintf("%s wins (%s retired)", s.Config.PlayerName(s.Winner), s.Config.PlayerName(s.Retirement.Player))
	default:
		return fmt.Sprintf("%s wins %d-%d", s.Config.PlayerName(s.Winner), s.SetsWon.Of(s.Winner), s.SetsWon.Of(s.Winner.Opponent()))
	}
}
