package report

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/roach88/matchpoint/internal/scoring"
)

// StatRow is one line of the statistics table.
type StatRow struct {
	Label   string `json:"label"`
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
}

// StatsTable returns the per-player statistics rows. Break points are
// shown as won over the opponent's break points faced.
func StatsTable(s *scoring.State) []StatRow {
	st := s.Stats
	itoa := strconv.Itoa
	return []StatRow{
		{"Aces", itoa(st.Aces[0]), itoa(st.Aces[1])},
		{"Double Faults", itoa(st.DoubleFaults[0]), itoa(st.DoubleFaults[1])},
		{"Unforced Errors", itoa(st.UnforcedErrors[0]), itoa(st.UnforcedErrors[1])},
		{"Break Points Won",
			fmt.Sprintf("%d/%d", st.BreakPointsWon[0], st.BreakPointsFaced[1]),
			fmt.Sprintf("%d/%d", st.BreakPointsWon[1], st.BreakPointsFaced[0])},
		{"Total Points", itoa(st.PointsWon[0]), itoa(st.PointsWon[1])},
	}
}

// Tempo summarises the time between consecutive logged points.
type Tempo struct {
	Points int           `json:"points"`
	Mean   time.Duration `json:"mean"`
	Median time.Duration `json:"median"`
	Max    time.Duration `json:"max"`
}

// PointTempo computes the gaps between consecutive point timestamps. It
// returns false when fewer than two points were logged.
func PointTempo(s *scoring.State) (Tempo, bool) {
	log := s.PointLog
	if len(log) < 2 {
		return Tempo{}, false
	}
	gaps := make(stats.Float64Data, 0, len(log)-1)
	for i := 1; i < len(log); i++ {
		gaps = append(gaps, float64(log[i].Timestamp-log[i-1].Timestamp))
	}

	mean, err := gaps.Mean()
	if err != nil {
		return Tempo{}, false
	}
	median, err := gaps.Median()
	if err != nil {
		return Tempo{}, false
	}
	maxGap, err := gaps.Max()
	if err != nil {
		return Tempo{}, false
	}
	ms := func(v float64) time.Duration { return time.Duration(v) * time.Millisecond }
	return Tempo{Points: len(log), Mean: ms(mean), Median: ms(median), Max: ms(maxGap)}, true
}

// WriteSummary writes the end of match summary: result, set scores,
// duration, statistics table and point tempo. now is used for the duration
// of a match still in progress.
func WriteSummary(w io.Writer, s *scoring.State, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "%s vs %s\n", s.Config.Player1, s.Config.Player2)
	if res := Result(s); res != "" {
		fmt.Fprintf(tw, "Result:\t%s\n", res)
	} else if banner := Banner(s); banner != "" {
		fmt.Fprintf(tw, "Status:\t%s\n", banner)
	}
	fmt.Fprintf(tw, "Sets:\t%s\n", SetLine(s))
	if !s.MatchOver {
		fmt.Fprintf(tw, "Game:\t%s\n", s.PointScore())
	}
	fmt.Fprintf(tw, "Duration:\t%s\n", Duration(s.Duration(now)))
	if s.Config.Umpire != "" {
		fmt.Fprintf(tw, "Umpire:\t%s\n", s.Config.Umpire)
	}
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "\t%s\t%s\n", s.Config.Player1, s.Config.Player2)
	for _, row := range StatsTable(s) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row.Label, row.Player1, row.Player2)
	}

	if t, ok := PointTempo(s); ok {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "Point tempo:\tmean %s\tmedian %s\tlongest %s\n",
			t.Mean.Round(time.Second), t.Median.Round(time.Second), t.Max.Round(time.Second))
	}
	return tw.Flush()
}
