package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/matchpoint/internal/ir"
	"github.com/roach88/matchpoint/internal/scoring"
)

// ReplayResult reports whether a stored match can be rebuilt from its
// point log.
type ReplayResult struct {
	MatchID        string        `json:"matchId"`
	Points         int           `json:"points"`
	StoredDigest   string        `json:"storedDigest"`
	ReplayedDigest string        `json:"replayedDigest"`
	PointMismatch  []int         `json:"pointMismatch,omitempty"`
	State          scoring.State `json:"-"`
}

// Match reports whether the replayed document and every mirrored point
// agree with what is stored.
func (r ReplayResult) Match() bool {
	return r.StoredDigest == r.ReplayedDigest && len(r.PointMismatch) == 0
}

// Replay rebuilds the match stored under id from a fresh state by
// re-applying every logged point with its original scorer, type and
// timestamp, followed by the recorded retirement or suspension. The replayed
// document digest is compared with the stored one and every mirrored point
// ID is recomputed.
//
// A replay never writes to the store.
func (s *Store) Replay(ctx context.Context, id string) (*ReplayResult, error) {
	rec, err := s.LoadMatch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	stored := rec.State

	replayed, err := rebuild(stored)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", id, err)
	}
	doc, err := marshalState(replayed)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", id, err)
	}
	digest, err := ir.StateDigest(doc)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", id, err)
	}

	result := &ReplayResult{
		MatchID:        id,
		Points:         len(stored.PointLog),
		StoredDigest:   rec.Digest,
		ReplayedDigest: digest,
		State:          replayed,
	}

	rows, err := s.ReadPoints(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", id, err)
	}
	for i, pr := range replayed.PointLog {
		data, err := marshalPoint(pr)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", id, err)
		}
		want, err := ir.PointID(id, i, data)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", id, err)
		}
		if i >= len(rows) || rows[i].ID != want {
			result.PointMismatch = append(result.PointMismatch, i)
		}
	}
	for i := len(replayed.PointLog); i < len(rows); i++ {
		result.PointMismatch = append(result.PointMismatch, i)
	}

	slog.Debug("replay finished",
		"match_id", id,
		"points", result.Points,
		"match", result.Match(),
	)
	return result, nil
}

// Rebuild replays the stored point log of id, and its retirement if any,
// into a live match. The undo ledger is trimmed to the depth recorded by
// the last save, so undo reaches back past a restart exactly as far as the
// live match could have. Recorded instants are replayed first and later
// readings come from wall. Notices raised while replaying are discarded.
func (s *Store) Rebuild(ctx context.Context, id string, wall scoring.Clock, opts ...scoring.Option) (*scoring.Match, error) {
	rec, err := s.LoadMatch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("rebuild: %w", err)
	}
	m, err := replayMatch(rec.State, wall, opts...)
	if err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", id, err)
	}
	m.Notices().Drain()
	if rec.UndoDepth != nil {
		m.TrimHistory(*rec.UndoDepth)
	}

	slog.Debug("match rebuilt",
		"match_id", id,
		"points", len(rec.State.PointLog),
		"history", m.HistoryLen(),
	)
	return m, nil
}

// rebuild re-derives a State from the config, point log and retirement of
// stored.
func rebuild(stored scoring.State) (scoring.State, error) {
	m, err := replayMatch(stored, nil)
	if err != nil {
		return scoring.State{}, err
	}
	return m.State(), nil
}

// replayMatch plays stored's point log and retirement into a new match. The
// match clock replays the recorded start time, point timestamps and end
// time in the order the scoring engine reads them.
func replayMatch(stored scoring.State, wall scoring.Clock, opts ...scoring.Option) (*scoring.Match, error) {
	times := make([]int64, 0, len(stored.PointLog)+2)
	times = append(times, stored.StartTime)
	for _, p := range stored.PointLog {
		times = append(times, p.Timestamp)
	}
	if stored.EndTime != nil {
		times = append(times, *stored.EndTime)
	}
	clock := &replayClock{times: times, after: wall}

	opts = append(opts[:len(opts):len(opts)], scoring.WithClock(clock))
	m, err := scoring.New(stored.Config, opts...)
	if err != nil {
		return nil, err
	}
	for i, p := range stored.PointLog {
		if _, err := m.ScorePoint(p.Scorer, p.Type); err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
	}

	r := stored.Retirement
	switch {
	case r.Suspended:
		err = m.Suspend()
	case r.Player.Valid():
		err = m.Retire(r.Player)
	}
	if err != nil {
		return nil, fmt.Errorf("retirement: %w", err)
	}
	return m, nil
}

// replayClock hands out recorded instants in order. Once exhausted it reads
// after, or keeps returning the last instant when after is nil.
type replayClock struct {
	times []int64
	next  int
	after scoring.Clock
}

func (c *replayClock) Now() time.Time {
	if c.next >= len(c.times) && c.after != nil {
		return c.after.Now()
	}
	if len(c.times) == 0 {
		return time.UnixMilli(0)
	}
	i := c.next
	if i >= len(c.times) {
		i = len(c.times) - 1
	} else {
		c.next++
	}
	return time.UnixMilli(c.times[i])
}
