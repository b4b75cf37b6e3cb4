package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/matchpoint/internal/ir"
	"github.com/roach88/matchpoint/internal/scoring"
)

// MatchRecord is a stored match document together with its row metadata.
type MatchRecord struct {
	ID            string
	Seq           int64
	State         scoring.State
	Digest        string
	SchemaVersion string
	EngineVersion string

	// UndoDepth is the undo ledger length of the live match at its last
	// save, or nil when it was not recorded.
	UndoDepth *int
}

// MatchSummary is the listing view of a stored match.
type MatchSummary struct {
	ID        string         `json:"id"`
	Seq       int64          `json:"seq"`
	Player1   string         `json:"player1"`
	Player2   string         `json:"player2"`
	MatchOver bool           `json:"matchOver"`
	Winner    scoring.Player `json:"winner"`
}

// PointRow is one mirrored point-log entry.
type PointRow struct {
	Index  int                 `json:"index"`
	ID     string              `json:"id"`
	Record scoring.PointRecord `json:"record"`
}

// LoadMatch reads and validates the document stored for id.
//
// Returns ErrNotFound when no row exists. A document that fails to decode,
// breaks a State invariant or no longer matches its digest is deleted and
// reported as ErrDiscarded.
func (s *Store) LoadMatch(ctx context.Context, id string) (*MatchRecord, error) {
	var (
		rec   MatchRecord
		doc   string
		depth sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, seq, document, digest, schema_version, engine_version, undo_depth
		FROM matches
		WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Seq, &doc, &rec.Digest, &rec.SchemaVersion, &rec.EngineVersion, &depth)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load match %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load match %s: %w", id, err)
	}

	state, err := unmarshalState([]byte(doc))
	if err != nil {
		return nil, s.discard(ctx, id, err)
	}
	digest, err := ir.StateDigest([]byte(doc))
	if err != nil {
		return nil, s.discard(ctx, id, err)
	}
	if digest != rec.Digest {
		return nil, s.discard(ctx, id, fmt.Errorf("digest mismatch: stored %s, computed %s", rec.Digest, digest))
	}

	rec.State = state
	if depth.Valid {
		n := int(depth.Int64)
		rec.UndoDepth = &n
	}
	return &rec, nil
}

// LoadResumable is LoadMatch for a match that is about to continue.
// Returns ErrNotResumable when the stored match is already over.
func (s *Store) LoadResumable(ctx context.Context, id string) (*MatchRecord, error) {
	rec, err := s.LoadMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.State.MatchOver {
		return nil, fmt.Errorf("load match %s: %w", id, ErrNotResumable)
	}
	return rec, nil
}

// LatestResumable returns the most recently written match that is still in
// progress. Malformed candidates are discarded along the way.
// Returns ErrNotFound when nothing can be resumed.
func (s *Store) LatestResumable(ctx context.Context) (*MatchRecord, error) {
	for {
		var id string
		err := s.db.QueryRowContext(ctx, `
			SELECT id FROM matches
			WHERE match_over = 0
			ORDER BY seq DESC, id COLLATE BINARY ASC
			LIMIT 1
		`).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("latest resumable: %w", ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("latest resumable: %w", err)
		}

		rec, err := s.LoadResumable(ctx, id)
		if errors.Is(err, ErrDiscarded) {
			continue
		}
		return rec, err
	}
}

// ListMatches returns every stored match, most recently written first.
func (s *Store) ListMatches(ctx context.Context) ([]MatchSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, player1, player2, match_over, winner
		FROM matches
		ORDER BY seq DESC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []MatchSummary
	for rows.Next() {
		var (
			m      MatchSummary
			over   int
			winner int
		)
		if err := rows.Scan(&m.ID, &m.Seq, &m.Player1, &m.Player2, &over, &winner); err != nil {
			return nil, fmt.Errorf("list matches: scan: %w", err)
		}
		m.MatchOver = over != 0
		m.Winner = scoring.Player(winner)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return out, nil
}

// ReadPoints returns the mirrored point log for id in log order.
func (s *Store) ReadPoints(ctx context.Context, id string) ([]PointRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, id, record
		FROM points
		WHERE match_id = ?
		ORDER BY idx ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("read points: %w", err)
	}
	defer rows.Close()

	var out []PointRow
	for rows.Next() {
		var (
			p    PointRow
			data string
		)
		if err := rows.Scan(&p.Index, &p.ID, &data); err != nil {
			return nil, fmt.Errorf("read points: scan: %w", err)
		}
		rec, err := unmarshalPoint([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("read points: index %d: %w", p.Index, err)
		}
		p.Record = rec
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read points: %w", err)
	}
	return out, nil
}

// discard deletes a malformed document and returns the ErrDiscarded error
// describing why.
func (s *Store) discard(ctx context.Context, id string, reason error) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id); err != nil {
		return fmt.Errorf("discard match %s: %w", id, err)
	}
	slog.Warn("discarded malformed match document", "match_id", id, "reason", reason.Error())
	return fmt.Errorf("load match %s: %w: %v", id, ErrDiscarded, reason)
}
