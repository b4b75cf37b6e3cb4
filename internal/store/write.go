package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/matchpoint/internal/ir"
	"github.com/roach88/matchpoint/internal/scoring"
)

// SaveOption configures a SaveMatch call.
type SaveOption func(*saveOptions)

type saveOptions struct {
	undoDepth sql.NullInt64
}

// WithUndoDepth records how many calls the live match can still undo.
// Rebuild trims the replayed ledger to this depth. Without it the depth is
// stored as unknown and Rebuild keeps everything it replays.
func WithUndoDepth(n int) SaveOption {
	return func(o *saveOptions) {
		o.undoDepth = sql.NullInt64{Int64: int64(n), Valid: true}
	}
}

// SaveMatch writes the match document for id and mirrors its point log.
// Returns the digest of the stored document.
//
// The whole write runs in one transaction: the match row is upserted with
// the next logical seq, points past the end of the log (removed by undo)
// are deleted, and entries whose content-addressed ID changed are replaced.
// Saving the same state twice is idempotent apart from seq.
func (s *Store) SaveMatch(ctx context.Context, id string, state scoring.State, opts ...SaveOption) (string, error) {
	if id == "" {
		return "", fmt.Errorf("save match: empty id")
	}
	var o saveOptions
	for _, opt := range opts {
		opt(&o)
	}

	doc, err := marshalState(state)
	if err != nil {
		return "", fmt.Errorf("save match: %w", err)
	}
	digest, err := ir.StateDigest(doc)
	if err != nil {
		return "", fmt.Errorf("save match: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("save match: begin: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM matches`).Scan(&seq); err != nil {
		return "", fmt.Errorf("save match: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO matches
		(id, seq, player1, player2, match_over, winner, document, digest, schema_version, engine_version, undo_depth)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			seq = excluded.seq,
			player1 = excluded.player1,
			player2 = excluded.player2,
			match_over = excluded.match_over,
			winner = excluded.winner,
			document = excluded.document,
			digest = excluded.digest,
			schema_version = excluded.schema_version,
			engine_version = excluded.engine_version,
			undo_depth = excluded.undo_depth
	`,
		id,
		seq,
		state.Config.Player1,
		state.Config.Player2,
		boolToInt(state.MatchOver),
		int(state.Winner),
		string(doc),
		digest,
		ir.SchemaVersion,
		ir.EngineVersion,
		o.undoDepth,
	)
	if err != nil {
		return "", fmt.Errorf("save match: write match: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM points WHERE match_id = ? AND idx >= ?`, id, len(state.PointLog),
	); err != nil {
		return "", fmt.Errorf("save match: trim points: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO points (match_id, idx, id, record)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(match_id, idx) DO UPDATE SET
			id = excluded.id,
			record = excluded.record
		WHERE points.id != excluded.id
	`)
	if err != nil {
		return "", fmt.Errorf("save match: prepare points: %w", err)
	}
	defer stmt.Close()

	for i, rec := range state.PointLog {
		data, err := marshalPoint(rec)
		if err != nil {
			return "", fmt.Errorf("save match: point %d: %w", i, err)
		}
		pointID, err := ir.PointID(id, i, data)
		if err != nil {
			return "", fmt.Errorf("save match: point %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, id, i, pointID, string(data)); err != nil {
			return "", fmt.Errorf("save match: write point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save match: commit: %w", err)
	}
	return digest, nil
}

// DeleteMatch removes a match and, through the foreign key cascade, its
// point rows. Returns ErrNotFound when no such match exists.
func (s *Store) DeleteMatch(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete match %s: %w", id, ErrNotFound)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
