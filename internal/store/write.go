package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/procstate/internal/trace"
)

// ErrSeqConflict is returned when a record reuses a (processor_id, seq) pair
// that already holds a different record.
var ErrSeqConflict = errors.New("seq already recorded with a different event")

// ResetTrace starts a fresh trace for processor id: any records from an
// earlier run under the same id are deleted and the label is set.
// Sequence numbers restart at 1 for every processor, so a rerun must reset
// before its first WriteRecord.
func (s *Store) ResetTrace(ctx context.Context, id, label string) error {
	if id == "" {
		return fmt.Errorf("reset trace: empty processor id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("reset trace: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE processor_id = ?`, id); err != nil {
		return fmt.Errorf("reset trace: delete records: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO processors (id, label) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET label = excluded.label
	`, id, label); err != nil {
		return fmt.Errorf("reset trace: register processor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("reset trace: commit: %w", err)
	}
	return nil
}

// WriteRecord appends a trace record. The processor is registered implicitly.
//
// Rewriting an identical record is a no-op, so replaying an observer stream
// is safe. Reusing a seq for a different record returns ErrSeqConflict and
// leaves the stored record untouched.
func (s *Store) WriteRecord(ctx context.Context, rec trace.Record) error {
	if rec.ProcessorID == "" {
		return fmt.Errorf("write record: empty processor id")
	}
	if rec.Seq <= 0 {
		return fmt.Errorf("write record: seq must be positive, got %d", rec.Seq)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write record: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO processors (id) VALUES (?)
		ON CONFLICT(id) DO NOTHING
	`, rec.ProcessorID); err != nil {
		return fmt.Errorf("write record: register processor: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO records (processor_id, seq, kind, effect_id, value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		rec.ProcessorID,
		rec.Seq,
		string(rec.Kind),
		rec.EffectID,
		rec.Value,
	)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write record: rows affected: %w", err)
	}
	if inserted == 0 {
		var kind, effectID, value string
		if err := tx.QueryRowContext(ctx, `
			SELECT kind, effect_id, value FROM records
			WHERE processor_id = ? AND seq = ?
		`, rec.ProcessorID, rec.Seq).Scan(&kind, &effectID, &value); err != nil {
			return fmt.Errorf("write record: read existing: %w", err)
		}
		if kind != string(rec.Kind) || effectID != rec.EffectID || value != rec.Value {
			return fmt.Errorf("write record %s/%d: %w", rec.ProcessorID, rec.Seq, ErrSeqConflict)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write record: commit: %w", err)
	}
	return nil
}
