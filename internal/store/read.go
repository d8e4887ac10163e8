package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/procstate/internal/trace"
)

// ProcessorInfo describes one stored processor.
type ProcessorInfo struct {
	ID      string `json:"id"`
	Label   string `json:"label,omitempty"`
	Records int    `json:"records"`
}

// ReadTrace returns every record of a processor ordered by seq.
// Returns an empty slice (not nil) if the processor has no records.
func (s *Store) ReadTrace(ctx context.Context, processorID string) ([]trace.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT processor_id, seq, kind, effect_id, value
		FROM records
		WHERE processor_id = ?
		ORDER BY seq ASC
	`, processorID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// scanRecords reads every row into records. Never returns a nil slice.
func scanRecords(rows *sql.Rows) ([]trace.Record, error) {
	records := []trace.Record{}
	for rows.Next() {
		var rec trace.Record
		var kind string
		if err := rows.Scan(&rec.ProcessorID, &rec.Seq, &kind, &rec.EffectID, &rec.Value); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Kind = trace.Kind(kind)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// ReadEffect returns the records that carry the given effect id, ordered by
// seq: effect_started, any effect_dropped or effect_canceled, effect_finished.
// Served by idx_records_effect.
func (s *Store) ReadEffect(ctx context.Context, processorID, effectID string) ([]trace.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT processor_id, seq, kind, effect_id, value
		FROM records
		WHERE processor_id = ? AND effect_id = ?
		ORDER BY seq ASC
	`, processorID, effectID)
	if err != nil {
		return nil, fmt.Errorf("query effect records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListProcessors returns every stored processor ordered by id.
func (s *Store) ListProcessors(ctx context.Context) ([]ProcessorInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.label, COUNT(r.seq)
		FROM processors p
		LEFT JOIN records r ON r.processor_id = p.id
		GROUP BY p.id, p.label
		ORDER BY p.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query processors: %w", err)
	}
	defer rows.Close()

	infos := []ProcessorInfo{}
	for rows.Next() {
		var info ProcessorInfo
		if err := rows.Scan(&info.ID, &info.Label, &info.Records); err != nil {
			return nil, fmt.Errorf("scan processor: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processors: %w", err)
	}
	return infos, nil
}

// LastSeq returns the highest stored seq for a processor, or 0.
func (s *Store) LastSeq(ctx context.Context, processorID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM records WHERE processor_id = ?
	`, processorID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}
