package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/textfsm/internal/ir"
)

const runColumns = `id, seq, template_path, template_digest, input_path, input_digest,
	records_digest, record_count, platform, command, engine_version, record_version`

// RunFilter narrows ListRuns. Zero fields match everything.
type RunFilter struct {
	TemplateDigest string
	RecordsDigest  string
	Limit          int
}

// ReadRun retrieves a single run by ID.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ReadRecords returns the output sequence of a run in its original order.
// Returns empty slice (not nil) if the run produced no records.
func (s *Store) ReadRecords(ctx context.Context, runID string) ([]ir.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM records
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []ir.Record{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := unmarshalRecord(data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// ListRuns returns runs matching filter.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns empty slice (not nil) if no runs match.
func (s *Store) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	var where []string
	var args []any
	if filter.TemplateDigest != "" {
		where = append(where, "template_digest = ?")
		args = append(args, filter.TemplateDigest)
	}
	if filter.RecordsDigest != "" {
		where = append(where, "records_digest = ?")
		args = append(args, filter.RecordsDigest)
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadBlob returns archived template or input text by digest.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadBlob(ctx context.Context, digest string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM blobs WHERE digest = ?`, digest).Scan(&content)
	if err != nil {
		return "", fmt.Errorf("read blob %s: %w", digest, err)
	}
	return content, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.TemplatePath,
		&run.TemplateDigest,
		&run.InputPath,
		&run.InputDigest,
		&run.RecordsDigest,
		&run.RecordCount,
		&run.Platform,
		&run.Command,
		&run.EngineVersion,
		&run.RecordVersion,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}
