package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/textfsm/internal/ir"
)

// Run describes one archived parse.
type Run struct {
	ID             string `json:"id" yaml:"id"`
	Seq            int64  `json:"seq" yaml:"seq"`
	TemplatePath   string `json:"template_path" yaml:"template_path"`
	TemplateDigest string `json:"template_digest" yaml:"template_digest"`
	InputPath      string `json:"input_path" yaml:"input_path"`
	InputDigest    string `json:"input_digest" yaml:"input_digest"`
	RecordsDigest  string `json:"records_digest" yaml:"records_digest"`
	RecordCount    int    `json:"record_count" yaml:"record_count"`
	Platform       string `json:"platform,omitempty" yaml:"platform,omitempty"`
	Command        string `json:"command,omitempty" yaml:"command,omitempty"`
	EngineVersion  string `json:"engine_version" yaml:"engine_version"`
	RecordVersion  string `json:"record_version" yaml:"record_version"`
}

// WriteRun archives a parse of input by template that produced records.
// Digests, counts and versions are filled in from the arguments; an empty ID
// is generated and a zero Seq takes the next logical sequence number.
//
// Uses ON CONFLICT DO NOTHING for idempotency - writing a run whose ID
// already exists returns the stored run unchanged.
func (s *Store) WriteRun(ctx context.Context, run Run, template, input string, records []ir.Record) (Run, error) {
	if run.ID == "" {
		run.ID = s.ids.Generate()
	}
	// Derived fields come from the content, never from the caller
	run.TemplateDigest = ir.TemplateDigest(template)
	run.InputDigest = ir.InputDigest(input)
	digest, err := ir.RecordsDigest(records)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}
	run.RecordsDigest = digest
	run.RecordCount = len(records)
	run.EngineVersion = ir.EngineVersion
	run.RecordVersion = ir.RecordVersion

	// Marshal before opening the transaction so a bad record costs nothing
	rows := make([]string, len(records))
	for i, rec := range records {
		if rows[i], err = marshalRecord(rec); err != nil {
			return Run{}, fmt.Errorf("write run: record %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	// Blobs are content-addressed and shared between runs
	if err := writeBlob(ctx, tx, run.TemplateDigest, "template", template); err != nil {
		return Run{}, err
	}
	if err := writeBlob(ctx, tx, run.InputDigest, "input", input); err != nil {
		return Run{}, err
	}

	// Allocate seq inside the transaction; the single connection makes
	// MAX+1 race-free.
	if run.Seq == 0 {
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
			return Run{}, fmt.Errorf("write run: next seq: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, template_path, template_digest, input_path, input_digest,
		 records_digest, record_count, platform, command, engine_version, record_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Seq,
		run.TemplatePath,
		run.TemplateDigest,
		run.InputPath,
		run.InputDigest,
		run.RecordsDigest,
		run.RecordCount,
		run.Platform,
		run.Command,
		run.EngineVersion,
		run.RecordVersion,
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}
	// The ID already exists: return the stored run unchanged
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if err := tx.Commit(); err != nil {
			return Run{}, fmt.Errorf("write run: commit: %w", err)
		}
		return s.ReadRun(ctx, run.ID)
	}

	// Records keep their output order through idx
	for i, data := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO records (run_id, idx, data)
			VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING
		`, run.ID, i, data)
		if err != nil {
			return Run{}, fmt.Errorf("write run: record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}
	return run, nil
}

// writeBlob stores content under its digest. Existing digests are kept.
func writeBlob(ctx context.Context, tx *sql.Tx, digest, kind, content string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO blobs (digest, kind, content)
		VALUES (?, ?, ?)
		ON CONFLICT(digest) DO NOTHING
	`, digest, kind, content)
	if err != nil {
		return fmt.Errorf("write %s blob: %w", kind, err)
	}
	return nil
}
