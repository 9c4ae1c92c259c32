package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/textfsm/internal/compiler"
	"github.com/roach88/textfsm/internal/engine"
	"github.com/roach88/textfsm/internal/ir"
)

// ReplayResult compares a re-parse with the archived run.
type ReplayResult struct {
	Run           Run         `json:"run"`
	Records       []ir.Record `json:"records"`
	RecordsDigest string      `json:"records_digest"`
	// Match is true when the re-parse produced the archived records digest.
	Match bool `json:"match"`
}

// Replay recompiles the archived template, re-parses the archived input and
// reports whether the output matches. The same template over the same input
// must always produce the same records; a mismatch means the engine's
// behavior changed since the run was recorded.
func (s *Store) Replay(ctx context.Context, id string, logger *slog.Logger) (*ReplayResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	run, err := s.ReadRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	template, err := s.ReadBlob(ctx, run.TemplateDigest)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	input, err := s.ReadBlob(ctx, run.InputDigest)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	table, err := compiler.Compile(template, compiler.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	records, err := engine.New(table, engine.WithLogger(logger)).ParseText(input)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	digest, err := ir.RecordsDigest(records)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	result := &ReplayResult{
		Run:           run,
		Records:       records,
		RecordsDigest: digest,
		Match:         digest == run.RecordsDigest,
	}
	if !result.Match {
		logger.Warn("replay diverged",
			"run", run.ID,
			"archived", run.RecordsDigest,
			"replayed", digest,
		)
	}
	return result, nil
}
