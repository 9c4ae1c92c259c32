package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/textfsm/internal/compiler"
	"github.com/roach88/textfsm/internal/engine"
	"github.com/roach88/textfsm/internal/ir"
	"github.com/roach88/textfsm/internal/testutil"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.SequentialIDs("run", 10)))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func parseFixture(t *testing.T) []ir.Record {
	t.Helper()
	table, err := compiler.Compile(testutil.ShowIPIntTemplate)
	require.NoError(t, err)
	records, err := engine.New(table).ParseText(testutil.ShowIPIntOutput)
	require.NoError(t, err)
	return records
}

func writeFixture(t *testing.T, s *Store, run Run) Run {
	t.Helper()
	out, err := s.WriteRun(context.Background(), run,
		testutil.ShowIPIntTemplate, testutil.ShowIPIntOutput, parseFixture(t))
	require.NoError(t, err)
	return out
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	for _, table := range []string{"blobs", "runs", "records"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		assert.NoError(t, err, "table %q not found after idempotent opens", table)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
	assert.Error(t, s.verifyPragma("foreign_keys", "0"))
}

func TestOpen_MigrationIndex(t *testing.T) {
	s := createTestStore(t)

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_runs_records_digest'",
	).Scan(&name)
	assert.NoError(t, err)
}

func TestWriteRun_FillsDerivedFields(t *testing.T) {
	s := createTestStore(t)

	run := writeFixture(t, s, Run{TemplatePath: "show_ip_int.textfsm", InputPath: "out.txt", Platform: "cisco_ios"})

	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, int64(1), run.Seq)
	assert.Equal(t, 2, run.RecordCount)
	assert.Equal(t, ir.TemplateDigest(testutil.ShowIPIntTemplate), run.TemplateDigest)
	assert.Equal(t, ir.InputDigest(testutil.ShowIPIntOutput), run.InputDigest)
	assert.Equal(t, ir.MustRecordsDigest(parseFixture(t)), run.RecordsDigest)
	assert.Equal(t, ir.EngineVersion, run.EngineVersion)
	assert.Equal(t, ir.RecordVersion, run.RecordVersion)
}

func TestWriteRun_SeqIncrements(t *testing.T) {
	s := createTestStore(t)

	first := writeFixture(t, s, Run{})
	second := writeFixture(t, s, Run{})
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := writeFixture(t, s, Run{ID: "fixed", TemplatePath: "a"})
	again, err := s.WriteRun(ctx, Run{ID: "fixed", TemplatePath: "b"}, "other", "input", nil)
	require.NoError(t, err)

	assert.Equal(t, first, again, "existing run is returned unchanged")

	records, err := s.ReadRecords(ctx, "fixed")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestWriteRun_SharesBlobs(t *testing.T) {
	s := createTestStore(t)

	writeFixture(t, s, Run{})
	writeFixture(t, s, Run{})

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM blobs").Scan(&n))
	assert.Equal(t, 2, n, "one template blob and one input blob")
}

func TestReadRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	written := writeFixture(t, s, Run{TemplatePath: "t", InputPath: "i", Platform: "cisco_ios", Command: "show ip int"})

	read, err := s.ReadRun(ctx, written.ID)
	require.NoError(t, err)
	assert.Equal(t, written, read)

	records, err := s.ReadRecords(ctx, written.ID)
	require.NoError(t, err)
	assert.Equal(t, parseFixture(t), records)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReadRecords_Empty(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run, err := s.WriteRun(ctx, Run{}, "Start\n", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, run.RecordCount)

	records, err := s.ReadRecords(ctx, run.ID)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestReadRecords_ListValues(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	in := []ir.Record{{"a": ir.List{"x", "y"}, "b": ir.Scalar("z")}, {"a": ir.List{}}}
	run, err := s.WriteRun(ctx, Run{}, "t", "i", in)
	require.NoError(t, err)

	out, err := s.ReadRecords(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestListRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	writeFixture(t, s, Run{})
	writeFixture(t, s, Run{})
	_, err := s.WriteRun(ctx, Run{}, "Start\n", "x", nil)
	require.NoError(t, err)

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"run-1", "run-2", "run-3"}, []string{all[0].ID, all[1].ID, all[2].ID})

	byTemplate, err := s.ListRuns(ctx, RunFilter{TemplateDigest: ir.TemplateDigest(testutil.ShowIPIntTemplate)})
	require.NoError(t, err)
	assert.Len(t, byTemplate, 2)

	byOutput, err := s.ListRuns(ctx, RunFilter{RecordsDigest: all[0].RecordsDigest, Limit: 1})
	require.NoError(t, err)
	require.Len(t, byOutput, 1)
	assert.Equal(t, "run-1", byOutput[0].ID)

	none, err := s.ListRuns(ctx, RunFilter{TemplateDigest: "missing"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestReadBlob(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := writeFixture(t, s, Run{})

	text, err := s.ReadBlob(ctx, run.TemplateDigest)
	require.NoError(t, err)
	assert.Equal(t, testutil.ShowIPIntTemplate, text)

	_, err = s.ReadBlob(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReplay_Matches(t *testing.T) {
	s := createTestStore(t)
	run := writeFixture(t, s, Run{})

	result, err := s.Replay(context.Background(), run.ID, testutil.DiscardLogger())
	require.NoError(t, err)
	assert.True(t, result.Match)
	assert.Equal(t, run.RecordsDigest, result.RecordsDigest)
	assert.Len(t, result.Records, 2)
}

func TestReplay_DetectsDivergence(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Archive a result the template could never have produced.
	run, err := s.WriteRun(ctx, Run{}, testutil.ShowIPIntTemplate, testutil.ShowIPIntOutput,
		[]ir.Record{{"INTERFACE": ir.Scalar("bogus")}})
	require.NoError(t, err)

	logger, buf := testutil.CaptureLogger()
	result, err := s.Replay(ctx, run.ID, logger)
	require.NoError(t, err)
	assert.False(t, result.Match)
	assert.Contains(t, buf.String(), "replay diverged")
}

func TestReplay_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Replay(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestMarshalRecord(t *testing.T) {
	data, err := marshalRecord(ir.Record{"b": ir.Scalar("<1>"), "a": ir.List{"x"}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":["x"],"b":"<1>"}`, data)

	data, err = marshalRecord(nil)
	require.NoError(t, err)
	assert.Equal(t, `{}`, data)

	rec, err := unmarshalRecord(`{}`)
	require.NoError(t, err)
	assert.Equal(t, ir.Record{}, rec)

	_, err = unmarshalRecord(`{"a":`)
	assert.Error(t, err)
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b, "UUIDv7 sorts by creation time")
}
