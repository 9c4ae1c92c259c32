package testutil

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// ShowIPIntTemplate parses interface blocks with a Required interface name.
const ShowIPIntTemplate = `Value Required INTERFACE (\S+)
Value IP_ADDRESS (\d+\.\d+\.\d+\.\d+)
Value STATUS (up|down)

Start
  ^${INTERFACE} is ${STATUS}
  ^  Internet address is ${IP_ADDRESS} -> Record
`

// ShowIPIntOutput is sample input for ShowIPIntTemplate; it yields two records.
const ShowIPIntOutput = `GigabitEthernet0/0 is up
  Internet address is 10.0.0.1
GigabitEthernet0/1 is down
  Internet address is 10.0.1.1
`

// WriteFile writes content to name under dir, creating parent directories,
// and returns the path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CaptureLogger returns a logger writing text records at every level into
// the returned buffer.
func CaptureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}
