package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/textfsm/internal/testutil"
)

// ntcTree is a miniature ntc-templates checkout shared with the harness tests.
var ntcTree = filepath.Join("..", "harness", "testdata", "ntc")

func ntcPath(parts ...string) string {
	return filepath.Join(append([]string{ntcTree}, parts...)...)
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// showIPInt writes the interface template and its sample output into a
// temp dir and returns their paths.
func showIPInt(t *testing.T) (dir, template, input string) {
	t.Helper()
	dir = t.TempDir()
	template = testutil.WriteFile(t, dir, "show_ip_int.textfsm", testutil.ShowIPIntTemplate)
	input = testutil.WriteFile(t, dir, "show_ip_int.txt", testutil.ShowIPIntOutput)
	return dir, template, input
}

// decodeResponse decodes a JSON envelope, decoding Data into data.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.CLIResponse
}

func textOpts() *RootOptions { return &RootOptions{Format: "text"} }
func jsonOpts() *RootOptions { return &RootOptions{Format: "json"} }
