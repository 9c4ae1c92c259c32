package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/textfsm/internal/harness"
	"github.com/roach88/textfsm/internal/testutil"
)

func clockFiles() (template, raw, sample string) {
	return ntcPath("ntc_templates", "templates", "cisco_ios_show_clock.textfsm"),
		ntcPath("tests", "cisco_ios", "show_clock", "cisco_ios_show_clock.raw"),
		ntcPath("tests", "cisco_ios", "show_clock", "cisco_ios_show_clock.yml")
}

func TestVerify_Pass(t *testing.T) {
	template, raw, sample := clockFiles()

	out, err := execute(t, NewVerifyCommand(textOpts()), template, raw, sample)
	require.NoError(t, err)
	assert.Equal(t, "✓ cisco_ios_show_clock.textfsm: 1 record(s) match cisco_ios_show_clock.yml\n", out)
}

func TestVerify_PassJSON(t *testing.T) {
	template, raw, sample := clockFiles()

	out, err := execute(t, NewVerifyCommand(jsonOpts()), template, raw, sample)
	require.NoError(t, err)

	var result harness.Result
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Pass)
	assert.Len(t, result.Records, 1)
}

func TestVerify_Mismatch(t *testing.T) {
	template, raw, _ := clockFiles()
	sample := testutil.WriteFile(t, t.TempDir(), "wrong.yml", `---
parsed_sample:
  - time: "18:57:38"
    timezone: "PST"
    dayweek: "Mon"
    month: "Oct"
    day: "19"
    year: "2015"
`)

	out, err := execute(t, NewVerifyCommand(textOpts()), template, raw, sample)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ verification failed")
	assert.Contains(t, out, "[0] changed: timezone;")

	out, err = execute(t, NewVerifyCommand(jsonOpts()), template, raw, sample)
	require.Error(t, err)
	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeVerify, resp.Error.Code)
}

func TestVerify_KeepCase(t *testing.T) {
	template, raw, sample := clockFiles()

	_, err := execute(t, NewVerifyCommand(textOpts()), "--keep-case", template, raw, sample)
	require.Error(t, err, "the sample uses lowercase keys")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestVerify_MissingSample(t *testing.T) {
	template, raw, _ := clockFiles()

	out, err := execute(t, NewVerifyCommand(textOpts()), template, raw, filepath.Join(t.TempDir(), "none.yml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}

func TestVerifyTree(t *testing.T) {
	out, err := execute(t, NewVerifyTreeCommand(textOpts()), ntcTree)
	require.NoError(t, err)

	assert.Contains(t, out, "2 template(s), 3 platform(s): 2 passed, 0 failed")
	assert.Contains(t, out, "! no template for family juniper_junos test set show_version")
	assert.Contains(t, out, "has no sample")
	assert.NotContains(t, out, "✗")
}

func TestVerifyTreeJSON(t *testing.T) {
	out, err := execute(t, NewVerifyTreeCommand(jsonOpts()), ntcTree)
	require.NoError(t, err)

	var report harness.TreeReport
	resp := decodeResponse(t, out, &report)
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, report.Results, 2)
	assert.Len(t, report.Warnings, 2)
}

func TestVerifyTree_Failure(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, filepath.Join("ntc_templates", "templates", "cisco_ios_show_clock.textfsm"),
		"Value TIME (\\d+:\\d+:\\d+)\n\nStart\n  ^[*]?${TIME} -> Record\n")
	testutil.WriteFile(t, root, filepath.Join("tests", "cisco_ios", "show_clock", "clock.raw"), "*18:57:38 UTC\n")
	testutil.WriteFile(t, root, filepath.Join("tests", "cisco_ios", "show_clock", "clock.yml"),
		"---\nparsed_sample:\n  - time: \"00:00:00\"\n")

	out, err := execute(t, NewVerifyTreeCommand(textOpts()), root)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ verification failed")
	assert.Contains(t, out, "0 passed, 1 failed")
}

func TestVerifyTree_MissingRoot(t *testing.T) {
	_, err := execute(t, NewVerifyTreeCommand(textOpts()), filepath.Join(t.TempDir(), "none"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
