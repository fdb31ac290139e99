package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLintCleanDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(queryStepYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(`name: freeform
objectives:
  - "Explore the system"
`), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewLintCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "2 file(s) checked, 0 finding(s)")
}

func TestLintFindingsExitOne(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.yaml"), []byte(queryStepYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(`name: broken
validation:
  rules:
    - id: bad-regex
      type: output
      pattern: '(['
`), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewLintCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "bad.yaml")
	assert.Contains(t, buf.String(), "bad-regex")
	assert.Contains(t, buf.String(), "2 file(s) checked, 1 finding(s)")
}

func TestLintJSONOutput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "typo.yaml"), []byte(`name: typo
objective:
  - "misnamed field"
`), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewLintCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, merr := json.Marshal(resp.Data)
	require.NoError(t, merr)
	var result LintResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, 1, result.Checked)
	require.Len(t, result.Findings, 1)
}

func TestLintMissingPathExitsTwo(t *testing.T) {
	cmd := NewLintCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLintEmptyDirectoryExitsTwo(t *testing.T) {
	cmd := NewLintCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no step files")
}
