package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/contactload/internal/core"
)

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contacts.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		importFlags.dryRun = false
		importFlags.mode = ""
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestImport_DryRun(t *testing.T) {
	path := writeCSV(t, "John Smith,2125551212,john@example.com\n"+
		"DROP TABLE USERS;,2125551212,john@example.com\n"+
		"Jane Doe,+442087654321,jane@example.co.uk\n")

	out, err := execute(t, "import", "--dry-run", path)
	require.NoError(t, err)

	var got core.BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got.LinesInFile)
	assert.Equal(t, 2, got.LinesParsed)
	assert.Equal(t, []string{"Invalid Name: DROP TABLE USERS;"}, got.Errors)
}

func TestImport_DryRunEmptyFile(t *testing.T) {
	out, err := execute(t, "import", "--dry-run", writeCSV(t, ""))
	require.NoError(t, err)

	var got core.BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Zero(t, got.LinesInFile)
	assert.Equal(t, []string{core.NoRecordsParsed}, got.Errors)
}

func TestImport_MalformedFileFails(t *testing.T) {
	path := writeCSV(t, "John Smith,2125551212,john@example.com\nbroken,row\n")

	out, err := execute(t, "import", "--dry-run", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped early")

	// The partial result is still printed.
	var got core.BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.LinesParsed)
}

func TestImport_MissingFile(t *testing.T) {
	_, err := execute(t, "import", "--dry-run", filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestImport_BadPersistFailureMode(t *testing.T) {
	_, err := execute(t, "import", "--dry-run", "--persist-failure", "retry", writeCSV(t, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown persist failure mode")
}

func TestImport_RequiresFile(t *testing.T) {
	_, err := execute(t, "import")
	require.Error(t, err)
}
