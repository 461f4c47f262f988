package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nomadcxx/signalstamp/internal/config"
	"github.com/Nomadcxx/signalstamp/internal/testutil"
)

const validName = "signal-2023-05-17-14-30-05-123.jpg"

// isolate points the home directory at a temp dir so config, history,
// activity and log files never touch the real user profile.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SUDO_USER", "")
	for _, key := range []string{"SIGNALSTAMP_INPUT_DIR", "SIGNALSTAMP_OUTPUT_DIR"} {
		t.Setenv(key, "")
	}
	return home
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func setupInput(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	in := filepath.Join(root, "in")
	require.NoError(t, os.Mkdir(in, 0755))
	return in, filepath.Join(root, "out")
}

func TestBatch_Success(t *testing.T) {
	home := isolate(t)
	in, out := setupInput(t)
	testutil.WriteJPEG(t, filepath.Join(in, validName))
	testutil.WriteFile(t, filepath.Join(in, "notes.txt"), "x")

	output, err := execute(t, in, out)
	require.NoError(t, err, output)

	assert.Contains(t, output, "Succeeded: 1\n")
	assert.Contains(t, output, "Failed: 0\n")
	assert.Contains(t, output, validName+" stamped 2023:05:17 14:30:05")
	assert.True(t, testutil.Exists(filepath.Join(out, validName)))
	assert.True(t, testutil.Exists(filepath.Join(in, "notes.txt")))

	appDir := filepath.Join(home, ".config", "signalstamp")
	assert.True(t, testutil.Exists(filepath.Join(appDir, "history.db")))
	assert.True(t, testutil.Exists(filepath.Join(appDir, "logs", "signalstamp.log")))

	output, err = execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, output, "RUN")
	assert.Contains(t, output, "fallback(rename,native)")

	output, err = execute(t, "history", "1")
	require.NoError(t, err)
	assert.Contains(t, output, validName)
	assert.Contains(t, output, "2023:05:17 14:30:05")
}

func TestBatch_FailuresExitNonZero(t *testing.T) {
	isolate(t)
	in, out := setupInput(t)
	testutil.WriteJPEG(t, filepath.Join(in, "signal-2023-13-01-00-00-00-000.jpg"))
	testutil.WriteJPEG(t, filepath.Join(in, "photo.jpg"))

	output, err := execute(t, "-i", in, "-o", out, "--no-history", "--no-activity")
	assert.ErrorIs(t, err, errFilesFailed)
	assert.Contains(t, output, "Succeeded: 0\n")
	assert.Contains(t, output, "Failed: 2\n")
	assert.Contains(t, output, "photo.jpg skipped: no timestamp in name")
	assert.Contains(t, output, "invalid date")
}

func TestBatch_DryRun(t *testing.T) {
	isolate(t)
	in, out := setupInput(t)
	testutil.WriteJPEG(t, filepath.Join(in, validName))

	output, err := execute(t, "--dry-run", in, out)
	require.NoError(t, err, output)

	assert.Contains(t, output, "would be stamped")
	assert.True(t, testutil.Exists(filepath.Join(in, validName)))
	assert.False(t, testutil.Exists(out))
}

func TestBatch_InvalidFlags(t *testing.T) {
	isolate(t)
	in, out := setupInput(t)

	_, err := execute(t, "--on-conflict", "skip", in, out)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = execute(t, in, in)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestBatch_MissingInputIsFatal(t *testing.T) {
	isolate(t)
	_, out := setupInput(t)

	_, err := execute(t, filepath.Join(t.TempDir(), "missing"), out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errFilesFailed)
}

func TestBatch_ConfigFileSuppliesDirs(t *testing.T) {
	isolate(t)
	in, out := setupInput(t)
	testutil.WriteJPEG(t, filepath.Join(in, validName))

	cfg := config.DefaultConfig()
	cfg.InputDir = in
	cfg.OutputDir = out
	cfg.Options.OnConflict = "rename"
	cfgPath := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, cfg.Save(cfgPath))

	output, err := execute(t, "--config", cfgPath, "--no-history")
	require.NoError(t, err, output)
	assert.True(t, testutil.Exists(filepath.Join(out, validName)))
}

func TestInspect(t *testing.T) {
	isolate(t)
	in, out := setupInput(t)
	testutil.WriteJPEG(t, filepath.Join(in, validName))
	_, err := execute(t, in, out)
	require.NoError(t, err)

	output, err := execute(t, "inspect", "--history", filepath.Join(out, validName))
	require.NoError(t, err, output)
	assert.Contains(t, output, "DateTimeOriginal:")
	assert.Contains(t, output, "2023:05:17 14:30:05")
	assert.Contains(t, output, "(absent)", "sub-second tags are not introduced")
	assert.Contains(t, output, "run #1")

	plain := filepath.Join(t.TempDir(), "plain.jpg")
	testutil.WriteJPEG(t, plain)
	output, err = execute(t, "inspect", plain)
	require.NoError(t, err)
	assert.Contains(t, output, "no EXIF segment")

	_, err = execute(t, "inspect", filepath.Join(t.TempDir(), "missing.jpg"))
	assert.ErrorIs(t, err, errFilesFailed)
}

func TestConfigCommands(t *testing.T) {
	home := isolate(t)
	want := filepath.Join(home, ".config", "signalstamp", "config.toml")

	output, err := execute(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, want+"\n", output)

	output, err = execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, output, "No config file found")

	output, err = execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, output, "Created config file")
	assert.True(t, testutil.Exists(want))

	_, err = execute(t, "config", "init")
	assert.Error(t, err, "existing file needs --force")

	_, err = execute(t, "config", "init", "--force")
	assert.NoError(t, err)

	output, err = execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, output, `on_conflict = "overwrite"`)
	assert.NotContains(t, output, "No config file found")
}

func TestVersion(t *testing.T) {
	output, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, output, "Version: dev")
}

func TestHistory_Empty(t *testing.T) {
	isolate(t)

	output, err := execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, output, "No history recorded yet.")
}
