package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	db, err := OpenPath(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrations(t *testing.T) {
	db := setupTestDB(t)

	v, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := OpenPath(path)
	require.NoError(t, err)
	id, err := db.BeginRun(Run{InputDir: "in", OutputDir: "out"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenPath(path)
	require.NoError(t, err)
	defer db.Close()

	run, err := db.GetRun(id)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "in", run.InputDir)
	assert.Equal(t, path, db.Path())
}

func TestRunLifecycle(t *testing.T) {
	db := setupTestDB(t)

	started := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	id, err := db.BeginRun(Run{InputDir: "input", OutputDir: "output", DryRun: true, Backend: "auto", StartedAt: started})
	require.NoError(t, err)

	run, err := db.GetRun(id)
	require.NoError(t, err)
	assert.True(t, run.DryRun)
	assert.True(t, run.StartedAt.Equal(started))
	assert.True(t, run.FinishedAt.IsZero())

	require.NoError(t, db.FinishRun(id, 3, 1, started.Add(time.Second)))

	run, err = db.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, 3, run.Succeeded)
	assert.Equal(t, 1, run.Failed)
	assert.True(t, run.FinishedAt.Equal(started.Add(time.Second)))
}

func TestFinishRun_Unknown(t *testing.T) {
	db := setupTestDB(t)
	assert.Error(t, db.FinishRun(42, 0, 0, time.Now()))
}

func TestGetRun_Missing(t *testing.T) {
	db := setupTestDB(t)

	run, err := db.GetRun(99)
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestRecordFileAndQueries(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	first, err := db.BeginRun(Run{InputDir: "in", OutputDir: "out"})
	require.NoError(t, err)
	second, err := db.BeginRun(Run{InputDir: "in", OutputDir: "out"})
	require.NoError(t, err)

	require.NoError(t, db.RecordFile(FileRecord{
		RunID: first, Name: "signal-2023-05-17-14-30-05-123.jpg", Stage: "done", Success: true,
		CaptureDate: "2023:05:17 14:30:05", TargetPath: "out/signal-2023-05-17-14-30-05-123.jpg",
		Backend: "rename", Bytes: 2048,
	}))
	require.NoError(t, db.RecordFile(FileRecord{
		RunID: first, Name: "photo.jpg", Stage: "parse", Error: "no match",
	}))
	require.NoError(t, db.RecordFile(FileRecord{
		RunID: second, Name: "signal-2023-05-17-14-30-05-123.jpg", Stage: "metadata", Error: "corrupt",
	}))

	files, err := db.RunFiles(first)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "signal-2023-05-17-14-30-05-123.jpg", files[0].Name)
	assert.True(t, files[0].Success)
	assert.Equal(t, int64(2048), files[0].Bytes)
	assert.Equal(t, "rename", files[0].Backend)
	assert.False(t, files[0].ProcessedAt.IsZero())
	assert.Equal(t, "photo.jpg", files[1].Name)
	assert.Equal(t, "no match", files[1].Error)
	assert.Empty(t, files[1].TargetPath)

	hist, err := db.FileHistory("signal-2023-05-17-14-30-05-123.jpg")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, second, hist[0].RunID)
	assert.Equal(t, first, hist[1].RunID)

	runs, err := db.RecentRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, second, runs[0].ID)
}
