package transfer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConflictPolicy(t *testing.T) {
	for in, want := range map[string]ConflictPolicy{
		"":          ConflictOverwrite,
		"overwrite": ConflictOverwrite,
		"FAIL":      ConflictFail,
		"rename":    ConflictRename,
	} {
		got, err := ParseConflictPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseConflictPolicy("skip")
	assert.Error(t, err)
}

func TestResolveTarget_Free(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "a.jpg")
	for _, p := range []ConflictPolicy{ConflictOverwrite, ConflictFail, ConflictRename} {
		got, err := ResolveTarget(dst, p)
		require.NoError(t, err, p.String())
		assert.Equal(t, dst, got, p.String())
	}
}

func TestResolveTarget_Taken(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(dst, nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a-1.jpg"), nil, 0644))

	got, err := ResolveTarget(dst, ConflictOverwrite)
	require.NoError(t, err)
	assert.Equal(t, dst, got)

	_, err = ResolveTarget(dst, ConflictFail)
	assert.ErrorIs(t, err, ErrDestinationExists)

	got, err = ResolveTarget(dst, ConflictRename)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a-2.jpg"), got)
}
