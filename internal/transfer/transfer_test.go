package transfer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, content string) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "signal-2023-05-17-14-30-05-123.jpg")
	require.NoError(t, os.WriteFile(src, []byte(content), 0640))
	return src
}

func TestNew(t *testing.T) {
	assert.Equal(t, "rename", New(BackendRename).Name())
	assert.Equal(t, "native", New(BackendNative).Name())
	assert.Equal(t, "fallback(rename,native)", New(BackendAuto).Name())
}

func TestParseBackend(t *testing.T) {
	for in, want := range map[string]Backend{
		"":       BackendAuto,
		"auto":   BackendAuto,
		"Rename": BackendRename,
		"native": BackendNative,
	} {
		got, err := ParseBackend(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		if in != "" {
			assert.Equal(t, want.String(), got.String())
		}
	}

	_, err := ParseBackend("rsync")
	assert.Error(t, err)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.False(t, opts.Checksum)
	assert.Equal(t, os.FileMode(0), opts.FileMode)
	assert.Equal(t, os.FileMode(0755), opts.DirModeOrDefault())
	assert.Equal(t, os.FileMode(0755), Options{}.DirModeOrDefault())
}

func TestBackendsMoveFile(t *testing.T) {
	for _, tr := range []Transferer{New(BackendRename), New(BackendNative), New(BackendAuto)} {
		t.Run(tr.Name(), func(t *testing.T) {
			src := writeSource(t, "jpeg bytes")
			dst := filepath.Join(t.TempDir(), "nested", "out.jpg")

			result, err := tr.Move(src, dst, DefaultOptions())
			require.NoError(t, err)
			assert.True(t, result.Success)
			assert.True(t, result.SourceRemoved)
			assert.Equal(t, int64(len("jpeg bytes")), result.BytesTotal)

			_, err = os.Stat(src)
			assert.True(t, os.IsNotExist(err), "source should be gone")

			data, err := os.ReadFile(dst)
			require.NoError(t, err)
			assert.Equal(t, "jpeg bytes", string(data))

			info, err := os.Stat(dst)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0640), info.Mode().Perm())
		})
	}
}

func TestBackendsOverwriteExisting(t *testing.T) {
	for _, tr := range []Transferer{New(BackendRename), New(BackendNative)} {
		t.Run(tr.Name(), func(t *testing.T) {
			src := writeSource(t, "new")
			dst := filepath.Join(t.TempDir(), "out.jpg")
			require.NoError(t, os.WriteFile(dst, []byte("old"), 0644))

			_, err := tr.Move(src, dst, DefaultOptions())
			require.NoError(t, err)

			data, err := os.ReadFile(dst)
			require.NoError(t, err)
			assert.Equal(t, "new", string(data))
		})
	}
}

func TestNativeTransferer_Checksum(t *testing.T) {
	src := writeSource(t, "hello")
	dst := filepath.Join(t.TempDir(), "out.jpg")

	result, err := NewNativeTransferer(2).Move(src, dst, Options{Checksum: true})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.BytesCopied)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", result.Checksum)

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "partial file left behind")
}

func TestFileModeOption(t *testing.T) {
	src := writeSource(t, "x")
	dst := filepath.Join(t.TempDir(), "out.jpg")

	_, err := New(BackendRename).Move(src, dst, Options{FileMode: 0600})
	require.NoError(t, err)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSourceNotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.jpg")
	dst := filepath.Join(t.TempDir(), "out.jpg")

	for _, tr := range []Transferer{New(BackendRename), New(BackendNative), New(BackendAuto)} {
		result, err := tr.Move(missing, dst, DefaultOptions())
		assert.ErrorIs(t, err, ErrSourceNotFound, tr.Name())
		assert.False(t, result.Success)
	}
}
