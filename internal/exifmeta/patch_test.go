package exifmeta

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	goexif "github.com/rwcarlsen/goexif/exif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nomadcxx/signalstamp/internal/testutil"
)

// iphone-4s.jpg carries camera EXIF: an Apple maker note, a GPS directory,
// an IFD1 thumbnail and two-digit sub-second tags.
const cameraFixture = "testdata/iphone-4s.jpg"

func copyCameraFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(cameraFixture)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "signal-2023-05-17-14-30-05-123.jpg")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestWriteDates_CameraExifCanBeRestamped(t *testing.T) {
	path := copyCameraFixture(t)
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	pixels := testutil.Pixels(t, path)

	report, err := Inspect(path)
	require.NoError(t, err)
	require.Equal(t, "2014:09:01 15:03:47", report.Original)
	require.Equal(t, "880", report.SubSecOriginal)

	for run := 1; run <= 2; run++ {
		res := WriteDates(path, captureTime)
		require.True(t, res.OK(), "write %d: %v", run, res.Err)

		report, err = Inspect(path)
		require.NoError(t, err, "write %d", run)
		assert.Equal(t, "2023:05:17 14:30:05", report.Original)
		assert.Equal(t, "2023:05:17 14:30:05", report.Digitized)
		assert.Equal(t, "2023:05:17 14:30:05", report.Modified)
		assert.Equal(t, "00", report.SubSecOriginal)
		assert.Equal(t, "00", report.SubSecDigitized)
	}

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, after, len(before), "values are patched in place")
	changed := 0
	for i := range before {
		if before[i] != after[i] {
			changed++
		}
	}
	assert.LessOrEqual(t, changed, 3*19+2*4, "only date and sub-second values may change")

	assert.Equal(t, pixels, testutil.Pixels(t, path))
	assert.Equal(t, "Apple", goexifString(t, path, goexif.Make))
	assert.Equal(t, "iPhone 4S", goexifString(t, path, goexif.Model))

	doc, err := Load(path)
	require.NoError(t, err)
	_, err = collect(doc.tiff)
	assert.NoError(t, err, "block must still decode for rebuilding")
}

func cameraTIFF(t *testing.T) []byte {
	t.Helper()
	doc, err := Load(cameraFixture)
	require.NoError(t, err)
	require.True(t, doc.HasExif())
	return doc.tiff
}

func TestPatchTIFF_PadsShorterValues(t *testing.T) {
	data := cameraTIFF(t)
	b := NewBlock().WithValue(SectionCapture, TagSubSecTimeOriginal, []byte("7"))

	out, ok := patchTIFF(data, b)
	require.True(t, ok)
	assert.Len(t, out, len(data))

	slots, ok := asciiSlots(out)
	require.True(t, ok)
	sl := slots[slotKey{SectionCapture, TagSubSecTimeOriginal}]
	assert.Equal(t, []byte("7\x00\x00\x00"), out[sl.pos:sl.pos+sl.capacity])

	assert.Equal(t, "880", string(bytes.TrimRight(data[sl.pos:sl.pos+sl.capacity], "\x00")), "input must not be modified")
}

func TestPatchTIFF_RequiresRoom(t *testing.T) {
	data := cameraTIFF(t)

	tests := []struct {
		name  string
		block Block
	}{
		{"tag missing from section", NewBlock().WithValue(SectionImage, TagDateTimeOriginal, []byte("2023:05:17 14:30:05"))},
		{"no room for terminator", NewBlock().WithValue(SectionImage, TagDateTime, []byte("2023:05:17 14:30:05!"))},
		{"unknown section", NewBlock().WithValue(SectionName("gps"), TagDateTime, []byte("x"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := patchTIFF(data, tt.block)
			assert.False(t, ok)
		})
	}

	_, ok := patchTIFF(nil, NewBlock().WithValue(SectionImage, TagDateTime, []byte("x")))
	assert.False(t, ok, "files without EXIF are rebuilt")
}

func TestDump_RebuildsWhenSlotsAreMissing(t *testing.T) {
	path := writeFixture(t)
	seedExif(t, path, Field{Tag: TagDateTimeOriginal, Value: []byte("1999:12:31 23:59:59")})

	doc, err := Load(path)
	require.NoError(t, err)
	stamped, err := Stamp(doc.Block(), captureTime)
	require.NoError(t, err)

	_, patched := patchTIFF(doc.tiff, stamped)
	require.False(t, patched, "DateTime and DateTimeDigitized are not in the file yet")

	payload, err := doc.Dump(stamped)
	require.NoError(t, err)
	out, err := doc.Bytes(payload)
	require.NoError(t, err)

	got, err := readBlock(out)
	require.NoError(t, err)
	assert.Equal(t, "2023:05:17 14:30:05", got.String(SectionImage, TagDateTime))
	assert.Equal(t, "2023:05:17 14:30:05", got.String(SectionCapture, TagDateTimeDigitized))
}
