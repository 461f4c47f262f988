package exifmeta

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
	goexif "github.com/rwcarlsen/goexif/exif"
)

var (
	// ErrNotJPEG is returned when the file is not a parseable JPEG stream.
	ErrNotJPEG = errors.New("not a JPEG image")

	// ErrCorruptExif is returned when an EXIF segment exists but cannot be decoded.
	ErrCorruptExif = errors.New("corrupt EXIF block")

	// ErrExifTooLarge is returned when the encoded block does not fit one APP1 segment.
	ErrExifTooLarge = errors.New("EXIF block exceeds APP1 segment size")
)

const (
	markerPrefix = 0xFF
	markerSOI    = 0xD8
	markerEOI    = 0xD9
	markerSOS    = 0xDA
	markerAPP0   = 0xE0
	markerAPP1   = 0xE1
	markerTEM    = 0x01

	maxSegmentPayload = 0xFFFF - 2
)

var exifHeader = []byte("Exif\x00\x00")

// blockTags lists the tags read into a Block and the goexif field holding them.
var blockTags = []struct {
	section SectionName
	tag     uint16
	field   goexif.FieldName
}{
	{SectionCapture, TagDateTimeOriginal, goexif.DateTimeOriginal},
	{SectionCapture, TagDateTimeDigitized, goexif.DateTimeDigitized},
	{SectionCapture, TagSubSecTimeOriginal, goexif.SubSecTimeOriginal},
	{SectionCapture, TagSubSecTimeDigitized, goexif.SubSecTimeDigitized},
	{SectionImage, TagDateTime, goexif.DateTime},
}

// Document is a decoded JPEG file: its original bytes, the TIFF data of its
// EXIF segment and the Block read from it.
type Document struct {
	data    []byte
	tiff    []byte
	block   Block
	hasExif bool
}

// Load reads and decodes the JPEG at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	doc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Decode parses a JPEG stream. A file without an EXIF segment decodes to an
// empty Block.
func Decode(data []byte) (doc *Document, err error) {
	defer recoverCodec(&err)

	if len(data) < 4 || data[0] != markerPrefix || data[1] != markerSOI {
		return nil, ErrNotJPEG
	}

	mc, err := jpegstructure.NewJpegMediaParser().ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJPEG, err)
	}
	sl, ok := mc.(*jpegstructure.SegmentList)
	if !ok {
		return nil, ErrNotJPEG
	}

	doc = &Document{data: data}

	_, seg, err := sl.FindExif()
	if err != nil {
		if !errors.Is(err, exif.ErrNoExif) {
			return nil, fmt.Errorf("%w: %v", ErrCorruptExif, err)
		}
		return doc, nil
	}
	if len(seg.Data) < len(exifHeader) {
		return nil, fmt.Errorf("%w: truncated segment", ErrCorruptExif)
	}
	doc.tiff = seg.Data[len(exifHeader):]
	doc.hasExif = true

	doc.block, err = readBlock(data)
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// Block returns the tags read from the file.
func (d *Document) Block() Block {
	return d.block
}

// HasExif reports whether the file carried an EXIF segment when decoded.
func (d *Document) HasExif() bool {
	return d.hasExif
}

// Dump encodes the document's EXIF block with b applied and returns the APP1
// payload ("Exif\0\0" followed by the TIFF data). Tags not present in b are
// carried over from the file unchanged.
//
// When every field of b already has a slot in the file, the values are
// patched in place and the rest of the block is kept byte for byte.
// Otherwise the block is rebuilt and must decode again. Either way the
// payload is read back before it is returned, and a payload that does not
// decode to b is an error.
func (d *Document) Dump(b Block) (payload []byte, err error) {
	defer recoverCodec(&err)

	tiffData, patched := patchTIFF(d.tiff, b)
	if !patched {
		tiffData, err = d.rebuild(b)
		if err != nil {
			return nil, err
		}
		if _, err := collect(tiffData); err != nil {
			return nil, fmt.Errorf("rebuilt block: %w", err)
		}
	}

	payload = make([]byte, 0, len(exifHeader)+len(tiffData))
	payload = append(payload, exifHeader...)
	payload = append(payload, tiffData...)

	if err := d.verify(payload, b); err != nil {
		return nil, err
	}

	d.block = b
	return payload, nil
}

// Insert writes payload into the file at path as its EXIF segment. An existing
// EXIF APP1 segment is replaced; otherwise one is added right after SOI (and a
// leading JFIF APP0). Everything else in the file is copied byte for byte.
func Insert(payload []byte, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	out, err := spliceExif(data, payload)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return replaceFile(path, out)
}

// Bytes returns the document's original stream with payload spliced in.
func (d *Document) Bytes(payload []byte) ([]byte, error) {
	return spliceExif(d.data, payload)
}

func (d *Document) rebuild(b Block) ([]byte, error) {
	root, err := d.builder()
	if err != nil {
		return nil, err
	}

	for _, s := range b.Sections() {
		ifdPath := s.Name.IfdPath()
		if ifdPath == "" {
			return nil, fmt.Errorf("unknown section %q", s.Name)
		}

		ib := root
		if s.Name != SectionImage {
			ib, err = exif.GetOrCreateIbFromRootIb(root, ifdPath)
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", ifdPath, err)
			}
		}

		for _, f := range s.Fields {
			if err := ib.SetStandard(f.Tag, string(f.Value)); err != nil {
				return nil, fmt.Errorf("set tag 0x%04x in %s: %w", f.Tag, ifdPath, err)
			}
		}
	}

	tiffData, err := exif.NewIfdByteEncoder().EncodeToExif(root)
	if err != nil {
		return nil, fmt.Errorf("encode exif: %w", err)
	}
	return tiffData, nil
}

// builder returns an IFD builder holding the file's existing tags, or an
// empty root when the file has no EXIF segment.
func (d *Document) builder() (*exif.IfdBuilder, error) {
	if !d.hasExif {
		return newRootBuilder()
	}

	index, err := collect(d.tiff)
	if err != nil {
		return nil, err
	}
	return exif.NewIfdBuilderFromExistingChain(index.RootIfd), nil
}

// verify splices payload into the document and checks that every field of b
// reads back unchanged.
func (d *Document) verify(payload []byte, b Block) error {
	out, err := d.Bytes(payload)
	if err != nil {
		return err
	}
	got, err := readBlock(out)
	if err != nil {
		return fmt.Errorf("rewritten block: %w", err)
	}

	for _, s := range b.Sections() {
		for _, f := range s.Fields {
			v, ok := got.Value(s.Name, f.Tag)
			if !ok || !bytes.Equal(v, f.Value) {
				return fmt.Errorf("%w: tag 0x%04x in %s reads back as %q", ErrCorruptExif, f.Tag, s.Name, v)
			}
		}
	}
	return nil
}

func collect(tiffData []byte) (exif.IfdIndex, error) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return exif.IfdIndex{}, fmt.Errorf("load ifd mapping: %w", err)
	}
	_, index, err := exif.Collect(im, exif.NewTagIndex(), tiffData)
	if err != nil {
		return exif.IfdIndex{}, fmt.Errorf("%w: %v", ErrCorruptExif, err)
	}
	return index, nil
}

func newRootBuilder() (*exif.IfdBuilder, error) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("load ifd mapping: %w", err)
	}
	ti := exif.NewTagIndex()
	return exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, binary.BigEndian), nil
}

func readBlock(data []byte) (Block, error) {
	x, err := goexif.Decode(bytes.NewReader(data))
	if err != nil && (x == nil || goexif.IsCriticalError(err)) {
		return Block{}, fmt.Errorf("%w: %v", ErrCorruptExif, err)
	}

	var b Block
	for _, bt := range blockTags {
		tag, err := x.Get(bt.field)
		if err != nil {
			continue
		}
		b = b.WithValue(bt.section, bt.tag, bytes.TrimRight(tag.Val, "\x00"))
	}
	return b, nil
}

func spliceExif(data, payload []byte) ([]byte, error) {
	if len(payload) > maxSegmentPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrExifTooLarge, len(payload))
	}
	if len(data) < 4 || data[0] != markerPrefix || data[1] != markerSOI {
		return nil, ErrNotJPEG
	}

	segment := make([]byte, 4, 4+len(payload))
	segment[0] = markerPrefix
	segment[1] = markerAPP1
	binary.BigEndian.PutUint16(segment[2:], uint16(len(payload)+2))
	segment = append(segment, payload...)

	insertAt := 2
	pos := 2
	for pos+1 < len(data) {
		if data[pos] != markerPrefix {
			return nil, fmt.Errorf("%w: expected marker at offset %d", ErrNotJPEG, pos)
		}
		marker := data[pos+1]

		switch {
		case marker == markerPrefix:
			pos++
			continue
		case marker == markerSOS || marker == markerEOI:
			return join(data[:insertAt], segment, data[insertAt:]), nil
		case marker == markerTEM || (marker >= 0xD0 && marker <= 0xD7):
			pos += 2
			continue
		}

		if pos+4 > len(data) {
			return nil, fmt.Errorf("%w: truncated segment at offset %d", ErrNotJPEG, pos)
		}
		length := int(binary.BigEndian.Uint16(data[pos+2:]))
		end := pos + 2 + length
		if length < 2 || end > len(data) {
			return nil, fmt.Errorf("%w: bad segment length at offset %d", ErrNotJPEG, pos)
		}

		if marker == markerAPP1 && bytes.HasPrefix(data[pos+4:end], exifHeader) {
			return join(data[:pos], segment, data[end:]), nil
		}
		if marker == markerAPP0 && pos == insertAt {
			insertAt = end
		}
		pos = end
	}

	return nil, fmt.Errorf("%w: no image data", ErrNotJPEG)
}

func join(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// replaceFile writes data next to path and renames it over the original, so
// an interrupted write never leaves a truncated image behind.
func replaceFile(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func recoverCodec(err *error) {
	if state := recover(); state != nil {
		*err = fmt.Errorf("%w: codec panic: %v", ErrCorruptExif, state)
	}
}
