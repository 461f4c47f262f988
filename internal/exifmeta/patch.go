package exifmeta

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/rwcarlsen/goexif/tiff"
)

const (
	tagExifIFDPointer = 0x8769

	tiffHeaderSize = 8
	ifdEntrySize   = 12
)

type slotKey struct {
	section SectionName
	tag     uint16
}

// slot is the byte range holding an ASCII tag value inside a TIFF block.
type slot struct {
	pos      int
	capacity int
}

// patchTIFF writes the fields of b over the existing values in a copy of
// data. No byte moves, so offsets stored elsewhere in the block (maker notes,
// thumbnails, GPS and interop directories) stay valid. It reports false when
// a field has no ASCII slot with room for the value and its terminating NUL;
// the block then has to be rebuilt.
func patchTIFF(data []byte, b Block) ([]byte, bool) {
	if len(data) == 0 {
		return nil, false
	}
	slots, ok := asciiSlots(data)
	if !ok {
		return nil, false
	}

	out := append([]byte(nil), data...)
	for _, s := range b.Sections() {
		for _, f := range s.Fields {
			sl, found := slots[slotKey{s.Name, f.Tag}]
			if !found || len(f.Value) >= sl.capacity {
				return nil, false
			}
			region := out[sl.pos : sl.pos+sl.capacity]
			n := copy(region, f.Value)
			for i := n; i < len(region); i++ {
				region[i] = 0
			}
		}
	}
	return out, true
}

// asciiSlots locates the ASCII tags of IFD0 and of the Exif sub-IFD.
func asciiSlots(data []byte) (map[slotKey]slot, bool) {
	if len(data) < tiffHeaderSize {
		return nil, false
	}

	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, false
	}

	slots := make(map[slotKey]slot)

	ifd0 := order.Uint32(data[4:8])
	tags, ok := readDir(data, order, ifd0)
	if !ok {
		return nil, false
	}
	addSlots(slots, SectionImage, data, ifd0, tags)

	for _, t := range tags {
		if t.Id != tagExifIFDPointer || len(t.Val) != 4 {
			continue
		}
		exifIFD := order.Uint32(t.Val)
		sub, ok := readDir(data, order, exifIFD)
		if !ok {
			return nil, false
		}
		addSlots(slots, SectionCapture, data, exifIFD, sub)
	}

	return slots, true
}

func readDir(data []byte, order binary.ByteOrder, offset uint32) ([]*tiff.Tag, bool) {
	if int64(offset)+2 > int64(len(data)) {
		return nil, false
	}
	r := bytes.NewReader(data)
	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, false
	}
	dir, _, err := tiff.DecodeDir(r, order)
	if err != nil {
		return nil, false
	}
	return dir.Tags, true
}

func addSlots(slots map[slotKey]slot, section SectionName, data []byte, dirOffset uint32, tags []*tiff.Tag) {
	for i, t := range tags {
		if t.Type != tiff.DTAscii {
			continue
		}
		// values of up to four bytes sit in the entry's offset field
		pos := int(dirOffset) + 2 + i*ifdEntrySize + 8
		if t.Count > 4 {
			pos = int(t.ValOffset)
		}
		if pos+int(t.Count) > len(data) {
			continue
		}
		slots[slotKey{section, t.Id}] = slot{pos: pos, capacity: int(t.Count)}
	}
}
