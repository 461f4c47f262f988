// Package exifmeta reads and rewrites the capture dates stored in the EXIF
// block of JPEG files.
//
// The block is modelled as a Block value: an ordered list of sections, each an
// ordered list of tag id to raw byte values. A Block is decoded fresh from the
// file, changed only through functions that return a new Block, and then
// encoded back into the file by the codec in codec.go.
package exifmeta

import "bytes"

// SectionName identifies a group of tags within the EXIF block.
type SectionName string

const (
	// SectionImage holds file level tags (IFD0).
	SectionImage SectionName = "image"
	// SectionCapture holds capture time tags (the Exif sub-IFD).
	SectionCapture SectionName = "capture"
)

// IfdPath returns the fully qualified IFD path used by the EXIF builder.
func (s SectionName) IfdPath() string {
	switch s {
	case SectionImage:
		return "IFD0"
	case SectionCapture:
		return "IFD/Exif"
	default:
		return ""
	}
}

// Tag ids of the fields this package reads and writes.
const (
	TagDateTime            uint16 = 0x0132
	TagDateTimeOriginal    uint16 = 0x9003
	TagDateTimeDigitized   uint16 = 0x9004
	TagSubSecTimeOriginal  uint16 = 0x9291
	TagSubSecTimeDigitized uint16 = 0x9292
)

// Field is a single tag value. Value holds the ASCII payload without the
// trailing NUL.
type Field struct {
	Tag   uint16
	Value []byte
}

// Section is an ordered mapping of tag id to value.
type Section struct {
	Name   SectionName
	Fields []Field
}

// Get returns the value stored for tag.
func (s Section) Get(tag uint16) ([]byte, bool) {
	for _, f := range s.Fields {
		if f.Tag == tag {
			return f.Value, true
		}
	}
	return nil, false
}

// Block is an immutable view of an EXIF block. The zero value is an empty
// block with no sections.
type Block struct {
	sections []Section
}

// NewBlock builds a block from sections. Inputs are deep copied.
func NewBlock(sections ...Section) Block {
	b := Block{}
	for _, s := range sections {
		b = b.WithSection(s.Name)
		for _, f := range s.Fields {
			b = b.WithValue(s.Name, f.Tag, f.Value)
		}
	}
	return b
}

// Sections returns a deep copy of the block's sections in order.
func (b Block) Sections() []Section {
	out := make([]Section, len(b.sections))
	for i, s := range b.sections {
		out[i] = cloneSection(s)
	}
	return out
}

// Has reports whether the section exists.
func (b Block) Has(name SectionName) bool {
	return b.index(name) >= 0
}

// Value returns a copy of the value stored for tag in section.
func (b Block) Value(name SectionName, tag uint16) ([]byte, bool) {
	i := b.index(name)
	if i < 0 {
		return nil, false
	}
	v, ok := b.sections[i].Get(tag)
	if !ok {
		return nil, false
	}
	return bytes.Clone(v), true
}

// String returns the value as a string, or "" if it is absent.
func (b Block) String(name SectionName, tag uint16) string {
	v, _ := b.Value(name, tag)
	return string(v)
}

// WithSection returns a copy of b that contains the named section, appending
// an empty one if it is missing.
func (b Block) WithSection(name SectionName) Block {
	if b.Has(name) {
		return b.clone()
	}
	out := b.clone()
	out.sections = append(out.sections, Section{Name: name})
	return out
}

// WithValue returns a copy of b with tag set to value in section. The section
// is created when missing; an existing tag keeps its position.
func (b Block) WithValue(name SectionName, tag uint16, value []byte) Block {
	out := b.WithSection(name)
	s := &out.sections[out.index(name)]
	for i := range s.Fields {
		if s.Fields[i].Tag == tag {
			s.Fields[i].Value = bytes.Clone(value)
			return out
		}
	}
	s.Fields = append(s.Fields, Field{Tag: tag, Value: bytes.Clone(value)})
	return out
}

// Equal reports whether two blocks hold the same sections, tags and values in
// the same order.
func (b Block) Equal(other Block) bool {
	if len(b.sections) != len(other.sections) {
		return false
	}
	for i, s := range b.sections {
		o := other.sections[i]
		if s.Name != o.Name || len(s.Fields) != len(o.Fields) {
			return false
		}
		for j, f := range s.Fields {
			if f.Tag != o.Fields[j].Tag || !bytes.Equal(f.Value, o.Fields[j].Value) {
				return false
			}
		}
	}
	return true
}

func (b Block) index(name SectionName) int {
	for i, s := range b.sections {
		if s.Name == name {
			return i
		}
	}
	return -1
}

func (b Block) clone() Block {
	return Block{sections: b.Sections()}
}

func cloneSection(s Section) Section {
	fields := make([]Field, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = Field{Tag: f.Tag, Value: bytes.Clone(f.Value)}
	}
	return Section{Name: s.Name, Fields: fields}
}
