package exifmeta

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the EXIF date format, YYYY:MM:DD HH:MM:SS.
const DateLayout = "2006:01:02 15:04:05"

// SubSecReset is written to sub-second tags that already exist.
const SubSecReset = "00"

// ErrNonASCII is returned when a value destined for an ASCII tag is not ASCII.
var ErrNonASCII = errors.New("value is not ASCII")

// FormatDate renders t in the EXIF date layout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Stamp returns a copy of b with every capture date set to t.
//
// DateTimeOriginal and DateTimeDigitized in the capture section and DateTime
// in the image section are set; both sections are created when missing.
// SubSecTimeOriginal and SubSecTimeDigitized are reset to "00" only when the
// block already carries them.
func Stamp(b Block, t time.Time) (Block, error) {
	date, err := encodeASCII(FormatDate(t))
	if err != nil {
		return b, err
	}
	reset, err := encodeASCII(SubSecReset)
	if err != nil {
		return b, err
	}

	out := b.WithSection(SectionCapture).WithSection(SectionImage)
	out = out.WithValue(SectionCapture, TagDateTimeOriginal, date)
	out = out.WithValue(SectionCapture, TagDateTimeDigitized, date)
	out = out.WithValue(SectionImage, TagDateTime, date)

	for _, tag := range []uint16{TagSubSecTimeOriginal, TagSubSecTimeDigitized} {
		if _, ok := out.Value(SectionCapture, tag); ok {
			out = out.WithValue(SectionCapture, tag, reset)
		}
	}

	return out, nil
}

func encodeASCII(s string) ([]byte, error) {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return nil, fmt.Errorf("%w: %q", ErrNonASCII, s)
		}
	}
	return []byte(s), nil
}
