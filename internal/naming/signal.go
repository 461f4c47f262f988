package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoMatch is returned when a filename does not follow the Signal export pattern.
	ErrNoMatch = errors.New("filename does not match signal export pattern")

	// ErrInvalidDate is returned when the pattern matches but the numbers are not a calendar date.
	ErrInvalidDate = errors.New("filename contains an invalid date")
)

// signal-YYYY-MM-DD-HH-MM-SS-mmm.jpg or signal-YYYY-MM-DD-HH-MM-SS-mmm-n.jpg
var signalRegex = regexp.MustCompile(`^signal-(\d{4})-(\d{2})-(\d{2})-(\d{2})-(\d{2})-(\d{2})-\d{3}(?:-\d+)?\.jpg$`)

// Timestamp is a wall clock capture time without sub-second or zone information.
type Timestamp struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// Time returns the timestamp as a UTC time. UTC has no daylight saving
// transitions, so every field comes back exactly as parsed from the name.
func (ts Timestamp) Time() time.Time {
	return time.Date(ts.Year, time.Month(ts.Month), ts.Day, ts.Hour, ts.Minute, ts.Second, 0, time.UTC)
}

func (ts Timestamp) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", ts.Year, ts.Month, ts.Day, ts.Hour, ts.Minute, ts.Second)
}

// IsCandidate reports whether a directory entry should be picked up by the
// batch: any name ending in .jpg, regardless of case.
func IsCandidate(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".jpg")
}

// ParseFilename extracts the capture timestamp from a Signal export filename.
// The millisecond group and the -n disambiguator are matched but ignored.
func ParseFilename(filename string) (Timestamp, error) {
	base := filepath.Base(filename)

	m := signalRegex.FindStringSubmatch(base)
	if m == nil {
		return Timestamp{}, fmt.Errorf("%w: %s", ErrNoMatch, base)
	}

	var fields [6]int
	for i := range fields {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Timestamp{}, fmt.Errorf("%w: %s: %v", ErrInvalidDate, base, err)
		}
		fields[i] = n
	}

	ts := Timestamp{
		Year:   fields[0],
		Month:  fields[1],
		Day:    fields[2],
		Hour:   fields[3],
		Minute: fields[4],
		Second: fields[5],
	}
	if err := ts.validate(); err != nil {
		return Timestamp{}, fmt.Errorf("%w: %s: %v", ErrInvalidDate, base, err)
	}

	return ts, nil
}

// validate rejects values time.Date would silently normalize.
func (ts Timestamp) validate() error {
	if ts.Year < 1 {
		return fmt.Errorf("year %d out of range", ts.Year)
	}
	if ts.Month < 1 || ts.Month > 12 {
		return fmt.Errorf("month %d out of range", ts.Month)
	}
	if ts.Hour > 23 {
		return fmt.Errorf("hour %d out of range", ts.Hour)
	}
	if ts.Minute > 59 {
		return fmt.Errorf("minute %d out of range", ts.Minute)
	}
	if ts.Second > 59 {
		return fmt.Errorf("second %d out of range", ts.Second)
	}

	t := time.Date(ts.Year, time.Month(ts.Month), ts.Day, 0, 0, 0, 0, time.UTC)
	if ts.Day < 1 || t.Day() != ts.Day || int(t.Month()) != ts.Month {
		return fmt.Errorf("day %d out of range for %04d-%02d", ts.Day, ts.Year, ts.Month)
	}

	return nil
}
