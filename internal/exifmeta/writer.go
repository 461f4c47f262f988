package exifmeta

import (
	"fmt"
	"time"

	"github.com/Nomadcxx/signalstamp/internal/logging"
)

const component = "exifmeta"

// Result is the outcome of stamping one file.
type Result struct {
	Path  string
	Date  string
	Block Block
	Err   error
}

// OK reports whether the file was stamped.
func (r Result) OK() bool {
	return r.Err == nil
}

// Writer stamps capture dates into files and logs failures.
type Writer struct {
	logger *logging.Logger
}

// NewWriter returns a Writer. A nil logger discards output.
func NewWriter(logger *logging.Logger) *Writer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Writer{logger: logger}
}

// WriteDates sets DateTimeOriginal, DateTimeDigitized and DateTime of the
// file at path to t. It never panics or returns an error directly: every
// failure is reported through Result.Err and logged with the file path.
func (w *Writer) WriteDates(path string, t time.Time) Result {
	res := Result{Path: path, Date: FormatDate(t)}

	res.Block, res.Err = stampFile(path, t)
	if res.Err != nil {
		w.logger.Error(component, "Failed to update metadata", res.Err, logging.F("file", path))
		return res
	}

	w.logger.Debug(component, "Metadata updated", logging.F("file", path), logging.F("date", res.Date))
	return res
}

// WriteDates stamps path without logging.
func WriteDates(path string, t time.Time) Result {
	return NewWriter(nil).WriteDates(path, t)
}

func stampFile(path string, t time.Time) (stamped Block, err error) {
	defer recoverCodec(&err)

	doc, err := Load(path)
	if err != nil {
		return Block{}, err
	}

	stamped, err = Stamp(doc.Block(), t)
	if err != nil {
		return Block{}, fmt.Errorf("%s: %w", path, err)
	}

	payload, err := doc.Dump(stamped)
	if err != nil {
		return Block{}, fmt.Errorf("%s: %w", path, err)
	}

	if err := Insert(payload, path); err != nil {
		return Block{}, err
	}

	return stamped, nil
}
