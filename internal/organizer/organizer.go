// Package organizer drives a batch: it walks the input directory, stamps the
// capture date parsed from each Signal filename into the image and moves the
// file into the output directory.
package organizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Nomadcxx/signalstamp/internal/activity"
	"github.com/Nomadcxx/signalstamp/internal/database"
	"github.com/Nomadcxx/signalstamp/internal/exifmeta"
	"github.com/Nomadcxx/signalstamp/internal/logging"
	"github.com/Nomadcxx/signalstamp/internal/naming"
	"github.com/Nomadcxx/signalstamp/internal/transfer"
)

const component = "organizer"

// Stage is the last step a file reached.
type Stage string

const (
	StageParse    Stage = "parse"
	StageMetadata Stage = "metadata"
	StageRelocate Stage = "relocate"
	StageDone     Stage = "done"
)

// FileResult is the outcome of processing one input file.
type FileResult struct {
	Name       string
	Source     string
	Target     string
	Timestamp  naming.Timestamp
	Date       string // EXIF-formatted capture date
	Stage      Stage
	DryRun     bool
	Backend    string
	BytesMoved int64
	Duration   time.Duration
	Err        error
}

// OK reports whether the file was stamped and moved (or would be, in a dry run).
func (r FileResult) OK() bool {
	return r.Err == nil
}

// Summary tallies a run.
type Summary struct {
	RunID      int64
	Succeeded  int
	Failed     int
	BytesMoved int64
	Duration   time.Duration
	Results    []FileResult
}

// Recorder persists run history. *database.HistoryDB implements it.
type Recorder interface {
	BeginRun(run database.Run) (int64, error)
	RecordFile(rec database.FileRecord) error
	FinishRun(id int64, succeeded, failed int, finishedAt time.Time) error
}

// ActivityLogger receives one entry per processed file. *activity.Logger
// implements it.
type ActivityLogger interface {
	Log(entry activity.Entry) error
}

type Organizer struct {
	inputDir   string
	outputDir  string
	dryRun     bool
	policy     transfer.ConflictPolicy
	transferer transfer.Transferer
	opts       transfer.Options
	logger     *logging.Logger
	writer     *exifmeta.Writer
	history    Recorder
	activity   ActivityLogger
	progress   func(FileResult)
}

func NewOrganizer(inputDir, outputDir string, options ...func(*Organizer)) *Organizer {
	org := &Organizer{
		inputDir:   inputDir,
		outputDir:  outputDir,
		dryRun:     false,
		policy:     transfer.ConflictOverwrite,
		transferer: transfer.New(transfer.BackendAuto),
		opts:       transfer.DefaultOptions(),
		logger:     logging.Nop(),
	}

	for _, opt := range options {
		opt(org)
	}

	org.writer = exifmeta.NewWriter(org.logger)
	if ft, ok := org.transferer.(*transfer.FallbackTransferer); ok {
		ft.SetLogger(org.logger)
	}

	return org
}

// WithDryRun sets dry run mode
func WithDryRun(dryRun bool) func(*Organizer) {
	return func(o *Organizer) {
		o.dryRun = dryRun
	}
}

// WithConflictPolicy sets what happens when the output file already exists
func WithConflictPolicy(policy transfer.ConflictPolicy) func(*Organizer) {
	return func(o *Organizer) {
		o.policy = policy
	}
}

func WithBackend(backend transfer.Backend) func(*Organizer) {
	return func(o *Organizer) {
		o.transferer = transfer.New(backend)
	}
}

// WithTransferer replaces the relocation backend
func WithTransferer(t transfer.Transferer) func(*Organizer) {
	return func(o *Organizer) {
		if t != nil {
			o.transferer = t
		}
	}
}

// WithTransferOptions sets checksum verification and file modes for moves
func WithTransferOptions(opts transfer.Options) func(*Organizer) {
	return func(o *Organizer) {
		o.opts = opts
	}
}

func WithLogger(logger *logging.Logger) func(*Organizer) {
	return func(o *Organizer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHistory records runs and file outcomes
func WithHistory(r Recorder) func(*Organizer) {
	return func(o *Organizer) {
		o.history = r
	}
}

// WithActivity journals every processed file
func WithActivity(a ActivityLogger) func(*Organizer) {
	return func(o *Organizer) {
		o.activity = a
	}
}

// WithProgress is called after each file, in processing order
func WithProgress(fn func(FileResult)) func(*Organizer) {
	return func(o *Organizer) {
		o.progress = fn
	}
}

func (o *Organizer) InputDir() string  { return o.inputDir }
func (o *Organizer) OutputDir() string { return o.outputDir }
func (o *Organizer) DryRun() bool      { return o.dryRun }

// Accepts reports whether a directory entry name is picked up by a run.
func (o *Organizer) Accepts(name string) bool {
	return naming.IsCandidate(name)
}

// Run processes every candidate file of the input directory in directory
// order. Per-file failures are counted in the Summary; only directory errors
// and cancellation are returned. Cancellation is observed between files.
func (o *Organizer) Run(ctx context.Context) (*Summary, error) {
	if err := o.Prepare(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(o.inputDir)
	if err != nil {
		return nil, fmt.Errorf("read input directory %s: %w", o.inputDir, err)
	}

	session := o.newSession(true)
	o.logger.Info(component, "Run started",
		logging.F("input", o.inputDir),
		logging.F("output", o.outputDir),
		logging.F("dry_run", o.dryRun))

	var runErr error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			o.logger.Warn(component, "Run interrupted, remaining files not started",
				logging.F("processed", session.summary.Succeeded+session.summary.Failed))
			runErr = err
			break
		}

		if !o.Accepts(entry.Name()) || !o.isFile(entry) {
			continue
		}

		session.Process(entry.Name())
	}

	summary := session.Close()
	return summary, runErr
}

// isFile reports whether entry is a regular file or a symlink to one.
// Dangling links are skipped like directories.
func (o *Organizer) isFile(entry os.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(o.inputDir, entry.Name()))
	return err == nil && info.Mode().IsRegular()
}

// Prepare creates the output directory. Nothing is created in a dry run.
func (o *Organizer) Prepare() error {
	if o.dryRun {
		return nil
	}
	if err := os.MkdirAll(o.outputDir, o.opts.DirModeOrDefault()); err != nil {
		return fmt.Errorf("create output directory %s: %w", o.outputDir, err)
	}
	return nil
}

// ProcessFile parses, stamps and relocates one file of the input directory.
// It never panics and never returns an error; failures are in the result.
func (o *Organizer) ProcessFile(name string) (res FileResult) {
	start := time.Now()
	res = FileResult{
		Name:   name,
		Source: filepath.Join(o.inputDir, name),
		Stage:  StageParse,
		DryRun: o.dryRun,
	}
	defer func() { res.Duration = time.Since(start) }()

	ts, err := naming.ParseFilename(name)
	if err != nil {
		res.Err = err
		if errors.Is(err, naming.ErrInvalidDate) {
			o.logger.Warn(component, "Skipping file with invalid timestamp", logging.F("file", name), logging.F("error", err))
		} else {
			o.logger.Warn(component, "Skipping file without timestamp", logging.F("file", name))
		}
		return res
	}
	res.Timestamp = ts
	res.Date = exifmeta.FormatDate(ts.Time())

	target, err := transfer.ResolveTarget(filepath.Join(o.outputDir, name), o.policy)
	if err != nil {
		res.Stage = StageRelocate
		res.Err = err
		o.logger.Error(component, "Target already exists", err, logging.F("file", name))
		return res
	}
	res.Target = target

	res.Stage = StageMetadata
	if o.dryRun {
		if err := o.check(res.Source, ts); err != nil {
			res.Err = err
			o.logger.Error(component, "Would fail to write capture date", err, logging.F("file", name))
			return res
		}
		res.Stage = StageDone
		o.logger.Info(component, "Would stamp and move",
			logging.F("file", name), logging.F("date", res.Date), logging.F("target", target))
		return res
	}

	if wr := o.writer.WriteDates(res.Source, ts.Time()); !wr.OK() {
		res.Err = wr.Err
		return res
	}

	res.Stage = StageRelocate
	moved, err := o.transferer.Move(res.Source, target, o.opts)
	if moved != nil {
		res.Backend = moved.Backend
	}
	if err != nil {
		res.Err = err
		o.logger.Error(component, "Failed to move stamped file", err,
			logging.F("file", name), logging.F("target", target))
		return res
	}

	res.Stage = StageDone
	res.BytesMoved = moved.BytesTotal
	o.logger.Info(component, "Stamped and moved",
		logging.F("file", name), logging.F("date", res.Date),
		logging.F("target", target), logging.F("backend", res.Backend))
	return res
}

// check runs the read, mutate and encode steps without writing anything.
func (o *Organizer) check(path string, ts naming.Timestamp) error {
	doc, err := exifmeta.Load(path)
	if err != nil {
		return err
	}
	stamped, err := exifmeta.Stamp(doc.Block(), ts.Time())
	if err != nil {
		return err
	}
	_, err = doc.Dump(stamped)
	return err
}
