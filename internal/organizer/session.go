package organizer

import (
	"time"

	"github.com/Nomadcxx/signalstamp/internal/activity"
	"github.com/Nomadcxx/signalstamp/internal/database"
	"github.com/Nomadcxx/signalstamp/internal/logging"
)

// Session groups the files processed under one history run. A batch uses one
// session; watch mode keeps one open for its whole lifetime.
type Session struct {
	org         *Organizer
	runID       int64
	started     time.Time
	keepResults bool
	summary     Summary
}

// NewSession opens a history run for files handed to Process.
func (o *Organizer) NewSession() *Session {
	return o.newSession(false)
}

func (o *Organizer) newSession(keepResults bool) *Session {
	s := &Session{org: o, started: time.Now(), keepResults: keepResults}

	if o.history != nil {
		id, err := o.history.BeginRun(database.Run{
			InputDir:  o.inputDir,
			OutputDir: o.outputDir,
			DryRun:    o.dryRun,
			Backend:   o.transferer.Name(),
			StartedAt: s.started,
		})
		if err != nil {
			o.logger.Warn("history", "Failed to start run, history disabled for this run", logging.F("error", err))
		} else {
			s.runID = id
		}
	}
	s.summary.RunID = s.runID

	return s
}

// Process handles one input file and tallies it.
func (s *Session) Process(name string) FileResult {
	res := s.org.ProcessFile(name)

	if res.OK() {
		s.summary.Succeeded++
		s.summary.BytesMoved += res.BytesMoved
	} else {
		s.summary.Failed++
	}
	if s.keepResults {
		s.summary.Results = append(s.summary.Results, res)
	}

	s.record(res)
	if s.org.progress != nil {
		s.org.progress(res)
	}
	return res
}

// Summary returns the tally so far.
func (s *Session) Summary() Summary {
	sum := s.summary
	sum.Duration = time.Since(s.started)
	return sum
}

// Close finishes the history run and returns the final tally.
func (s *Session) Close() *Summary {
	sum := s.Summary()
	o := s.org

	if o.history != nil && s.runID != 0 {
		if err := o.history.FinishRun(s.runID, sum.Succeeded, sum.Failed, time.Now()); err != nil {
			o.logger.Warn("history", "Failed to finish run", logging.F("run", s.runID), logging.F("error", err))
		}
	}

	o.logger.Info(component, "Run finished",
		logging.F("succeeded", sum.Succeeded),
		logging.F("failed", sum.Failed),
		logging.F("duration", sum.Duration.Round(time.Millisecond)))
	return &sum
}

func (s *Session) record(res FileResult) {
	o := s.org
	var errText string
	if res.Err != nil {
		errText = res.Err.Error()
	}

	if o.history != nil && s.runID != 0 {
		err := o.history.RecordFile(database.FileRecord{
			RunID:       s.runID,
			Name:        res.Name,
			Stage:       string(res.Stage),
			Success:     res.OK(),
			CaptureDate: res.Date,
			TargetPath:  res.Target,
			Backend:     res.Backend,
			Bytes:       res.BytesMoved,
			Error:       errText,
		})
		if err != nil {
			o.logger.Warn("history", "Failed to record file", logging.F("file", res.Name), logging.F("error", err))
		}
	}

	if o.activity != nil {
		action := activity.ActionStamp
		if res.DryRun {
			action = activity.ActionDryRun
		}
		err := o.activity.Log(activity.Entry{
			Action:      action,
			RunID:       s.runID,
			Source:      res.Source,
			Target:      res.Target,
			CaptureDate: res.Date,
			Stage:       string(res.Stage),
			Backend:     res.Backend,
			Success:     res.OK(),
			Bytes:       res.BytesMoved,
			DurationMs:  res.Duration.Milliseconds(),
			Error:       errText,
		})
		if err != nil {
			o.logger.Warn(component, "Failed to write activity entry", logging.F("file", res.Name), logging.F("error", err))
		}
	}
}
