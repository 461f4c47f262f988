// Package transfer relocates stamped files from the input directory into the
// output directory. A plain rename is tried first; when source and target live
// on different filesystems the file is copied, synced and verified before the
// source is removed.
package transfer

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Common errors returned by transfer operations
var (
	// ErrSourceNotFound is returned when the source file doesn't exist
	ErrSourceNotFound = errors.New("source file not found")

	// ErrDestinationExists is returned when the target exists and the conflict
	// policy forbids replacing it
	ErrDestinationExists = errors.New("destination already exists")

	// ErrDestinationNotWritable is returned when the destination directory
	// cannot be created or written
	ErrDestinationNotWritable = errors.New("destination not writable")

	// ErrCrossDevice is returned by the rename backend when source and target
	// are on different filesystems
	ErrCrossDevice = errors.New("source and destination are on different devices")

	// ErrChecksumMismatch is returned when post-transfer checksum verification fails
	ErrChecksumMismatch = errors.New("checksum mismatch after transfer")

	// ErrTransferFailed is returned when a transfer fails for unspecified reasons
	ErrTransferFailed = errors.New("transfer failed")
)

// Options configures a single move.
type Options struct {
	// Checksum enables SHA-256 verification of copied data. Only the native
	// backend copies bytes; a rename never needs verification.
	Checksum bool

	// FileMode sets the permissions of the moved file. Zero keeps the
	// source permissions.
	FileMode os.FileMode

	// DirMode is used when the destination directory has to be created.
	// Zero means 0755.
	DirMode os.FileMode
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Checksum: false,
		FileMode: 0,
		DirMode:  0755,
	}
}

// DirModeOrDefault returns DirMode, or 0755 when unset.
func (o Options) DirModeOrDefault() os.FileMode {
	if o.DirMode == 0 {
		return 0755
	}
	return o.DirMode
}

// Result describes a completed (or failed) move.
type Result struct {
	// Success indicates whether the file now lives at the destination
	Success bool

	// Backend is the name of the transferer that performed the move
	Backend string

	// BytesTotal is the size of the source file
	BytesTotal int64

	// BytesCopied is the number of bytes written; zero for a rename
	BytesCopied int64

	// Duration is how long the move took
	Duration time.Duration

	// Checksum is the hex SHA-256 of the file when verification was enabled
	Checksum string

	// SourceRemoved reports whether the source path no longer exists
	SourceRemoved bool

	// Error contains the error if Success is false
	Error error
}

// Transferer moves one file to a destination path.
type Transferer interface {
	// Move relocates src to dst, replacing dst if it exists. The source is
	// only removed once the destination is complete.
	// Returns ErrSourceNotFound if src doesn't exist.
	Move(src, dst string, opts Options) (*Result, error)

	// Name returns a human-readable name for this transferer implementation.
	Name() string
}

type Backend int

const (
	BackendAuto Backend = iota
	BackendRename
	BackendNative
)

func (b Backend) String() string {
	switch b {
	case BackendAuto:
		return "auto"
	case BackendRename:
		return "rename"
	case BackendNative:
		return "native"
	default:
		return "unknown"
	}
}

// New returns the transferer for backend. Auto renames when possible and
// falls back to a verified copy otherwise.
func New(backend Backend) Transferer {
	switch backend {
	case BackendRename:
		return NewRenameTransferer()
	case BackendNative:
		return NewNativeTransferer(0)
	default:
		return NewFallbackTransferer(NewRenameTransferer(), NewNativeTransferer(0))
	}
}

// ParseBackend maps a configuration string to a Backend. The empty string
// selects auto.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return BackendAuto, nil
	case "rename":
		return BackendRename, nil
	case "native":
		return BackendNative, nil
	default:
		return BackendAuto, fmt.Errorf("unknown transfer backend %q (want auto, rename or native)", s)
	}
}

func statSource(src string, result *Result) (os.FileInfo, error) {
	info, err := os.Stat(src)
	if err != nil {
		result.Error = fmt.Errorf("%w: %v", ErrSourceNotFound, err)
		return nil, result.Error
	}
	if !info.Mode().IsRegular() {
		result.Error = fmt.Errorf("%w: %s is not a regular file", ErrTransferFailed, src)
		return nil, result.Error
	}
	result.BytesTotal = info.Size()
	return info, nil
}
