package transfer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// RenameTransferer moves files with a single rename(2). It is atomic and
// needs no copy, but only works within one filesystem.
type RenameTransferer struct{}

func NewRenameTransferer() *RenameTransferer {
	return &RenameTransferer{}
}

func (r *RenameTransferer) Name() string {
	return "rename"
}

func (r *RenameTransferer) Move(src, dst string, opts Options) (*Result, error) {
	result := &Result{Backend: r.Name()}
	start := time.Now()

	if _, err := statSource(src, result); err != nil {
		return result, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), opts.DirModeOrDefault()); err != nil {
		result.Error = fmt.Errorf("%w: %v", ErrDestinationNotWritable, err)
		return result, result.Error
	}

	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, syscall.EXDEV) {
			result.Error = fmt.Errorf("%w: %v", ErrCrossDevice, err)
		} else {
			result.Error = fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
		return result, result.Error
	}
	result.SourceRemoved = true

	if err := applyMode(dst, opts); err != nil {
		result.Error = err
		return result, err
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result, nil
}

func applyMode(path string, opts Options) error {
	if opts.FileMode == 0 {
		return nil
	}
	if err := os.Chmod(path, opts.FileMode); err != nil {
		return fmt.Errorf("chmod failed: %w", err)
	}
	return nil
}
