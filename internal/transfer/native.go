package transfer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"time"
)

const defaultBufferSize = 1024 * 1024

// NativeTransferer copies the file into a temporary file next to the
// destination, syncs it, renames it into place and only then removes the
// source. It works across filesystems.
type NativeTransferer struct {
	bufferSize int
}

func NewNativeTransferer(bufferSize int) *NativeTransferer {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &NativeTransferer{bufferSize: bufferSize}
}

func (n *NativeTransferer) Name() string {
	return "native"
}

func (n *NativeTransferer) Move(src, dst string, opts Options) (*Result, error) {
	result := &Result{Backend: n.Name()}
	start := time.Now()

	info, err := statSource(src, result)
	if err != nil {
		return result, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), opts.DirModeOrDefault()); err != nil {
		result.Error = fmt.Errorf("%w: %v", ErrDestinationNotWritable, err)
		return result, result.Error
	}

	copied, sum, err := n.copyFile(src, dst, info.Mode().Perm(), opts)
	result.BytesCopied = copied
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result, err
	}
	result.Checksum = sum

	if err := os.Remove(src); err != nil {
		// The destination is complete; a leftover source is reported but
		// the move itself succeeded.
		result.Success = true
		result.Duration = time.Since(start)
		return result, nil
	}

	result.Success = true
	result.SourceRemoved = true
	result.Duration = time.Since(start)
	return result, nil
}

func (n *NativeTransferer) copyFile(src, dst string, perm os.FileMode, opts Options) (int64, string, error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrSourceNotFound, err)
	}
	defer srcFile.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".part-*")
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrDestinationNotWritable, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	var h hash.Hash
	var w io.Writer = tmp
	if opts.Checksum {
		h = sha256.New()
		w = io.MultiWriter(tmp, h)
	}

	copied, err := io.CopyBuffer(w, srcFile, make([]byte, n.bufferSize))
	if err != nil {
		tmp.Close()
		return copied, "", fmt.Errorf("%w: copy: %v", ErrTransferFailed, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return copied, "", fmt.Errorf("%w: sync: %v", ErrTransferFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return copied, "", fmt.Errorf("%w: close: %v", ErrTransferFailed, err)
	}

	mode := perm
	if opts.FileMode != 0 {
		mode = opts.FileMode
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return copied, "", fmt.Errorf("chmod failed: %w", err)
	}

	var sum string
	if h != nil {
		sum = hex.EncodeToString(h.Sum(nil))
		got, err := fileSHA256(tmpPath)
		if err != nil {
			return copied, "", fmt.Errorf("%w: %v", ErrChecksumMismatch, err)
		}
		if got != sum {
			return copied, "", fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, sum, got)
		}
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return copied, "", fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return copied, sum, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
