package transfer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConflictPolicy decides what happens when the target path already exists.
type ConflictPolicy int

const (
	// ConflictOverwrite replaces the existing file.
	ConflictOverwrite ConflictPolicy = iota
	// ConflictFail leaves both files alone and reports ErrDestinationExists.
	ConflictFail
	// ConflictRename picks the first free "<stem>-N<ext>" name.
	ConflictRename
)

// maxRenameAttempts bounds the search for a free name under ConflictRename.
const maxRenameAttempts = 10000

func (p ConflictPolicy) String() string {
	switch p {
	case ConflictOverwrite:
		return "overwrite"
	case ConflictFail:
		return "fail"
	case ConflictRename:
		return "rename"
	default:
		return "unknown"
	}
}

// ParseConflictPolicy maps a configuration string to a policy. The empty
// string selects overwrite.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return ConflictOverwrite, nil
	case "fail":
		return ConflictFail, nil
	case "rename":
		return ConflictRename, nil
	default:
		return ConflictOverwrite, fmt.Errorf("unknown conflict policy %q (want overwrite, fail or rename)", s)
	}
}

// ResolveTarget returns the path a file should be moved to under policy.
func ResolveTarget(dst string, policy ConflictPolicy) (string, error) {
	if !exists(dst) {
		return dst, nil
	}

	switch policy {
	case ConflictOverwrite:
		return dst, nil
	case ConflictFail:
		return "", fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	case ConflictRename:
		dir := filepath.Dir(dst)
		ext := filepath.Ext(dst)
		stem := strings.TrimSuffix(filepath.Base(dst), ext)
		for i := 1; i <= maxRenameAttempts; i++ {
			candidate := filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, i, ext))
			if !exists(candidate) {
				return candidate, nil
			}
		}
		return "", fmt.Errorf("%w: no free name for %s", ErrDestinationExists, dst)
	default:
		return "", fmt.Errorf("unknown conflict policy %d", policy)
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
