package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// backupSet names the numbered siblings of a log file: app.log has backups
// app.1.log, app.2.log and so on, 1 being the newest.
type backupSet struct {
	live string
	stem string
	ext  string
}

func newBackupSet(live string) backupSet {
	ext := filepath.Ext(live)
	return backupSet{live: live, stem: strings.TrimSuffix(live, ext), ext: ext}
}

func (b backupSet) path(n int) string {
	return fmt.Sprintf("%s.%d%s", b.stem, n, b.ext)
}

// existing returns the backup numbers on disk, highest first.
func (b backupSet) existing() ([]int, error) {
	matches, err := filepath.Glob(b.stem + ".*" + b.ext)
	if err != nil {
		return nil, err
	}

	var nums []int
	for _, m := range matches {
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(m, b.stem+"."), b.ext))
		if err != nil || n < 1 {
			continue
		}
		nums = append(nums, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(nums)))
	return nums, nil
}

// rotate moves the live file to backup 1, shifting older backups up and
// dropping those that would pass keep.
func (b backupSet) rotate(keep int) error {
	nums, err := b.existing()
	if err != nil {
		return err
	}

	for _, n := range nums {
		if n >= keep {
			os.Remove(b.path(n))
			continue
		}
		if err := os.Rename(b.path(n), b.path(n+1)); err != nil {
			return fmt.Errorf("failed to shift log backup %d: %w", n, err)
		}
	}

	if _, err := os.Stat(b.live); os.IsNotExist(err) {
		return nil
	}
	if err := os.Rename(b.live, b.path(1)); err != nil {
		return fmt.Errorf("failed to rotate current log: %w", err)
	}
	return nil
}
