package fileinfo

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
)

// DirStats summarizes the files under a set of directories.
type DirStats struct {
	TotalFiles     int            `json:"total_files"`
	TotalSize      int64          `json:"total_size"`
	TotalSizeHuman string         `json:"total_size_human"`
	OldestFile     string         `json:"oldest_file,omitempty"`
	NewestFile     string         `json:"newest_file,omitempty"`
	PerDir         map[string]int `json:"per_dir"`
}

// EnsureDirs creates the given directories if they do not exist.
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// SweepDirs removes regular files older than maxAge from the given
// directories and returns the removed paths. Failures are logged and skipped.
func SweepDirs(maxAge time.Duration, dirs ...string) []string {
	var removed []string
	cutoff := time.Now().Add(-maxAge)

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				log.Printf("temp sweep: remove %s failed: %v", path, err)
				continue
			}
			removed = append(removed, path)
		}
	}
	return removed
}

// StatDirs collects file statistics across the given directories.
func StatDirs(dirs ...string) DirStats {
	stats := DirStats{PerDir: make(map[string]int)}
	var oldest, newest time.Time

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			stats.TotalFiles++
			stats.PerDir[dir]++
			stats.TotalSize += info.Size()
			if oldest.IsZero() || info.ModTime().Before(oldest) {
				oldest = info.ModTime()
				stats.OldestFile = path
			}
			if info.ModTime().After(newest) {
				newest = info.ModTime()
				stats.NewestFile = path
			}
		}
	}
	stats.TotalSizeHuman = humanize.IBytes(uint64(stats.TotalSize))
	return stats
}
