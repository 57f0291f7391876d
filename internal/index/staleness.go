// Package index keeps the document index fresh. It tracks staleness by
// comparing the newest modification time in the document folder against a
// build-time marker file, and drives rebuilds through a three-state cache:
// fresh in memory, fresh on disk, or stale/absent.
package index

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Marker timestamps are stored as floating-point Unix seconds, which holds
// roughly microsecond precision for current dates. All comparisons use
// microsecond-truncated times so a written marker reads back equal.
const markerPrecision = time.Microsecond

// LatestMtime returns the newest modification time among the regular files
// directly inside dir. It returns the zero time when the directory is missing
// or contains no files.
func LatestMtime(dir string) time.Time {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return time.Time{}
	}

	var latest time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if mtime := info.ModTime(); mtime.After(latest) {
			latest = mtime
		}
	}

	return latest.Truncate(markerPrecision)
}

// ReadBuildTime returns the build time recorded in the marker file.
// An absent or unparsable marker yields the zero time: a corrupt cache
// degrades to "always stale" instead of failing.
func ReadBuildTime(markerPath string) time.Time {
	data, err := os.ReadFile(markerPath)
	if err != nil {
		return time.Time{}
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil || seconds <= 0 || math.IsInf(seconds, 0) || math.IsNaN(seconds) {
		return time.Time{}
	}

	sec := int64(seconds)
	nsec := int64(math.Round((seconds - float64(sec)) * float64(time.Second)))
	return time.Unix(sec, nsec).Round(markerPrecision)
}

// WriteBuildTime records t in the marker file as floating-point Unix seconds,
// creating the persistence directory first if needed.
func WriteBuildTime(markerPath string, t time.Time) error {
	if err := os.MkdirAll(filepath.Dir(markerPath), 0o750); err != nil {
		return fmt.Errorf("creating persist directory: %w", err)
	}

	seconds := float64(t.Truncate(markerPrecision).UnixNano()) / float64(time.Second)
	value := strconv.FormatFloat(seconds, 'f', 6, 64)

	if err := os.WriteFile(markerPath, []byte(value), 0o600); err != nil {
		return fmt.Errorf("writing build marker: %w", err)
	}
	return nil
}
