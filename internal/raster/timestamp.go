package raster

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	defaults "github.com/xtxerr/zonalseries/config"
	"github.com/xtxerr/zonalseries/internal/errors"
)

// Snapshot is one dated raster file.
type Snapshot struct {
	Path string
	Date time.Time
}

// Name returns the snapshot's file name.
func (s Snapshot) Name() string {
	return filepath.Base(s.Path)
}

// ParseTimestamp derives the snapshot date from a file name or path.
// prefix and the ext suffix are removed, the remainder must be a YYYY-MM-DD
// date. An empty prefix strips nothing. Failures wrap errors.ErrParse.
func ParseTimestamp(name, prefix, ext string) (time.Time, error) {
	base := filepath.Base(name)

	s := strings.TrimPrefix(base, prefix)
	s = trimSuffixFold(s, normalizeExt(ext))

	t, err := time.ParseInLocation(defaults.SnapshotDateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("snapshot %s: %w",
			base, errors.NewParse(s, defaults.SnapshotDateLayout, err))
	}
	return t, nil
}

func trimSuffixFold(s, suffix string) string {
	if len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return s[:len(s)-len(suffix)]
	}
	return s
}

// Filename builds the snapshot file name for date. It is the inverse of
// ParseTimestamp.
func Filename(prefix string, date time.Time, ext string) string {
	return prefix + date.Format(defaults.SnapshotDateLayout) + normalizeExt(ext)
}

// Timestamps parses one date per path, in the order of paths. The first
// malformed name aborts with a parse error.
func Timestamps(paths []string, prefix, ext string) ([]time.Time, error) {
	dates := make([]time.Time, len(paths))
	for i, p := range paths {
		t, err := ParseTimestamp(p, prefix, ext)
		if err != nil {
			return nil, err
		}
		dates[i] = t
	}
	return dates, nil
}

// Discover lists the snapshots in dir sorted by file name and derives
// their dates. A missing dir yields no snapshots and no error.
func Discover(dir, prefix, ext string) ([]Snapshot, error) {
	paths, err := List(dir, ext, true)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	dates, err := Timestamps(paths, prefix, ext)
	if err != nil {
		return nil, err
	}

	snaps := make([]Snapshot, len(paths))
	for i := range paths {
		snaps[i] = Snapshot{Path: paths[i], Date: dates[i]}
	}
	return snaps, nil
}
