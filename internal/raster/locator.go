// Package raster locates dated raster snapshots and reads the grids the
// built-in zonal aggregator works on.
//
// A snapshot is one raster file named <prefix><YYYY-MM-DD><extension>.
// Snapshots are always handled in file-name order, which is also date order
// because the date format sorts lexically.
package raster

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// List returns the paths of the files directly inside dir whose extension
// is ext. ext may be given with or without its leading dot.
//
// A dir that does not exist, or is not a directory, yields an empty result
// and no error. When sorted is true the returned slice is ordered by file
// name.
func List(dir, ext string, sorted bool) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return []string{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	ext = normalizeExt(ext)

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}

		paths = append(paths, filepath.Join(dir, name))
	}

	if sorted {
		sort.Slice(paths, func(i, j int) bool {
			return filepath.Base(paths[i]) < filepath.Base(paths[j])
		})
	}

	return paths, nil
}

func normalizeExt(ext string) string {
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}
