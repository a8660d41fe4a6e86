package series

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xtxerr/zonalseries/internal/errors"
	"github.com/xtxerr/zonalseries/internal/logging"
	"github.com/xtxerr/zonalseries/internal/validation"
)

var log = logging.Component("series")

// Store persists one table per statistic under dir as <statistic><ext>.
//
// Saves are atomic: the table is written to a temporary file in dir,
// synced and renamed over the target, so readers see either the old or
// the new file.
type Store struct {
	dir   string
	codec Codec
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, codec Codec) *Store {
	if codec == nil {
		codec = CSVCodec{}
	}
	return &Store{dir: dir, codec: codec}
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Codec returns the codec used for persisted tables.
func (s *Store) Codec() Codec { return s.codec }

// Path returns the file holding statistic.
func (s *Store) Path(statistic string) string {
	return filepath.Join(s.dir, statistic+s.codec.Ext())
}

// Exists reports whether a table for statistic has been persisted.
func (s *Store) Exists(statistic string) bool {
	if validation.ValidateStatisticName(statistic) != nil {
		return false
	}
	info, err := os.Stat(s.Path(statistic))
	return err == nil && info.Mode().IsRegular()
}

// Save persists t under statistic, replacing any previous table.
func (s *Store) Save(statistic string, t *Table) (err error) {
	if err := validation.ValidateStatisticName(statistic); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create series directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+statistic+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = s.codec.Encode(tmp, t); err != nil {
		return fmt.Errorf("encode %s: %w", statistic, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", statistic, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", statistic, err)
	}
	if err = os.Rename(tmp.Name(), s.Path(statistic)); err != nil {
		return fmt.Errorf("rename %s: %w", statistic, err)
	}

	log.Debug("series saved", "statistic", statistic, "path", s.Path(statistic),
		"rows", t.NumRows(), "zones", t.NumCols())
	return nil
}

// Load reads the table for statistic. A missing table is reported with an
// error wrapping errors.ErrNotFound.
func (s *Store) Load(statistic string) (*Table, error) {
	if err := validation.ValidateStatisticName(statistic); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(statistic))
	if os.IsNotExist(err) {
		return nil, errors.NewNotFound("series", statistic)
	}
	if err != nil {
		return nil, fmt.Errorf("read series %s: %w", statistic, err)
	}

	t, err := s.codec.Decode(data, statistic)
	if err != nil {
		return nil, fmt.Errorf("series %s: %w", statistic, err)
	}
	return t, nil
}

// List returns the persisted statistics in name order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	ext := s.codec.Ext()
	out := []string{}
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ext {
			continue
		}
		out = append(out, strings.TrimSuffix(name, ext))
	}
	sort.Strings(out)
	return out, nil
}
