// Package validation provides centralized input validation for zonalseries.
//
// Statistic names end up in file names and SQL view names, so they are
// restricted to a safe character set.
package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/xtxerr/zonalseries/internal/errors"
)

// =============================================================================
// Name Validation
// =============================================================================

// NameRules defines the validation rules for names.
type NameRules struct {
	MinLength    int
	MaxLength    int
	AllowDots    bool
	AllowHyphens bool
	AllowUnders  bool
}

// DefaultNameRules returns the default rules for names.
func DefaultNameRules() NameRules {
	return NameRules{
		MinLength:    1,
		MaxLength:    255,
		AllowDots:    false,
		AllowHyphens: true,
		AllowUnders:  true,
	}
}

// StatisticNameRules returns rules for statistic names. Dots are allowed
// for fractional percentiles such as percentile_12.5.
func StatisticNameRules() NameRules {
	return NameRules{
		MinLength:    1,
		MaxLength:    128,
		AllowDots:    true,
		AllowHyphens: true,
		AllowUnders:  true,
	}
}

// ValidateName validates a name according to the given rules.
func ValidateName(name string, rules NameRules) error {
	if len(name) < rules.MinLength {
		return fmt.Errorf("name too short: minimum %d characters required", rules.MinLength)
	}
	if len(name) > rules.MaxLength {
		return fmt.Errorf("name too long: maximum %d characters allowed", rules.MaxLength)
	}

	if name == "." || name == ".." {
		return fmt.Errorf("name cannot be '.' or '..'")
	}

	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("name cannot start with '.'")
	}

	for i, r := range name {
		if r < 32 || r == 127 {
			return fmt.Errorf("name cannot contain control characters at position %d", i)
		}
		if r == '/' || r == '\\' {
			return fmt.Errorf("name cannot contain path separators at position %d", i)
		}
		if !isAllowedNameChar(r, rules) {
			return fmt.Errorf("invalid character '%c' at position %d", r, i)
		}
	}

	return nil
}

func isAllowedNameChar(r rune, rules NameRules) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '.':
		return rules.AllowDots
	case '-':
		return rules.AllowHyphens
	case '_':
		return rules.AllowUnders
	}
	return false
}

// ValidateStatisticName validates a statistic name. Failures wrap
// errors.ErrInvalidConfig.
func ValidateStatisticName(name string) error {
	if err := ValidateName(name, StatisticNameRules()); err != nil {
		return fmt.Errorf("statistic %q: %w", name, errors.Join(errors.ErrInvalidConfig, err))
	}
	return nil
}

// ValidateZoneID validates a zone identifier. Zone identifiers become
// column headers, so only emptiness and control characters are rejected.
func ValidateZoneID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("zone identifier cannot be empty: %w", errors.ErrInvalidConfig)
	}
	for i, r := range id {
		if r < 32 || r == 127 {
			return fmt.Errorf("zone %q: control character at position %d: %w", id, i, errors.ErrInvalidConfig)
		}
	}
	return nil
}

// =============================================================================
// SQL Quoting
// =============================================================================

// QuoteIdentifier quotes a SQL identifier (DuckDB dialect).
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral quotes a SQL string literal (DuckDB dialect).
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
