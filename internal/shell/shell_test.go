package shell

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xtxerr/zonalseries/internal/config"
	"github.com/xtxerr/zonalseries/internal/errors"
	"github.com/xtxerr/zonalseries/internal/query"
	"github.com/xtxerr/zonalseries/internal/series"
)

func newTestShell(t *testing.T) (*Shell, *bytes.Buffer) {
	t.Helper()

	store := series.NewStore(t.TempDir(), series.CSVCodec{})
	dates := []time.Time{
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	tbl, err := series.NewTable("mean", dates, []string{"north", "south"})
	if err != nil {
		t.Fatal(err)
	}
	for i, row := range [][]float64{{1, 4}, {2, 5}, {3, 6}} {
		if err := tbl.SetRow(i, row); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Save("mean", tbl); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	resolver := query.NewResolver(store, nil, cfg.Query)

	var out bytes.Buffer
	return New(context.Background(), resolver, nil, "mean", &out), &out
}

func TestExecuteCommands(t *testing.T) {
	sh, out := newTestShell(t)

	tests := []struct {
		line string
		want []string
	}{
		{"summary", []string{"north", "south", "2"}},
		{"dates", []string{"2023-01-01", "2023-03-01"}},
		{"select 2,0", []string{"2023-03-01", "2023-01-01"}},
		{"series", []string{`"north":{"2023-01-01":1`}},
		{"help", []string{"summary", "select"}},
	}

	for _, tt := range tests {
		out.Reset()
		if err := sh.Execute(tt.line); err != nil {
			t.Errorf("%s: %v", tt.line, err)
			continue
		}
		for _, w := range tt.want {
			if !strings.Contains(out.String(), w) {
				t.Errorf("%s: output missing %q:\n%s", tt.line, w, out.String())
			}
		}
	}

	out.Reset()
	if err := sh.Execute("select 2 0"); err != nil {
		t.Fatal(err)
	}
	if strings.Index(out.String(), "2023-03-01") > strings.Index(out.String(), "2023-01-01") {
		t.Errorf("select must keep the requested order:\n%s", out.String())
	}
}

func TestExecuteErrors(t *testing.T) {
	sh, _ := newTestShell(t)

	if err := sh.Execute("select 9"); !errors.Is(err, errors.ErrInvalidIndex) {
		t.Errorf("expected ErrInvalidIndex, got %v", err)
	}
	if err := sh.Execute("select x"); !errors.Is(err, errors.ErrInvalidIndex) {
		t.Errorf("expected ErrInvalidIndex, got %v", err)
	}
	if err := sh.Execute("frobnicate"); err == nil {
		t.Error("expected error for unknown command")
	}
	if err := sh.Execute("sql SELECT 1"); err == nil {
		t.Error("sql without explorer should fail")
	}
	if err := sh.Execute("use"); err == nil {
		t.Error("use without argument should fail")
	}
}

func TestUseRemapsDisallowedStatistic(t *testing.T) {
	sh, out := newTestShell(t)

	if err := sh.Execute("use majority"); err != nil {
		t.Fatal(err)
	}
	if err := sh.Execute("dates"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "using mean") || sh.statistic != "mean" {
		t.Errorf("expected remap to mean, output:\n%s", out.String())
	}
}

func TestUseDegradedStatistic(t *testing.T) {
	sh, out := newTestShell(t)

	if err := sh.Execute("use std"); err != nil {
		t.Fatal(err)
	}
	if err := sh.Execute("dates"); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "()" {
		t.Errorf("dates on missing table = %q, want ()", out.String())
	}
}

func TestRunLines(t *testing.T) {
	sh, out := newTestShell(t)

	input := "dates\n\nbogus\nexit\nsummary\n"
	if err := sh.runLines(strings.NewReader(input)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "unknown command") {
		t.Errorf("errors should be reported inline:\n%s", out.String())
	}
	if strings.Contains(out.String(), "iqr") {
		t.Error("commands after exit must not run")
	}
}

func TestParseIndices(t *testing.T) {
	got, err := ParseIndices([]string{"3,1", "0"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []int{3, 1, 0}) {
		t.Errorf("ParseIndices = %v", got)
	}
}
