// zonalseries builds and queries per-zone time series of raster snapshots.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/xtxerr/zonalseries/internal/config"
	"github.com/xtxerr/zonalseries/internal/errors"
	"github.com/xtxerr/zonalseries/internal/logging"
	"github.com/xtxerr/zonalseries/internal/pipeline"
	"github.com/xtxerr/zonalseries/internal/query"
	"github.com/xtxerr/zonalseries/internal/series"
	"github.com/xtxerr/zonalseries/internal/shell"
)

// Version is set at build time via ldflags
var Version = "dev"

const usage = `usage: zonalseries [flags] <command> [args]

commands:
  build [stat...]       build and persist tables (default: pipeline.statistics)
  status [stat...]      show which tables exist and whether they are stale
  summary [stat]        per-zone mean, std and IQR
  dates [stat]          row indices and dates
  select <stat> <i>...  rows at the given indices, in that order
  series [stat]         column-oriented JSON payload
  sql <query>           ad-hoc SQL over persisted tables
  shell [stat]          interactive query shell

flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "zonalseries: %v\n", err)
		os.Exit(1)
	}
}

// app holds the components every command needs.
type app struct {
	cfg      *config.Config
	store    *series.Store
	builder  *pipeline.Builder
	resolver *query.Resolver
	out      io.Writer
}

func run(ctx context.Context, args []string, out io.Writer) error {
	flags := flag.NewFlagSet("zonalseries", flag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprint(flags.Output(), usage)
		flags.PrintDefaults()
	}

	cfgPath := flags.String("config", "zonalseries.yaml", "config file path")
	assets := flags.String("assets", "", "assets directory (overrides config)")
	format := flags.String("format", "", "storage format: csv or parquet (overrides config)")
	logLevel := flags.String("log-level", "", "log level (overrides config)")
	jsonLogs := flags.Bool("json-logs", false, "log as JSON")
	if err := flags.Parse(args); err != nil {
		return err
	}

	// Load config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg = config.DefaultConfig()
		} else {
			return fmt.Errorf("load config: %w", err)
		}
	}

	// CLI overrides
	if *assets != "" {
		cfg.Layout.AssetsDir = *assets
	}
	if *format != "" {
		cfg.Storage.Format = *format
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *jsonLogs {
		cfg.Logging.JSON = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	logging.Init(level, cfg.Logging.JSON)
	logging.Debug("zonalseries starting", "version", Version, "assets", cfg.Layout.AssetsDir)

	if flags.NArg() == 0 {
		flags.Usage()
		return fmt.Errorf("missing command")
	}

	a, err := newApp(cfg, out)
	if err != nil {
		return err
	}

	cmd, rest := flags.Arg(0), flags.Args()[1:]
	switch cmd {
	case "build":
		return a.build(ctx, rest)
	case "status":
		return a.status(rest)
	case "summary", "dates":
		e, err := a.engine(ctx, rest)
		if err != nil {
			return err
		}
		if cmd == "summary" {
			shell.RenderSummary(out, e.SummaryOrdered())
		} else {
			shell.RenderDates(out, e.Dates())
		}
		return nil
	case "select":
		return a.selectRows(ctx, rest)
	case "series":
		return a.series(ctx, rest)
	case "sql":
		return a.sql(ctx, rest)
	case "shell":
		return a.shell(ctx, rest)
	}

	flags.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}

func newApp(cfg *config.Config, out io.Writer) (*app, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	codec, err := series.CodecFor(cfg.Storage.Format, cfg.Storage.Compression)
	if err != nil {
		return nil, err
	}
	store := series.NewStore(cfg.Layout.SeriesPath(), codec)
	builder := pipeline.NewBuilder(cfg, store, nil)

	return &app{
		cfg:      cfg,
		store:    store,
		builder:  builder,
		resolver: query.NewResolver(store, builder, cfg.Query),
		out:      out,
	}, nil
}

func (a *app) statistics(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return a.cfg.Pipeline.Statistics
}

func (a *app) statistic(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return a.cfg.Query.DefaultStatistic
}

func (a *app) build(ctx context.Context, args []string) error {
	stats := a.statistics(args)
	res, err := a.builder.Construct(ctx, stats)
	if err != nil {
		return err
	}
	for _, stat := range stats {
		fmt.Fprintf(a.out, "%s: %d snapshots, %d filled cells -> %s\n",
			stat, res.Snapshots, res.Filled[stat], a.store.Path(stat))
	}
	return nil
}

func (a *app) status(args []string) error {
	st, err := a.builder.Status(a.statistics(args))
	if err != nil {
		return err
	}
	shell.RenderStatus(a.out, st)
	return nil
}

func (a *app) engine(ctx context.Context, args []string) (*query.Engine, error) {
	e, res, _, err := a.resolver.Engine(ctx, a.statistic(args))
	if err != nil {
		return nil, err
	}
	if res.Remapped {
		fmt.Fprintf(os.Stderr, "%s is not allowed, using %s\n", res.Requested, res.Resolved)
	}
	return e, nil
}

func (a *app) selectRows(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: select <stat> <i>...")
	}
	indices, err := shell.ParseIndices(args[1:])
	if err != nil {
		return err
	}
	e, err := a.engine(ctx, args[:1])
	if err != nil {
		return err
	}
	t, err := e.Select(indices)
	if err != nil {
		return err
	}
	shell.RenderTable(a.out, t)
	return nil
}

func (a *app) series(ctx context.Context, args []string) error {
	resp, err := a.resolver.GetSeries(ctx, a.statistic(args))
	if err != nil {
		return err
	}
	if resp.Remapped {
		fmt.Fprintf(os.Stderr, "%s is not allowed, using %s\n", resp.Requested, resp.Resolved)
	}
	fmt.Fprintln(a.out, string(resp.Data))
	return nil
}

func (a *app) sql(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: sql <query>")
	}
	ex, err := query.NewExplorer(a.store, a.cfg.Query.SQLMemoryLimit)
	if err != nil {
		return err
	}
	defer ex.Close()

	res, err := ex.ExecuteSQL(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	shell.RenderSQL(a.out, res)
	return nil
}

func (a *app) shell(ctx context.Context, args []string) error {
	ex, err := query.NewExplorer(a.store, a.cfg.Query.SQLMemoryLimit)
	if err != nil {
		return err
	}
	defer ex.Close()

	return shell.New(ctx, a.resolver, ex, a.statistic(args), a.out).Run(os.Stdin)
}
