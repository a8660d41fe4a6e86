package query

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/xtxerr/zonalseries/internal/config"
	"github.com/xtxerr/zonalseries/internal/errors"
	"github.com/xtxerr/zonalseries/internal/pipeline"
	"github.com/xtxerr/zonalseries/internal/series"
)

// Constructor builds and persists tables on demand.
type Constructor interface {
	Construct(ctx context.Context, stats []string) (*pipeline.Result, error)
}

// Resolution records how a requested statistic name was resolved.
type Resolution struct {
	Requested string `json:"requested"`
	Resolved  string `json:"resolved"`
	Remapped  bool   `json:"remapped"`
}

// SeriesResponse is a column-oriented series payload.
type SeriesResponse struct {
	Resolution
	Rebuilt bool            `json:"rebuilt"`
	Data    json.RawMessage `json:"data"`
}

// Resolver serves series by statistic name. Names outside the allow-list
// are replaced by the default statistic; missing tables are built first.
type Resolver struct {
	store       *series.Store
	constructor Constructor
	allowed     map[string]struct{}
	fallback    string

	group singleflight.Group
}

// NewResolver creates a resolver. constructor may be nil, in which case
// missing tables are reported as not found.
func NewResolver(store *series.Store, constructor Constructor, cfg config.QueryConfig) *Resolver {
	allowed := make(map[string]struct{}, len(cfg.AllowedStatistics))
	for _, s := range cfg.AllowedStatistics {
		allowed[s] = struct{}{}
	}
	return &Resolver{
		store:       store,
		constructor: constructor,
		allowed:     allowed,
		fallback:    cfg.DefaultStatistic,
	}
}

// Resolve maps a requested name onto the allow-list.
func (r *Resolver) Resolve(requested string) Resolution {
	if _, ok := r.allowed[requested]; ok {
		return Resolution{Requested: requested, Resolved: requested}
	}
	log.Info("statistic not allowed, using default",
		"requested", requested, "default", r.fallback,
		"error", fmt.Errorf("%q: %w", requested, errors.ErrUnknownStatistic))
	return Resolution{Requested: requested, Resolved: r.fallback, Remapped: true}
}

// Engine returns a query engine for the resolved statistic, building the
// table first when it does not exist yet.
func (r *Resolver) Engine(ctx context.Context, requested string) (*Engine, Resolution, bool, error) {
	res := r.Resolve(requested)

	built, err := r.ensure(ctx, res.Resolved)
	if err != nil {
		return nil, res, false, err
	}
	if built != nil {
		return NewEngineFromTable(built), res, true, nil
	}

	e, err := NewEngine(r.store, res.Resolved)
	if err != nil {
		return nil, res, false, err
	}
	return e, res, false, nil
}

// GetSeries returns the table of the resolved statistic as
// {zone: {date: value}} JSON.
func (r *Resolver) GetSeries(ctx context.Context, requested string) (*SeriesResponse, error) {
	e, res, rebuilt, err := r.Engine(ctx, requested)
	if err != nil {
		return nil, err
	}
	if !e.Available() {
		return nil, errors.NewNotFound("series", res.Resolved)
	}

	data, err := series.MarshalColumns(e.Table())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", res.Resolved, err)
	}

	return &SeriesResponse{Resolution: res, Rebuilt: rebuilt, Data: data}, nil
}

// ensure builds statistic if it has not been persisted and returns the
// fresh table, or nil when nothing was built. Concurrent calls for the same
// statistic share one build. The shared build ignores caller cancellation.
func (r *Resolver) ensure(ctx context.Context, statistic string) (*series.Table, error) {
	if r.constructor == nil {
		return nil, nil
	}

	v, err, _ := r.group.Do(statistic, func() (interface{}, error) {
		if r.store.Exists(statistic) {
			return (*series.Table)(nil), nil
		}
		log.Info("series missing, building", "statistic", statistic)
		res, err := r.constructor.Construct(context.WithoutCancel(ctx), []string{statistic})
		if err != nil {
			return nil, err
		}
		t, ok := res.Tables[statistic]
		if !ok {
			return nil, fmt.Errorf("constructor returned no %s table: %w", statistic, errors.ErrPipeline)
		}
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", statistic, err)
	}
	return v.(*series.Table), nil
}
