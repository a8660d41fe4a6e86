package query

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/xtxerr/zonalseries/internal/series"
	"github.com/xtxerr/zonalseries/internal/validation"
)

// Explorer runs ad-hoc SQL over persisted tables with DuckDB. Every
// persisted statistic is exposed as a view of the same name: CSV tables
// keep their wide layout (date plus one column per zone), Parquet tables
// their long layout (row, date, zone_index, zone, value).
type Explorer struct {
	mu    sync.RWMutex
	db    *sql.DB
	store *series.Store
	views []string
}

// SQLResult holds the rows of an ad-hoc query.
type SQLResult struct {
	Columns []string
	Rows    []map[string]interface{}
}

// NewExplorer opens an in-memory DuckDB database and registers a view per
// persisted statistic.
func NewExplorer(store *series.Store, memoryLimit string) (*Explorer, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	if memoryLimit != "" {
		_, err = db.Exec(fmt.Sprintf("SET memory_limit=%s", validation.QuoteLiteral(memoryLimit)))
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("set memory limit: %w", err)
		}
	}

	e := &Explorer{db: db, store: store}
	if err := e.Refresh(); err != nil {
		db.Close()
		return nil, err
	}
	return e, nil
}

// Refresh re-creates the views from the tables currently persisted.
func (e *Explorer) Refresh() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats, err := e.store.List()
	if err != nil {
		return fmt.Errorf("list series: %w", err)
	}

	for _, stat := range stats {
		path := validation.QuoteLiteral(e.store.Path(stat))

		var source string
		switch e.store.Codec().(type) {
		case series.ParquetCodec:
			source = fmt.Sprintf("read_parquet(%s)", path)
		default:
			source = fmt.Sprintf("read_csv_auto(%s, header=true)", path)
		}

		q := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM %s",
			validation.QuoteIdentifier(stat), source)
		if _, err := e.db.Exec(q); err != nil {
			return fmt.Errorf("create view %s: %w", stat, err)
		}
	}

	e.views = stats
	log.Debug("sql views registered", "views", stats)
	return nil
}

// Views returns the registered view names.
func (e *Explorer) Views() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.views...)
}

// ExecuteSQL executes a raw SQL query.
func (e *Explorer) ExecuteSQL(ctx context.Context, query string) (*SQLResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &SQLResult{Columns: columns}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			row[col] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}

	return result, rows.Err()
}

// Close closes the database.
func (e *Explorer) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}
