package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"EthTicker/internal/domain/models"
	applogger "EthTicker/pkg/logger"
)

// Execer is satisfied by *sql.DB and *clickhouse.Client.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CHViewRecorder archives aggregated views in a ClickHouse MergeTree table.
type CHViewRecorder struct {
	db    Execer
	table string
	l     *applogger.Logger
}

func NewCHViewRecorder(db Execer, database, table string, l *applogger.Logger) (*CHViewRecorder, error) {
	if !identRe.MatchString(database) || !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid clickhouse identifier %q.%q", database, table)
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHViewRecorder{db: db, table: database + "." + table, l: l}, nil
}

// Init creates the snapshot table when missing.
func (r *CHViewRecorder) Init(ctx context.Context) error {
	const ddl = `
        CREATE TABLE IF NOT EXISTS %s (
            ts        DateTime64(3, 'UTC'),
            anchor    LowCardinality(String),
            price     String,
            vol       String,
            supply    String,
            fiat      String,
            erc20     String,
            partial   UInt8
        ) ENGINE = MergeTree
        ORDER BY (anchor, ts)
    `
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf(ddl, r.table)); err != nil {
		return fmt.Errorf("create %s: %w", r.table, err)
	}
	return nil
}

func (r *CHViewRecorder) Record(ctx context.Context, v *models.AggregatedView) error {
	if v == nil {
		return nil
	}
	start := time.Now()
	fiat, err := json.Marshal(v.Fiat)
	if err != nil {
		return fmt.Errorf("encode fiat: %w", err)
	}
	erc20, err := json.Marshal(v.ERC20)
	if err != nil {
		return fmt.Errorf("encode erc20: %w", err)
	}
	var partial uint8
	if v.Partial() {
		partial = 1
	}

	q := fmt.Sprintf(`INSERT INTO %s (ts, anchor, price, vol, supply, fiat, erc20, partial) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, r.table)
	if _, err := r.db.ExecContext(ctx, q, v.GeneratedAt, v.Anchor, v.Price, v.Volume, v.Supply, string(fiat), string(erc20), partial); err != nil {
		r.l.Error("clickhouse record view error",
			applogger.String("table", r.table),
			applogger.Error(err),
		)
		return fmt.Errorf("record view: %w", err)
	}
	r.l.Debug("clickhouse view recorded",
		applogger.String("table", r.table),
		applogger.Bool("partial", partial == 1),
		applogger.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (r *CHViewRecorder) Close() error { return nil }
