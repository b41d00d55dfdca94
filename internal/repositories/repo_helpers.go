package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// --- Helper Functions ---

// placeholder renders the n-th (1-based) bind parameter for a SQL dialect.
type placeholder func(n int) string

func dollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

func questionPlaceholder(int) string { return "?" }

// whereBuilder accumulates equality conditions, skipping empty values.
type whereBuilder struct {
	ph    placeholder
	conds []string
	args  []interface{}
}

func newWhere(ph placeholder) *whereBuilder {
	return &whereBuilder{ph: ph}
}

func (w *whereBuilder) eq(column, value string) *whereBuilder {
	if value == "" {
		return w
	}
	w.args = append(w.args, value)
	w.conds = append(w.conds, column+" = "+w.ph(len(w.args)))
	return w
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func cashBoxWhere(ph placeholder, f CashBoxFilter) (string, []interface{}) {
	w := newWhere(ph).
		eq("collector_id", f.CollectorID).
		eq("work_date", f.WorkDate).
		eq("status", string(f.Status)).
		eq("request_id", f.RequestID)
	return w.String(), w.args
}

func requestWhere(ph placeholder, f RequestFilter) (string, []interface{}) {
	w := newWhere(ph).
		eq("collector_id", f.CollectorID).
		eq("work_date", f.WorkDate).
		eq("status", string(f.Status))
	return w.String(), w.args
}

func FormatQueryForLog(query string, args ...interface{}) string {
	out := query
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			out = fmt.Sprintf("%s [%q]", out, v)
		case []byte:
			out = fmt.Sprintf("%s [%d bytes]", out, len(v))
		default:
			out = fmt.Sprintf("%s [%v]", out, v)
		}
	}
	return out
}

func debugQuery(ctx context.Context, db *sql.DB, log *zap.Logger, step, query string, args ...interface{}) (*sql.Rows, error) {
	log.Debug("SQL START",
		zap.String("step", step),
		zap.String("query", FormatQueryForLog(query, args...)),
	)

	t0 := time.Now()
	rows, err := db.QueryContext(ctx, query, args...)
	elapsed := time.Since(t0)

	if err != nil {
		log.Error("SQL ERROR",
			zap.String("step", step),
			zap.Error(err),
			zap.Duration("elapsed", elapsed),
			zap.Bool("ctx_done", ctx.Err() != nil),
		)
		return nil, err
	}

	log.Debug("SQL OK",
		zap.String("step", step),
		zap.Duration("elapsed", elapsed),
	)

	return rows, nil
}

func debugExec(ctx context.Context, db *sql.DB, log *zap.Logger, step, query string, args ...interface{}) (sql.Result, error) {
	log.Debug("SQL START",
		zap.String("step", step),
		zap.String("query", FormatQueryForLog(query, args...)),
	)

	t0 := time.Now()
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("SQL ERROR",
			zap.String("step", step),
			zap.Error(err),
			zap.Duration("elapsed", time.Since(t0)),
		)
		return nil, err
	}
	return res, nil
}
