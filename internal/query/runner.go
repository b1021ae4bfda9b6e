package query

import (
	"context"
	"fmt"
	"time"

	"github.com/askora/askora/internal/observability"
)

type Options struct {
	// RowLimit caps collected rows; 0 means unlimited.
	RowLimit int
	ReadOnly bool
	Timeout  time.Duration
}

type Runner struct {
	opts Options
}

func NewRunner(opts Options) *Runner {
	return &Runner{opts: opts}
}

// Execute runs one statement. Reads never open a transaction. Writes run
// in their own transaction that is committed once or rolled back.
func (r *Runner) Execute(ctx context.Context, conn Conn, sqlText string) (Result, error) {
	statement := normalizeStatement(sqlText)
	if statement == "" {
		return Result{}, ErrSQLRequired
	}
	kind := Classify(statement)
	if kind == KindWrite && r.opts.ReadOnly {
		observability.ObserveStatement(string(kind), "refused")
		return Result{}, ErrStatementNotAllowed
	}
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	var (
		result Result
		err    error
	)
	if kind == KindRead {
		result, err = r.read(ctx, conn, statement)
	} else {
		result, err = r.write(ctx, conn, statement)
	}
	if err != nil {
		observability.ObserveStatement(string(kind), "error")
		return Result{}, &ExecutionError{Kind: kind, Message: observability.Mask(err.Error()), Err: err}
	}
	observability.ObserveStatement(string(kind), "ok")
	result.Duration = time.Since(start)
	return result, nil
}

func (r *Runner) read(ctx context.Context, conn Conn, statement string) (Result, error) {
	rows, err := conn.QueryContext(ctx, statement)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	truncated := false
	for rows.Next() {
		if r.opts.RowLimit > 0 && len(resultRows) >= r.opts.RowLimit {
			truncated = true
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}
	return Result{Kind: ResultTabular, Columns: columns, Rows: resultRows, Truncated: truncated}, nil
}

func (r *Runner) write(ctx context.Context, conn Conn, statement string) (Result, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("begin transaction: %w", err)
	}
	res, err := tx.ExecContext(ctx, statement)
	if err != nil {
		_ = tx.Rollback()
		return Result{}, err
	}
	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit: %w", err)
	}

	result := Result{Kind: ResultStatus, Message: SuccessMessage}
	if affected, err := res.RowsAffected(); err == nil {
		result.RowsAffected = &affected
	}
	return result, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		case time.Time:
			normalized[i] = typed.Format(time.RFC3339Nano)
		case fmt.Stringer:
			normalized[i] = typed.String()
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
