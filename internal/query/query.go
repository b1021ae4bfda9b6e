package query

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

type Kind string

const (
	KindRead  Kind = "read"
	KindWrite Kind = "write"
)

type ResultKind string

const (
	ResultTabular ResultKind = "tabular"
	ResultStatus  ResultKind = "status"
)

const SuccessMessage = "Query executed successfully."

var (
	ErrSQLRequired         = errors.New("sql is required")
	ErrStatementNotAllowed = errors.New("data-modifying statements are disabled")
)

// Result is either a table (Columns and Rows) or a status message.
type Result struct {
	Kind         ResultKind    `json:"kind"`
	Columns      []string      `json:"columns,omitempty"`
	Rows         [][]any       `json:"rows,omitempty"`
	Message      string        `json:"message,omitempty"`
	RowsAffected *int64        `json:"rows_affected,omitempty"`
	Truncated    bool          `json:"truncated,omitempty"`
	Duration     time.Duration `json:"-"`
}

// ExecutionError carries the database's own message for a failed statement.
type ExecutionError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	return "Error executing query: " + e.Message
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Conn is satisfied by *sql.DB and *sql.Conn.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Classify treats a statement whose first keyword is SELECT, in any case,
// as a read. Everything else is a write.
func Classify(sqlText string) Kind {
	if firstKeyword(sqlText) == "select" {
		return KindRead
	}
	return KindWrite
}

func firstKeyword(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	end := 0
	for end < len(trimmed) && isWordByte(trimmed[end]) {
		end++
	}
	return strings.ToLower(trimmed[:end])
}

// isPLSQL matches anonymous blocks and CREATE [OR REPLACE]
// [[NON]EDITIONABLE] PROCEDURE|FUNCTION|TRIGGER|PACKAGE|TYPE|LIBRARY.
func isPLSQL(statement string) bool {
	words := strings.Fields(strings.ToLower(statement))
	if len(words) == 0 {
		return false
	}
	switch firstKeyword(words[0]) {
	case "begin", "declare":
		return true
	case "create":
	default:
		return false
	}
	rest := words[1:]
	if len(rest) >= 2 && rest[0] == "or" && rest[1] == "replace" {
		rest = rest[2:]
	}
	if len(rest) > 0 && (rest[0] == "editionable" || rest[0] == "noneditionable") {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return false
	}
	switch firstKeyword(rest[0]) {
	case "procedure", "function", "trigger", "package", "type", "library":
		return true
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// IsEmpty reports whether sqlText holds no statement once whitespace and
// terminators are removed.
func IsEmpty(sqlText string) bool {
	return normalizeStatement(sqlText) == ""
}

// normalizeStatement trims the statement and drops trailing semicolons,
// which the Oracle driver rejects. PL/SQL blocks and stored units keep
// their terminator.
func normalizeStatement(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	if isPLSQL(trimmed) {
		return trimmed
	}
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
