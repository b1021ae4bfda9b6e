package connection

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/askora/askora/internal/observability"
)

const defaultConnectTimeout = 10 * time.Second

// Manager opens exactly one unpooled session per operation.
type Manager struct {
	ConnectTimeout time.Duration
	Logger         *slog.Logger
	Opener         OpenFunc
}

type Session struct {
	dialect string
	db      *sql.DB
	conn    *sql.Conn
	closed  bool
}

func NewManager(connectTimeout time.Duration, logger *slog.Logger) *Manager {
	return &Manager{ConnectTimeout: connectTimeout, Logger: logger, Opener: OpenDriver}
}

func (m *Manager) Open(ctx context.Context, params Params) (*Session, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	opener := m.Opener
	if opener == nil {
		opener = OpenDriver
	}
	timeout := m.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	db, err := opener(params)
	if err != nil {
		return nil, m.classify(ctx, params, err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, m.classify(ctx, params, err)
	}
	conn, err := db.Conn(pingCtx)
	if err != nil {
		_ = db.Close()
		return nil, m.classify(ctx, params, err)
	}

	observability.ObserveConnectionAttempt(params.Dialect, "ok")
	observability.SessionOpened()
	return &Session{dialect: params.Dialect, db: db, conn: conn}, nil
}

func (m *Manager) classify(ctx context.Context, params Params, err error) error {
	if isInvalidCredentials(err) {
		observability.ObserveConnectionAttempt(params.Dialect, "invalid_credentials")
		m.log(ctx, slog.LevelWarn, "database login rejected", params)
		return ErrInvalidCredentials
	}
	observability.ObserveConnectionAttempt(params.Dialect, "failed")
	m.log(ctx, slog.LevelWarn, "database connection failed", params, slog.String("error", err.Error()))
	return &ConnectionFailedError{Message: observability.Mask(err.Error()), Err: err}
}

// WithSession opens a session, hands it to fn and closes it on every exit
// path, panics included.
func (m *Manager) WithSession(ctx context.Context, params Params, fn func(*Session) error) error {
	session, err := m.Open(ctx, params)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			m.log(ctx, slog.LevelWarn, "close database session", params, slog.String("error", closeErr.Error()))
		}
	}()
	return fn(session)
}

// Test opens and immediately closes a session.
func (m *Manager) Test(ctx context.Context, params Params) error {
	return m.WithSession(ctx, params, func(*Session) error { return nil })
}

func (m *Manager) log(ctx context.Context, level slog.Level, msg string, params Params, attrs ...slog.Attr) {
	if m.Logger == nil {
		return
	}
	attrs = append(attrs,
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.String("dialect", params.Dialect),
		slog.String("connection", params.String()),
	)
	m.Logger.LogAttrs(ctx, level, msg, attrs...)
}

func (s *Session) Dialect() string {
	return s.dialect
}

// Conn is the pinned connection every statement of the session runs on.
func (s *Session) Conn() *sql.Conn {
	return s.conn
}

func (s *Session) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true
	observability.SessionClosed()
	connErr := s.conn.Close()
	dbErr := s.db.Close()
	if connErr != nil {
		return fmt.Errorf("close connection: %w", connErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close database: %w", dbErr)
	}
	return nil
}

// UseSchema makes schema the default for unqualified names in this session.
func (s *Session) UseSchema(ctx context.Context, schema string) error {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		return nil
	}
	var stmt string
	switch s.dialect {
	case DialectOracle:
		stmt = "ALTER SESSION SET CURRENT_SCHEMA = " + quoteIdentifier(schema)
	case DialectPostgres:
		stmt = "SET search_path TO " + quoteIdentifier(schema)
	case DialectDuckDB:
		stmt = "SET schema = '" + strings.ReplaceAll(schema, "'", "''") + "'"
	default:
		return &SchemaSelectError{Schema: schema, Message: fmt.Sprintf("unsupported dialect %q", s.dialect)}
	}
	if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
		return &SchemaSelectError{Schema: schema, Message: observability.Mask(err.Error()), Err: err}
	}
	return nil
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
