package connection

import (
	"context"
	"fmt"
)

const (
	oracleSchemasQuery = `SELECT username FROM all_users WHERE username NOT IN ('SYS', 'SYSTEM')`

	postgresSchemasQuery = `SELECT schema_name FROM information_schema.schemata
WHERE schema_name NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
ORDER BY schema_name`

	duckdbSchemasQuery = `SELECT schema_name FROM information_schema.schemata
WHERE catalog_name = current_database() AND schema_name NOT IN ('information_schema', 'pg_catalog')
ORDER BY schema_name`
)

// ListSchemas returns user schema names in the order the catalog yields
// them. An empty slice with a nil error means there are none; any failure
// comes back as *SchemaListUnavailableError.
func (m *Manager) ListSchemas(ctx context.Context, params Params) ([]string, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	var schemas []string
	err := m.WithSession(ctx, params, func(session *Session) error {
		var err error
		schemas, err = session.ListSchemas(ctx)
		return err
	})
	if err != nil {
		return nil, &SchemaListUnavailableError{Err: err}
	}
	return schemas, nil
}

func (s *Session) ListSchemas(ctx context.Context) ([]string, error) {
	var query string
	switch s.dialect {
	case DialectOracle:
		query = oracleSchemasQuery
	case DialectPostgres:
		query = postgresSchemasQuery
	case DialectDuckDB:
		query = duckdbSchemasQuery
	default:
		return nil, fmt.Errorf("unsupported dialect %q", s.dialect)
	}
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query schemas: %w", err)
	}
	defer func() { _ = rows.Close() }()

	schemas := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schema name: %w", err)
		}
		schemas = append(schemas, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schemas: %w", err)
	}
	return schemas, nil
}
