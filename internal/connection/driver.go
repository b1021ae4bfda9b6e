package connection

import (
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/godror/godror"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
)

const oraInvalidCredentials = 1017

// OpenFunc returns an unconnected handle for params. The Manager pings it.
type OpenFunc func(params Params) (*sql.DB, error)

func OpenDriver(params Params) (*sql.DB, error) {
	switch params.Dialect {
	case DialectOracle:
		return sql.OpenDB(godror.NewConnector(oracleParams(params))), nil
	case DialectPostgres:
		return sql.Open("pgx", postgresDSN(params))
	case DialectDuckDB:
		return sql.Open("duckdb", params.ServiceIdentifier)
	default:
		return nil, fmt.Errorf("unsupported dialect %q", params.Dialect)
	}
}

func oracleParams(params Params) godror.ConnectionParams {
	var cp godror.ConnectionParams
	cp.Username = params.Username
	cp.Password = godror.NewPassword(params.Password)
	cp.ConnectString = params.Descriptor()
	cp.StandaloneConnection = true
	return cp
}

func postgresDSN(params Params) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(params.Username, params.Password),
		Host:   net.JoinHostPort(params.Host, strconv.Itoa(params.Port)),
		Path:   "/" + params.ServiceIdentifier,
	}
	return u.String()
}

func isInvalidCredentials(err error) bool {
	if err == nil {
		return false
	}
	if oraErr, ok := godror.AsOraErr(err); ok && oraErr.Code() == oraInvalidCredentials {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "28P01" || pgErr.Code == "28000"
	}
	return strings.Contains(err.Error(), "ORA-01017")
}
