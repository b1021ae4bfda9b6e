package connection

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

const (
	DialectOracle   = "oracle"
	DialectPostgres = "postgres"
	DialectDuckDB   = "duckdb"

	DefaultPort = 1521

	IdentifierSID         = "sid"
	IdentifierServiceName = "service_name"
)

// Params are the user-supplied connection parameters. They travel with
// every request and are never persisted.
type Params struct {
	Dialect           string `json:"dialect,omitempty"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	Host              string `json:"host"`
	Port              int    `json:"port"`
	ServiceIdentifier string `json:"service_identifier"`
	// IdentifierKind says whether an Oracle service_identifier is an
	// instance SID (the default) or a listener service name.
	IdentifierKind string `json:"identifier_kind,omitempty"`
}

// WithDefaults fills an empty dialect and a zero port.
func (p Params) WithDefaults(dialect string, port int) Params {
	p.Dialect = strings.ToLower(strings.TrimSpace(p.Dialect))
	if p.Dialect == "" {
		p.Dialect = strings.ToLower(strings.TrimSpace(dialect))
	}
	if p.Dialect == "" {
		p.Dialect = DialectOracle
	}
	if p.Port == 0 {
		if port > 0 {
			p.Port = port
		} else {
			p.Port = DefaultPort
		}
	}
	p.Host = strings.TrimSpace(p.Host)
	p.Username = strings.TrimSpace(p.Username)
	p.ServiceIdentifier = strings.TrimSpace(p.ServiceIdentifier)
	p.IdentifierKind = strings.ToLower(strings.TrimSpace(p.IdentifierKind))
	if p.Dialect == DialectOracle && p.IdentifierKind == "" {
		p.IdentifierKind = IdentifierSID
	}
	return p
}

func (p Params) Validate() error {
	var missing []string
	switch p.Dialect {
	case DialectOracle, DialectPostgres:
		if p.Username == "" {
			missing = append(missing, "username")
		}
		if p.Password == "" {
			missing = append(missing, "password")
		}
		if p.Host == "" {
			missing = append(missing, "host")
		}
		if p.ServiceIdentifier == "" {
			missing = append(missing, "service_identifier")
		}
		if p.Dialect == DialectOracle {
			switch p.IdentifierKind {
			case "", IdentifierSID, IdentifierServiceName:
			default:
				return &ParamsError{Reason: fmt.Sprintf("unsupported identifier_kind %q, want %q or %q", p.IdentifierKind, IdentifierSID, IdentifierServiceName)}
			}
		}
	case DialectDuckDB:
		if p.ServiceIdentifier == "" {
			missing = append(missing, "service_identifier")
		}
	default:
		return &ParamsError{Reason: fmt.Sprintf("unsupported dialect %q", p.Dialect)}
	}
	if len(missing) > 0 {
		return &ParamsError{Missing: missing, Reason: "please fill in all connection details"}
	}
	if p.Port < 1 || p.Port > 65535 {
		return &ParamsError{Reason: fmt.Sprintf("port %d is out of range 1..65535", p.Port)}
	}
	return nil
}

// Descriptor is the address the driver dials. An Oracle SID needs a full
// connect descriptor because easy-connect only resolves service names.
func (p Params) Descriptor() string {
	switch p.Dialect {
	case DialectDuckDB:
		return p.ServiceIdentifier
	case DialectPostgres:
		return p.address()
	default:
		if p.IdentifierKind == IdentifierServiceName {
			return p.address()
		}
		return fmt.Sprintf("(DESCRIPTION=(ADDRESS=(PROTOCOL=TCP)(HOST=%s)(PORT=%d))(CONNECT_DATA=(SID=%s)))",
			p.Host, p.Port, p.ServiceIdentifier)
	}
}

func (p Params) address() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port)) + "/" + p.ServiceIdentifier
}

// String is the loggable form with the password masked.
func (p Params) String() string {
	password := ""
	if p.Password != "" {
		password = "***"
	}
	target := p.address()
	if p.Dialect == DialectDuckDB {
		target = p.ServiceIdentifier
	}
	return fmt.Sprintf("%s://%s:%s@%s", p.Dialect, p.Username, password, target)
}
