package askoractl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type Options struct {
	BaseURL    string
	APIKey     string
	DBPassword string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// usageError exits with status 2 instead of 1.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

type connectionFlags struct {
	dialect string
	user    string
	host    string
	port    int
	sid     string
	service bool
	schema  string
}

// Run executes one askoractl command and returns the process exit code.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	c := &cli{opts: defaults, stdout: stdout}
	root := c.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var usage *usageError
	if errors.As(err, &usage) || strings.HasPrefix(err.Error(), "unknown command") || strings.HasPrefix(err.Error(), "unknown flag") {
		_, _ = fmt.Fprintf(stderr, "%v\n\n", err)
		_, _ = fmt.Fprint(stderr, root.UsageString())
		return 2
	}
	_, _ = fmt.Fprintln(stderr, err)
	return 1
}

type cli struct {
	opts    Options
	stdout  io.Writer
	baseURL string
	apiKey  string
	timeout time.Duration
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "askoractl",
		Short:         "Command-line client for the askora API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return &usageError{msg: "a command is required"}
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})
	root.PersistentFlags().StringVar(&c.baseURL, "base-url", firstNonEmpty(c.opts.BaseURL, "http://localhost:8080"), "askora API base URL")
	root.PersistentFlags().StringVar(&c.apiKey, "api-key", c.opts.APIKey, "API key for authenticated requests")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", durationOr(c.opts.Timeout, 90*time.Second), "HTTP timeout (e.g. 30s)")

	root.AddCommand(
		c.getCommand("health", "Check service liveness", "/v1/health"),
		c.getCommand("ready", "Check service readiness", "/v1/ready"),
		c.testCommand(),
		c.schemasCommand(),
		c.translateCommand(),
		c.executeCommand(),
		c.askCommand(),
	)
	return root
}

func (c *cli) getCommand(name, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := c.call(cmd.Context(), http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			return printJSON(c.stdout, body)
		},
	}
}

func (c *cli) testCommand() *cobra.Command {
	var conn connectionFlags
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Open and close one database session",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := c.call(cmd.Context(), http.MethodPost, "/v1/connection/test", map[string]any{
				"connection": c.connectionPayload(conn),
			})
			if err != nil {
				return err
			}
			return renderMessage(c.stdout, body)
		},
	}
	bindConnectionFlags(cmd, &conn, false)
	return cmd
}

func (c *cli) schemasCommand() *cobra.Command {
	var conn connectionFlags
	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List schema names visible to the database user",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := c.call(cmd.Context(), http.MethodPost, "/v1/schemas", map[string]any{
				"connection": c.connectionPayload(conn),
			})
			if err != nil {
				return err
			}
			return renderSchemas(c.stdout, body)
		},
	}
	bindConnectionFlags(cmd, &conn, false)
	return cmd
}

func (c *cli) translateCommand() *cobra.Command {
	var dialect string
	cmd := &cobra.Command{
		Use:   "translate <question>",
		Short: "Translate a question to SQL without running it",
		Args:  questionArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.call(cmd.Context(), http.MethodPost, "/v1/translate", map[string]any{
				"question": strings.Join(args, " "),
				"dialect":  dialect,
			})
			if err != nil {
				return err
			}
			return renderTranslation(c.stdout, body)
		},
	}
	cmd.Flags().StringVar(&dialect, "dialect", "", "target dialect (oracle, postgres, duckdb)")
	return cmd
}

func (c *cli) executeCommand() *cobra.Command {
	var conn connectionFlags
	var sqlText string
	cmd := &cobra.Command{
		Use:   "execute [sql]",
		Short: "Run a reviewed SQL statement",
		RunE: func(cmd *cobra.Command, args []string) error {
			statement := strings.TrimSpace(firstNonEmpty(sqlText, strings.Join(args, " ")))
			if statement == "" {
				return &usageError{msg: "execute needs --sql or a statement argument"}
			}
			body, err := c.call(cmd.Context(), http.MethodPost, "/v1/execute", map[string]any{
				"connection": c.connectionPayload(conn),
				"schema":     conn.schema,
				"sql":        statement,
			})
			if err != nil {
				return err
			}
			return renderOutcome(c.stdout, body)
		},
	}
	bindConnectionFlags(cmd, &conn, true)
	cmd.Flags().StringVar(&sqlText, "sql", "", "SQL statement to run")
	return cmd
}

func (c *cli) askCommand() *cobra.Command {
	var conn connectionFlags
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Translate a question and run the resulting SQL",
		Args:  questionArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.call(cmd.Context(), http.MethodPost, "/v1/ask", map[string]any{
				"connection": c.connectionPayload(conn),
				"schema":     conn.schema,
				"question":   strings.Join(args, " "),
			})
			if err != nil {
				return err
			}
			return renderOutcome(c.stdout, body)
		},
	}
	bindConnectionFlags(cmd, &conn, true)
	return cmd
}

func bindConnectionFlags(cmd *cobra.Command, conn *connectionFlags, withSchema bool) {
	cmd.Flags().StringVar(&conn.dialect, "dialect", "", "database dialect (oracle, postgres, duckdb)")
	cmd.Flags().StringVar(&conn.user, "db-user", "", "database username")
	cmd.Flags().StringVar(&conn.host, "db-host", "", "database host")
	cmd.Flags().IntVar(&conn.port, "db-port", 0, "database port (server default when 0)")
	cmd.Flags().StringVar(&conn.sid, "db-sid", "", "SID, service name or DuckDB file path")
	cmd.Flags().BoolVar(&conn.service, "db-service-name", false, "treat --db-sid as an Oracle service name instead of a SID")
	if withSchema {
		cmd.Flags().StringVar(&conn.schema, "schema", "", "schema to run the statement in")
	}
}

// connectionPayload never reads the password from a flag so it stays out
// of shell history.
func (c *cli) connectionPayload(conn connectionFlags) map[string]any {
	payload := map[string]any{
		"username":           conn.user,
		"password":           c.opts.DBPassword,
		"host":               conn.host,
		"service_identifier": conn.sid,
	}
	if conn.dialect != "" {
		payload["dialect"] = conn.dialect
	}
	if conn.port != 0 {
		payload["port"] = conn.port
	}
	if conn.service {
		payload["identifier_kind"] = "service_name"
	}
	return payload
}

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &usageError{msg: fmt.Sprintf("unexpected arguments: %s", strings.Join(args, " "))}
	}
	return nil
}

func questionArgs(_ *cobra.Command, args []string) error {
	if strings.TrimSpace(strings.Join(args, " ")) == "" {
		return &usageError{msg: "a question is required"}
	}
	return nil
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
