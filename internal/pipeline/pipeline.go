package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/askora/askora/internal/connection"
	"github.com/askora/askora/internal/nl2sql"
	"github.com/askora/askora/internal/observability"
	"github.com/askora/askora/internal/query"
)

type State string

const (
	StateIdle              State = "idle"
	StateTranslating       State = "translating"
	StateTranslationFailed State = "translation_failed"
	StateConnecting        State = "connecting"
	StateConnectionFailed  State = "connection_failed"
	StateExecuting         State = "executing"
	StateExecutionFailed   State = "execution_failed"
	StateResultDisplayed   State = "result_displayed"
)

var ErrTranslatorUnavailable = errors.New("translation is not configured")

type Sessions interface {
	Open(ctx context.Context, params connection.Params) (*connection.Session, error)
}

type Executor interface {
	Execute(ctx context.Context, conn query.Conn, sqlText string) (query.Result, error)
}

type Request struct {
	Connection connection.Params
	Schema     string
	Question   string
	// AllowWrites gates data-modifying statements for this caller.
	AllowWrites bool
}

// Outcome is the terminal state of one run plus whatever each stage
// produced before it ended.
type Outcome struct {
	State      State
	SQL        string
	Validation string
	Provider   string
	Model      string
	Result     query.Result
	Err        error
	Translate  time.Duration
	Connect    time.Duration
	Execute    time.Duration
}

func (o Outcome) Succeeded() bool {
	return o.State == StateResultDisplayed
}

type Pipeline struct {
	translator nl2sql.Translator
	sessions   Sessions
	executor   Executor
	logger     *slog.Logger
}

func New(translator nl2sql.Translator, sessions Sessions, executor Executor, logger *slog.Logger) *Pipeline {
	return &Pipeline{translator: translator, sessions: sessions, executor: executor, logger: logger}
}

// Ask runs translate, connect and execute in order. A failed translation
// never reaches the database.
func (p *Pipeline) Ask(ctx context.Context, req Request) Outcome {
	run := p.begin(ctx)
	run.transition(StateTranslating)
	if p.translator == nil {
		return run.finish(StateTranslationFailed, ErrTranslatorUnavailable)
	}

	start := time.Now()
	translated, err := p.translator.Translate(ctx, nl2sql.Request{
		Question: req.Question,
		Dialect:  req.Connection.Dialect,
	})
	run.outcome.Translate = time.Since(start)
	observability.ObserveStage("translate", run.outcome.Translate)
	if err != nil {
		return run.finish(StateTranslationFailed, err)
	}
	run.outcome.SQL = translated.SQL
	run.outcome.Validation = translated.Validation
	run.outcome.Provider = translated.Provider
	run.outcome.Model = translated.Model

	return p.execute(run, req)
}

// Execute runs reviewed SQL, skipping translation.
func (p *Pipeline) Execute(ctx context.Context, req Request, sqlText string) Outcome {
	run := p.begin(ctx)
	run.outcome.SQL = sqlText
	return p.execute(run, req)
}

func (p *Pipeline) execute(run *run, req Request) Outcome {
	ctx := run.ctx
	if query.IsEmpty(run.outcome.SQL) {
		run.transition(StateExecuting)
		return run.finish(StateExecutionFailed, query.ErrSQLRequired)
	}
	if !req.AllowWrites && query.Classify(run.outcome.SQL) == query.KindWrite {
		run.transition(StateExecuting)
		return run.finish(StateExecutionFailed, query.ErrStatementNotAllowed)
	}

	run.transition(StateConnecting)
	start := time.Now()
	session, err := p.sessions.Open(ctx, req.Connection)
	if err == nil && req.Schema != "" {
		if err = session.UseSchema(ctx, req.Schema); err != nil {
			_ = session.Close()
		}
	}
	run.outcome.Connect = time.Since(start)
	observability.ObserveStage("connect", run.outcome.Connect)
	if err != nil {
		return run.finish(StateConnectionFailed, err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			run.log(slog.LevelWarn, "close database session", slog.String("error", closeErr.Error()))
		}
	}()

	run.transition(StateExecuting)
	start = time.Now()
	result, err := p.executor.Execute(ctx, session.Conn(), run.outcome.SQL)
	run.outcome.Execute = time.Since(start)
	observability.ObserveStage("execute", run.outcome.Execute)
	if err != nil {
		return run.finish(StateExecutionFailed, err)
	}
	run.outcome.Result = result
	return run.finish(StateResultDisplayed, nil)
}

type run struct {
	ctx     context.Context
	logger  *slog.Logger
	outcome Outcome
}

func (p *Pipeline) begin(ctx context.Context) *run {
	return &run{ctx: ctx, logger: p.logger, outcome: Outcome{State: StateIdle}}
}

func (r *run) transition(state State) {
	r.outcome.State = state
	r.log(slog.LevelDebug, "pipeline transition", slog.String("state", string(state)))
}

func (r *run) finish(state State, err error) Outcome {
	r.outcome.State = state
	r.outcome.Err = err
	observability.ObservePipelineOutcome(string(state))

	attrs := []slog.Attr{
		slog.String("state", string(state)),
		slog.Duration("translate", r.outcome.Translate),
		slog.Duration("connect", r.outcome.Connect),
		slog.Duration("execute", r.outcome.Execute),
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	r.log(level, "pipeline finished", attrs...)
	return r.outcome
}

func (r *run) log(level slog.Level, msg string, attrs ...slog.Attr) {
	if r.logger == nil {
		return
	}
	attrs = append(attrs, slog.String("trace_id", observability.TraceIDFromContext(r.ctx)))
	r.logger.LogAttrs(r.ctx, level, msg, attrs...)
}
