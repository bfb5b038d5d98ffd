package invgroups

import (
	"context"
	"log/slog"
	"time"
)

// EvaluatorLogEvent describes an expression predicate evaluation.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Scope    string
	Player   string
	Result   bool
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// IssueReporter receives configuration issues. Malformed cron expressions
// are reported once per distinct expression.
type IssueReporter interface {
	ReportIssue(ConfigIssue)
}

// IssueReporterFunc adapts a function to IssueReporter.
type IssueReporterFunc func(ConfigIssue)

// ReportIssue implements IssueReporter.
func (f IssueReporterFunc) ReportIssue(issue ConfigIssue) {
	if f != nil {
		f(issue)
	}
}

type noopIssueReporter struct{}

func (noopIssueReporter) ReportIssue(ConfigIssue) {}

// SlogLogger adapts EvaluatorLogger and IssueReporter onto a *slog.Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps logger, defaulting to slog.Default().
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger.With("component", "invgroups")}
}

// LogEvaluation implements EvaluatorLogger. Successful evaluations log at
// debug level.
func (l *SlogLogger) LogEvaluation(event EvaluatorLogEvent) {
	level := slog.LevelDebug
	attrs := []slog.Attr{
		slog.String("engine", event.Engine),
		slog.String("expr", event.Expr),
		slog.String("scope", event.Scope),
		slog.String("player", event.Player),
		slog.Bool("result", event.Result),
		slog.Duration("duration", event.Duration),
	}
	if event.Err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", event.Err.Error()))
	}
	l.logger.LogAttrs(context.Background(), level, "expression evaluated", attrs...)
}

// ReportIssue implements IssueReporter.
func (l *SlogLogger) ReportIssue(issue ConfigIssue) {
	level := slog.LevelWarn
	if issue.Severity == SeverityError {
		level = slog.LevelError
	}
	attrs := []slog.Attr{
		slog.String("group", issue.Group),
		slog.String("field", issue.Field),
		slog.String("value", issue.Value),
	}
	if issue.Err != nil {
		attrs = append(attrs, slog.String("error", issue.Err.Error()))
	}
	l.logger.LogAttrs(context.Background(), level, "configuration issue", attrs...)
}
