package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AuditLogger logs one line per question/answer exchange with hashed identifiers
type AuditLogger struct {
	enabled bool
	logger  *zerolog.Logger
}

func NewAuditLogger(enabled bool) *AuditLogger {
	return &AuditLogger{enabled: enabled}
}

// WithLogger sends audit lines to l instead of the request or global logger
func (a *AuditLogger) WithLogger(l zerolog.Logger) *AuditLogger {
	a.logger = &l
	return a
}

// ExchangeAudit is the record of one exchange
type ExchangeAudit struct {
	Question        string
	ToolNames       []string
	CallIDs         []string
	ToolArgs        []map[string]interface{}
	FailedTools     int
	ExecutionTimeMs int64
	Success         bool
	Err             error
}

// LogExchange records which tools the model selected and with which arguments
func (a *AuditLogger) LogExchange(ctx context.Context, e ExchangeAudit) {
	if !a.enabled {
		return
	}

	toolNames := e.ToolNames
	if toolNames == nil {
		toolNames = []string{}
	}
	callIDs := e.CallIDs
	if callIDs == nil {
		callIDs = []string{}
	}

	evt := a.loggerFor(ctx).Info().
		Str("event", "ask_audit").
		Str("question_hash", hashStr(e.Question)[:16]).
		Strs("selected_tools", toolNames).
		Strs("call_ids", callIDs).
		Interface("tool_args", e.ToolArgs).
		Int("failed_tools", e.FailedTools).
		Int64("execution_time_ms", e.ExecutionTimeMs).
		Bool("success", e.Success)

	if e.Err != nil {
		evt = evt.Str("error", e.Err.Error())
	}
	evt.Msg("ask audit")
}

// loggerFor prefers the request-scoped logger so audit lines carry request_id
func (a *AuditLogger) loggerFor(ctx context.Context) *zerolog.Logger {
	if a.logger != nil {
		return a.logger
	}
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

func hashStr(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
