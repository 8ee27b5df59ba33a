// Package agent runs one question/answer exchange: a decision pass where the
// model picks tools, dispatch of those tools, and a synthesis pass.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cortexai/orderlens/internal/completion"
	"github.com/cortexai/orderlens/internal/security"
	"github.com/cortexai/orderlens/internal/tools"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	SystemPrompt = "You are an internal analytics AI assistant. Choose the appropriate tool. " +
		"Be concise and include a brief explanation of what you did."

	// NoAnswer replaces an empty reply from the model
	NoAnswer = "No answer"
)

// Outcome is the result of one exchange
type Outcome struct {
	Answer string
	Tools  []tools.Result
}

// Options tunes an Orchestrator
type Options struct {
	// Concurrent dispatches independent tool calls in parallel. Results keep
	// invocation order either way.
	Concurrent bool
	// Timeout bounds a whole exchange; zero means no bound beyond ctx.
	Timeout time.Duration
	Audit   *security.AuditLogger
}

// Orchestrator drives the decision, dispatch and synthesis passes
type Orchestrator struct {
	llm        completion.Service
	handler    tools.Handler
	audit      *security.AuditLogger
	concurrent bool
	timeout    time.Duration
}

func NewOrchestrator(llm completion.Service, handler tools.Handler, opts Options) *Orchestrator {
	audit := opts.Audit
	if audit == nil {
		audit = security.NewAuditLogger(false)
	}
	return &Orchestrator{
		llm:        llm,
		handler:    handler,
		audit:      audit,
		concurrent: opts.Concurrent,
		timeout:    opts.Timeout,
	}
}

// Answer runs one exchange for question. Tool adapter failures are reported
// to the model as error text and do not fail the exchange; an unknown tool
// or a completion failure does.
func (o *Orchestrator) Answer(ctx context.Context, question string) (out *Outcome, err error) {
	start := time.Now()
	logger := zerolog.Ctx(ctx)
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	defer func() {
		audit := security.ExchangeAudit{
			Question:        question,
			ExecutionTimeMs: time.Since(start).Milliseconds(),
			Success:         err == nil,
			Err:             err,
		}
		if out != nil {
			for _, r := range out.Tools {
				audit.ToolNames = append(audit.ToolNames, r.Name)
				audit.CallIDs = append(audit.CallIDs, r.CallID)
				audit.ToolArgs = append(audit.ToolArgs, r.Arguments)
				if r.Err != nil {
					audit.FailedTools++
				}
			}
		}
		o.audit.LogExchange(ctx, audit)
	}()

	descriptors := tools.Descriptors()
	messages := []completion.Message{
		completion.SystemMessage(SystemPrompt),
		completion.UserMessage(question),
	}

	decision, err := o.llm.Complete(ctx, messages, descriptors)
	if err != nil {
		return nil, fmt.Errorf("decision pass: %w", err)
	}

	if len(decision.ToolCalls) == 0 {
		logger.Debug().Msg("model answered without tools")
		return &Outcome{Answer: orNoAnswer(decision.Text), Tools: []tools.Result{}}, nil
	}

	results, err := o.dispatch(ctx, decision.ToolCalls)
	if err != nil {
		return nil, err
	}

	messages = append(messages, decision.Message)
	for _, r := range results {
		text, err := r.Text()
		if err != nil {
			return nil, fmt.Errorf("tool %s result: %w", r.Name, err)
		}
		messages = append(messages, completion.ToolMessage(r.CallID, text))
	}

	synthesis, err := o.llm.Complete(ctx, messages, descriptors)
	if err != nil {
		return nil, fmt.Errorf("synthesis pass: %w", err)
	}
	if len(synthesis.ToolCalls) > 0 {
		logger.Warn().Int("tool_calls", len(synthesis.ToolCalls)).Msg("ignoring tool calls requested during synthesis")
	}

	return &Outcome{Answer: orNoAnswer(synthesis.Text), Tools: results}, nil
}

// dispatch runs every call and returns one result per call in call order
func (o *Orchestrator) dispatch(ctx context.Context, calls []completion.ToolCall) ([]tools.Result, error) {
	parsed := make([]tools.Call, len(calls))
	results := make([]tools.Result, len(calls))

	for i, tc := range calls {
		call, args, err := tools.Parse(tc.Name, tc.Arguments)
		switch {
		case errors.Is(err, tools.ErrUnknownTool):
			return nil, fmt.Errorf("tool call %s: %w", tc.ID, err)
		case err != nil:
			results[i] = tools.Failed(tc.ID, tc.Name, args, err)
		default:
			parsed[i] = call
			results[i] = tools.Result{CallID: tc.ID, Name: tc.Name, Arguments: args}
		}
	}

	if !o.concurrent {
		for i := range calls {
			if parsed[i] != nil {
				results[i] = o.run(ctx, parsed[i], results[i])
			}
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range calls {
		if parsed[i] == nil {
			continue
		}
		i := i
		g.Go(func() error {
			results[i] = o.run(gctx, parsed[i], results[i])
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (o *Orchestrator) run(ctx context.Context, call tools.Call, r tools.Result) tools.Result {
	value, err := tools.Dispatch(ctx, o.handler, call)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("tool", r.Name).Str("call_id", r.CallID).Msg("tool execution error")
		return tools.Failed(r.CallID, r.Name, r.Arguments, err)
	}
	r.Value = value
	return r
}

func orNoAnswer(text string) string {
	if text == "" {
		return NoAnswer
	}
	return text
}
