// Package tools defines the fixed tool menu offered to the language model,
// the closed set of tool calls it can make, and the adapters that execute them.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cortexai/orderlens/internal/models"
)

var (
	// ErrUnknownTool is returned when the model names a tool outside the fixed set.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments is returned when tool arguments are malformed or fail the tool schema.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// Descriptor is the static metadata offered to the model for one tool
type Descriptor struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Call is a parsed tool invocation. The set of implementations is closed:
// RetrieveContextCall and QueryOrdersCall.
type Call interface {
	ToolName() string
	dispatch(ctx context.Context, h Handler) (any, error)
}

// Handler executes every kind of Call. Adding a tool adds a method here,
// so every dispatcher stops compiling until it handles the new tool.
type Handler interface {
	RetrieveContext(ctx context.Context, call RetrieveContextCall) (string, error)
	QueryOrders(ctx context.Context, call QueryOrdersCall) ([]models.Order, error)
}

// RetrieveContextCall asks for policy/FAQ snippets relevant to Query
type RetrieveContextCall struct {
	Query string
}

func (RetrieveContextCall) ToolName() string { return NameRetrieveContext }

func (c RetrieveContextCall) dispatch(ctx context.Context, h Handler) (any, error) {
	return h.RetrieveContext(ctx, c)
}

// QueryOrdersCall asks for order records matching loosely-typed Criteria
type QueryOrdersCall struct {
	Criteria map[string]interface{}
}

func (QueryOrdersCall) ToolName() string { return NameQueryOrders }

func (c QueryOrdersCall) dispatch(ctx context.Context, h Handler) (any, error) {
	return h.QueryOrders(ctx, c)
}

// Dispatch routes call to the matching Handler method
func Dispatch(ctx context.Context, h Handler, call Call) (any, error) {
	return call.dispatch(ctx, h)
}

// Parse turns a raw invocation into a Call. The decoded arguments are
// returned whenever they are valid JSON, even if schema validation fails,
// so callers can still report them.
func Parse(name string, rawArgs json.RawMessage) (Call, map[string]interface{}, error) {
	schema, ok := schemas[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	args := map[string]interface{}{}
	if len(rawArgs) > 0 && string(rawArgs) != "null" {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, map[string]interface{}{}, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		if args == nil {
			args = map[string]interface{}{}
		}
	}

	checked := args
	if name == NameQueryOrders {
		checked = withoutEmptyStrings(args)
	}
	if err := validateArgs(schema, checked); err != nil {
		return nil, args, err
	}

	switch name {
	case NameRetrieveContext:
		query, _ := args["query"].(string)
		return RetrieveContextCall{Query: query}, args, nil
	case NameQueryOrders:
		return QueryOrdersCall{Criteria: args}, args, nil
	}
	return nil, args, fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

// withoutEmptyStrings drops criteria that count as absent
func withoutEmptyStrings(args map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		if str, ok := v.(string); ok && str == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// Result is the outcome of one dispatched invocation
type Result struct {
	CallID    string
	Name      string
	Arguments map[string]interface{}
	// Value is a snippet string, a []models.Order, or an error indicator string.
	Value any
	Err   error
}

// Failed builds the error-flavored result reported back to the model
func Failed(callID, name string, args map[string]interface{}, err error) Result {
	return Result{
		CallID:    callID,
		Name:      name,
		Arguments: args,
		Value:     "error: " + err.Error(),
		Err:       err,
	}
}

// Text renders the result the way it is sent to the model: strings pass
// through unchanged, record sequences become a JSON array.
func (r Result) Text() (string, error) {
	switch v := r.Value.(type) {
	case string:
		return v, nil
	case []models.Order:
		if v == nil {
			v = []models.Order{}
		}
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshal orders: %w", err)
		}
		return string(b), nil
	case nil:
		return "", nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshal tool result: %w", err)
		}
		return string(b), nil
	}
}
