package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/cortexai/orderlens/internal/agent"
	"github.com/cortexai/orderlens/internal/models"
	"github.com/cortexai/orderlens/internal/security"
	"github.com/cortexai/orderlens/internal/tools"
	"github.com/rs/zerolog"
)

const maxAskBodyBytes = 64 << 10

// Answerer runs one question/answer exchange
type Answerer interface {
	Answer(ctx context.Context, question string) (*agent.Outcome, error)
}

// AskHandler handles POST /api/v1/ask
type AskHandler struct {
	answerer  Answerer
	validator *security.PromptValidator
}

func NewAskHandler(answerer Answerer, validator *security.PromptValidator) *AskHandler {
	return &AskHandler{answerer: answerer, validator: validator}
}

// Ask handles POST /api/v1/ask
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	var req models.AskRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxAskBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.Normalize()

	if req.Query == "" {
		models.WriteError(w, http.StatusBadRequest, `Missing "query"`)
		return
	}
	if h.validator != nil {
		if res := h.validator.Validate(req.Query); !res.Valid {
			logger.Warn().Str("reason", res.Message).Msg("query rejected")
			models.WriteError(w, http.StatusBadRequest, res.Message)
			return
		}
	}

	outcome, err := h.answerer.Answer(r.Context(), req.Query)
	if err != nil {
		logger.Error().Err(err).Msg("ask failed")
		msg := "failed to answer question"
		switch {
		case errors.Is(err, tools.ErrUnknownTool):
			msg = "model selected an unknown tool"
		case errors.Is(err, context.DeadlineExceeded):
			msg = "timed out answering question"
		}
		models.WriteError(w, http.StatusInternalServerError, msg)
		return
	}

	models.WriteJSON(w, http.StatusOK, AskResponseFor(outcome))
}

// AskResponseFor converts an exchange outcome into the wire response.
func AskResponseFor(o *agent.Outcome) models.AskResponse {
	resp := models.AskResponse{Answer: o.Answer, Tools: make([]models.ToolReport, 0, len(o.Tools))}
	for _, r := range o.Tools {
		report := models.ToolReport{
			CallID:    r.CallID,
			Name:      r.Name,
			Arguments: r.Arguments,
			Result:    r.Value,
		}
		if report.Arguments == nil {
			report.Arguments = map[string]any{}
		}
		if r.Err != nil {
			report.Error = r.Err.Error()
		}
		resp.Tools = append(resp.Tools, report)
	}
	return resp
}
