package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/loom/internal/engine"
	"github.com/samcharles93/loom/internal/inference"
)

// CompletionRequest is the /v1/completions request body. Nil fields fall
// back to the server's startup configuration.
type CompletionRequest struct {
	Model            string            `json:"model,omitempty"`
	Prompt           string            `json:"prompt"`
	MaxTokens        *int              `json:"max_tokens,omitempty"`
	BatchSize        *int              `json:"batch_size,omitempty"`
	Temperature      *float64          `json:"temperature,omitempty"`
	TopK             *int              `json:"top_k,omitempty"`
	TopP             *float64          `json:"top_p,omitempty"`
	TailFreeZ        *float64          `json:"tfs_z,omitempty"`
	RepeatPenalty    *float64          `json:"repeat_penalty,omitempty"`
	FrequencyPenalty *float64          `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64          `json:"presence_penalty,omitempty"`
	PenaltyLastN     *int              `json:"penalty_last_n,omitempty"`
	Mirostat         *int              `json:"mirostat,omitempty"`
	MirostatTau      *float64          `json:"mirostat_tau,omitempty"`
	MirostatEta      *float64          `json:"mirostat_eta,omitempty"`
	Seed             *int64            `json:"seed,omitempty"`
	Stream           *bool             `json:"stream,omitempty"`
	Stop             []string          `json:"stop,omitempty"`
	LogitBias        map[int]float32   `json:"logit_bias,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type CompletionResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   CompletionUsage    `json:"usage"`
	Seed    int64              `json:"seed,omitempty"`
}

type CompletionChoice struct {
	Index        int     `json:"index"`
	Text         string  `json:"text"`
	FinishReason *string `json:"finish_reason"`
}

type CompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionChunk is one SSE event of a streamed completion.
type CompletionChunk struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListModels(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"object": "list",
		"data": []map[string]any{{
			"id":       s.model,
			"object":   "model",
			"created":  s.clock().Unix(),
			"owned_by": "local",
		}},
	})
}

func (s *Server) handleCompletions(c *echo.Context) error {
	req, err := decodeJSON[CompletionRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	cfg := inference.Resolve(requestToOptions(req), s.base)
	if err := cfg.Validate(); err != nil {
		return writeBadRequest(c, err.Error())
	}

	completionID := "cmpl-" + uuid.NewString()
	created := s.clock().Unix()

	if req.Stream != nil && *req.Stream {
		return s.streamCompletion(c, cfg, completionID, created)
	}
	return s.syncCompletion(c, cfg, completionID, created)
}

func (s *Server) syncCompletion(c *echo.Context, cfg inference.Config, completionID string, created int64) error {
	var result *inference.Result
	err := s.provider.WithEngine(c.Request().Context(), func(eng engine.Engine) error {
		gen, err := inference.NewGenerator(eng, cfg)
		if err != nil {
			return err
		}
		result, err = gen.Run(c.Request().Context(), nil)
		return err
	})
	if err != nil {
		return writeInferenceError(c, err)
	}

	s.log.Info("completion finished",
		"id", completionID,
		"tokens", result.Stats.TokensGenerated,
		"tps", fmt.Sprintf("%.1f", result.Stats.TPS))

	finish := result.FinishReason
	return c.JSON(http.StatusOK, CompletionResponse{
		ID:      completionID,
		Object:  "text_completion",
		Created: created,
		Model:   s.model,
		Choices: []CompletionChoice{{Index: 0, Text: result.Text, FinishReason: &finish}},
		Usage: CompletionUsage{
			PromptTokens:     result.Stats.PromptTokens,
			CompletionTokens: result.Stats.TokensGenerated,
			TotalTokens:      result.Stats.PromptTokens + result.Stats.TokensGenerated,
		},
		Seed: result.Seed,
	})
}

func (s *Server) streamCompletion(c *echo.Context, cfg inference.Config, completionID string, created int64) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")

	flusher, ok := res.(interface{ Flush() })
	if !ok {
		return writeBadRequest(c, "streaming unsupported")
	}

	emit := func(text string, finish *string) {
		chunk := CompletionChunk{
			ID:      completionID,
			Object:  "text_completion",
			Created: created,
			Model:   s.model,
			Choices: []CompletionChoice{{Index: 0, Text: text, FinishReason: finish}},
		}
		_ = sendSSEChunk(res, chunk)
		flusher.Flush()
	}

	var result *inference.Result
	err := s.provider.WithEngine(c.Request().Context(), func(eng engine.Engine) error {
		gen, err := inference.NewGenerator(eng, cfg)
		if err != nil {
			return err
		}
		result, err = gen.Run(c.Request().Context(), func(tok string) {
			emit(tok, nil)
		})
		return err
	})
	if err != nil {
		_ = sendSSEChunk(res, map[string]any{"error": errorBody(err).Message})
		flusher.Flush()
		return nil
	}

	finish := result.FinishReason
	emit("", &finish)
	_, _ = fmt.Fprint(res, "data: [DONE]\n\n")
	flusher.Flush()
	return nil
}

func requestToOptions(req CompletionRequest) inference.Options {
	return inference.Options{
		Prompt:           &req.Prompt,
		Seed:             req.Seed,
		MaxNewTokens:     req.MaxTokens,
		BatchSize:        req.BatchSize,
		Temperature:      req.Temperature,
		TopK:             req.TopK,
		TopP:             req.TopP,
		TailFreeZ:        req.TailFreeZ,
		RepeatPenalty:    req.RepeatPenalty,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
		PenaltyLastN:     req.PenaltyLastN,
		Mirostat:         req.Mirostat,
		MirostatTau:      req.MirostatTau,
		MirostatEta:      req.MirostatEta,
		LogitBias:        req.LogitBias,
		AntiPrompts:      req.Stop,
	}
}

// writeInferenceError maps the pipeline's error taxonomy to HTTP statuses:
// caller mistakes are 4xx, engine trouble is 5xx.
func writeInferenceError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, inference.ErrConfiguration),
		errors.Is(err, inference.ErrPromptTooLong):
		return writeBadRequest(c, err.Error())
	case errors.Is(err, inference.ErrContextOverflow):
		return writeError(c, http.StatusUnprocessableEntity, "context_overflow", err.Error())
	default:
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
}
