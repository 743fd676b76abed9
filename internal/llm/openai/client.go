package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/deck-anonymizer/internal/llm"
)

type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// ClassifyBatch implements llm.Backend using chat/completions in JSON mode.
// Items that fail validation or reference ids outside the batch are dropped;
// the returned error is reserved for whole-batch failures.
func (c *Client) ClassifyBatch(ctx context.Context, req llm.ClassifyRequest) (llm.ClassifyResponse, error) {
	if len(req.Shapes) == 0 {
		return llm.ClassifyResponse{Classifications: []llm.ResultItem{}}, nil
	}
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.classify.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"shapes", len(req.Shapes),
		"locale", c.cfg.Locale,
	)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": buildSystemPrompt(c.cfg.Locale)},
			{"role": "user", "content": buildUserPrompt(c.cfg.Locale, req)},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(llm.BuildResponseJSONSchema())},
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.classify.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ClassifyResponse{}, fmt.Errorf("%w: %w", llm.ErrClassificationUnavailable, err)
	}

	var cc chatCompletion
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.classify.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ClassifyResponse{}, fmt.Errorf("%w: decode openai response: %w", llm.ErrClassificationUnavailable, err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.classify.no_choices",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ClassifyResponse{}, fmt.Errorf("%w: no choices in openai response", llm.ErrClassificationUnavailable)
	}
	if cc.Choices[0].FinishReason == "length" {
		c.logger.Warn("llm.classify.truncated", "req_id", rid)
	}

	content := stripCodeFence(stripThinkBlock(strings.TrimSpace(cc.Choices[0].Message.Content)))
	resp, invalid, err := llm.DecodeResponse([]byte(content))
	if err != nil {
		c.logger.Error("llm.classify.schema_validation_failed",
			"req_id", rid, "error", err, "content", content,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ClassifyResponse{}, fmt.Errorf("%w: %w", llm.ErrClassificationUnavailable, err)
	}

	kept := resp.Classifications[:0]
	seen := make(map[int]struct{}, len(resp.Classifications))
	for _, item := range resp.Classifications {
		if item.ID >= len(req.Shapes) {
			invalid++
			continue
		}
		if _, dup := seen[item.ID]; dup {
			invalid++
			continue
		}
		seen[item.ID] = struct{}{}
		kept = append(kept, item)
	}
	resp.Classifications = kept

	if invalid > 0 {
		c.logger.Warn("llm.classify.items_dropped", "req_id", rid, "dropped", invalid)
	}
	c.logger.Info("llm.classify.ok",
		"req_id", rid,
		"classified", len(resp.Classifications),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}
