// Package remote is the HTTP adapter for an external classify service.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/deck-anonymizer/internal/fragment"
	"github.com/joseph-ayodele/deck-anonymizer/internal/llm"
)

// Config for the remote classifier.
type Config struct {
	URL     string        // full endpoint, e.g. https://host/v1/classify
	APIKey  string        // sent as a bearer token
	Timeout time.Duration // http client timeout
}

// Client implements llm.Classifier over JSON/HTTP.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Classify sends the whole batch in one round trip. Any transport, status or
// envelope failure is returned wrapped in llm.ErrClassificationUnavailable.
func (c *Client) Classify(ctx context.Context, items []fragment.Unclassified) ([]fragment.Classification, error) {
	if len(items) == 0 {
		return nil, nil
	}
	start := time.Now()
	req := llm.BuildRequest(items)

	headers := map[string]string{}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.cfg.APIKey
	}

	c.logger.Info("llm.remote.request", "items", len(items), "url", c.cfg.URL)
	raw, status, err := llm.SendJSON(ctx, c.http, c.cfg.URL, req, headers, c.logger)
	if err != nil {
		c.logger.Warn("llm.remote.failed",
			"status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("%w: %w", llm.ErrClassificationUnavailable, err)
	}

	resp, invalid, err := llm.DecodeResponse(raw)
	if err != nil {
		c.logger.Warn("llm.remote.bad_response",
			"error", err, "bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("%w: %w", llm.ErrClassificationUnavailable, err)
	}

	out, unmapped := llm.MapResponse(items, resp)
	c.logger.Info("llm.remote.ok",
		"items", len(items),
		"classified", len(out),
		"dropped_invalid", invalid,
		"dropped_unmapped", unmapped,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
