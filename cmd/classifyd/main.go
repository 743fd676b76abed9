// Command classifyd serves POST /v1/classify backed by an OpenAI-compatible
// chat model.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/deck-anonymizer/internal/common"
	"github.com/joseph-ayodele/deck-anonymizer/internal/llm/openai"
	"github.com/joseph-ayodele/deck-anonymizer/internal/server"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		envFile = flag.String("env-file", ".env", "dotenv file loaded before reading the environment")
		addr    = flag.String("addr", "", "listen address (default HTTP_ADDR)")
	)
	flag.Parse()

	if err := common.LoadEnvFile(*envFile); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	cfg := common.LoadConfig()
	if *addr != "" {
		cfg.Server.HTTPAddr = *addr
	}
	logger := common.NewLogger(os.Stdout, cfg.LogLevel, false)
	if err := cfg.ValidateService(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		Locale:      cfg.Anonymizer.Locale,
	}, logger)

	srv := server.New(backend, server.Config{
		ServiceToken:   cfg.Server.ServiceToken,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		MaxShapes:      cfg.Server.MaxShapes,
		MaxTextLength:  cfg.Server.MaxTextLength,
		Timeout:        cfg.LLM.Timeout + cfg.LLM.Timeout/2,
	}, logger)

	if cfg.Server.ServiceToken == "" {
		logger.Warn("SERVICE_TOKEN is empty, /v1/classify is unauthenticated")
	}
	logger.Info("classifyd starting", "addr", cfg.Server.HTTPAddr, "model", cfg.LLM.Model, "locale", cfg.Anonymizer.Locale)
	if err := srv.ListenAndServe(ctx, cfg.Server.HTTPAddr); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("classifyd stopped")
}
