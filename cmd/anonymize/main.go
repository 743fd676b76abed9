// Command anonymize replaces client-identifying text in .pptx decks with
// neutral placeholders.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/deck-anonymizer/internal/app"
	"github.com/joseph-ayodele/deck-anonymizer/internal/common"
)

type globalFlags struct {
	envFile    string
	logLevel   string
	logJSON    bool
	locale     string
	localeFile string
	dbURL      string
	noRemote   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
}

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "anonymize",
		Short:         "Anonymize client information in PowerPoint decks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	pf.BoolVar(&g.logJSON, "log-json", false, "log as JSON")
	pf.StringVar(&g.locale, "locale", "", "locale pack (sv, en); overrides ANON_LOCALE")
	pf.StringVar(&g.localeFile, "locale-file", "", "YAML file overlaid on the locale pack; overrides ANON_LOCALE_FILE")
	pf.StringVar(&g.dbURL, "db", "", "run history store (sqlite path or postgres URL); overrides DB_URL")
	pf.BoolVar(&g.noRemote, "no-remote", false, "skip remote classification and use the body fallback")

	root.AddCommand(
		newRunCmd(g),
		newClassifyCmd(g),
		newBatchCmd(g),
		newWatchCmd(g),
		newRunsCmd(g),
		newReportCmd(g),
	)
	return root
}

// loadConfig applies .env, the environment and flag overrides, in that order.
func (g *globalFlags) loadConfig() (*common.Config, *slog.Logger, error) {
	if err := common.LoadEnvFile(g.envFile); err != nil {
		return nil, nil, err
	}
	cfg := common.LoadConfig()
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.locale != "" {
		cfg.Anonymizer.Locale = g.locale
	}
	if g.localeFile != "" {
		cfg.Anonymizer.LocaleFile = g.localeFile
	}
	if g.dbURL != "" {
		cfg.Database.DSN = g.dbURL
	}
	if g.noRemote {
		cfg.Classifier.URL = ""
		cfg.LLM.APIKey = ""
	}
	logger := common.NewLogger(os.Stderr, cfg.LogLevel, g.logJSON)
	if err := cfg.ValidateAnonymizer(); err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func (g *globalFlags) newApp(ctx context.Context) (*app.App, error) {
	cfg, logger, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger)
}
