package main

import (
	"context"
	"fmt"
	"os"

	"ai-data-analyst-be/internal/config"
	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/pkg/clarify"
	"ai-data-analyst-be/pkg/compiler"
	"ai-data-analyst-be/pkg/conversation"
	"ai-data-analyst-be/pkg/engine"
	"ai-data-analyst-be/pkg/llm/factory"
	"ai-data-analyst-be/pkg/report"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{
		Use:          "analyst",
		Short:        "Ask questions about a spreadsheet from the terminal",
		SilenceUsage: true,
	}

	root.AddCommand(chatCMD(), schemaCMD(), queryCMD())
	if err := root.Execute(); err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
}

// newSession wires one orchestrator the same way the API does.
func newSession(ctx context.Context, cfg *config.Config, log logger.ILogger) (*conversation.Session, error) {
	provider, err := factory.NewLLMProvider(ctx, factory.Config{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  cfg.LLMBaseURL(),
		APIKey:   cfg.LLMAPIKey(),
	})
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	comp, err := compiler.New(compiler.Strategy(cfg.Analysis.QueryStrategy), provider, log)
	if err != nil {
		return nil, err
	}

	return conversation.NewSession(uuid.NewString(), conversation.Dependencies{
		Engine:   engine.New(engine.Options{QueueDepth: cfg.Analysis.EngineQueueDepth, Logger: log}),
		Resolver: clarify.NewResolver(provider, cfg.Analysis.ClarifyHistoryWindow, log),
		Compiler: comp,
		Reporter: report.NewReporter(provider, report.Options{
			PieThreshold:   cfg.Analysis.ChartPieThreshold,
			MaxSummaryRows: cfg.Analysis.ReportMaxRows,
		}, log),
		Logger: log,
	}, conversation.Options{SummaryRows: cfg.Analysis.ReportMaxRows}), nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
