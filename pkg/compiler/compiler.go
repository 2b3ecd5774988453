package compiler

import (
	"fmt"

	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/pkg/llm"
)

// New picks the compiler for the configured strategy.
func New(strategy Strategy, provider llm.LLMProvider, log logger.ILogger) (Compiler, error) {
	switch strategy {
	case StrategySQL, "":
		return NewSQLCompiler(provider, log), nil
	case StrategyAggregate:
		return NewAggregateCompiler(provider, log), nil
	default:
		return nil, fmt.Errorf("unknown query strategy %q", strategy)
	}
}
