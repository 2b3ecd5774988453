package compiler

import (
	"context"

	"ai-data-analyst-be/pkg/schema"
)

type PlanKind string

const (
	PlanSQL       PlanKind = "sql"
	PlanAggregate PlanKind = "aggregate"
	PlanNone      PlanKind = "none"
)

type AggregateFunc string

const (
	FuncCount AggregateFunc = "COUNT"
	FuncSum   AggregateFunc = "SUM"
)

type AggregateSpec struct {
	CategoryColumn string        `json:"category_column"`
	ValueColumn    string        `json:"value_column"`
	Func           AggregateFunc `json:"func"`
}

// Plan is built fresh for every turn.
type Plan struct {
	Kind      PlanKind       `json:"kind"`
	SQL       string         `json:"sql,omitempty"`
	Aggregate *AggregateSpec `json:"aggregate,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

type Request struct {
	Question string
	Schema   *schema.Descriptor
	Sample   []map[string]any
}

// Compiler turns a resolved question into a query plan.
type Compiler interface {
	Compile(ctx context.Context, req Request) (*Plan, error)
}

type Strategy string

const (
	StrategySQL       Strategy = "sql"
	StrategyAggregate Strategy = "aggregate"
)
