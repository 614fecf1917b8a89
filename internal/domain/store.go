package domain

import (
	"context"
	"time"
)

// RunStore journals finished runs. Only outcomes are recorded; conversation
// context never leaves the agent loop that owns it.
type RunStore interface {
	SaveRun(ctx context.Context, run RunRecord) error
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	Close() error
}

type RunKind string

const (
	RunAgent RunKind = "agent"
	RunPlan  RunKind = "plan"
)

type RunRecord struct {
	ID        string           `json:"id"`
	Kind      RunKind          `json:"kind"`
	Title     string           `json:"title"`
	Request   string           `json:"request"`
	State     State            `json:"state"`
	Result    string           `json:"result"`
	Steps     int              `json:"steps"`
	TokensIn  int              `json:"tokens_in"`
	TokensOut int              `json:"tokens_out"`
	Provider  string           `json:"provider,omitempty"`
	StepLog   []PlanStepResult `json:"step_log,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
