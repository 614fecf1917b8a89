package domain

import "fmt"

// State is the lifecycle state of an agent loop or plan.
type State string

const (
	StateIdle            State = "idle"
	StateRunning         State = "running"
	StateCompleted       State = "completed"
	StateMaxStepsReached State = "max_steps"
	StateFailed          State = "failed"
)

// IsTerminal reports whether s is one of the end states.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateMaxStepsReached, StateFailed:
		return true
	}
	return false
}

// LoopOutcome is produced once per agent loop run.
type LoopOutcome struct {
	State  State
	Result string
	Steps  int // iterations consumed, never more than the loop's budget
	Usage  Usage
}

func (o LoopOutcome) String() string {
	return fmt.Sprintf("LoopOutcome{state=%s, steps=%d, result=%q}", o.State, o.Steps, o.Result)
}

// PlanStep is one ordered unit of a plan.
type PlanStep struct {
	Index        int      `json:"index" yaml:"-"`
	Requirement  string   `json:"requirement" yaml:"requirement"`
	AllowedTools []string `json:"allowedTools" yaml:"tools"`
	MaxSteps     int      `json:"maxSteps" yaml:"maxSteps"`
}

type PlanStepResult struct {
	Index       int    `json:"index"`
	Requirement string `json:"requirement"`
	State       State  `json:"state"`
	Result      string `json:"result"`
	Steps       int    `json:"steps"`
}

type PlanOutcome struct {
	PlanID string
	Title  string
	State  State
	Steps  []PlanStepResult
	Result string
	Usage  Usage
}
