package plan

import (
	"errors"
	"fmt"
	"strings"

	"funcagent/internal/domain"
)

var ErrEmptyRequirement = errors.New("step requirement must not be empty")

// DefaultStepBudget is used for steps that do not set maxSteps.
const DefaultStepBudget = 5

// Plan is an ordered list of steps executed one after another.
type Plan struct {
	ID    string            `yaml:"id"`
	Title string            `yaml:"title"`
	Steps []domain.PlanStep `yaml:"steps"`
}

func New(id, title string) *Plan {
	return &Plan{ID: id, Title: title}
}

// AddStep appends a step whose index is its position in the plan.
func (p *Plan) AddStep(requirement string, allowedTools []string, maxSteps int) *Plan {
	p.Steps = append(p.Steps, domain.PlanStep{
		Index:        len(p.Steps),
		Requirement:  requirement,
		AllowedTools: append([]string(nil), allowedTools...),
		MaxSteps:     maxSteps,
	})
	return p
}

// Validate checks that every step has a requirement.
func (p *Plan) Validate() error {
	var errs []error
	for i, s := range p.Steps {
		if strings.TrimSpace(s.Requirement) == "" {
			errs = append(errs, fmt.Errorf("step %d: %w", i, ErrEmptyRequirement))
		}
		if s.MaxSteps < 0 {
			errs = append(errs, fmt.Errorf("step %d: maxSteps must not be negative", i))
		}
	}
	return errors.Join(errs...)
}
