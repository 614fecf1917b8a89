package plan

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Load reads a plan from a YAML file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a YAML plan document:
//
//	id: trip-research
//	title: Research a trip
//	steps:
//	  - requirement: compute (100-37)*2+15
//	    tools: [calculator]
//	    maxSteps: 5
//
// A missing id is replaced by a random UUID. Step indexes follow file order.
func Parse(data []byte) (*Plan, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}

	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Title == "" {
		p.Title = p.ID
	}
	for i := range p.Steps {
		p.Steps[i].Index = i
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
