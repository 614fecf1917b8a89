package provider

import (
	"context"
	"errors"
	"sync"

	"funcagent/internal/domain"
)

// Scripted replays canned replies in order. Once the script is exhausted the
// last reply repeats. It backs offline demos and tests.
type Scripted struct {
	mu      sync.Mutex
	replies []string
	calls   int
}

func NewScripted(replies ...string) *Scripted {
	return &Scripted{replies: replies}
}

func (s *Scripted) Name() string { return "scripted" }

func (s *Scripted) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replies) == 0 {
		return nil, errors.New("scripted provider has no replies")
	}

	idx := min(s.calls, len(s.replies)-1)
	s.calls++
	reply := s.replies[idx]

	prompt := 0
	for _, m := range req.Messages {
		prompt += estimateTokens(m.Content)
	}
	completion := estimateTokens(reply)
	return &domain.ChatResponse{
		Content:      reply,
		FinishReason: "stop",
		Usage: domain.Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}, nil
}

// Calls returns how many times Chat has been answered.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// estimateTokens approximates a token count at four bytes per token.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}
