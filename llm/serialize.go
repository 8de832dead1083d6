package llm

import (
	"context"
	"sync"
)

// Serialize wraps a backend that is not safe for concurrent use so that at
// most one call reaches it at a time. The wrapper only exposes the blocking
// path.
func Serialize(l LLM) LLM {
	return &serialized{next: l}
}

type serialized struct {
	mu   sync.Mutex
	next LLM
}

func (s *serialized) Generate(ctx context.Context, prompts []string, stop []string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Generate(ctx, prompts, stop)
}

func (s *serialized) Type() string {
	return s.next.Type()
}

func (s *serialized) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Save(path)
}
