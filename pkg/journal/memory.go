package journal

import (
	"context"
	"sync"

	"github.com/gammazero/deque"
	"github.com/joripage/futures-bot/pkg/oms/model"
)

const DefaultMemoryCapacity = 1000

// MemorySink keeps the most recent events in a bounded ring.
type MemorySink struct {
	mu       sync.RWMutex
	capacity int
	events   deque.Deque[model.OrderEvent]
}

func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemorySink{capacity: capacity}
}

func (s *MemorySink) Record(_ context.Context, ev *model.OrderEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events.PushBack(*ev)
	for s.events.Len() > s.capacity {
		s.events.PopFront()
	}
	return nil
}

// Recent returns up to limit events, newest last. limit <= 0 returns everything held.
func (s *MemorySink) Recent(limit int) []model.OrderEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.events.Len()
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]model.OrderEvent, 0, limit)
	for i := n - limit; i < n; i++ {
		out = append(out, s.events.At(i))
	}
	return out
}

// ByStrategy returns every held event of one strategy, oldest first.
func (s *MemorySink) ByStrategy(strategyID string) []model.OrderEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.OrderEvent
	for i := 0; i < s.events.Len(); i++ {
		if ev := s.events.At(i); ev.StrategyID == strategyID {
			out = append(out, ev)
		}
	}
	return out
}
