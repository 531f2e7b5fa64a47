package registry

import (
	"sort"
	"sync"

	"github.com/joripage/futures-bot/pkg/oms/model"
)

type InMemoryRegistry struct {
	mu     sync.RWMutex
	grids  map[string]*model.GridStrategy
	runs   map[string]*model.TWAPRun
	orders map[int64]*model.OrderHandle
}

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		grids:  make(map[string]*model.GridStrategy),
		runs:   make(map[string]*model.TWAPRun),
		orders: make(map[int64]*model.OrderHandle),
	}
}

func (s *InMemoryRegistry) AddGrid(g *model.GridStrategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.grids[g.ID]; ok {
		return model.ErrDuplicateID
	}
	s.grids[g.ID] = g
	return nil
}

func (s *InMemoryRegistry) GetGrid(id string) (*model.GridStrategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.grids[id]
	if !ok {
		return nil, &model.NotFoundError{Kind: "grid", ID: id}
	}
	return g, nil
}

// ListGrids returns grids ordered by creation time.
func (s *InMemoryRegistry) ListGrids() []*model.GridStrategy {
	s.mu.RLock()
	out := make([]*model.GridStrategy, 0, len(s.grids))
	for _, g := range s.grids {
		out = append(out, g)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *InMemoryRegistry) AddRun(r *model.TWAPRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[r.ID]; ok {
		return model.ErrDuplicateID
	}
	s.runs[r.ID] = r
	return nil
}

func (s *InMemoryRegistry) GetRun(id string) (*model.TWAPRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, &model.NotFoundError{Kind: "twap", ID: id}
	}
	return r, nil
}

func (s *InMemoryRegistry) ListRuns() []*model.TWAPRun {
	s.mu.RLock()
	out := make([]*model.TWAPRun, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

func (s *InMemoryRegistry) TrackOrder(h *model.OrderHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[h.OrderID] = h
}

func (s *InMemoryRegistry) GetOrder(orderID int64) (*model.OrderHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.orders[orderID]
	return h, ok
}
