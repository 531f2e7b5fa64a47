package model

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type GridStatus string

const (
	GridStatusCreated  GridStatus = "created"
	GridStatusDeployed GridStatus = "deployed"
	GridStatusStopped  GridStatus = "stopped"
)

// GridStrategy is a ladder of limit orders inside [LowerPrice, UpperPrice].
// Callers mutating the order lists or the status must hold the grid lock.
type GridStrategy struct {
	mu sync.Mutex

	ID               string
	Symbol           string
	LowerPrice       decimal.Decimal
	UpperPrice       decimal.Decimal
	LevelCount       int
	PriceStep        decimal.Decimal
	QuantityPerLevel decimal.Decimal
	TotalInvestment  decimal.Decimal
	Levels           []decimal.Decimal
	BuyOrders        []*OrderHandle
	SellOrders       []*OrderHandle
	Status           GridStatus
	CreatedAt        time.Time
}

func (g *GridStrategy) Lock()   { g.mu.Lock() }
func (g *GridStrategy) Unlock() { g.mu.Unlock() }

// CanTransit reports whether the grid may move to next.
func (g *GridStrategy) CanTransit(next GridStatus) bool {
	switch next {
	case GridStatusDeployed:
		return g.Status == GridStatusCreated
	case GridStatusStopped:
		return g.Status == GridStatusCreated || g.Status == GridStatusDeployed
	}
	return false
}

// GridSnapshot is a lock-free copy of a grid for display.
type GridSnapshot struct {
	ID               string            `json:"grid_id"`
	Symbol           string            `json:"symbol"`
	LowerPrice       decimal.Decimal   `json:"lower_price"`
	UpperPrice       decimal.Decimal   `json:"upper_price"`
	LevelCount       int               `json:"grid_levels"`
	PriceStep        decimal.Decimal   `json:"price_step"`
	QuantityPerLevel decimal.Decimal   `json:"quantity_per_level"`
	TotalInvestment  decimal.Decimal   `json:"total_investment"`
	Levels           []decimal.Decimal `json:"levels"`
	BuyOrders        []OrderHandle     `json:"buy_orders"`
	SellOrders       []OrderHandle     `json:"sell_orders"`
	Status           GridStatus        `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
}

func (g *GridStrategy) Snapshot() GridSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := GridSnapshot{
		ID:               g.ID,
		Symbol:           g.Symbol,
		LowerPrice:       g.LowerPrice,
		UpperPrice:       g.UpperPrice,
		LevelCount:       g.LevelCount,
		PriceStep:        g.PriceStep,
		QuantityPerLevel: g.QuantityPerLevel,
		TotalInvestment:  g.TotalInvestment,
		Levels:           append([]decimal.Decimal(nil), g.Levels...),
		Status:           g.Status,
		CreatedAt:        g.CreatedAt,
	}
	for _, h := range g.BuyOrders {
		s.BuyOrders = append(s.BuyOrders, *h)
	}
	for _, h := range g.SellOrders {
		s.SellOrders = append(s.SellOrders, *h)
	}
	return s
}

type TWAPStatus string

const (
	TWAPStatusRunning   TWAPStatus = "running"
	TWAPStatusStopped   TWAPStatus = "stopped"
	TWAPStatusCompleted TWAPStatus = "completed"
	TWAPStatusNotFound  TWAPStatus = "not_found"
)

// TWAPRun is one time-sliced execution. The stop flag is a channel closed at most once.
type TWAPRun struct {
	ID            string
	Symbol        string
	Side          OrderSide
	TotalQuantity decimal.Decimal
	ChunkQuantity decimal.Decimal
	ChunkCount    int
	Interval      time.Duration
	StartedAt     time.Time

	mu         sync.Mutex
	status     TWAPStatus
	orders     []*OrderHandle
	failed     int
	finishedAt time.Time
	stopOnce   sync.Once
	stopCh     chan struct{}
	done       chan struct{}
}

func NewTWAPRun(id, symbol string, side OrderSide, total, chunk decimal.Decimal, chunks int, interval time.Duration, now time.Time) *TWAPRun {
	return &TWAPRun{
		ID:            id,
		Symbol:        symbol,
		Side:          side,
		TotalQuantity: total,
		ChunkQuantity: chunk,
		ChunkCount:    chunks,
		Interval:      interval,
		StartedAt:     now,
		status:        TWAPStatusRunning,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
}

func (r *TWAPRun) Status() TWAPStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// RequestStop raises the stop flag. It returns false when the run is no longer running.
func (r *TWAPRun) RequestStop() bool {
	r.mu.Lock()
	running := r.status == TWAPStatusRunning
	r.mu.Unlock()
	if !running {
		return false
	}
	r.stopOnce.Do(func() { close(r.stopCh) })
	return true
}

// StopRequested is closed once a stop has been requested.
func (r *TWAPRun) StopRequested() <-chan struct{} { return r.stopCh }

func (r *TWAPRun) IsStopRequested() bool {
	select {
	case <-r.stopCh:
		return true
	default:
		return false
	}
}

func (r *TWAPRun) RecordOrder(h *OrderHandle) {
	r.mu.Lock()
	r.orders = append(r.orders, h)
	r.mu.Unlock()
}

func (r *TWAPRun) RecordFailure() {
	r.mu.Lock()
	r.failed++
	r.mu.Unlock()
}

// Finish marks the run terminal. A run that exhausted its chunks is completed even if a stop
// arrived after the last one.
func (r *TWAPRun) Finish(exhausted bool, now time.Time) {
	r.mu.Lock()
	if exhausted || !r.IsStopRequested() {
		r.status = TWAPStatusCompleted
	} else {
		r.status = TWAPStatusStopped
	}
	r.finishedAt = now
	r.mu.Unlock()
	close(r.done)
}

// Done is closed when the background task has returned.
func (r *TWAPRun) Done() <-chan struct{} { return r.done }

type TWAPSnapshot struct {
	ID             string          `json:"twap_id"`
	Symbol         string          `json:"symbol"`
	Side           OrderSide       `json:"side"`
	Status         TWAPStatus      `json:"status"`
	TotalQuantity  decimal.Decimal `json:"total_quantity"`
	ChunkQuantity  decimal.Decimal `json:"chunk_size"`
	ChunkCount     int             `json:"num_chunks"`
	IntervalSecond float64         `json:"interval_seconds"`
	ExecutedChunks int             `json:"executed_chunks"`
	FailedChunks   int             `json:"failed_chunks"`
	Orders         []OrderHandle   `json:"orders,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty"`
}

func (r *TWAPRun) Snapshot() TWAPSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := TWAPSnapshot{
		ID:             r.ID,
		Symbol:         r.Symbol,
		Side:           r.Side,
		Status:         r.status,
		TotalQuantity:  r.TotalQuantity,
		ChunkQuantity:  r.ChunkQuantity,
		ChunkCount:     r.ChunkCount,
		IntervalSecond: r.Interval.Seconds(),
		ExecutedChunks: len(r.orders),
		FailedChunks:   r.failed,
		StartedAt:      r.StartedAt,
	}
	for _, h := range r.orders {
		s.Orders = append(s.Orders, *h)
	}
	if !r.finishedAt.IsZero() {
		t := r.finishedAt
		s.FinishedAt = &t
	}
	return s
}

// BracketGroup pairs a take-profit and a stop-loss leg. The exchange does not link them.
type BracketGroup struct {
	ID             string          `json:"oco_id"`
	Symbol         string          `json:"symbol"`
	EntrySide      OrderSide       `json:"entry_side"`
	Quantity       decimal.Decimal `json:"quantity"`
	ReferencePrice decimal.Decimal `json:"reference_price"`
	TakeProfit     *OrderHandle    `json:"take_profit_order,omitempty"`
	StopLoss       *OrderHandle    `json:"stop_loss_order,omitempty"`
}
