// Package twap splits a market order into equal chunks spread evenly over a time window.
package twap

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joripage/futures-bot/pkg/logging"
	"github.com/joripage/futures-bot/pkg/metrics"
	"github.com/joripage/futures-bot/pkg/oms"
	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/joripage/futures-bot/pkg/oms/registry"
	"github.com/joripage/futures-bot/pkg/oms/validator"
	"github.com/joripage/futures-bot/pkg/strategy"
	"github.com/joripage/futures-bot/pkg/util"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// MaxDefaultChunks caps the chunk count when the caller does not choose one.
	MaxDefaultChunks = 20
	chunkPrecision   = 8
)

type Params struct {
	Symbol          string
	Side            string
	Quantity        string
	DurationMinutes int
	Chunks          int // 0 picks min(DurationMinutes, MaxDefaultChunks)
}

type Engine struct {
	oms      oms.IOMS
	registry registry.Registry
	logger   logging.ILogger
	clock    util.Clock
	wg       sync.WaitGroup
}

type Option func(*Engine)

func WithClock(c util.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func NewEngine(o oms.IOMS, reg registry.Registry, logger logging.ILogger, opts ...Option) *Engine {
	e := &Engine{
		oms:      o,
		registry: reg,
		logger:   logger,
		clock:    util.RealClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (p Params) validate() error {
	problems := validator.ValidateBasicOrder(p.Symbol, p.Side, p.Quantity)
	if p.DurationMinutes <= 0 {
		problems = append(problems, fmt.Sprintf("Invalid duration: %d. Must be positive minutes", p.DurationMinutes))
	}
	if p.Chunks < 0 {
		problems = append(problems, fmt.Sprintf("Invalid number of chunks: %d. Must be positive", p.Chunks))
	}
	return validator.Check(problems)
}

// Plan returns the chunk count, chunk size and wait between chunks for p. The size is
// truncated so the chunks never add up to more than total; LastChunk carries the remainder.
func Plan(total decimal.Decimal, durationMinutes, chunks int) (int, decimal.Decimal, time.Duration) {
	if chunks <= 0 {
		chunks = min(durationMinutes, MaxDefaultChunks)
	}
	size := total.Div(decimal.NewFromInt(int64(chunks))).Truncate(chunkPrecision)
	interval := time.Duration(durationMinutes) * time.Minute / time.Duration(chunks)
	return chunks, size, interval
}

// LastChunk is the size of the final chunk: whatever the first chunks-1 leave of total.
func LastChunk(total, size decimal.Decimal, chunks int) decimal.Decimal {
	return total.Sub(size.Mul(decimal.NewFromInt(int64(chunks - 1))))
}

// Start registers a run and executes it in the background. It returns as soon as the run
// is registered; the run outlives ctx's cancellation and is only ended by Stop.
func (e *Engine) Start(ctx context.Context, p Params) (*model.TWAPRun, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	symbol := strings.ToUpper(p.Symbol)
	side := model.OrderSide(strings.ToUpper(p.Side))
	total := validator.Decimal(p.Quantity)
	chunks, size, interval := Plan(total, p.DurationMinutes, p.Chunks)
	if !size.IsPositive() {
		return nil, model.NewValidationError(fmt.Sprintf("Quantity %s is too small to split into %d chunks", total, chunks))
	}
	now := e.clock.Now()

	var run *model.TWAPRun
	_, err := strategy.Register(strategy.BaseID(symbol, string(side), now), func(id string) error {
		run = model.NewTWAPRun(id, symbol, side, total, size, chunks, interval, now)
		return e.registry.AddRun(run)
	})
	if err != nil {
		return nil, err
	}

	runCtx := logging.WithRequestID(context.WithoutCancel(ctx), run.ID)
	e.logger.Info(runCtx, "twap started",
		zap.String("twap_id", run.ID),
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.String("total_quantity", total.String()),
		zap.Int("num_chunks", chunks),
		zap.String("chunk_size", size.String()),
		zap.Duration("interval", interval),
	)

	e.wg.Add(1)
	go e.execute(runCtx, run)
	return run, nil
}

func (e *Engine) execute(ctx context.Context, run *model.TWAPRun) {
	defer e.wg.Done()
	metrics.ActiveStrategies.WithLabelValues("twap").Inc()
	defer metrics.ActiveStrategies.WithLabelValues("twap").Dec()

	req := model.OrderRequest{
		Symbol:   run.Symbol,
		Side:     run.Side,
		Type:     model.OrderTypeMarket,
		Quantity: run.ChunkQuantity,
	}

	attempted := 0
	for i := 0; i < run.ChunkCount; i++ {
		if run.IsStopRequested() {
			e.logger.Info(ctx, "twap stopped", zap.String("twap_id", run.ID), zap.Int("executed_chunks", attempted))
			break
		}

		if i == run.ChunkCount-1 {
			req.Quantity = LastChunk(run.TotalQuantity, run.ChunkQuantity, run.ChunkCount)
		}
		h, err := e.oms.Submit(ctx, run.ID, req)
		attempted++
		if err != nil {
			run.RecordFailure()
			e.logger.LogError(ctx, err, "twap.chunk", zap.String("twap_id", run.ID), zap.Int("chunk", i+1))
		} else {
			run.RecordOrder(h)
			e.logger.Info(ctx, "twap chunk executed",
				zap.String("twap_id", run.ID), zap.Int("chunk", i+1), zap.Int("of", run.ChunkCount), zap.Int64("order_id", h.OrderID))
		}

		if i < run.ChunkCount-1 {
			select {
			case <-e.clock.After(run.Interval):
			case <-run.StopRequested():
			}
		}
	}

	run.Finish(attempted == run.ChunkCount, e.clock.Now())
	e.logger.Info(ctx, "twap finished", zap.String("twap_id", run.ID), zap.String("status", string(run.Status())))
}

// Status reports a run; unknown ids report not_found.
func (e *Engine) Status(id string) model.TWAPSnapshot {
	run, err := e.registry.GetRun(id)
	if err != nil {
		return model.TWAPSnapshot{ID: id, Status: model.TWAPStatusNotFound}
	}
	return run.Snapshot()
}

// Stop asks a running run to end before its next chunk. It reports false when the run had
// already finished; an in-flight placement is never interrupted.
func (e *Engine) Stop(ctx context.Context, id string) (bool, error) {
	run, err := e.registry.GetRun(id)
	if err != nil {
		return false, err
	}
	if !run.RequestStop() {
		e.logger.Warn(ctx, "twap is not running", zap.String("twap_id", id), zap.String("status", string(run.Status())))
		return false, nil
	}
	e.logger.Info(ctx, "twap stop requested", zap.String("twap_id", id))
	return true, nil
}

// Wait blocks until the run finishes or ctx is done.
func (e *Engine) Wait(ctx context.Context, id string) (model.TWAPSnapshot, error) {
	run, err := e.registry.GetRun(id)
	if err != nil {
		return model.TWAPSnapshot{}, err
	}
	select {
	case <-run.Done():
		return run.Snapshot(), nil
	case <-ctx.Done():
		return run.Snapshot(), ctx.Err()
	}
}

// StopAll requests every running run to stop and waits for their tasks to return.
func (e *Engine) StopAll(ctx context.Context) {
	for _, run := range e.registry.ListRuns() {
		if run.RequestStop() {
			e.logger.Info(ctx, "twap stop requested", zap.String("twap_id", run.ID))
		}
	}
	e.wg.Wait()
}

func (e *Engine) List() []model.TWAPSnapshot {
	runs := e.registry.ListRuns()
	out := make([]model.TWAPSnapshot, 0, len(runs))
	for _, run := range runs {
		out = append(out, run.Snapshot())
	}
	return out
}
