package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/joripage/futures-bot/pkg/api"
	"github.com/joripage/futures-bot/pkg/oms"
	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/joripage/futures-bot/pkg/strategy/bracket"
	"github.com/joripage/futures-bot/pkg/strategy/grid"
	"github.com/joripage/futures-bot/pkg/strategy/twap"
	"go.uber.org/zap"
)

// shutdownWait bounds how long an interrupted command waits for in-flight work.
const shutdownWait = 30 * time.Second

type command struct {
	usage   string
	example string
	run     func(ctx context.Context, a *app, w io.Writer, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"market":     {"market <SYMBOL> <SIDE> <QUANTITY>", "market BTCUSDT BUY 0.01", runMarket},
		"limit":      {"limit <SYMBOL> <SIDE> <QUANTITY> <PRICE> [TIME_IN_FORCE]", "limit BTCUSDT BUY 0.01 45000 GTC", runLimit},
		"cancel":     {"cancel <SYMBOL> <ORDER_ID>", "cancel BTCUSDT 123456789", runCancel},
		"status":     {"status <SYMBOL> <ORDER_ID>", "status BTCUSDT 123456789", runStatus},
		"oco":        {"oco <SYMBOL> <SIDE> <QUANTITY> <TP_PRICE> <SL_PRICE> [SL_LIMIT_PRICE]", "oco BTCUSDT BUY 0.01 46000 44000", runOCO},
		"oco-cancel": {"oco-cancel <SYMBOL> <ORDER_ID>...", "oco-cancel BTCUSDT 111 112", runOCOCancel},
		"twap":       {"twap <SYMBOL> <SIDE> <QUANTITY> <DURATION_MINUTES> [NUM_CHUNKS]", "twap BTCUSDT BUY 0.1 30 10", runTWAP},
		"grid":       {"grid [-watch] [-interval 30s] <SYMBOL> <LOWER_PRICE> <UPPER_PRICE> <GRID_LEVELS> <INVESTMENT>", "grid -watch BTCUSDT 44000 46000 10 1000", runGrid},
		"account":    {"account", "account", runAccount},
		"symbol":     {"symbol <SYMBOL>", "symbol BTCUSDT", runSymbol},
		"serve":      {"serve", "serve", runServe},
	}
}

type usageError struct {
	usage   string
	example string
}

func (e *usageError) Error() string {
	return fmt.Sprintf("usage: futures %s\nexample: futures %s", e.usage, e.example)
}

func argCount(name string, args []string, lo, hi int) error {
	if len(args) < lo || (hi >= 0 && len(args) > hi) {
		c := commands[name]
		return &usageError{usage: c.usage, example: c.example}
	}
	return nil
}

func parseInt(name, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, model.NewValidationError(fmt.Sprintf("Invalid %s: %s. Must be an integer", name, v))
	}
	return n, nil
}

func parseOrderID(v string) (int64, error) {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewValidationError(fmt.Sprintf("Invalid order id: %s", v))
	}
	return id, nil
}

func runMarket(ctx context.Context, a *app, w io.Writer, args []string) error {
	if err := argCount("market", args, 3, 3); err != nil {
		return err
	}
	printHeader(w, "BINANCE FUTURES TRADING BOT - MARKET ORDERS")
	p, err := a.oms.PlaceMarketOrder(ctx, oms.MarketOrderParams{Symbol: args[0], Side: args[1], Quantity: args[2]})
	if err != nil {
		return err
	}
	printPlacement(w, p)
	return nil
}

func runLimit(ctx context.Context, a *app, w io.Writer, args []string) error {
	if err := argCount("limit", args, 4, 5); err != nil {
		return err
	}
	params := oms.LimitOrderParams{Symbol: args[0], Side: args[1], Quantity: args[2], Price: args[3]}
	if len(args) == 5 {
		params.TimeInForce = args[4]
	}
	printHeader(w, "BINANCE FUTURES TRADING BOT - LIMIT ORDERS")
	p, err := a.oms.PlaceLimitOrder(ctx, params)
	if err != nil {
		return err
	}
	printPlacement(w, p)
	return nil
}

func runCancel(ctx context.Context, a *app, w io.Writer, args []string) error {
	if err := argCount("cancel", args, 2, 2); err != nil {
		return err
	}
	id, err := parseOrderID(args[1])
	if err != nil {
		return err
	}
	r, err := a.oms.CancelOrder(ctx, args[0], id)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\nOrder cancelled")
	printReport(w, r)
	return nil
}

func runStatus(ctx context.Context, a *app, w io.Writer, args []string) error {
	if err := argCount("status", args, 2, 2); err != nil {
		return err
	}
	id, err := parseOrderID(args[1])
	if err != nil {
		return err
	}
	r, err := a.oms.OrderStatus(ctx, args[0], id)
	if err != nil {
		return err
	}
	printReport(w, r)
	return nil
}

func runOCO(ctx context.Context, a *app, w io.Writer, args []string) error {
	if err := argCount("oco", args, 5, 6); err != nil {
		return err
	}
	params := bracket.Params{Symbol: args[0], Side: args[1], Quantity: args[2], TakeProfitPrice: args[3], StopPrice: args[4]}
	if len(args) == 6 {
		params.StopLimitPrice = args[5]
	}
	printHeader(w, "BINANCE FUTURES TRADING BOT - OCO ORDERS")
	group, err := a.bracket.Place(ctx, params)
	if group != nil {
		printBracket(w, group)
	}
	return err
}

func runOCOCancel(ctx context.Context, a *app, w io.Writer, args []string) error {
	if err := argCount("oco-cancel", args, 2, -1); err != nil {
		return err
	}
	ids := make([]int64, 0, len(args)-1)
	for _, v := range args[1:] {
		id, err := parseOrderID(v)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	report, err := a.bracket.Cancel(ctx, args[0], ids)
	if err != nil {
		return err
	}
	for _, r := range report.Cancelled {
		fmt.Fprintf(w, "Cancelled order %d (%s)\n", r.OrderID, r.Status)
	}
	return report.Err("oco cancel")
}

// runTWAP blocks until the run ends. An interrupt stops it before the next chunk.
func runTWAP(ctx context.Context, a *app, w io.Writer, args []string) error {
	if err := argCount("twap", args, 4, 5); err != nil {
		return err
	}
	duration, err := parseInt("duration", args[3])
	if err != nil {
		return err
	}
	params := twap.Params{Symbol: args[0], Side: args[1], Quantity: args[2], DurationMinutes: duration}
	if len(args) == 5 {
		if params.Chunks, err = parseInt("number of chunks", args[4]); err != nil {
			return err
		}
	}

	printHeader(w, "BINANCE FUTURES TRADING BOT - TWAP ORDERS")
	run, err := a.twap.Start(ctx, params)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "TWAP order started: %s\nOrder will execute over the specified duration...\n", run.ID)

	snap, err := a.twap.Wait(ctx, run.ID)
	if err != nil {
		if _, stopErr := a.twap.Stop(context.WithoutCancel(ctx), run.ID); stopErr != nil {
			return stopErr
		}
		waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownWait)
		defer cancel()
		snap, err = a.twap.Wait(waitCtx, run.ID)
		if err != nil {
			return fmt.Errorf("twap %s did not stop: %w", run.ID, err)
		}
	}
	printTWAP(w, snap)
	return nil
}

// runGrid creates and deploys a grid. With -watch it keeps rebalancing until interrupted,
// then cancels the grid's open orders.
func runGrid(ctx context.Context, a *app, w io.Writer, args []string) error {
	fs := flag.NewFlagSet("grid", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	watch := fs.Bool("watch", false, "keep monitoring fills until interrupted")
	interval := fs.Duration("interval", 30*time.Second, "monitor interval with -watch")
	if err := fs.Parse(args); err != nil {
		c := commands["grid"]
		return &usageError{usage: c.usage, example: c.example}
	}
	args = fs.Args()
	if err := argCount("grid", args, 5, 5); err != nil {
		return err
	}
	levels, err := parseInt("grid levels", args[3])
	if err != nil {
		return err
	}

	printHeader(w, "BINANCE FUTURES TRADING BOT - GRID TRADING")
	g, err := a.grid.Create(ctx, grid.Params{Symbol: args[0], LowerPrice: args[1], UpperPrice: args[2], Levels: levels, Investment: args[4]})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Grid strategy created: %s\n", g.ID)

	report, err := a.grid.Deploy(ctx, g.ID)
	if err != nil {
		return err
	}
	printDeploy(w, report)
	if !*watch {
		return report.Err("grid deploy")
	}

	if *interval <= 0 {
		return model.NewValidationError(fmt.Sprintf("Invalid interval: %s", *interval))
	}
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r, err := a.grid.Monitor(ctx, g.ID)
			if err != nil {
				a.logger.LogError(ctx, err, "grid.watch", zap.String("grid_id", g.ID))
				continue
			}
			if r.FilledOrders > 0 {
				fmt.Fprintf(w, "%d orders filled, %d counter orders placed\n", r.FilledOrders, r.Replacements)
			}
		case <-ctx.Done():
			stop, err := a.grid.Stop(context.WithoutCancel(ctx), g.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "\nGrid stopped, %d orders cancelled\n", stop.CancelledOrders)
			return stop.Err("grid stop")
		}
	}
}

func runAccount(ctx context.Context, a *app, w io.Writer, args []string) error {
	if err := argCount("account", args, 0, 0); err != nil {
		return err
	}
	info, err := a.oms.AccountInfo(ctx)
	if err != nil {
		return err
	}
	printHeader(w, "ACCOUNT")
	printAccount(w, info)
	return nil
}

func runSymbol(ctx context.Context, a *app, w io.Writer, args []string) error {
	if err := argCount("symbol", args, 1, 1); err != nil {
		return err
	}
	info, err := a.oms.SymbolInfo(ctx, args[0])
	if err != nil {
		return err
	}
	printSymbol(w, info)
	return nil
}

// runServe hosts the control API and rebalances deployed grids on a timer until interrupted.
// On shutdown every TWAP run is stopped and every live grid is cancelled.
func runServe(ctx context.Context, a *app, w io.Writer, args []string) error {
	if err := argCount("serve", args, 0, 0); err != nil {
		return err
	}
	interval, err := time.ParseDuration(a.cfg.API.GridMonitorInterval)
	if err != nil || interval <= 0 {
		return fmt.Errorf("api.grid_monitor_interval %q: must be a positive duration", a.cfg.API.GridMonitorInterval)
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.grid.MonitorAll(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	srv := api.NewServer(a.grid, a.twap, a.memory, a.logger)
	serveErr := srv.Start(ctx, a.cfg.API.Addr, a.cfg.API.AllowedOrigins)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownWait)
	defer cancel()
	a.twap.StopAll(shutdownCtx)
	for _, g := range a.grid.List() {
		if g.Status == model.GridStatusStopped {
			continue
		}
		if _, err := a.grid.Stop(shutdownCtx, g.ID); err != nil && !errors.Is(err, model.ErrInvalidTransition) {
			a.logger.LogError(shutdownCtx, err, "serve.shutdown", zap.String("grid_id", g.ID))
		}
	}
	return serveErr
}
