package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joripage/futures-bot/pkg/oms"
	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/joripage/futures-bot/pkg/strategy/grid"
	"github.com/shopspring/decimal"
)

var rule = strings.Repeat("-", 30)

func formatPrice(p decimal.Decimal) string {
	return "$" + p.StringFixed(2)
}

func formatQuantity(q decimal.Decimal) string {
	if q.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return q.StringFixed(3)
	}
	return q.StringFixed(6)
}

func printHeader(w io.Writer, title string) {
	line := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\n  %s\n%s\n", line, title, line)
}

func printOrderSummary(w io.Writer, req model.OrderRequest) {
	fmt.Fprintf(w, "\n%s ORDER SUMMARY\n%s\n", req.Type, rule)
	fmt.Fprintf(w, "Symbol:    %s\n", req.Symbol)
	fmt.Fprintf(w, "Side:      %s\n", req.Side)
	fmt.Fprintf(w, "Quantity:  %s\n", formatQuantity(req.Quantity))
	if req.Price.IsPositive() {
		fmt.Fprintf(w, "Price:     %s\n", formatPrice(req.Price))
	}
	if req.StopPrice.IsPositive() {
		fmt.Fprintf(w, "Stop:      %s\n", formatPrice(req.StopPrice))
	}
	fmt.Fprintf(w, "Time:      %s\n", time.Now().Format(time.DateTime))
}

func printPlacement(w io.Writer, p *oms.Placement) {
	if p.MarketPrice.Valid {
		fmt.Fprintf(w, "\nCurrent %s price: %s\n", p.Handle.Request.Symbol, formatPrice(p.MarketPrice.Decimal))
	}
	printOrderSummary(w, p.Handle.Request)
	fmt.Fprintf(w, "\nOrder placed successfully\nOrder ID: %d\nStatus:   %s\n%s\n", p.Handle.OrderID, p.Handle.Status, rule)
}

func printReport(w io.Writer, r *model.OrderReport) {
	fmt.Fprintf(w, "\nOrder ID:  %d\n", r.OrderID)
	fmt.Fprintf(w, "Symbol:    %s\n", r.Symbol)
	fmt.Fprintf(w, "Side:      %s %s\n", r.Side, r.Type)
	fmt.Fprintf(w, "Status:    %s\n", r.Status)
	fmt.Fprintf(w, "Quantity:  %s (executed %s)\n", formatQuantity(r.OrigQty), formatQuantity(r.ExecutedQty))
	if r.Price.IsPositive() {
		fmt.Fprintf(w, "Price:     %s\n", formatPrice(r.Price))
	}
	if r.AvgPrice.IsPositive() {
		fmt.Fprintf(w, "Avg price: %s\n", formatPrice(r.AvgPrice))
	}
	fmt.Fprintln(w, rule)
}

func printBracket(w io.Writer, g *model.BracketGroup) {
	fmt.Fprintf(w, "\nOCO %s on %s, %s position of %s\n", g.ID, g.Symbol, g.EntrySide, formatQuantity(g.Quantity))
	if g.ReferencePrice.IsPositive() {
		fmt.Fprintf(w, "Current price:  %s\n", formatPrice(g.ReferencePrice))
	}
	if g.TakeProfit != nil {
		fmt.Fprintf(w, "Take profit:    order %d %s @ %s\n", g.TakeProfit.OrderID, g.TakeProfit.Request.Side, formatPrice(g.TakeProfit.Request.Price))
	} else {
		fmt.Fprintln(w, "Take profit:    not placed")
	}
	if g.StopLoss != nil {
		fmt.Fprintf(w, "Stop loss:      order %d %s stop %s limit %s\n", g.StopLoss.OrderID, g.StopLoss.Request.Side,
			formatPrice(g.StopLoss.Request.StopPrice), formatPrice(g.StopLoss.Request.Price))
	} else {
		fmt.Fprintln(w, "Stop loss:      not placed")
	}
	fmt.Fprintln(w, rule)
}

func printTWAP(w io.Writer, s model.TWAPSnapshot) {
	fmt.Fprintf(w, "\nTWAP %s: %s\n", s.ID, s.Status)
	fmt.Fprintf(w, "Chunks:    %d x %s every %gs\n", s.ChunkCount, formatQuantity(s.ChunkQuantity), s.IntervalSecond)
	fmt.Fprintf(w, "Executed:  %d (failed %d)\n", s.ExecutedChunks, s.FailedChunks)
	fmt.Fprintln(w, rule)
}

func printGrid(w io.Writer, s model.GridSnapshot) {
	fmt.Fprintf(w, "\nGrid %s on %s: %s\n", s.ID, s.Symbol, s.Status)
	fmt.Fprintf(w, "Range:     %s - %s in %d levels (step %s)\n", formatPrice(s.LowerPrice), formatPrice(s.UpperPrice), s.LevelCount, formatPrice(s.PriceStep))
	fmt.Fprintf(w, "Quantity:  %s per level\n", s.QuantityPerLevel.String())
	fmt.Fprintf(w, "Orders:    %d buy, %d sell\n", len(s.BuyOrders), len(s.SellOrders))
	fmt.Fprintln(w, rule)
}

func printDeploy(w io.Writer, r *grid.DeployReport) {
	fmt.Fprintf(w, "\nCurrent price: %s\n", formatPrice(r.ReferencePrice))
	fmt.Fprintf(w, "Grid deployed with %d buy and %d sell orders", r.BuyOrders, r.SellOrders)
	if n := r.FailedCount(); n > 0 {
		fmt.Fprintf(w, " (%d levels failed)", n)
	}
	fmt.Fprintln(w)
}

func printAccount(w io.Writer, info *model.AccountInfo) {
	fmt.Fprintf(w, "\nWallet balance:     %s\n", formatPrice(info.TotalWalletBalance))
	fmt.Fprintf(w, "Available balance:  %s\n", formatPrice(info.AvailableBalance))
	fmt.Fprintf(w, "Unrealized PnL:     %s\n", formatPrice(info.TotalUnrealizedProfit))
	fmt.Fprintf(w, "Can trade:          %v\n", info.CanTrade)
	positions := info.ActivePositions()
	if len(positions) == 0 {
		fmt.Fprintln(w, "No open positions")
	}
	for _, p := range positions {
		fmt.Fprintf(w, "  %-12s %s @ %s (PnL %s)\n", p.Symbol, p.PositionAmt, formatPrice(p.EntryPrice), formatPrice(p.UnrealizedProfit))
	}
	fmt.Fprintln(w, rule)
}

func printSymbol(w io.Writer, info *model.SymbolInfo) {
	fmt.Fprintf(w, "\n%s (%s/%s): %s\n", info.Symbol, info.BaseAsset, info.QuoteAsset, info.Status)
	if f, ok := info.Filter(model.FilterPrice); ok {
		fmt.Fprintf(w, "Tick size: %s (min %s, max %s)\n", f.TickSize, f.MinPrice, f.MaxPrice)
	}
	if f, ok := info.Filter(model.FilterLotSize); ok {
		fmt.Fprintf(w, "Step size: %s (min %s, max %s)\n", f.StepSize, f.MinQty, f.MaxQty)
	}
	fmt.Fprintln(w, rule)
}

// printError writes one line per problem so validation failures read like a checklist.
func printError(w io.Writer, err error) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintln(w, "\nERROR: invalid input")
		for _, p := range verr.Problems {
			fmt.Fprintf(w, "  - %s\n", p)
		}
		fmt.Fprintln(w, rule)
		return
	}
	fmt.Fprintf(w, "\nERROR: %v\n%s\n", err, rule)
}
