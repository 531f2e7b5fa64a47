package model

import "github.com/shopspring/decimal"

type AccountAsset struct {
	Asset            string          `json:"asset"`
	WalletBalance    decimal.Decimal `json:"walletBalance"`
	UnrealizedProfit decimal.Decimal `json:"unrealizedProfit"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
}

type AccountPosition struct {
	Symbol           string          `json:"symbol"`
	PositionAmt      decimal.Decimal `json:"positionAmt"`
	EntryPrice       decimal.Decimal `json:"entryPrice"`
	UnrealizedProfit decimal.Decimal `json:"unrealizedProfit"`
	Leverage         string          `json:"leverage"`
	PositionSide     string          `json:"positionSide"`
}

type AccountInfo struct {
	TotalWalletBalance    decimal.Decimal   `json:"totalWalletBalance"`
	TotalUnrealizedProfit decimal.Decimal   `json:"totalUnrealizedProfit"`
	TotalMarginBalance    decimal.Decimal   `json:"totalMarginBalance"`
	AvailableBalance      decimal.Decimal   `json:"availableBalance"`
	CanTrade              bool              `json:"canTrade"`
	Assets                []AccountAsset    `json:"assets"`
	Positions             []AccountPosition `json:"positions"`
}

// ActivePositions drops the zero-size entries the exchange lists for every symbol.
func (a *AccountInfo) ActivePositions() []AccountPosition {
	var out []AccountPosition
	for _, p := range a.Positions {
		if !p.PositionAmt.IsZero() {
			out = append(out, p)
		}
	}
	return out
}

type SymbolFilter struct {
	FilterType string          `json:"filterType"`
	TickSize   decimal.Decimal `json:"tickSize"`
	MinPrice   decimal.Decimal `json:"minPrice"`
	MaxPrice   decimal.Decimal `json:"maxPrice"`
	StepSize   decimal.Decimal `json:"stepSize"`
	MinQty     decimal.Decimal `json:"minQty"`
	MaxQty     decimal.Decimal `json:"maxQty"`
}

const (
	FilterPrice   = "PRICE_FILTER"
	FilterLotSize = "LOT_SIZE"
)

type SymbolInfo struct {
	Symbol            string         `json:"symbol"`
	Status            string         `json:"status"`
	BaseAsset         string         `json:"baseAsset"`
	QuoteAsset        string         `json:"quoteAsset"`
	PricePrecision    int32          `json:"pricePrecision"`
	QuantityPrecision int32          `json:"quantityPrecision"`
	Filters           []SymbolFilter `json:"filters"`
}

// Filter returns the filter of the given type, if listed.
func (s *SymbolInfo) Filter(filterType string) (SymbolFilter, bool) {
	for _, f := range s.Filters {
		if f.FilterType == filterType {
			return f, true
		}
	}
	return SymbolFilter{}, false
}
