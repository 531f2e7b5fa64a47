// Package validator holds the pure input checks run before anything reaches the exchange.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/shopspring/decimal"
)

var symbolPattern = regexp.MustCompile(`^[A-Z]{2,10}USDT$`)

var orderTypes = map[model.OrderType]struct{}{
	model.OrderTypeMarket:           {},
	model.OrderTypeLimit:            {},
	model.OrderTypeStop:             {},
	model.OrderTypeStopMarket:       {},
	model.OrderTypeTakeProfit:       {},
	model.OrderTypeTakeProfitMarket: {},
}

var timeInForces = map[model.OrderTimeInForce]struct{}{
	model.OrderTimeInForceGTC: {},
	model.OrderTimeInForceIOC: {},
	model.OrderTimeInForceFOK: {},
	model.OrderTimeInForceGTX: {},
}

// ValidateSymbol checks a USDT-margined symbol, case-insensitively.
func ValidateSymbol(symbol string) bool {
	return symbolPattern.MatchString(strings.ToUpper(symbol))
}

func ValidateSide(side string) bool {
	s := model.OrderSide(strings.ToUpper(side))
	return s == model.OrderSideBuy || s == model.OrderSideSell
}

// ValidateQuantity accepts any exact decimal strictly greater than zero.
func ValidateQuantity(quantity string) bool {
	return positive(quantity)
}

func ValidatePrice(price string) bool {
	return positive(price)
}

func ValidateTimeInForce(tif string) bool {
	_, ok := timeInForces[model.OrderTimeInForce(strings.ToUpper(tif))]
	return ok
}

func ValidateOrderType(orderType string) bool {
	_, ok := orderTypes[model.OrderType(strings.ToUpper(orderType))]
	return ok
}

func positive(s string) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return d.IsPositive()
}

// ValidateBasicOrder returns every problem with the fields shared by all orders.
func ValidateBasicOrder(symbol, side, quantity string) []string {
	var problems []string
	if !ValidateSymbol(symbol) {
		problems = append(problems, fmt.Sprintf("Invalid symbol format: %s", symbol))
	}
	if !ValidateSide(side) {
		problems = append(problems, fmt.Sprintf("Invalid side: %s. Must be BUY or SELL", side))
	}
	if !ValidateQuantity(quantity) {
		problems = append(problems, fmt.Sprintf("Invalid quantity: %s. Must be positive number", quantity))
	}
	return problems
}

// ValidateLimitOrder is ValidateBasicOrder plus the limit price.
func ValidateLimitOrder(symbol, side, quantity, price string) []string {
	problems := ValidateBasicOrder(symbol, side, quantity)
	if !ValidatePrice(price) {
		problems = append(problems, fmt.Sprintf("Invalid price: %s. Must be positive number", price))
	}
	return problems
}

// Check turns a problem list into a *model.ValidationError, or nil when empty.
func Check(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return model.NewValidationError(problems...)
}

// Decimal parses a string that already passed validation.
func Decimal(s string) decimal.Decimal {
	return decimal.RequireFromString(strings.TrimSpace(s))
}
