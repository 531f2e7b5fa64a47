package oms

import "errors"

var (
	errOrderIDRequired = errors.New("order id must be positive")
	errRuleFailed      = errors.New("pre-trade check failed")
)
