package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InvalidOrderError is returned by OrderManager.Validate when an order fails
// a pre-trade check: insolvency, rate limit, notional cap, or exposure cap.
type InvalidOrderError struct {
	Reason string
}

func (e *InvalidOrderError) Error() string {
	return fmt.Sprintf("invalid order: %s", e.Reason)
}

// InsufficientCashError is raised by Portfolio.ApplyFill when a buy would
// drive cash negative.
type InsufficientCashError struct {
	Symbol   string
	Required decimal.Decimal
	Cash     decimal.Decimal
}

func (e *InsufficientCashError) Error() string {
	return fmt.Sprintf("insufficient cash for %s: have %s, need %s", e.Symbol, e.Cash, e.Required)
}

// InsufficientHoldingsError is raised when a sell would cross a holding
// through zero into the opposite sign.
type InsufficientHoldingsError struct {
	Symbol   string
	Held     int64
	Sold     int64
}

func (e *InsufficientHoldingsError) Error() string {
	return fmt.Sprintf("insufficient holdings for %s: held %d, tried to sell %d", e.Symbol, e.Held, e.Sold)
}

// NotConnectedError is returned when a Gateway operation is attempted
// outside [connect, disconnect).
type NotConnectedError struct {
	Op string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("gateway not connected: %s", e.Op)
}

// ExecutionFailedError wraps an adapter-level submission rejection.
type ExecutionFailedError struct {
	Reason string
	Err    error
}

func (e *ExecutionFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("execution failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("execution failed: %s", e.Reason)
}

func (e *ExecutionFailedError) Unwrap() error { return e.Err }

// ConfigError wraps a configuration load/validate failure.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// DataSourceError wraps a market-data ingestion failure; it interrupts the
// Gateway event loop when it is not a cooperative shutdown.
type DataSourceError struct {
	Reason string
	Err    error
}

func (e *DataSourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data source error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("data source error: %s", e.Reason)
}

func (e *DataSourceError) Unwrap() error { return e.Err }
