package vault

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	errNilState        = errors.New("vault engine: state not configured")
	errInvalidAmount   = errors.New("vault engine: amount must be positive")
	errZeroReceiver    = errors.New("vault engine: receiver must not be the zero address")
	errExceedsBalance  = errors.New("vault engine: amount exceeds available balance")
	errUnderMinimum    = errors.New("vault engine: order below minimum share size")
	errInvalidFee      = errors.New("vault engine: fee rate outside [0, 1000000] ppm")
	errInvalidOrderFee = errors.New("vault engine: order fee rate outside [-1000000, 1000000] ppm")
	errInvalidYield    = errors.New("vault engine: yield rate outside [0, 1000000] ppm")
	errOrderNotFound   = errors.New("vault engine: order not found")
	errNotOwner        = errors.New("vault engine: caller is neither owner nor controller")
	errPoolNotEnabled  = errors.New("vault engine: yield pool pricing not enabled")
)

// Exported aliases for the sentinels callers outside the package map onto
// transport-level failures.
var (
	ErrOrderNotFound  = errOrderNotFound
	ErrPoolNotEnabled = errPoolNotEnabled
	ErrInvalidAmount  = errInvalidAmount
)

// OrderStateError rejects an order transition attempted from the wrong status.
type OrderStateError struct {
	OrderID uint64
	Status  OrderStatus
	Want    OrderStatus
}

func (e *OrderStateError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("vault engine: order %d is %s, want %s", e.OrderID, e.Status, e.Want)
}

// OrderNotDueError rejects a cancellation attempted before the fill window has
// elapsed by a caller without the filler capability.
type OrderNotDueError struct {
	OrderID uint64
	Now     int64
	DueTime int64
}

func (e *OrderNotDueError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("vault engine: order %d not due until %d (now %d)", e.OrderID, e.DueTime, e.Now)
}

// CapacityError rejects an operation that would exceed a configured bound. The
// attempted and available amounts are surfaced for caller diagnostics.
type CapacityError struct {
	Kind      CapacityKind
	Attempted *big.Int
	Available *big.Int
}

// CapacityKind enumerates the bounded resources an operation can exhaust.
type CapacityKind string

const (
	// CapacityThroughput marks a per-period issue/redeem limit violation.
	CapacityThroughput CapacityKind = "throughput"
	// CapacitySupplyCap marks a total share supply cap violation.
	CapacitySupplyCap CapacityKind = "supply_cap"
	// CapacityBuffer marks a liquidity-buffer solvency violation.
	CapacityBuffer CapacityKind = "liquidity_buffer"
)

func (e *CapacityError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("vault engine: %s exceeded: attempted %s, available %s", e.Kind, e.Attempted, e.Available)
}

// DistributionStateError rejects a distribution transition attempted in the
// wrong phase.
type DistributionStateError struct {
	InProgress bool
}

func (e *DistributionStateError) Error() string {
	if e == nil {
		return ""
	}
	if e.InProgress {
		return "vault engine: distribution already in progress"
	}
	return "vault engine: no distribution in progress"
}

// DistributionPeriodError rejects a distribution period outside the configured
// bounds.
type DistributionPeriodError struct {
	Period int64
	Min    int64
	Max    int64
}

func (e *DistributionPeriodError) Error() string {
	if e == nil {
		return ""
	}
	if e.Period < e.Min {
		return fmt.Sprintf("vault engine: distribution period %ds below minimum %ds", e.Period, e.Min)
	}
	return fmt.Sprintf("vault engine: distribution period %ds above maximum %ds", e.Period, e.Max)
}
