package vault

import "math/big"

// OrderStatus represents the lifecycle states of a redemption order. Terminal
// statuses are retained for audit; orders are never deleted.
type OrderStatus uint8

const (
	OrderPending OrderStatus = iota + 1
	OrderFilled
	OrderCancelled
	OrderFinalized
)

// String returns the lowercase status label used in errors and events.
func (s OrderStatus) String() string {
	switch s {
	case OrderPending:
		return "pending"
	case OrderFilled:
		return "filled"
	case OrderCancelled:
		return "cancelled"
	case OrderFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Valid reports whether the status value is within the supported range.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderFilled, OrderCancelled, OrderFinalized:
		return true
	default:
		return false
	}
}

// RedeemOrder is an escrow record representing a delayed redemption request.
// FeePpm is captured at creation time and immutable thereafter so a later fee
// change cannot reprice an open request. AssetValue is set when the order is
// filled and denominates the settlement owed to the receiver. Controller is
// recorded separately from Owner for the finalize/cancel checks, but since
// CreateOrder requires the caller to be the owner the two currently always
// coincide; a delegated-creation path would populate them differently.
type RedeemOrder struct {
	ID         uint64
	Owner      [20]byte
	Receiver   [20]byte
	Controller [20]byte
	Shares     *big.Int
	AssetValue *big.Int
	FeePpm     int64
	CreatedAt  int64
	DueTime    int64
	Status     OrderStatus
}

// Clone returns a deep copy of the order so callers can safely mutate the copy
// without affecting the stored instance.
func (o *RedeemOrder) Clone() *RedeemOrder {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Shares != nil {
		clone.Shares = new(big.Int).Set(o.Shares)
	} else {
		clone.Shares = big.NewInt(0)
	}
	if o.AssetValue != nil {
		clone.AssetValue = new(big.Int).Set(o.AssetValue)
	} else {
		clone.AssetValue = big.NewInt(0)
	}
	return &clone
}

// IssuerState aggregates the share-issuance accounting. IssuedShares and
// RedeemedShares are cumulative and never decrease; TotalShares is the live
// supply.
type IssuerState struct {
	TotalShares    *big.Int
	IssuedShares   *big.Int
	RedeemedShares *big.Int
}

// Clone returns a deep copy of the issuer state.
func (s *IssuerState) Clone() *IssuerState {
	if s == nil {
		return nil
	}
	return &IssuerState{
		TotalShares:    cloneOrZero(s.TotalShares),
		IssuedShares:   cloneOrZero(s.IssuedShares),
		RedeemedShares: cloneOrZero(s.RedeemedShares),
	}
}

// BookState aggregates the order-book accounting. PendingShares tracks shares
// escrowed by pending orders; UnfinalizedValue tracks asset value realized by
// fills but not yet paid out.
type BookState struct {
	NextOrderID      uint64
	PendingOrders    uint64
	PendingShares    *big.Int
	UnfinalizedValue *big.Int
}

// Clone returns a deep copy of the book state.
func (s *BookState) Clone() *BookState {
	if s == nil {
		return nil
	}
	return &BookState{
		NextOrderID:      s.NextOrderID,
		PendingOrders:    s.PendingOrders,
		PendingShares:    cloneOrZero(s.PendingShares),
		UnfinalizedValue: cloneOrZero(s.UnfinalizedValue),
	}
}

// PoolState is the yield-bearing baseline valuation. Yield accrues linearly
// from LastUpdate and caps at exactly one day's worth.
type PoolState struct {
	PoolSize          *big.Int
	DailyYieldRatePpm uint64
	LastUpdate        int64
}

// Clone returns a deep copy of the pool state.
func (s *PoolState) Clone() *PoolState {
	if s == nil {
		return nil
	}
	return &PoolState{
		PoolSize:          cloneOrZero(s.PoolSize),
		DailyYieldRatePpm: s.DailyYieldRatePpm,
		LastUpdate:        s.LastUpdate,
	}
}

// DistributionState records the active linear drip. A distribution is in
// progress while now < StartTime + Period.
type DistributionState struct {
	Amount    *big.Int
	Period    int64
	StartTime int64
}

// Clone returns a deep copy of the distribution state.
func (s *DistributionState) Clone() *DistributionState {
	if s == nil {
		return nil
	}
	return &DistributionState{
		Amount:    cloneOrZero(s.Amount),
		Period:    s.Period,
		StartTime: s.StartTime,
	}
}

// InProgress reports whether the drip is still vesting at the given time.
func (s *DistributionState) InProgress(now int64) bool {
	if s == nil || s.Period <= 0 {
		return false
	}
	return now < s.StartTime+s.Period
}

// FlowKind keys the per-period throughput buckets.
type FlowKind string

const (
	FlowIssue  FlowKind = "issue"
	FlowRedeem FlowKind = "redeem"
)

func cloneOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
