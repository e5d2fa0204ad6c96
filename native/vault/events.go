package vault

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"vaultcore/core/types"
)

const (
	EventTypeIssued                = "vault.issued"
	EventTypeWithdrawn             = "vault.withdrawn"
	EventTypeOrderCreated          = "vault.order.created"
	EventTypeOrderFilled           = "vault.order.filled"
	EventTypeOrderFinalized        = "vault.order.finalized"
	EventTypeOrderCancelled        = "vault.order.cancelled"
	EventTypePoolUpdated           = "vault.pool.updated"
	EventTypeDistributionStarted   = "vault.distribution.started"
	EventTypeDistributionStopped   = "vault.distribution.terminated"
	EventTypeLiquidityDeposited    = "vault.liquidity.deposited"
	EventTypeLiquidityWithdrawn    = "vault.liquidity.withdrawn"
	EventTypeParamsUpdated         = "vault.params.updated"
)

// NewIssuedEvent returns the canonical payload for a completed issuance,
// carrying the resulting supply for reconciliation.
func NewIssuedEvent(caller, receiver [20]byte, assets, shares *big.Int, issuer *IssuerState) *types.Event {
	attrs := map[string]string{
		"caller":   hex.EncodeToString(caller[:]),
		"receiver": hex.EncodeToString(receiver[:]),
		"assets":   bigToString(assets),
		"shares":   bigToString(shares),
	}
	if issuer != nil {
		attrs["totalShares"] = bigToString(issuer.TotalShares)
	}
	return &types.Event{Type: EventTypeIssued, Attributes: attrs}
}

// NewWithdrawnEvent returns the canonical payload for a completed withdrawal.
func NewWithdrawnEvent(caller, receiver, owner [20]byte, assets, shares *big.Int, issuer *IssuerState) *types.Event {
	attrs := map[string]string{
		"caller":   hex.EncodeToString(caller[:]),
		"receiver": hex.EncodeToString(receiver[:]),
		"owner":    hex.EncodeToString(owner[:]),
		"assets":   bigToString(assets),
		"shares":   bigToString(shares),
	}
	if issuer != nil {
		attrs["totalShares"] = bigToString(issuer.TotalShares)
	}
	return &types.Event{Type: EventTypeWithdrawn, Attributes: attrs}
}

// NewOrderCreatedEvent returns the canonical payload for a new redemption
// order.
func NewOrderCreatedEvent(order *RedeemOrder) *types.Event {
	return NewOrderEvent(EventTypeOrderCreated, order)
}

// NewOrderEvent returns the canonical payload for an order transition.
func NewOrderEvent(eventType string, order *RedeemOrder) *types.Event {
	attrs := make(map[string]string)
	if order == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["orderId"] = strconv.FormatUint(order.ID, 10)
	attrs["owner"] = hex.EncodeToString(order.Owner[:])
	attrs["receiver"] = hex.EncodeToString(order.Receiver[:])
	attrs["controller"] = hex.EncodeToString(order.Controller[:])
	attrs["shares"] = bigToString(order.Shares)
	attrs["assetValue"] = bigToString(order.AssetValue)
	attrs["feePpm"] = strconv.FormatInt(order.FeePpm, 10)
	attrs["dueTime"] = strconv.FormatInt(order.DueTime, 10)
	attrs["status"] = order.Status.String()
	return &types.Event{Type: eventType, Attributes: attrs}
}

// NewPoolUpdatedEvent returns the canonical payload for a pool baseline
// replacement, carrying before/after sizes for reconciliation.
func NewPoolUpdatedEvent(prevSize *big.Int, pool *PoolState) *types.Event {
	attrs := map[string]string{
		"previousPoolSize": bigToString(prevSize),
	}
	if pool != nil {
		attrs["poolSize"] = bigToString(pool.PoolSize)
		attrs["dailyYieldRatePpm"] = strconv.FormatUint(pool.DailyYieldRatePpm, 10)
		attrs["lastUpdate"] = strconv.FormatInt(pool.LastUpdate, 10)
	}
	return &types.Event{Type: EventTypePoolUpdated, Attributes: attrs}
}

// NewDistributionStartedEvent returns the canonical payload for a new drip.
func NewDistributionStartedEvent(dist *DistributionState) *types.Event {
	attrs := make(map[string]string)
	if dist != nil {
		attrs["amount"] = bigToString(dist.Amount)
		attrs["periodSeconds"] = strconv.FormatInt(dist.Period, 10)
		attrs["startTime"] = strconv.FormatInt(dist.StartTime, 10)
	}
	return &types.Event{Type: EventTypeDistributionStarted, Attributes: attrs}
}

// NewDistributionTerminatedEvent returns the canonical payload for an early
// termination, surfacing the discarded remainder.
func NewDistributionTerminatedEvent(vested, discarded *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeDistributionStopped,
		Attributes: map[string]string{
			"vested":    bigToString(vested),
			"discarded": bigToString(discarded),
		},
	}
}

// NewLiquidityEvent returns the canonical payload for a buffer top-up or
// drain.
func NewLiquidityEvent(eventType string, account [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"account": hex.EncodeToString(account[:]),
			"amount":  bigToString(amount),
		},
	}
}

// NewParamsEvent returns the canonical payload for an administrative setter.
func NewParamsEvent(field, value string) *types.Event {
	return &types.Event{
		Type: EventTypeParamsUpdated,
		Attributes: map[string]string{
			"field": field,
			"value": value,
		},
	}
}

func bigToString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }

func formatInt(v int64) string { return strconv.FormatInt(v, 10) }
