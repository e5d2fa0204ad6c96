package vault

import (
	"math/big"

	nativecommon "vaultcore/native/common"
)

func (e *Engine) ensurePool() (*PoolState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pool, err := e.state.PoolGet()
	if err != nil {
		return nil, err
	}
	if pool == nil {
		pool = &PoolState{}
	}
	if pool.PoolSize == nil {
		pool.PoolSize = big.NewInt(0)
	}
	return pool, nil
}

func (e *Engine) ensureDistribution() (*DistributionState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	dist, err := e.state.DistributionGet()
	if err != nil {
		return nil, err
	}
	if dist == nil {
		dist = &DistributionState{}
	}
	if dist.Amount == nil {
		dist.Amount = big.NewInt(0)
	}
	return dist, nil
}

// UpdatePool replaces the yield-pool baseline and daily rate and restarts the
// accrual clock. Yield accrued under the previous rate since the previous
// update is discarded: callers are expected to fold it into newPoolSize by
// reading TotalAssets immediately before updating. The update is rejected
// while a distribution is dripping because the drip and the baseline would
// double count.
func (e *Engine) UpdatePool(caller [20]byte, newPoolSize *big.Int, newDailyYieldRatePpm uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := nativecommon.Authorize(e.auth, nativecommon.CapabilityPoolUpdater, caller); err != nil {
		return err
	}
	if newPoolSize == nil || newPoolSize.Sign() < 0 {
		return errInvalidAmount
	}
	if newDailyYieldRatePpm > PpmDenominator {
		return errInvalidYield
	}
	dist, err := e.ensureDistribution()
	if err != nil {
		return err
	}
	now := e.now()
	if dist.InProgress(now) {
		return &DistributionStateError{InProgress: true}
	}
	pool, err := e.ensurePool()
	if err != nil {
		return err
	}
	prevSize := new(big.Int).Set(pool.PoolSize)
	pool.PoolSize = new(big.Int).Set(newPoolSize)
	pool.DailyYieldRatePpm = newDailyYieldRatePpm
	pool.LastUpdate = now
	if err := e.state.PoolPut(pool); err != nil {
		return err
	}
	if dist.Period > 0 {
		// A fully vested drip is part of whatever valuation the caller folded
		// into newPoolSize; clearing the record prevents double counting.
		dist.Amount = big.NewInt(0)
		dist.Period = 0
		dist.StartTime = 0
		if err := e.state.DistributionPut(dist); err != nil {
			return err
		}
	}
	e.telemetry.CountOperation("update_pool", nil)
	e.telemetry.RecordPool(pool.PoolSize)
	e.emit(NewPoolUpdatedEvent(prevSize, pool))
	return nil
}

// TotalAssets returns the effective pool valuation: the baseline plus linear
// intra-day yield accrual plus the vested portion of any running
// distribution. Accrual caps at exactly one day's worth until the next
// explicit update; it never compounds.
func (e *Engine) TotalAssets() (*big.Int, error) {
	if e.params.Pricing != PricingPool {
		return nil, errPoolNotEnabled
	}
	pool, err := e.ensurePool()
	if err != nil {
		return nil, err
	}
	dist, err := e.ensureDistribution()
	if err != nil {
		return nil, err
	}
	now := e.now()
	total := linearYield(pool.PoolSize, pool.DailyYieldRatePpm, now-pool.LastUpdate)
	if dist.Period > 0 {
		total.Add(total, vestedAmount(dist.Amount, dist.Period, now-dist.StartTime))
	}
	return total, nil
}

// PoolSnapshot returns a copy of the raw pool record.
func (e *Engine) PoolSnapshot() (*PoolState, error) {
	pool, err := e.ensurePool()
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// DistributionSnapshot returns a copy of the distribution record.
func (e *Engine) DistributionSnapshot() (*DistributionState, error) {
	dist, err := e.ensureDistribution()
	if err != nil {
		return nil, err
	}
	return dist.Clone(), nil
}

// Distribute starts a linear drip of amount into the pool's effective value
// over the given period. A prior distribution must have fully vested first;
// its amount is folded into the baseline before the new drip is recorded.
func (e *Engine) Distribute(caller [20]byte, amount *big.Int, periodSeconds int64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := nativecommon.Authorize(e.auth, nativecommon.CapabilityDistributor, caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	if periodSeconds < e.params.MinDistributionPeriodSeconds || periodSeconds <= 0 ||
		periodSeconds > e.params.MaxDistributionPeriodSeconds {
		return &DistributionPeriodError{
			Period: periodSeconds,
			Min:    e.params.MinDistributionPeriodSeconds,
			Max:    e.params.MaxDistributionPeriodSeconds,
		}
	}
	dist, err := e.ensureDistribution()
	if err != nil {
		return err
	}
	now := e.now()
	if dist.InProgress(now) {
		return &DistributionStateError{InProgress: true}
	}
	if dist.Period > 0 && dist.Amount.Sign() > 0 {
		// The previous drip fully vested; realize it into the baseline so the
		// valuation does not drop when the record is replaced.
		pool, err := e.ensurePool()
		if err != nil {
			return err
		}
		pool.PoolSize = new(big.Int).Add(pool.PoolSize, dist.Amount)
		if err := e.state.PoolPut(pool); err != nil {
			return err
		}
	}
	dist.Amount = new(big.Int).Set(amount)
	dist.Period = periodSeconds
	dist.StartTime = now
	if err := e.state.DistributionPut(dist); err != nil {
		return err
	}
	e.telemetry.CountOperation("distribute", nil)
	e.emit(NewDistributionStartedEvent(dist))
	return nil
}

// TerminateDistribution stops a running drip early. The portion vested so far
// becomes part of the realized baseline; the unvested remainder is discarded
// and surfaced in the emitted event for observability.
func (e *Engine) TerminateDistribution(caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := nativecommon.Authorize(e.auth, nativecommon.CapabilityDistributor, caller); err != nil {
		return err
	}
	dist, err := e.ensureDistribution()
	if err != nil {
		return err
	}
	now := e.now()
	if !dist.InProgress(now) {
		return &DistributionStateError{InProgress: false}
	}
	vested := vestedAmount(dist.Amount, dist.Period, now-dist.StartTime)
	discarded := new(big.Int).Sub(dist.Amount, vested)
	pool, err := e.ensurePool()
	if err != nil {
		return err
	}
	if vested.Sign() > 0 {
		pool.PoolSize = new(big.Int).Add(pool.PoolSize, vested)
		if err := e.state.PoolPut(pool); err != nil {
			return err
		}
	}
	dist.Amount = big.NewInt(0)
	dist.Period = 0
	dist.StartTime = 0
	if err := e.state.DistributionPut(dist); err != nil {
		return err
	}
	e.telemetry.CountOperation("terminate_distribution", nil)
	e.telemetry.RecordPool(pool.PoolSize)
	e.emit(NewDistributionTerminatedEvent(vested, discarded))
	return nil
}
