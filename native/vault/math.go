package vault

import "math/big"

const (
	// PpmDenominator is the parts-per-million precision unit used for every
	// fee and yield rate (1,000,000 = 100%).
	PpmDenominator = 1_000_000

	secondsPerDay = 86_400
)

var ppmDenom = big.NewInt(PpmDenominator)

// mulDivFloor returns floor(a * b / den). Used for amounts owed to the user so
// rounding never creates value out of nothing.
func mulDivFloor(a, b, den *big.Int) *big.Int {
	if a == nil || b == nil || den == nil || den.Sign() == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(a, b)
	return out.Quo(out, den)
}

// mulDivCeil returns ceil(a * b / den). Used for amounts owed to the engine so
// the protocol never under-collects.
func mulDivCeil(a, b, den *big.Int) *big.Int {
	if a == nil || b == nil || den == nil || den.Sign() == 0 {
		return big.NewInt(0)
	}
	num := new(big.Int).Mul(a, b)
	out, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if rem.Sign() != 0 {
		out.Add(out, big.NewInt(1))
	}
	return out
}

// feeOnRaw computes the fee for an amount that does not yet include the fee:
// ceil(amount * ppm / 1e6).
func feeOnRaw(amount *big.Int, ppm uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || ppm == 0 {
		return big.NewInt(0)
	}
	return mulDivCeil(amount, new(big.Int).SetUint64(ppm), ppmDenom)
}

// feeOnTotal extracts the fee embedded in an amount that already includes it:
// ceil(amount * ppm / (ppm + 1e6)).
func feeOnTotal(amount *big.Int, ppm uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || ppm == 0 {
		return big.NewInt(0)
	}
	rate := new(big.Int).SetUint64(ppm)
	den := new(big.Int).Add(rate, ppmDenom)
	return mulDivCeil(amount, rate, den)
}

// payoutAfterFee applies a signed fee-or-incentive rate to a gross amount.
// A positive rate shrinks the payout, a negative rate grows it; in both
// branches rounding favours the payer of the difference (the pool), which is
// why the payout itself rounds down.
func payoutAfterFee(gross *big.Int, ppm int64) *big.Int {
	if gross == nil || gross.Sign() <= 0 {
		return big.NewInt(0)
	}
	if ppm == 0 {
		return new(big.Int).Set(gross)
	}
	den := new(big.Int).Add(big.NewInt(ppm), ppmDenom)
	if den.Sign() <= 0 {
		return big.NewInt(0)
	}
	return mulDivFloor(gross, ppmDenom, den)
}

// convertToShares prices assets into shares against the supplied totals. A
// vault with no supply bootstraps at the decimal scaling ratio so the first
// depositor receives exactly scale shares per asset unit. With supply
// outstanding the totals ratio governs even when the valuation is zero, in
// which case no finite share amount matches the assets and the result is zero.
func convertToShares(assets, totalShares, totalAssets, scale *big.Int, roundUp bool) *big.Int {
	if assets == nil || assets.Sign() <= 0 {
		return big.NewInt(0)
	}
	if totalShares == nil || totalShares.Sign() == 0 {
		return new(big.Int).Mul(assets, scale)
	}
	if totalAssets == nil || totalAssets.Sign() == 0 {
		return big.NewInt(0)
	}
	if roundUp {
		return mulDivCeil(assets, totalShares, totalAssets)
	}
	return mulDivFloor(assets, totalShares, totalAssets)
}

// convertToAssets prices shares into assets against the supplied totals.
// Outstanding shares against a zero valuation are worth exactly zero.
func convertToAssets(shares, totalShares, totalAssets, scale *big.Int, roundUp bool) *big.Int {
	if shares == nil || shares.Sign() <= 0 {
		return big.NewInt(0)
	}
	if totalShares == nil || totalShares.Sign() == 0 {
		if scale == nil || scale.Sign() == 0 {
			return big.NewInt(0)
		}
		if roundUp {
			return mulDivCeil(shares, big.NewInt(1), scale)
		}
		return mulDivFloor(shares, big.NewInt(1), scale)
	}
	if totalAssets == nil || totalAssets.Sign() == 0 {
		return big.NewInt(0)
	}
	if roundUp {
		return mulDivCeil(shares, totalAssets, totalShares)
	}
	return mulDivFloor(shares, totalAssets, totalShares)
}

// linearYield returns principal plus linear accrual for the elapsed time:
// principal * ratePpm / 1e6 * min(elapsed, 1 day) / 1 day. Accrual caps at
// exactly one day's worth and never compounds.
func linearYield(principal *big.Int, ratePpm uint64, elapsed int64) *big.Int {
	if principal == nil || principal.Sign() <= 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Set(principal)
	if ratePpm == 0 || elapsed <= 0 {
		return out
	}
	if elapsed > secondsPerDay {
		elapsed = secondsPerDay
	}
	accrual := new(big.Int).Mul(principal, new(big.Int).SetUint64(ratePpm))
	accrual.Mul(accrual, big.NewInt(elapsed))
	accrual.Quo(accrual, big.NewInt(PpmDenominator*secondsPerDay))
	return out.Add(out, accrual)
}

// vestedAmount returns the portion of a dripped amount vested after elapsed
// seconds of the period: amount * min(elapsed, period) / period, rounded down.
func vestedAmount(amount *big.Int, period, elapsed int64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || period <= 0 || elapsed <= 0 {
		return big.NewInt(0)
	}
	if elapsed >= period {
		return new(big.Int).Set(amount)
	}
	return mulDivFloor(amount, big.NewInt(elapsed), big.NewInt(period))
}

// pow10 returns 10^n as a big integer.
func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
