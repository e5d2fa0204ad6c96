package vault

import (
	"fmt"
	"math/big"
	"strings"
)

// PricingMode selects the totalAssets source used when converting between
// assets and shares.
type PricingMode string

const (
	// PricingBalance prices against the vault account's raw asset balance.
	PricingBalance PricingMode = "balance"
	// PricingPool prices against the yield-pool valuation: full accrual on
	// the issue path, baseline only on the redeem path.
	PricingPool PricingMode = "pool"
)

// SettlementMode selects which component supplies redemption liquidity for
// orders.
type SettlementMode string

const (
	// SettlementFiller settles orders in two phases against an external
	// filler: fill records the obligation, finalize pays the receiver.
	SettlementFiller SettlementMode = "filler"
	// SettlementBuffer fuses fill and finalize into one step paid from the
	// vault's own liquidity buffer.
	SettlementBuffer SettlementMode = "buffer"
)

// Params groups the operator-controlled limits and rates governing vault
// activity. Nil limit values mean unlimited; a zero limit pauses the
// direction it guards.
type Params struct {
	AssetDecimals uint8
	ShareDecimals uint8

	SupplyCap          *big.Int
	MaxIssuePerPeriod  *big.Int
	MaxRedeemPerPeriod *big.Int

	IssueFeePpm  uint64
	RedeemFeePpm uint64
	OrderFeePpm  int64

	FillWindowSeconds int64
	MinOrderShares    *big.Int

	MinDistributionPeriodSeconds int64
	MaxDistributionPeriodSeconds int64

	Pricing    PricingMode
	Settlement SettlementMode
}

// Validate checks rate bounds and mode values.
func (p Params) Validate() error {
	if p.ShareDecimals < p.AssetDecimals {
		return fmt.Errorf("vault params: share decimals %d below asset decimals %d", p.ShareDecimals, p.AssetDecimals)
	}
	if p.IssueFeePpm > PpmDenominator || p.RedeemFeePpm > PpmDenominator {
		return errInvalidFee
	}
	if p.OrderFeePpm > PpmDenominator || p.OrderFeePpm < -PpmDenominator {
		return errInvalidOrderFee
	}
	if p.FillWindowSeconds < 0 {
		return fmt.Errorf("vault params: fill window must not be negative")
	}
	if p.MinDistributionPeriodSeconds < 0 || p.MaxDistributionPeriodSeconds < p.MinDistributionPeriodSeconds {
		return fmt.Errorf("vault params: distribution period bounds inverted")
	}
	switch p.Pricing {
	case PricingBalance, PricingPool:
	default:
		return fmt.Errorf("vault params: unknown pricing mode %q", p.Pricing)
	}
	switch p.Settlement {
	case SettlementFiller, SettlementBuffer:
	default:
		return fmt.Errorf("vault params: unknown settlement mode %q", p.Settlement)
	}
	return nil
}

// scale returns the share-per-asset decimal scaling factor used when the
// vault is empty.
func (p Params) scale() *big.Int {
	return pow10(p.ShareDecimals - p.AssetDecimals)
}

// Clone returns a deep copy of the parameters.
func (p Params) Clone() Params {
	out := p
	if p.SupplyCap != nil {
		out.SupplyCap = new(big.Int).Set(p.SupplyCap)
	}
	if p.MaxIssuePerPeriod != nil {
		out.MaxIssuePerPeriod = new(big.Int).Set(p.MaxIssuePerPeriod)
	}
	if p.MaxRedeemPerPeriod != nil {
		out.MaxRedeemPerPeriod = new(big.Int).Set(p.MaxRedeemPerPeriod)
	}
	if p.MinOrderShares != nil {
		out.MinOrderShares = new(big.Int).Set(p.MinOrderShares)
	}
	return out
}

// Config captures operator-defined vault settings parsed from configuration.
// Amount fields are decimal strings so operators can express large values
// without integer-literal pitfalls; empty strings mean unlimited.
type Config struct {
	AssetDecimals uint8 `toml:"AssetDecimals"`
	ShareDecimals uint8 `toml:"ShareDecimals"`

	SupplyCap          string `toml:"SupplyCap"`
	MaxIssuePerPeriod  string `toml:"MaxIssuePerPeriod"`
	MaxRedeemPerPeriod string `toml:"MaxRedeemPerPeriod"`

	IssueFeePpm  uint64 `toml:"IssueFeePpm"`
	RedeemFeePpm uint64 `toml:"RedeemFeePpm"`
	OrderFeePpm  int64  `toml:"OrderFeePpm"`

	FillWindowSeconds int64  `toml:"FillWindowSeconds"`
	MinOrderShares    string `toml:"MinOrderShares"`

	MinDistributionPeriodSeconds int64 `toml:"MinDistributionPeriodSeconds"`
	MaxDistributionPeriodSeconds int64 `toml:"MaxDistributionPeriodSeconds"`

	Pricing    string `toml:"Pricing"`
	Settlement string `toml:"Settlement"`
}

// Normalise trims whitespace and applies canonical defaults to a defensive
// copy.
func (c Config) Normalise() Config {
	cfg := c
	cfg.SupplyCap = strings.TrimSpace(c.SupplyCap)
	cfg.MaxIssuePerPeriod = strings.TrimSpace(c.MaxIssuePerPeriod)
	cfg.MaxRedeemPerPeriod = strings.TrimSpace(c.MaxRedeemPerPeriod)
	cfg.MinOrderShares = strings.TrimSpace(c.MinOrderShares)
	cfg.Pricing = strings.ToLower(strings.TrimSpace(c.Pricing))
	cfg.Settlement = strings.ToLower(strings.TrimSpace(c.Settlement))
	if cfg.Pricing == "" {
		cfg.Pricing = string(PricingPool)
	}
	if cfg.Settlement == "" {
		cfg.Settlement = string(SettlementFiller)
	}
	if cfg.MaxDistributionPeriodSeconds == 0 {
		cfg.MaxDistributionPeriodSeconds = 30 * secondsPerDay
	}
	return cfg
}

// Parameters converts the textual configuration into runtime big integers and
// bounds.
func (c Config) Parameters() (Params, error) {
	normalized := c.Normalise()
	params := Params{
		AssetDecimals:                normalized.AssetDecimals,
		ShareDecimals:                normalized.ShareDecimals,
		IssueFeePpm:                  normalized.IssueFeePpm,
		RedeemFeePpm:                 normalized.RedeemFeePpm,
		OrderFeePpm:                  normalized.OrderFeePpm,
		FillWindowSeconds:            normalized.FillWindowSeconds,
		MinDistributionPeriodSeconds: normalized.MinDistributionPeriodSeconds,
		MaxDistributionPeriodSeconds: normalized.MaxDistributionPeriodSeconds,
		Pricing:                      PricingMode(normalized.Pricing),
		Settlement:                   SettlementMode(normalized.Settlement),
	}
	var err error
	if params.SupplyCap, err = parseAmountField("SupplyCap", normalized.SupplyCap); err != nil {
		return params, err
	}
	if params.MaxIssuePerPeriod, err = parseAmountField("MaxIssuePerPeriod", normalized.MaxIssuePerPeriod); err != nil {
		return params, err
	}
	if params.MaxRedeemPerPeriod, err = parseAmountField("MaxRedeemPerPeriod", normalized.MaxRedeemPerPeriod); err != nil {
		return params, err
	}
	if params.MinOrderShares, err = parseAmountField("MinOrderShares", normalized.MinOrderShares); err != nil {
		return params, err
	}
	if err := params.Validate(); err != nil {
		return params, err
	}
	return params, nil
}

func parseAmountField(name, value string) (*big.Int, error) {
	if value == "" {
		return nil, nil
	}
	cleaned := strings.ReplaceAll(value, "_", "")
	amount, ok := new(big.Int).SetString(cleaned, 10)
	if !ok {
		return nil, fmt.Errorf("vault params: invalid %s: %q", name, value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("vault params: %s must not be negative", name)
	}
	return amount, nil
}
