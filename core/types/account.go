package types

import "math/big"

// Account is the ledger record tracked per address. The vault engine only
// touches the asset and share balances; both are denominated in the smallest
// unit of their respective token and expressed as big integers to match
// on-ledger precision.
type Account struct {
	Nonce         uint64   `json:"nonce"`
	BalanceAsset  *big.Int `json:"balanceAsset"`
	BalanceShares *big.Int `json:"balanceShares"`
}

// Clone returns a deep copy of the account so callers can safely mutate the
// copy without affecting the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{Nonce: a.Nonce}
	if a.BalanceAsset != nil {
		clone.BalanceAsset = new(big.Int).Set(a.BalanceAsset)
	}
	if a.BalanceShares != nil {
		clone.BalanceShares = new(big.Int).Set(a.BalanceShares)
	}
	return clone
}
