package vault

import (
	"math/big"
	"time"

	"vaultcore/core/events"
	"vaultcore/core/types"
	nativecommon "vaultcore/native/common"
	"vaultcore/observability"
)

const moduleName = "vault"

// engineState abstracts the persistence substrate. Every public operation
// executes as a single atomic step relative to all other operations; the
// substrate serializes calls, so the engine performs no locking of its own.
type engineState interface {
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
	IssuerGet() (*IssuerState, error)
	IssuerPut(*IssuerState) error
	BookGet() (*BookState, error)
	BookPut(*BookState) error
	OrderGet(id uint64) (*RedeemOrder, bool, error)
	OrderPut(*RedeemOrder) error
	PoolGet() (*PoolState, error)
	PoolPut(*PoolState) error
	DistributionGet() (*DistributionState, error)
	DistributionPut(*DistributionState) error
	PeriodUsage(kind FlowKind, period uint64) (*big.Int, error)
	AddPeriodUsage(kind FlowKind, period uint64, amount *big.Int) error
}

type vaultEvent struct {
	evt *types.Event
}

func (e vaultEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e vaultEvent) Event() *types.Event { return e.evt }

// Engine orchestrates the asset/share conversion, the redemption order book
// and the yield-pool valuation behind a uniform surface. External
// collaborators supply pausing, authorization and persistence.
type Engine struct {
	state     engineState
	emitter   events.Emitter
	auth      nativecommon.Authorizer
	pauses    nativecommon.PauseView
	vaultAddr [20]byte
	params    Params
	nowFn     func() int64
	period    uint64
	telemetry *observability.VaultMetrics
}

// NewEngine constructs a vault engine bound to the module escrow address that
// holds the liquidity buffer and escrowed shares.
func NewEngine(vaultAddr [20]byte, params Params) *Engine {
	return &Engine{
		vaultAddr: vaultAddr,
		params:    params.Clone(),
		emitter:   events.NoopEmitter{},
		nowFn:     func() int64 { return time.Now().Unix() },
		telemetry: observability.Vault(),
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetAuthorizer wires the capability predicate consulted before privileged
// mutations. A nil authorizer denies every privileged call.
func (e *Engine) SetAuthorizer(auth nativecommon.Authorizer) {
	if e == nil {
		return
	}
	e.auth = auth
}

// SetPauses wires the external pause view consulted before every mutation.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetPeriod records the monotonic period counter used to key the throughput
// buckets. The substrate advances it once per block.
func (e *Engine) SetPeriod(period uint64) {
	if e == nil {
		return
	}
	e.period = period
}

// Period returns the current throughput period.
func (e *Engine) Period() uint64 {
	if e == nil {
		return 0
	}
	return e.period
}

// Params returns a copy of the current engine parameters.
func (e *Engine) Params() Params {
	if e == nil {
		return Params{}
	}
	return e.params.Clone()
}

// VaultAddress returns the module escrow address.
func (e *Engine) VaultAddress() [20]byte {
	if e == nil {
		return [20]byte{}
	}
	return e.vaultAddr
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(vaultEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// --- ledger helpers ---

func (e *Engine) loadAccount(addr [20]byte) (*types.Account, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = &types.Account{}
	}
	if acc.BalanceAsset == nil {
		acc.BalanceAsset = big.NewInt(0)
	}
	if acc.BalanceShares == nil {
		acc.BalanceShares = big.NewInt(0)
	}
	return acc, nil
}

// transferAsset moves the exact asset amount between accounts, failing when
// the source balance is insufficient.
func (e *Engine) transferAsset(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return errInvalidAmount
	}
	fromAcc, err := e.loadAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.BalanceAsset.Cmp(amount) < 0 {
		return errExceedsBalance
	}
	if from == to {
		// A self-transfer must not double-apply through two account copies.
		return nil
	}
	toAcc, err := e.loadAccount(to)
	if err != nil {
		return err
	}
	fromAcc.BalanceAsset = new(big.Int).Sub(fromAcc.BalanceAsset, amount)
	toAcc.BalanceAsset = new(big.Int).Add(toAcc.BalanceAsset, amount)
	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to, toAcc)
}

func (e *Engine) transferShares(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return errInvalidAmount
	}
	fromAcc, err := e.loadAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.BalanceShares.Cmp(amount) < 0 {
		return errExceedsBalance
	}
	if from == to {
		// A self-transfer must not double-apply through two account copies.
		return nil
	}
	toAcc, err := e.loadAccount(to)
	if err != nil {
		return err
	}
	fromAcc.BalanceShares = new(big.Int).Sub(fromAcc.BalanceShares, amount)
	toAcc.BalanceShares = new(big.Int).Add(toAcc.BalanceShares, amount)
	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to, toAcc)
}

func (e *Engine) mintShares(to [20]byte, amount *big.Int, issuer *IssuerState) error {
	acc, err := e.loadAccount(to)
	if err != nil {
		return err
	}
	acc.BalanceShares = new(big.Int).Add(acc.BalanceShares, amount)
	if err := e.state.PutAccount(to, acc); err != nil {
		return err
	}
	issuer.TotalShares = new(big.Int).Add(issuer.TotalShares, amount)
	issuer.IssuedShares = new(big.Int).Add(issuer.IssuedShares, amount)
	return nil
}

func (e *Engine) burnShares(from [20]byte, amount *big.Int, issuer *IssuerState) error {
	acc, err := e.loadAccount(from)
	if err != nil {
		return err
	}
	if acc.BalanceShares.Cmp(amount) < 0 {
		return errExceedsBalance
	}
	acc.BalanceShares = new(big.Int).Sub(acc.BalanceShares, amount)
	if err := e.state.PutAccount(from, acc); err != nil {
		return err
	}
	issuer.TotalShares = new(big.Int).Sub(issuer.TotalShares, amount)
	issuer.RedeemedShares = new(big.Int).Add(issuer.RedeemedShares, amount)
	return nil
}

func (e *Engine) ensureIssuer() (*IssuerState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	issuer, err := e.state.IssuerGet()
	if err != nil {
		return nil, err
	}
	if issuer == nil {
		issuer = &IssuerState{}
	}
	if issuer.TotalShares == nil {
		issuer.TotalShares = big.NewInt(0)
	}
	if issuer.IssuedShares == nil {
		issuer.IssuedShares = big.NewInt(0)
	}
	if issuer.RedeemedShares == nil {
		issuer.RedeemedShares = big.NewInt(0)
	}
	return issuer, nil
}

func (e *Engine) ensureBook() (*BookState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	book, err := e.state.BookGet()
	if err != nil {
		return nil, err
	}
	if book == nil {
		book = &BookState{NextOrderID: 1}
	}
	if book.NextOrderID == 0 {
		book.NextOrderID = 1
	}
	if book.PendingShares == nil {
		book.PendingShares = big.NewInt(0)
	}
	if book.UnfinalizedValue == nil {
		book.UnfinalizedValue = big.NewInt(0)
	}
	return book, nil
}

// --- pricing ---

// totalAssetsIssue is the valuation used on the issue path: the full pool
// valuation including intra-day accrual and the vested distribution, or the
// raw asset balance in the balance-pricing variant.
func (e *Engine) totalAssetsIssue() (*big.Int, error) {
	if e.params.Pricing == PricingPool {
		return e.TotalAssets()
	}
	acc, err := e.loadAccount(e.vaultAddr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.BalanceAsset), nil
}

// totalAssetsRedeem is the valuation used on the redeem path. Pool pricing
// deliberately excludes intra-day accrual and unvested drip so a depositor
// cannot capture yield they did not bear risk for.
func (e *Engine) totalAssetsRedeem() (*big.Int, error) {
	if e.params.Pricing == PricingPool {
		pool, err := e.ensurePool()
		if err != nil {
			return nil, err
		}
		return new(big.Int).Set(pool.PoolSize), nil
	}
	acc, err := e.loadAccount(e.vaultAddr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.BalanceAsset), nil
}

// TotalShares returns the live share supply.
func (e *Engine) TotalShares() (*big.Int, error) {
	issuer, err := e.ensureIssuer()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(issuer.TotalShares), nil
}

// ConvertToShares prices assets into shares on the issue path without fees.
func (e *Engine) ConvertToShares(assets *big.Int) (*big.Int, error) {
	issuer, err := e.ensureIssuer()
	if err != nil {
		return nil, err
	}
	total, err := e.totalAssetsIssue()
	if err != nil {
		return nil, err
	}
	return convertToShares(assets, issuer.TotalShares, total, e.params.scale(), false), nil
}

// ConvertToAssets prices shares into assets on the redeem path without fees.
func (e *Engine) ConvertToAssets(shares *big.Int) (*big.Int, error) {
	issuer, err := e.ensureIssuer()
	if err != nil {
		return nil, err
	}
	total, err := e.totalAssetsRedeem()
	if err != nil {
		return nil, err
	}
	return convertToAssets(shares, issuer.TotalShares, total, e.params.scale(), false), nil
}

// PreviewDeposit returns the shares minted for an asset amount that already
// includes the issue fee.
func (e *Engine) PreviewDeposit(assets *big.Int) (*big.Int, error) {
	if assets == nil || assets.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	fee := feeOnTotal(assets, e.params.IssueFeePpm)
	net := new(big.Int).Sub(assets, fee)
	return e.ConvertToShares(net)
}

// PreviewMint returns the assets charged, fee included, for an exact share
// amount. The asset equivalent rounds up in the engine's favour.
func (e *Engine) PreviewMint(shares *big.Int) (*big.Int, error) {
	if shares == nil || shares.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	issuer, err := e.ensureIssuer()
	if err != nil {
		return nil, err
	}
	total, err := e.totalAssetsIssue()
	if err != nil {
		return nil, err
	}
	assets := convertToAssets(shares, issuer.TotalShares, total, e.params.scale(), true)
	return assets.Add(assets, feeOnRaw(assets, e.params.IssueFeePpm)), nil
}

// PreviewWithdraw returns the shares burned, fee included, for an exact asset
// amount paid out.
func (e *Engine) PreviewWithdraw(assets *big.Int) (*big.Int, error) {
	if assets == nil || assets.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	gross := new(big.Int).Add(assets, feeOnRaw(assets, e.params.RedeemFeePpm))
	issuer, err := e.ensureIssuer()
	if err != nil {
		return nil, err
	}
	total, err := e.totalAssetsRedeem()
	if err != nil {
		return nil, err
	}
	return convertToShares(gross, issuer.TotalShares, total, e.params.scale(), true), nil
}

// PreviewRedeem returns the assets paid out, net of fee, for a share amount.
func (e *Engine) PreviewRedeem(shares *big.Int) (*big.Int, error) {
	if shares == nil || shares.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	gross, err := e.ConvertToAssets(shares)
	if err != nil {
		return nil, err
	}
	fee := feeOnTotal(gross, e.params.RedeemFeePpm)
	return gross.Sub(gross, fee), nil
}

// previewRedeemLocked prices an order's escrowed shares with its locked signed
// fee rate.
func (e *Engine) previewRedeemLocked(shares *big.Int, feePpm int64) (*big.Int, error) {
	gross, err := e.ConvertToAssets(shares)
	if err != nil {
		return nil, err
	}
	return payoutAfterFee(gross, feePpm), nil
}

// --- throughput and cap ---

func (e *Engine) checkThroughput(kind FlowKind, amount *big.Int) error {
	var limit *big.Int
	switch kind {
	case FlowIssue:
		limit = e.params.MaxIssuePerPeriod
	case FlowRedeem:
		limit = e.params.MaxRedeemPerPeriod
	}
	if limit == nil {
		return nil
	}
	used, err := e.state.PeriodUsage(kind, e.period)
	if err != nil {
		return err
	}
	if used == nil {
		used = big.NewInt(0)
	}
	projected := new(big.Int).Add(used, amount)
	if projected.Cmp(limit) > 0 {
		available := new(big.Int).Sub(limit, used)
		if available.Sign() < 0 {
			available = big.NewInt(0)
		}
		e.telemetry.RecordRejection(string(kind), string(CapacityThroughput))
		return &CapacityError{Kind: CapacityThroughput, Attempted: new(big.Int).Set(amount), Available: available}
	}
	return nil
}

func (e *Engine) recordThroughput(kind FlowKind, amount *big.Int) error {
	return e.state.AddPeriodUsage(kind, e.period, amount)
}

func (e *Engine) checkSupplyCap(issuer *IssuerState, minted *big.Int) error {
	cap := e.params.SupplyCap
	if cap == nil {
		return nil
	}
	projected := new(big.Int).Add(issuer.TotalShares, minted)
	if projected.Cmp(cap) > 0 {
		available := new(big.Int).Sub(cap, issuer.TotalShares)
		if available.Sign() < 0 {
			available = big.NewInt(0)
		}
		e.telemetry.RecordRejection(string(FlowIssue), string(CapacitySupplyCap))
		return &CapacityError{Kind: CapacitySupplyCap, Attempted: new(big.Int).Set(minted), Available: available}
	}
	return nil
}

// --- issuance ---

// Deposit transfers assets from the caller into the vault and mints the
// proportional shares to the receiver. The asset transfer precedes the share
// mint so a re-entrant transfer callback never observes uncredited shares.
func (e *Engine) Deposit(caller, receiver [20]byte, assets *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if assets == nil || assets.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	if receiver == ([20]byte{}) {
		return nil, errZeroReceiver
	}
	if err := e.checkThroughput(FlowIssue, assets); err != nil {
		return nil, err
	}
	shares, err := e.PreviewDeposit(assets)
	if err != nil {
		return nil, err
	}
	issuer, err := e.ensureIssuer()
	if err != nil {
		return nil, err
	}
	if err := e.checkSupplyCap(issuer, shares); err != nil {
		return nil, err
	}
	if err := e.transferAsset(caller, e.vaultAddr, assets); err != nil {
		return nil, err
	}
	if err := e.mintShares(receiver, shares, issuer); err != nil {
		return nil, err
	}
	if err := e.state.IssuerPut(issuer); err != nil {
		return nil, err
	}
	if err := e.recordThroughput(FlowIssue, assets); err != nil {
		return nil, err
	}
	e.telemetry.CountOperation("deposit", nil)
	e.telemetry.RecordSupply(issuer.TotalShares)
	e.emit(NewIssuedEvent(caller, receiver, assets, shares, issuer))
	return shares, nil
}

// Mint issues an exact share amount to the receiver, charging the caller the
// asset equivalent rounded up plus the issue fee.
func (e *Engine) Mint(caller, receiver [20]byte, shares *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if shares == nil || shares.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	if receiver == ([20]byte{}) {
		return nil, errZeroReceiver
	}
	assets, err := e.PreviewMint(shares)
	if err != nil {
		return nil, err
	}
	if err := e.checkThroughput(FlowIssue, assets); err != nil {
		return nil, err
	}
	issuer, err := e.ensureIssuer()
	if err != nil {
		return nil, err
	}
	if err := e.checkSupplyCap(issuer, shares); err != nil {
		return nil, err
	}
	if err := e.transferAsset(caller, e.vaultAddr, assets); err != nil {
		return nil, err
	}
	if err := e.mintShares(receiver, shares, issuer); err != nil {
		return nil, err
	}
	if err := e.state.IssuerPut(issuer); err != nil {
		return nil, err
	}
	if err := e.recordThroughput(FlowIssue, assets); err != nil {
		return nil, err
	}
	e.telemetry.CountOperation("mint", nil)
	e.telemetry.RecordSupply(issuer.TotalShares)
	e.emit(NewIssuedEvent(caller, receiver, assets, shares, issuer))
	return assets, nil
}

// Withdraw burns the owner's shares covering an exact asset amount plus fee
// and pays the amount to the receiver from the liquidity buffer. Shares are
// burned before the asset leaves so a re-entrant transfer callback never
// observes undebited shares.
func (e *Engine) Withdraw(caller, receiver, owner [20]byte, assets *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if assets == nil || assets.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	if receiver == ([20]byte{}) {
		return nil, errZeroReceiver
	}
	if caller != owner {
		return nil, errNotOwner
	}
	if err := e.checkThroughput(FlowRedeem, assets); err != nil {
		return nil, err
	}
	shares, err := e.PreviewWithdraw(assets)
	if err != nil {
		return nil, err
	}
	if err := e.ensureBufferCovers(assets); err != nil {
		return nil, err
	}
	issuer, err := e.ensureIssuer()
	if err != nil {
		return nil, err
	}
	if err := e.burnShares(owner, shares, issuer); err != nil {
		return nil, err
	}
	if err := e.transferAsset(e.vaultAddr, receiver, assets); err != nil {
		return nil, err
	}
	if err := e.state.IssuerPut(issuer); err != nil {
		return nil, err
	}
	if err := e.recordThroughput(FlowRedeem, assets); err != nil {
		return nil, err
	}
	e.telemetry.CountOperation("withdraw", nil)
	e.telemetry.RecordSupply(issuer.TotalShares)
	e.emit(NewWithdrawnEvent(caller, receiver, owner, assets, shares, issuer))
	return shares, nil
}

// Redeem burns an exact share amount from the owner and pays the net asset
// value to the receiver from the liquidity buffer.
func (e *Engine) Redeem(caller, receiver, owner [20]byte, shares *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if shares == nil || shares.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	if receiver == ([20]byte{}) {
		return nil, errZeroReceiver
	}
	if caller != owner {
		return nil, errNotOwner
	}
	assets, err := e.PreviewRedeem(shares)
	if err != nil {
		return nil, err
	}
	if err := e.checkThroughput(FlowRedeem, assets); err != nil {
		return nil, err
	}
	if err := e.ensureBufferCovers(assets); err != nil {
		return nil, err
	}
	issuer, err := e.ensureIssuer()
	if err != nil {
		return nil, err
	}
	if err := e.burnShares(owner, shares, issuer); err != nil {
		return nil, err
	}
	if err := e.transferAsset(e.vaultAddr, receiver, assets); err != nil {
		return nil, err
	}
	if err := e.state.IssuerPut(issuer); err != nil {
		return nil, err
	}
	if err := e.recordThroughput(FlowRedeem, assets); err != nil {
		return nil, err
	}
	e.telemetry.CountOperation("redeem", nil)
	e.telemetry.RecordSupply(issuer.TotalShares)
	e.emit(NewWithdrawnEvent(caller, receiver, owner, assets, shares, issuer))
	return assets, nil
}

// --- liquidity buffer ---

// LiquidityBuffer returns the unreserved portion of the vault's asset balance:
// the raw balance minus value already realized for unfinalized orders.
func (e *Engine) LiquidityBuffer() (*big.Int, error) {
	acc, err := e.loadAccount(e.vaultAddr)
	if err != nil {
		return nil, err
	}
	book, err := e.ensureBook()
	if err != nil {
		return nil, err
	}
	buffer := new(big.Int).Sub(acc.BalanceAsset, book.UnfinalizedValue)
	if buffer.Sign() < 0 {
		buffer = big.NewInt(0)
	}
	return buffer, nil
}

func (e *Engine) ensureBufferCovers(amount *big.Int) error {
	buffer, err := e.LiquidityBuffer()
	if err != nil {
		return err
	}
	if buffer.Cmp(amount) < 0 {
		e.telemetry.RecordRejection(string(FlowRedeem), string(CapacityBuffer))
		return &CapacityError{Kind: CapacityBuffer, Attempted: new(big.Int).Set(amount), Available: buffer}
	}
	return nil
}

// DepositLiquidity tops up the buffer from the liquidity manager's balance.
func (e *Engine) DepositLiquidity(caller [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := nativecommon.Authorize(e.auth, nativecommon.CapabilityLiquidityManager, caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	if err := e.transferAsset(caller, e.vaultAddr, amount); err != nil {
		return err
	}
	e.emit(NewLiquidityEvent(EventTypeLiquidityDeposited, caller, amount))
	return nil
}

// WithdrawLiquidity drains part of the buffer to the recipient, bounded by the
// unreserved portion so filled orders stay payable.
func (e *Engine) WithdrawLiquidity(caller, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := nativecommon.Authorize(e.auth, nativecommon.CapabilityLiquidityManager, caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	if to == ([20]byte{}) {
		return errZeroReceiver
	}
	if err := e.ensureBufferCovers(amount); err != nil {
		return err
	}
	if err := e.transferAsset(e.vaultAddr, to, amount); err != nil {
		return err
	}
	e.emit(NewLiquidityEvent(EventTypeLiquidityWithdrawn, to, amount))
	return nil
}

// --- administrative setters ---

// SetSupplyCap replaces the share supply cap. A cap below the current supply
// simply blocks further issuance without affecting outstanding shares.
func (e *Engine) SetSupplyCap(caller [20]byte, cap *big.Int) error {
	if err := nativecommon.Authorize(e.auth, nativecommon.CapabilityAdmin, caller); err != nil {
		return err
	}
	if cap == nil {
		e.params.SupplyCap = nil
	} else {
		if cap.Sign() < 0 {
			return errInvalidAmount
		}
		e.params.SupplyCap = new(big.Int).Set(cap)
	}
	e.emit(NewParamsEvent("supplyCap", bigToString(e.params.SupplyCap)))
	return nil
}

// SetIssueLimit replaces the per-period issuance limit. Zero pauses issuance.
func (e *Engine) SetIssueLimit(caller [20]byte, limit *big.Int) error {
	if err := nativecommon.Authorize(e.auth, nativecommon.CapabilityAdmin, caller); err != nil {
		return err
	}
	if limit == nil {
		e.params.MaxIssuePerPeriod = nil
	} else {
		if limit.Sign() < 0 {
			return errInvalidAmount
		}
		e.params.MaxIssuePerPeriod = new(big.Int).Set(limit)
	}
	e.emit(NewParamsEvent("maxIssuePerPeriod", bigToString(e.params.MaxIssuePerPeriod)))
	return nil
}

// SetRedeemLimit replaces the per-period redemption limit. Zero pauses
// redemption.
func (e *Engine) SetRedeemLimit(caller [20]byte, limit *big.Int) error {
	if err := nativecommon.Authorize(e.auth, nativecommon.CapabilityAdmin, caller); err != nil {
		return err
	}
	if limit == nil {
		e.params.MaxRedeemPerPeriod = nil
	} else {
		if limit.Sign() < 0 {
			return errInvalidAmount
		}
		e.params.MaxRedeemPerPeriod = new(big.Int).Set(limit)
	}
	e.emit(NewParamsEvent("maxRedeemPerPeriod", bigToString(e.params.MaxRedeemPerPeriod)))
	return nil
}

// SetIssueFee replaces the issuance fee rate.
func (e *Engine) SetIssueFee(caller [20]byte, ppm uint64) error {
	if err := nativecommon.Authorize(e.auth, nativecommon.CapabilityAdmin, caller); err != nil {
		return err
	}
	if ppm > PpmDenominator {
		return errInvalidFee
	}
	e.params.IssueFeePpm = ppm
	e.emit(NewParamsEvent("issueFeePpm", formatUint(ppm)))
	return nil
}

// SetRedeemFee replaces the redemption fee rate.
func (e *Engine) SetRedeemFee(caller [20]byte, ppm uint64) error {
	if err := nativecommon.Authorize(e.auth, nativecommon.CapabilityAdmin, caller); err != nil {
		return err
	}
	if ppm > PpmDenominator {
		return errInvalidFee
	}
	e.params.RedeemFeePpm = ppm
	e.emit(NewParamsEvent("redeemFeePpm", formatUint(ppm)))
	return nil
}

// SetOrderFee replaces the signed order fee rate snapshotted by new orders.
// Open orders keep the rate they were created with.
func (e *Engine) SetOrderFee(caller [20]byte, ppm int64) error {
	if err := nativecommon.Authorize(e.auth, nativecommon.CapabilityAdmin, caller); err != nil {
		return err
	}
	if ppm > PpmDenominator || ppm < -PpmDenominator {
		return errInvalidOrderFee
	}
	e.params.OrderFeePpm = ppm
	e.emit(NewParamsEvent("orderFeePpm", formatInt(ppm)))
	return nil
}

// SetFillWindow replaces the minimum delay before an unfilled order becomes
// cancellable by its owner.
func (e *Engine) SetFillWindow(caller [20]byte, seconds int64) error {
	if err := nativecommon.Authorize(e.auth, nativecommon.CapabilityAdmin, caller); err != nil {
		return err
	}
	if seconds < 0 {
		return errInvalidAmount
	}
	e.params.FillWindowSeconds = seconds
	e.emit(NewParamsEvent("fillWindowSeconds", formatInt(seconds)))
	return nil
}

// SetMinOrderShares replaces the order size floor.
func (e *Engine) SetMinOrderShares(caller [20]byte, min *big.Int) error {
	if err := nativecommon.Authorize(e.auth, nativecommon.CapabilityAdmin, caller); err != nil {
		return err
	}
	if min == nil {
		e.params.MinOrderShares = nil
	} else {
		if min.Sign() < 0 {
			return errInvalidAmount
		}
		e.params.MinOrderShares = new(big.Int).Set(min)
	}
	e.emit(NewParamsEvent("minOrderShares", bigToString(e.params.MinOrderShares)))
	return nil
}
