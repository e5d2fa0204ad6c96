package vault

import (
	"errors"
	"math/big"
	"testing"
)

// seedVault deposits assets for alice against a 1:1 pool so order values are
// easy to read: 6-decimal shares priced one-to-one with 6-decimal assets.
func seedVault(t *testing.T, params Params) (*Engine, *mockEngineState) {
	t.Helper()
	engine, state, _ := newTestEngine(t, params)
	state.fund(alice, 100_000_000, 0)
	if _, err := engine.Deposit(alice, alice, big.NewInt(100_000_000)); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}
	if err := engine.UpdatePool(operator, big.NewInt(100_000_000), 0); err != nil {
		t.Fatalf("seed pool: %v", err)
	}
	return engine, state
}

func orderParams() Params {
	params := defaultParams()
	params.AssetDecimals = 6
	params.ShareDecimals = 6
	params.FillWindowSeconds = 3_600
	return params
}

func TestCreateOrderEscrowsShares(t *testing.T) {
	engine, state := seedVault(t, orderParams())

	order, err := engine.CreateOrder(alice, bob, alice, big.NewInt(40_000_000))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.ID != 1 || order.Status != OrderPending {
		t.Fatalf("order = %+v, want id 1 pending", order)
	}
	if order.Receiver != bob || order.Owner != alice {
		t.Fatalf("order parties wrong: %+v", order)
	}
	if order.DueTime != order.CreatedAt+3_600 {
		t.Fatalf("due time = %d, want created+3600", order.DueTime)
	}
	// Shares moved from the owner into vault escrow; supply is unchanged.
	if state.shareBalance(alice).Int64() != 60_000_000 {
		t.Fatalf("alice shares = %s, want 60000000", state.shareBalance(alice))
	}
	if state.shareBalance(vaultAddr).Int64() != 40_000_000 {
		t.Fatalf("escrow shares = %s, want 40000000", state.shareBalance(vaultAddr))
	}
	if state.issuer.TotalShares.Int64() != 100_000_000 {
		t.Fatalf("supply = %s, want 100000000", state.issuer.TotalShares)
	}
	if state.book.PendingOrders != 1 || state.book.PendingShares.Int64() != 40_000_000 {
		t.Fatalf("book = %+v", state.book)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	params := orderParams()
	params.MinOrderShares = big.NewInt(10_000_000)
	engine, _ := seedVault(t, params)

	if _, err := engine.CreateOrder(bob, bob, alice, big.NewInt(10_000_000)); !errors.Is(err, errNotOwner) {
		t.Fatalf("create for other owner: got %v", err)
	}
	if _, err := engine.CreateOrder(alice, [20]byte{}, alice, big.NewInt(10_000_000)); !errors.Is(err, errZeroReceiver) {
		t.Fatalf("zero receiver: got %v", err)
	}
	if _, err := engine.CreateOrder(alice, bob, alice, big.NewInt(9_999_999)); !errors.Is(err, errUnderMinimum) {
		t.Fatalf("below minimum: got %v", err)
	}
	if _, err := engine.CreateOrder(alice, bob, alice, big.NewInt(200_000_000)); !errors.Is(err, errExceedsBalance) {
		t.Fatalf("over balance: got %v", err)
	}
}

func TestFillAndFinalizeTwoPhase(t *testing.T) {
	engine, state := seedVault(t, orderParams())
	state.fund(filler, 50_000_000, 0)

	order, err := engine.CreateOrder(alice, bob, alice, big.NewInt(40_000_000))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if _, err := engine.FillOrder(alice, order.ID); err == nil {
		t.Fatalf("fill without capability should fail")
	}

	filled, err := engine.FillOrder(filler, order.ID)
	if err != nil {
		t.Fatalf("fill order: %v", err)
	}
	if filled.Status != OrderFilled {
		t.Fatalf("status = %s, want filled", filled.Status)
	}
	if filled.AssetValue.Int64() != 40_000_000 {
		t.Fatalf("asset value = %s, want 40000000", filled.AssetValue)
	}
	// Escrowed shares burned, settlement asset pulled from the filler and
	// reserved against the book.
	if state.shareBalance(vaultAddr).Sign() != 0 {
		t.Fatalf("escrow shares = %s, want 0", state.shareBalance(vaultAddr))
	}
	if state.issuer.TotalShares.Int64() != 60_000_000 {
		t.Fatalf("supply = %s, want 60000000", state.issuer.TotalShares)
	}
	if state.assetBalance(filler).Int64() != 10_000_000 {
		t.Fatalf("filler balance = %s, want 10000000", state.assetBalance(filler))
	}
	if state.book.UnfinalizedValue.Int64() != 40_000_000 {
		t.Fatalf("unfinalized = %s, want 40000000", state.book.UnfinalizedValue)
	}
	if state.book.PendingOrders != 0 {
		t.Fatalf("pending orders = %d, want 0", state.book.PendingOrders)
	}

	// Only the owner or controller may finalize.
	if _, err := engine.FinalizeOrder(bob, order.ID); !errors.Is(err, errNotOwner) {
		t.Fatalf("finalize by stranger: got %v", err)
	}
	final, err := engine.FinalizeOrder(alice, order.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if final.Status != OrderFinalized {
		t.Fatalf("status = %s, want finalized", final.Status)
	}
	if state.assetBalance(bob).Int64() != 40_000_000 {
		t.Fatalf("receiver balance = %s, want 40000000", state.assetBalance(bob))
	}
	if state.book.UnfinalizedValue.Sign() != 0 {
		t.Fatalf("unfinalized = %s, want 0", state.book.UnfinalizedValue)
	}

	// Repeat transitions are rejected with the stored status.
	var stateErr *OrderStateError
	if _, err := engine.FinalizeOrder(alice, order.ID); !errors.As(err, &stateErr) || stateErr.Status != OrderFinalized {
		t.Fatalf("double finalize: got %v", err)
	}
	if _, err := engine.FillOrder(filler, order.ID); !errors.As(err, &stateErr) {
		t.Fatalf("double fill: got %v", err)
	}
}

func TestFillOrderBufferSettlement(t *testing.T) {
	params := orderParams()
	params.Settlement = SettlementBuffer
	engine, state := seedVault(t, params)

	order, err := engine.CreateOrder(alice, bob, alice, big.NewInt(40_000_000))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	filled, err := engine.FillOrder(filler, order.ID)
	if err != nil {
		t.Fatalf("fill order: %v", err)
	}
	// Single-phase settlement pays straight from the vault's own balance.
	if filled.Status != OrderFinalized {
		t.Fatalf("status = %s, want finalized", filled.Status)
	}
	if state.assetBalance(bob).Int64() != 40_000_000 {
		t.Fatalf("receiver balance = %s, want 40000000", state.assetBalance(bob))
	}
	if state.book.UnfinalizedValue.Sign() != 0 {
		t.Fatalf("unfinalized = %s, want 0", state.book.UnfinalizedValue)
	}
}

func TestOrderFeeSnapshotSurvivesRateChange(t *testing.T) {
	params := orderParams()
	params.OrderFeePpm = 100_000
	engine, state := seedVault(t, params)
	state.fund(filler, 50_000_000, 0)

	order, err := engine.CreateOrder(alice, bob, alice, big.NewInt(44_000_000))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.FeePpm != 100_000 {
		t.Fatalf("snapshot fee = %d, want 100000", order.FeePpm)
	}
	// The admin halves the fee; the open order keeps its locked rate.
	if err := engine.SetOrderFee(operator, 50_000); err != nil {
		t.Fatalf("set order fee: %v", err)
	}
	filled, err := engine.FillOrder(filler, order.ID)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	// 44 gross at a locked 10%: floor(44e6 / 1.1) = 40e6.
	if filled.AssetValue.Int64() != 40_000_000 {
		t.Fatalf("settlement = %s, want 40000000", filled.AssetValue)
	}
}

func TestNegativeOrderFeeBoostsPayout(t *testing.T) {
	params := orderParams()
	params.OrderFeePpm = -100_000
	engine, state := seedVault(t, params)
	state.fund(filler, 60_000_000, 0)

	order, err := engine.CreateOrder(alice, bob, alice, big.NewInt(45_000_000))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	filled, err := engine.FillOrder(filler, order.ID)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	// 45 gross at -10%: floor(45e6 / 0.9) = 50e6, an incentive above par.
	if filled.AssetValue.Int64() != 50_000_000 {
		t.Fatalf("settlement = %s, want 50000000", filled.AssetValue)
	}
}

func TestCancelOrderTiming(t *testing.T) {
	engine, state := seedVault(t, orderParams())

	now := int64(1_700_000_000)
	engine.SetNowFunc(func() int64 { return now })
	order, err := engine.CreateOrder(alice, bob, alice, big.NewInt(40_000_000))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	// The owner cannot cancel inside the fill window.
	var dueErr *OrderNotDueError
	if _, err := engine.CancelOrder(alice, order.ID); !errors.As(err, &dueErr) {
		t.Fatalf("early cancel: got %v", err)
	}
	if dueErr.DueTime != order.DueTime {
		t.Fatalf("due time = %d, want %d", dueErr.DueTime, order.DueTime)
	}
	// A stranger cannot cancel at all.
	if _, err := engine.CancelOrder(bob, order.ID); !errors.Is(err, errNotOwner) {
		t.Fatalf("cancel by stranger: got %v", err)
	}
	// The filler may cancel at any time; here the owner waits out the window.
	now = order.DueTime
	cancelled, err := engine.CancelOrder(alice, order.ID)
	if err != nil {
		t.Fatalf("cancel after window: %v", err)
	}
	if cancelled.Status != OrderCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
	// Escrow returned intact.
	if state.shareBalance(alice).Int64() != 100_000_000 {
		t.Fatalf("alice shares = %s, want 100000000", state.shareBalance(alice))
	}
	if state.book.PendingOrders != 0 || state.book.PendingShares.Sign() != 0 {
		t.Fatalf("book not cleared: %+v", state.book)
	}
}

func TestFillerCancelsInsideWindow(t *testing.T) {
	engine, state := seedVault(t, orderParams())

	order, err := engine.CreateOrder(alice, bob, alice, big.NewInt(40_000_000))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := engine.CancelOrder(filler, order.ID); err != nil {
		t.Fatalf("filler cancel: %v", err)
	}
	if state.shareBalance(alice).Int64() != 100_000_000 {
		t.Fatalf("escrow not returned: %s", state.shareBalance(alice))
	}
}

func TestGetOrderUnknownID(t *testing.T) {
	engine, _ := seedVault(t, orderParams())
	if _, err := engine.GetOrder(99); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("unknown order: got %v", err)
	}
	if _, err := engine.FillOrder(filler, 99); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("fill unknown order: got %v", err)
	}
}

func TestListOrdersPaginates(t *testing.T) {
	engine, _ := seedVault(t, orderParams())

	for i := 0; i < 5; i++ {
		if _, err := engine.CreateOrder(alice, bob, alice, big.NewInt(10_000_000)); err != nil {
			t.Fatalf("create order %d: %v", i, err)
		}
	}
	first, next, err := engine.ListOrders(0, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first) != 2 || first[0].ID != 1 || first[1].ID != 2 {
		t.Fatalf("first page = %v", first)
	}
	if next != 2 {
		t.Fatalf("next cursor = %d, want 2", next)
	}
	second, next, err := engine.ListOrders(next, 2)
	if err != nil {
		t.Fatalf("list second: %v", err)
	}
	if len(second) != 2 || second[0].ID != 3 {
		t.Fatalf("second page = %v", second)
	}
	last, next, err := engine.ListOrders(next, 10)
	if err != nil {
		t.Fatalf("list last: %v", err)
	}
	if len(last) != 1 || last[0].ID != 5 || next != 0 {
		t.Fatalf("last page = %v next = %d", last, next)
	}
}
