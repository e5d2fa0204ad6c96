package vault

import (
	"math/big"
	"testing"

	"vaultcore/core/types"
	"vaultcore/storage"
)

func newTestStore() *Store {
	return NewStore(storage.NewMemDB())
}

func TestStoreAccountRoundTrip(t *testing.T) {
	store := newTestStore()
	addr := makeAddr(0x11)

	missing, err := store.GetAccount(addr)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("missing account = %+v, want nil", missing)
	}

	in := &types.Account{
		Nonce:         7,
		BalanceAsset:  big.NewInt(123_456),
		BalanceShares: new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil),
	}
	if err := store.PutAccount(addr, in); err != nil {
		t.Fatalf("put: %v", err)
	}
	out, err := store.GetAccount(addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Nonce != 7 || out.BalanceAsset.Cmp(in.BalanceAsset) != 0 || out.BalanceShares.Cmp(in.BalanceShares) != 0 {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestStoreIssuerAndBookRoundTrip(t *testing.T) {
	store := newTestStore()

	if issuer, err := store.IssuerGet(); err != nil || issuer != nil {
		t.Fatalf("empty issuer = %+v, %v", issuer, err)
	}
	issuer := &IssuerState{
		TotalShares:    big.NewInt(100),
		IssuedShares:   big.NewInt(150),
		RedeemedShares: big.NewInt(50),
	}
	if err := store.IssuerPut(issuer); err != nil {
		t.Fatalf("issuer put: %v", err)
	}
	gotIssuer, err := store.IssuerGet()
	if err != nil {
		t.Fatalf("issuer get: %v", err)
	}
	if gotIssuer.TotalShares.Int64() != 100 || gotIssuer.IssuedShares.Int64() != 150 || gotIssuer.RedeemedShares.Int64() != 50 {
		t.Fatalf("issuer mismatch: %+v", gotIssuer)
	}

	book := &BookState{
		NextOrderID:      9,
		PendingOrders:    2,
		PendingShares:    big.NewInt(40),
		UnfinalizedValue: big.NewInt(30),
	}
	if err := store.BookPut(book); err != nil {
		t.Fatalf("book put: %v", err)
	}
	gotBook, err := store.BookGet()
	if err != nil {
		t.Fatalf("book get: %v", err)
	}
	if gotBook.NextOrderID != 9 || gotBook.PendingOrders != 2 ||
		gotBook.PendingShares.Int64() != 40 || gotBook.UnfinalizedValue.Int64() != 30 {
		t.Fatalf("book mismatch: %+v", gotBook)
	}
}

func TestStoreOrderRoundTripKeepsSignedFee(t *testing.T) {
	store := newTestStore()

	if _, ok, err := store.OrderGet(1); err != nil || ok {
		t.Fatalf("empty order lookup: ok=%v err=%v", ok, err)
	}
	in := &RedeemOrder{
		ID:         1,
		Owner:      makeAddr(0x01),
		Receiver:   makeAddr(0x02),
		Controller: makeAddr(0x03),
		Shares:     big.NewInt(40_000_000),
		AssetValue: big.NewInt(44_000_000),
		FeePpm:     -100_000,
		CreatedAt:  1_700_000_000,
		DueTime:    1_700_003_600,
		Status:     OrderFilled,
	}
	if err := store.OrderPut(in); err != nil {
		t.Fatalf("put: %v", err)
	}
	out, ok, err := store.OrderGet(1)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out.FeePpm != -100_000 {
		t.Fatalf("fee = %d, want -100000", out.FeePpm)
	}
	if out.Owner != in.Owner || out.Receiver != in.Receiver || out.Controller != in.Controller {
		t.Fatalf("parties mismatch: %+v", out)
	}
	if out.Shares.Cmp(in.Shares) != 0 || out.AssetValue.Cmp(in.AssetValue) != 0 {
		t.Fatalf("amounts mismatch: %+v", out)
	}
	if out.CreatedAt != in.CreatedAt || out.DueTime != in.DueTime || out.Status != OrderFilled {
		t.Fatalf("metadata mismatch: %+v", out)
	}
}

func TestStorePoolAndDistributionRoundTrip(t *testing.T) {
	store := newTestStore()

	pool := &PoolState{
		PoolSize:          big.NewInt(1_000_000_000),
		DailyYieldRatePpm: 1_000,
		LastUpdate:        1_700_000_000,
	}
	if err := store.PoolPut(pool); err != nil {
		t.Fatalf("pool put: %v", err)
	}
	gotPool, err := store.PoolGet()
	if err != nil {
		t.Fatalf("pool get: %v", err)
	}
	if gotPool.PoolSize.Cmp(pool.PoolSize) != 0 || gotPool.DailyYieldRatePpm != 1_000 || gotPool.LastUpdate != 1_700_000_000 {
		t.Fatalf("pool mismatch: %+v", gotPool)
	}

	dist := &DistributionState{
		Amount:    big.NewInt(500_000),
		Period:    1_000,
		StartTime: 1_700_000_000,
	}
	if err := store.DistributionPut(dist); err != nil {
		t.Fatalf("dist put: %v", err)
	}
	gotDist, err := store.DistributionGet()
	if err != nil {
		t.Fatalf("dist get: %v", err)
	}
	if gotDist.Amount.Int64() != 500_000 || gotDist.Period != 1_000 || gotDist.StartTime != 1_700_000_000 {
		t.Fatalf("dist mismatch: %+v", gotDist)
	}
}

func TestStorePeriodUsageAccumulates(t *testing.T) {
	store := newTestStore()

	used, err := store.PeriodUsage(FlowIssue, 3)
	if err != nil {
		t.Fatalf("empty usage: %v", err)
	}
	if used.Sign() != 0 {
		t.Fatalf("empty usage = %s, want 0", used)
	}
	if err := store.AddPeriodUsage(FlowIssue, 3, big.NewInt(100)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.AddPeriodUsage(FlowIssue, 3, big.NewInt(50)); err != nil {
		t.Fatalf("add: %v", err)
	}
	used, _ = store.PeriodUsage(FlowIssue, 3)
	if used.Int64() != 150 {
		t.Fatalf("usage = %s, want 150", used)
	}
	// Buckets are isolated per flow and per period.
	if other, _ := store.PeriodUsage(FlowRedeem, 3); other.Sign() != 0 {
		t.Fatalf("redeem bucket leaked: %s", other)
	}
	if other, _ := store.PeriodUsage(FlowIssue, 4); other.Sign() != 0 {
		t.Fatalf("next period leaked: %s", other)
	}
}

func TestEngineRunsOverPersistentStore(t *testing.T) {
	db := storage.NewMemDB()
	params := defaultParams()
	params.AssetDecimals = 6
	params.ShareDecimals = 6

	engine, _, _ := newTestEngine(t, params)
	engine.SetState(NewStore(db))

	// Fund alice through the store directly.
	store := NewStore(db)
	if err := store.PutAccount(alice, &types.Account{
		BalanceAsset:  big.NewInt(100_000_000),
		BalanceShares: big.NewInt(0),
	}); err != nil {
		t.Fatalf("fund: %v", err)
	}

	shares, err := engine.Deposit(alice, alice, big.NewInt(100_000_000))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	order, err := engine.CreateOrder(alice, bob, alice, shares)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	// A second engine over the same database sees the same state.
	reloaded := NewEngine(vaultAddr, params)
	reloaded.SetState(NewStore(db))
	got, err := reloaded.GetOrder(order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if got.Shares.Cmp(shares) != 0 || got.Status != OrderPending {
		t.Fatalf("reloaded order mismatch: %+v", got)
	}
	supply, err := reloaded.TotalShares()
	if err != nil {
		t.Fatalf("reload supply: %v", err)
	}
	if supply.Cmp(shares) != 0 {
		t.Fatalf("reloaded supply = %s, want %s", supply, shares)
	}
}
