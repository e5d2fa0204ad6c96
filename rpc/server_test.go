package rpc

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"vaultcore/core/events"
	"vaultcore/core/types"
	nativecommon "vaultcore/native/common"
	"vaultcore/native/vault"
	"vaultcore/storage"
)

var (
	testVaultAddr = addrWithSuffix(0xAA)
	testDepositor = addrWithSuffix(0x01)
)

func addrWithSuffix(suffix byte) [20]byte {
	var out [20]byte
	out[len(out)-1] = suffix
	return out
}

// newTestServer seeds a vault with one depositor holding 100 units against a
// 1:1 pool and returns the router for request-level assertions.
func newTestServer(t *testing.T) (http.Handler, *vault.Engine) {
	t.Helper()
	params, err := vault.Config{
		AssetDecimals: 6,
		ShareDecimals: 6,
	}.Parameters()
	if err != nil {
		t.Fatalf("params: %v", err)
	}

	store := vault.NewStore(storage.NewMemDB())
	auth := nativecommon.NewStaticAuthorizer()
	updater := addrWithSuffix(0x02)
	auth.Grant(nativecommon.CapabilityPoolUpdater, updater)

	recorder := events.NewRecorder()
	engine := vault.NewEngine(testVaultAddr, params)
	engine.SetState(store)
	engine.SetAuthorizer(auth)
	engine.SetEmitter(recorder)

	if err := store.PutAccount(testDepositor, accountWithAssets(100_000_000)); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if _, err := engine.Deposit(testDepositor, testDepositor, big.NewInt(100_000_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := engine.UpdatePool(updater, big.NewInt(100_000_000), 0); err != nil {
		t.Fatalf("update pool: %v", err)
	}

	server := NewServer(engine, recorder, nil, nil)
	return server.Router(), engine
}

func accountWithAssets(amount int64) *types.Account {
	return &types.Account{BalanceAsset: big.NewInt(amount), BalanceShares: big.NewInt(0)}
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthz(t *testing.T) {
	handler, _ := newTestServer(t)
	rec := get(t, handler, "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestVaultStatus(t *testing.T) {
	handler, _ := newTestServer(t)
	rec := get(t, handler, "/v1/vault/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Issuer struct {
			TotalShares string `json:"totalShares"`
		} `json:"issuer"`
		Book struct {
			NextOrderID uint64 `json:"nextOrderId"`
		} `json:"book"`
	}
	decode(t, rec, &resp)
	if resp.Issuer.TotalShares != "100000000" {
		t.Fatalf("total shares = %s, want 100000000", resp.Issuer.TotalShares)
	}
	if resp.Book.NextOrderID != 1 {
		t.Fatalf("next order id = %d, want 1", resp.Book.NextOrderID)
	}
}

func TestPreviewEndpoints(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := get(t, handler, "/v1/vault/preview/deposit?assets=50000000")
	if rec.Code != http.StatusOK {
		t.Fatalf("preview deposit = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Amount string `json:"amount"`
	}
	decode(t, rec, &resp)
	if resp.Amount != "50000000" {
		t.Fatalf("preview = %s, want 50000000", resp.Amount)
	}

	rec = get(t, handler, "/v1/vault/preview/deposit?assets=bogus")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bogus amount = %d", rec.Code)
	}
	rec = get(t, handler, "/v1/vault/preview/deposit")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing amount = %d", rec.Code)
	}
	rec = get(t, handler, "/v1/vault/preview/redeem?shares=0")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("zero shares = %d", rec.Code)
	}
}

func TestOrderLookupNotFound(t *testing.T) {
	handler, _ := newTestServer(t)
	rec := get(t, handler, "/v1/vault/orders/42")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown order = %d body=%s", rec.Code, rec.Body.String())
	}
	rec = get(t, handler, "/v1/vault/orders/abc")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed id = %d", rec.Code)
	}
}

func TestOrderListAndLookup(t *testing.T) {
	handler, engine := newTestServer(t)
	receiver := addrWithSuffix(0x03)
	order, err := engine.CreateOrder(testDepositor, receiver, testDepositor, big.NewInt(10_000_000))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	rec := get(t, handler, "/v1/vault/orders")
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d body=%s", rec.Code, rec.Body.String())
	}
	var list struct {
		Orders []struct {
			ID     uint64 `json:"id"`
			Status string `json:"status"`
			Shares string `json:"shares"`
		} `json:"orders"`
	}
	decode(t, rec, &list)
	if len(list.Orders) != 1 || list.Orders[0].ID != order.ID || list.Orders[0].Status != "pending" {
		t.Fatalf("list = %+v", list)
	}

	rec = get(t, handler, "/v1/vault/orders/1")
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup = %d", rec.Code)
	}
	var single struct {
		Shares string `json:"shares"`
		Owner  string `json:"owner"`
	}
	decode(t, rec, &single)
	if single.Shares != "10000000" {
		t.Fatalf("shares = %s, want 10000000", single.Shares)
	}
}

func TestEventLogEndpoint(t *testing.T) {
	handler, _ := newTestServer(t)
	rec := get(t, handler, "/v1/vault/events")
	if rec.Code != http.StatusOK {
		t.Fatalf("events = %d", rec.Code)
	}
	var eventsResp []struct {
		Type       string            `json:"type"`
		Attributes map[string]string `json:"attributes"`
	}
	decode(t, rec, &eventsResp)
	// Seeding produced an issuance and a pool update.
	if len(eventsResp) != 2 || eventsResp[0].Type != vault.EventTypeIssued {
		t.Fatalf("events = %+v", eventsResp)
	}
	if eventsResp[0].Attributes["assets"] != "100000000" {
		t.Fatalf("issued attributes = %+v", eventsResp[0].Attributes)
	}
}

func TestRateLimiterThrottles(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	wrapped := limiter.Middleware("vault")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	wrapped.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request = %d", first.Code)
	}
	second := httptest.NewRecorder()
	wrapped.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", second.Code)
	}
}
