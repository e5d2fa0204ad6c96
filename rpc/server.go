package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vaultcore/core/events"
	"vaultcore/core/types"
	"vaultcore/native/vault"
	"vaultcore/observability"
)

const defaultOrderPageSize = 50

// Server exposes the read-only vault surface over HTTP. Mutating operations
// stay on the engine API; the server answers state queries and previews.
type Server struct {
	engine  *vault.Engine
	events  *events.Recorder
	limiter *RateLimiter
	log     *slog.Logger
}

// NewServer constructs a read API server around the supplied engine. The
// recorder and limiter may be nil, disabling the event log and rate limiting.
func NewServer(engine *vault.Engine, recorder *events.Recorder, limiter *RateLimiter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: engine, events: recorder, limiter: limiter, log: logger}
}

// Router assembles the chi routing tree for the read API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/vault", func(vr chi.Router) {
		if s.limiter != nil {
			vr.Use(s.limiter.Middleware("vault"))
		}
		vr.Use(instrument)

		vr.Get("/", s.handleStatus)
		vr.Get("/params", s.handleParams)
		vr.Get("/pool", s.handlePool)
		vr.Get("/distribution", s.handleDistribution)
		vr.Get("/buffer", s.handleBuffer)
		vr.Get("/orders", s.handleListOrders)
		vr.Get("/orders/{id}", s.handleGetOrder)
		vr.Get("/events", s.handleEvents)
		vr.Get("/convert/shares", s.handleConvertToShares)
		vr.Get("/convert/assets", s.handleConvertToAssets)
		vr.Get("/preview/deposit", s.handlePreviewDeposit)
		vr.Get("/preview/mint", s.handlePreviewMint)
		vr.Get("/preview/withdraw", s.handlePreviewWithdraw)
		vr.Get("/preview/redeem", s.handlePreviewRedeem)
	})

	return r
}

type statusResponse struct {
	Issuer issuerJSON `json:"issuer"`
	Book   bookJSON   `json:"book"`
}

type issuerJSON struct {
	TotalShares    string `json:"totalShares"`
	IssuedShares   string `json:"issuedShares"`
	RedeemedShares string `json:"redeemedShares"`
}

type bookJSON struct {
	NextOrderID      uint64 `json:"nextOrderId"`
	PendingOrders    uint64 `json:"pendingOrders"`
	PendingShares    string `json:"pendingShares"`
	UnfinalizedValue string `json:"unfinalizedValue"`
}

type poolJSON struct {
	PoolSize          string `json:"poolSize"`
	DailyYieldRatePpm uint64 `json:"dailyYieldRatePpm"`
	LastUpdate        int64  `json:"lastUpdate"`
	TotalAssets       string `json:"totalAssets,omitempty"`
}

type distributionJSON struct {
	Amount     string `json:"amount"`
	Period     int64  `json:"periodSeconds"`
	StartTime  int64  `json:"startTime"`
	InProgress bool   `json:"inProgress"`
}

type orderJSON struct {
	ID         uint64 `json:"id"`
	Owner      string `json:"owner"`
	Receiver   string `json:"receiver"`
	Controller string `json:"controller"`
	Shares     string `json:"shares"`
	AssetValue string `json:"assetValue,omitempty"`
	FeePpm     int64  `json:"feePpm"`
	CreatedAt  int64  `json:"createdAt"`
	DueTime    int64  `json:"dueTime"`
	Status     string `json:"status"`
}

type orderListResponse struct {
	Orders     []orderJSON `json:"orders"`
	NextCursor uint64      `json:"nextCursor,omitempty"`
}

type eventJSON struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type amountResponse struct {
	Amount string `json:"amount"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	issuer, err := s.engine.IssuerSnapshot()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	book, err := s.engine.BookSnapshot()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Issuer: issuerJSON{
			TotalShares:    bigString(issuer.TotalShares),
			IssuedShares:   bigString(issuer.IssuedShares),
			RedeemedShares: bigString(issuer.RedeemedShares),
		},
		Book: bookJSON{
			NextOrderID:      book.NextOrderID,
			PendingOrders:    book.PendingOrders,
			PendingShares:    bigString(book.PendingShares),
			UnfinalizedValue: bigString(book.UnfinalizedValue),
		},
	})
}

func (s *Server) handleParams(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Params())
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	pool, err := s.engine.PoolSnapshot()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := poolJSON{
		PoolSize:          bigString(pool.PoolSize),
		DailyYieldRatePpm: pool.DailyYieldRatePpm,
		LastUpdate:        pool.LastUpdate,
	}
	if total, err := s.engine.TotalAssets(); err == nil {
		resp.TotalAssets = bigString(total)
	} else if !errors.Is(err, vault.ErrPoolNotEnabled) {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	dist, err := s.engine.DistributionSnapshot()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now := time.Now().Unix()
	writeJSON(w, http.StatusOK, distributionJSON{
		Amount:     bigString(dist.Amount),
		Period:     dist.Period,
		StartTime:  dist.StartTime,
		InProgress: dist.InProgress(now),
	})
}

func (s *Server) handleBuffer(w http.ResponseWriter, r *http.Request) {
	buffer, err := s.engine.LiquidityBuffer()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: bigString(buffer)})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := s.engine.GetOrder(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderToJSON(order))
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	cursor := uint64(0)
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		cursor = parsed
	}
	limit := defaultOrderPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	orders, next, err := s.engine.ListOrders(cursor, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := orderListResponse{Orders: make([]orderJSON, 0, len(orders)), NextCursor: next}
	for _, order := range orders {
		resp.Orders = append(resp.Orders, orderToJSON(order))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeJSON(w, http.StatusOK, []eventJSON{})
		return
	}
	recorded := s.events.Events()
	out := make([]eventJSON, 0, len(recorded))
	for _, evt := range recorded {
		entry := eventJSON{Type: evt.EventType()}
		if carrier, ok := evt.(interface{ Event() *types.Event }); ok {
			if inner := carrier.Event(); inner != nil {
				entry.Attributes = inner.Attributes
			}
		}
		out = append(out, entry)
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			httpError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if limit < len(out) {
			out = out[len(out)-limit:]
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleConvertToShares(w http.ResponseWriter, r *http.Request) {
	s.answerAmount(w, r, "assets", s.engine.ConvertToShares)
}

func (s *Server) handleConvertToAssets(w http.ResponseWriter, r *http.Request) {
	s.answerAmount(w, r, "shares", s.engine.ConvertToAssets)
}

func (s *Server) handlePreviewDeposit(w http.ResponseWriter, r *http.Request) {
	s.answerAmount(w, r, "assets", s.engine.PreviewDeposit)
}

func (s *Server) handlePreviewMint(w http.ResponseWriter, r *http.Request) {
	s.answerAmount(w, r, "shares", s.engine.PreviewMint)
}

func (s *Server) handlePreviewWithdraw(w http.ResponseWriter, r *http.Request) {
	s.answerAmount(w, r, "assets", s.engine.PreviewWithdraw)
}

func (s *Server) handlePreviewRedeem(w http.ResponseWriter, r *http.Request) {
	s.answerAmount(w, r, "shares", s.engine.PreviewRedeem)
}

func (s *Server) answerAmount(w http.ResponseWriter, r *http.Request, param string, fn func(*big.Int) (*big.Int, error)) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		httpError(w, http.StatusBadRequest, "missing "+param)
		return
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		httpError(w, http.StatusBadRequest, "invalid "+param)
		return
	}
	result, err := fn(amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: bigString(result)})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, vault.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, vault.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, vault.ErrPoolNotEnabled):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.log.Error("read api failure", "path", r.URL.Path, "err", err)
	}
	httpError(w, status, err.Error())
}

func orderToJSON(order *vault.RedeemOrder) orderJSON {
	return orderJSON{
		ID:         order.ID,
		Owner:      hexAddr(order.Owner),
		Receiver:   hexAddr(order.Receiver),
		Controller: hexAddr(order.Controller),
		Shares:     bigString(order.Shares),
		AssetValue: bigString(order.AssetValue),
		FeePpm:     order.FeePpm,
		CreatedAt:  order.CreatedAt,
		DueTime:    order.DueTime,
		Status:     order.Status.String(),
	}
}

// instrument records request counts and latency per matched route.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		observability.HTTP().Observe(route, recorder.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func httpError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
