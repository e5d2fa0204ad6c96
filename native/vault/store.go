package vault

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/rlp"

	"vaultcore/core/types"
	"vaultcore/storage"
)

// Key prefixes are namespaced per logical component so fields can be appended
// to one record without perturbing the layout of its siblings.
var (
	accountPrefix      = []byte("vault/account/")
	issuerStateKey     = []byte("vault/issuer/state")
	bookStateKey       = []byte("vault/book/state")
	orderPrefix        = []byte("vault/book/order/")
	poolStateKey       = []byte("vault/pool/state")
	distributionKey    = []byte("vault/pool/distribution")
	periodBucketPrefix = []byte("vault/period/")
)

// Store persists the engine state as RLP records over a key-value database.
type Store struct {
	db storage.Database
}

// NewStore constructs a store bound to the provided database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

type storedAccount struct {
	Nonce         uint64
	BalanceAsset  string
	BalanceShares string
}

type storedIssuer struct {
	TotalShares    string
	IssuedShares   string
	RedeemedShares string
}

type storedBook struct {
	NextOrderID      uint64
	PendingOrders    uint64
	PendingShares    string
	UnfinalizedValue string
}

type storedOrder struct {
	ID         uint64
	Owner      [20]byte
	Receiver   [20]byte
	Controller [20]byte
	Shares     string
	AssetValue string
	FeePpm     string
	CreatedAt  uint64
	DueTime    uint64
	Status     uint8
}

type storedPool struct {
	PoolSize          string
	DailyYieldRatePpm uint64
	LastUpdate        uint64
}

type storedDistribution struct {
	Amount    string
	Period    uint64
	StartTime uint64
}

type storedAmount struct {
	Amount string
}

func (s *Store) put(key []byte, record interface{}) error {
	encoded, err := rlp.EncodeToBytes(record)
	if err != nil {
		return err
	}
	return s.db.Put(key, encoded)
}

func (s *Store) get(key []byte, record interface{}) (bool, error) {
	raw, ok, err := s.db.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, record); err != nil {
		return false, err
	}
	return true, nil
}

// GetAccount implements engineState.
func (s *Store) GetAccount(addr [20]byte) (*types.Account, error) {
	var stored storedAccount
	ok, err := s.get(accountKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	asset, err := parseStoredBig(stored.BalanceAsset)
	if err != nil {
		return nil, fmt.Errorf("vault store: account asset balance: %w", err)
	}
	shares, err := parseStoredBig(stored.BalanceShares)
	if err != nil {
		return nil, fmt.Errorf("vault store: account share balance: %w", err)
	}
	return &types.Account{Nonce: stored.Nonce, BalanceAsset: asset, BalanceShares: shares}, nil
}

// PutAccount implements engineState.
func (s *Store) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("vault store: nil account")
	}
	stored := storedAccount{
		Nonce:         account.Nonce,
		BalanceAsset:  bigToStored(account.BalanceAsset),
		BalanceShares: bigToStored(account.BalanceShares),
	}
	return s.put(accountKey(addr), stored)
}

// IssuerGet implements engineState.
func (s *Store) IssuerGet() (*IssuerState, error) {
	var stored storedIssuer
	ok, err := s.get(issuerStateKey, &stored)
	if err != nil || !ok {
		return nil, err
	}
	total, err := parseStoredBig(stored.TotalShares)
	if err != nil {
		return nil, err
	}
	issued, err := parseStoredBig(stored.IssuedShares)
	if err != nil {
		return nil, err
	}
	redeemed, err := parseStoredBig(stored.RedeemedShares)
	if err != nil {
		return nil, err
	}
	return &IssuerState{TotalShares: total, IssuedShares: issued, RedeemedShares: redeemed}, nil
}

// IssuerPut implements engineState.
func (s *Store) IssuerPut(issuer *IssuerState) error {
	if issuer == nil {
		return fmt.Errorf("vault store: nil issuer state")
	}
	return s.put(issuerStateKey, storedIssuer{
		TotalShares:    bigToStored(issuer.TotalShares),
		IssuedShares:   bigToStored(issuer.IssuedShares),
		RedeemedShares: bigToStored(issuer.RedeemedShares),
	})
}

// BookGet implements engineState.
func (s *Store) BookGet() (*BookState, error) {
	var stored storedBook
	ok, err := s.get(bookStateKey, &stored)
	if err != nil || !ok {
		return nil, err
	}
	pending, err := parseStoredBig(stored.PendingShares)
	if err != nil {
		return nil, err
	}
	unfinalized, err := parseStoredBig(stored.UnfinalizedValue)
	if err != nil {
		return nil, err
	}
	return &BookState{
		NextOrderID:      stored.NextOrderID,
		PendingOrders:    stored.PendingOrders,
		PendingShares:    pending,
		UnfinalizedValue: unfinalized,
	}, nil
}

// BookPut implements engineState.
func (s *Store) BookPut(book *BookState) error {
	if book == nil {
		return fmt.Errorf("vault store: nil book state")
	}
	return s.put(bookStateKey, storedBook{
		NextOrderID:      book.NextOrderID,
		PendingOrders:    book.PendingOrders,
		PendingShares:    bigToStored(book.PendingShares),
		UnfinalizedValue: bigToStored(book.UnfinalizedValue),
	})
}

// OrderGet implements engineState.
func (s *Store) OrderGet(id uint64) (*RedeemOrder, bool, error) {
	var stored storedOrder
	ok, err := s.get(orderKey(id), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	order, err := orderFromStored(&stored)
	if err != nil {
		return nil, false, err
	}
	return order, true, nil
}

// OrderPut implements engineState.
func (s *Store) OrderPut(order *RedeemOrder) error {
	if order == nil {
		return fmt.Errorf("vault store: nil order")
	}
	stored := storedOrder{
		ID:         order.ID,
		Owner:      order.Owner,
		Receiver:   order.Receiver,
		Controller: order.Controller,
		Shares:     bigToStored(order.Shares),
		AssetValue: bigToStored(order.AssetValue),
		FeePpm:     strconv.FormatInt(order.FeePpm, 10),
		Status:     uint8(order.Status),
	}
	if order.CreatedAt > 0 {
		stored.CreatedAt = uint64(order.CreatedAt)
	}
	if order.DueTime > 0 {
		stored.DueTime = uint64(order.DueTime)
	}
	return s.put(orderKey(order.ID), stored)
}

// PoolGet implements engineState.
func (s *Store) PoolGet() (*PoolState, error) {
	var stored storedPool
	ok, err := s.get(poolStateKey, &stored)
	if err != nil || !ok {
		return nil, err
	}
	size, err := parseStoredBig(stored.PoolSize)
	if err != nil {
		return nil, err
	}
	last, err := uint64ToInt64(stored.LastUpdate)
	if err != nil {
		return nil, fmt.Errorf("vault store: pool lastUpdate overflow: %w", err)
	}
	return &PoolState{
		PoolSize:          size,
		DailyYieldRatePpm: stored.DailyYieldRatePpm,
		LastUpdate:        last,
	}, nil
}

// PoolPut implements engineState.
func (s *Store) PoolPut(pool *PoolState) error {
	if pool == nil {
		return fmt.Errorf("vault store: nil pool state")
	}
	stored := storedPool{
		PoolSize:          bigToStored(pool.PoolSize),
		DailyYieldRatePpm: pool.DailyYieldRatePpm,
	}
	if pool.LastUpdate > 0 {
		stored.LastUpdate = uint64(pool.LastUpdate)
	}
	return s.put(poolStateKey, stored)
}

// DistributionGet implements engineState.
func (s *Store) DistributionGet() (*DistributionState, error) {
	var stored storedDistribution
	ok, err := s.get(distributionKey, &stored)
	if err != nil || !ok {
		return nil, err
	}
	amount, err := parseStoredBig(stored.Amount)
	if err != nil {
		return nil, err
	}
	period, err := uint64ToInt64(stored.Period)
	if err != nil {
		return nil, fmt.Errorf("vault store: distribution period overflow: %w", err)
	}
	start, err := uint64ToInt64(stored.StartTime)
	if err != nil {
		return nil, fmt.Errorf("vault store: distribution start overflow: %w", err)
	}
	return &DistributionState{Amount: amount, Period: period, StartTime: start}, nil
}

// DistributionPut implements engineState.
func (s *Store) DistributionPut(dist *DistributionState) error {
	if dist == nil {
		return fmt.Errorf("vault store: nil distribution state")
	}
	stored := storedDistribution{Amount: bigToStored(dist.Amount)}
	if dist.Period > 0 {
		stored.Period = uint64(dist.Period)
	}
	if dist.StartTime > 0 {
		stored.StartTime = uint64(dist.StartTime)
	}
	return s.put(distributionKey, stored)
}

// PeriodUsage implements engineState.
func (s *Store) PeriodUsage(kind FlowKind, period uint64) (*big.Int, error) {
	var stored storedAmount
	ok, err := s.get(periodBucketKey(kind, period), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return parseStoredBig(stored.Amount)
}

// AddPeriodUsage implements engineState.
func (s *Store) AddPeriodUsage(kind FlowKind, period uint64, amount *big.Int) error {
	current, err := s.PeriodUsage(kind, period)
	if err != nil {
		return err
	}
	updated := new(big.Int).Add(current, amount)
	return s.put(periodBucketKey(kind, period), storedAmount{Amount: updated.String()})
}

func accountKey(addr [20]byte) []byte {
	buf := make([]byte, len(accountPrefix)+len(addr))
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr[:])
	return buf
}

func orderKey(id uint64) []byte {
	suffix := strconv.FormatUint(id, 10)
	buf := make([]byte, len(orderPrefix)+len(suffix))
	copy(buf, orderPrefix)
	copy(buf[len(orderPrefix):], suffix)
	return buf
}

func periodBucketKey(kind FlowKind, period uint64) []byte {
	suffix := string(kind) + "/" + strconv.FormatUint(period, 10)
	buf := make([]byte, len(periodBucketPrefix)+len(suffix))
	copy(buf, periodBucketPrefix)
	copy(buf[len(periodBucketPrefix):], suffix)
	return buf
}

func orderFromStored(stored *storedOrder) (*RedeemOrder, error) {
	if stored == nil {
		return nil, fmt.Errorf("vault store: nil stored order")
	}
	shares, err := parseStoredBig(stored.Shares)
	if err != nil {
		return nil, fmt.Errorf("vault store: order shares: %w", err)
	}
	value, err := parseStoredBig(stored.AssetValue)
	if err != nil {
		return nil, fmt.Errorf("vault store: order asset value: %w", err)
	}
	feePpm := int64(0)
	if stored.FeePpm != "" {
		feePpm, err = strconv.ParseInt(stored.FeePpm, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("vault store: order fee: %w", err)
		}
	}
	created, err := uint64ToInt64(stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("vault store: order createdAt overflow: %w", err)
	}
	due, err := uint64ToInt64(stored.DueTime)
	if err != nil {
		return nil, fmt.Errorf("vault store: order dueTime overflow: %w", err)
	}
	return &RedeemOrder{
		ID:         stored.ID,
		Owner:      stored.Owner,
		Receiver:   stored.Receiver,
		Controller: stored.Controller,
		Shares:     shares,
		AssetValue: value,
		FeePpm:     feePpm,
		CreatedAt:  created,
		DueTime:    due,
		Status:     OrderStatus(stored.Status),
	}, nil
}

func parseStoredBig(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}

func bigToStored(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func uint64ToInt64(v uint64) (int64, error) {
	if v > uint64(1)<<62 {
		return 0, fmt.Errorf("value %d exceeds int64 range", v)
	}
	return int64(v), nil
}
