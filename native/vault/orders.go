package vault

import (
	"math/big"

	nativecommon "vaultcore/native/common"
)

// CreateOrder escrows the owner's shares into the book and appends a pending
// redemption order. The current order fee rate is snapshotted onto the order
// so a later fee change cannot reprice it.
func (e *Engine) CreateOrder(caller, receiver, owner [20]byte, shares *big.Int) (*RedeemOrder, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if receiver == ([20]byte{}) {
		return nil, errZeroReceiver
	}
	if shares == nil || shares.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	if caller != owner {
		return nil, errNotOwner
	}
	if e.params.MinOrderShares != nil && shares.Cmp(e.params.MinOrderShares) < 0 {
		return nil, errUnderMinimum
	}
	ownerAcc, err := e.loadAccount(owner)
	if err != nil {
		return nil, err
	}
	if ownerAcc.BalanceShares.Cmp(shares) < 0 {
		return nil, errExceedsBalance
	}
	book, err := e.ensureBook()
	if err != nil {
		return nil, err
	}
	now := e.now()
	order := &RedeemOrder{
		ID:         book.NextOrderID,
		Owner:      owner,
		Receiver:   receiver,
		Controller: caller,
		Shares:     new(big.Int).Set(shares),
		AssetValue: big.NewInt(0),
		FeePpm:     e.params.OrderFeePpm,
		CreatedAt:  now,
		DueTime:    now + e.params.FillWindowSeconds,
		Status:     OrderPending,
	}
	if err := e.transferShares(owner, e.vaultAddr, shares); err != nil {
		return nil, err
	}
	book.NextOrderID++
	book.PendingOrders++
	book.PendingShares = new(big.Int).Add(book.PendingShares, shares)
	if err := e.state.OrderPut(order); err != nil {
		return nil, err
	}
	if err := e.state.BookPut(book); err != nil {
		return nil, err
	}
	e.telemetry.CountOperation("create_order", nil)
	e.telemetry.RecordBook(book.PendingOrders, book.PendingShares)
	e.emit(NewOrderCreatedEvent(order))
	return order.Clone(), nil
}

// FillOrder settles a pending order against the caller, who must hold the
// filler capability. The settlement value is computed with the order's locked
// fee rate against the redemption valuation. In the filler settlement mode
// the asset moves in from the filler now and is paid out at finalize; in the
// buffer mode fill and finalize fuse into a single step paid from the vault's
// own buffer.
func (e *Engine) FillOrder(caller [20]byte, orderID uint64) (*RedeemOrder, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := nativecommon.Authorize(e.auth, nativecommon.CapabilityFiller, caller); err != nil {
		return nil, err
	}
	order, err := e.loadOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != OrderPending {
		return nil, &OrderStateError{OrderID: orderID, Status: order.Status, Want: OrderPending}
	}
	value, err := e.previewRedeemLocked(order.Shares, order.FeePpm)
	if err != nil {
		return nil, err
	}
	issuer, err := e.ensureIssuer()
	if err != nil {
		return nil, err
	}
	book, err := e.ensureBook()
	if err != nil {
		return nil, err
	}
	if e.params.Settlement == SettlementBuffer {
		// Single-phase: the vault's own buffer pays the receiver directly.
		if err := e.ensureBufferCovers(value); err != nil {
			return nil, err
		}
		if err := e.burnShares(e.vaultAddr, order.Shares, issuer); err != nil {
			return nil, err
		}
		if err := e.transferAsset(e.vaultAddr, order.Receiver, value); err != nil {
			return nil, err
		}
		order.Status = OrderFinalized
	} else {
		// Two-phase: pull the settlement asset from the filler and hold it
		// reserved until finalize.
		if err := e.burnShares(e.vaultAddr, order.Shares, issuer); err != nil {
			return nil, err
		}
		if err := e.transferAsset(caller, e.vaultAddr, value); err != nil {
			return nil, err
		}
		book.UnfinalizedValue = new(big.Int).Add(book.UnfinalizedValue, value)
		order.Status = OrderFilled
	}
	order.AssetValue = new(big.Int).Set(value)
	book.PendingOrders--
	book.PendingShares = new(big.Int).Sub(book.PendingShares, order.Shares)
	if err := e.state.OrderPut(order); err != nil {
		return nil, err
	}
	if err := e.state.BookPut(book); err != nil {
		return nil, err
	}
	if err := e.state.IssuerPut(issuer); err != nil {
		return nil, err
	}
	e.telemetry.CountOperation("fill_order", nil)
	e.telemetry.RecordBook(book.PendingOrders, book.PendingShares)
	e.telemetry.RecordSupply(issuer.TotalShares)
	if order.Status == OrderFinalized {
		e.emit(NewOrderEvent(EventTypeOrderFilled, order))
		e.emit(NewOrderEvent(EventTypeOrderFinalized, order))
	} else {
		e.emit(NewOrderEvent(EventTypeOrderFilled, order))
	}
	return order.Clone(), nil
}

// FinalizeOrder pays the settled asset value of a filled order to its
// receiver. Only the order's owner or controller may finalize.
func (e *Engine) FinalizeOrder(caller [20]byte, orderID uint64) (*RedeemOrder, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	order, err := e.loadOrder(orderID)
	if err != nil {
		return nil, err
	}
	if caller != order.Owner && caller != order.Controller {
		return nil, errNotOwner
	}
	if order.Status != OrderFilled {
		return nil, &OrderStateError{OrderID: orderID, Status: order.Status, Want: OrderFilled}
	}
	book, err := e.ensureBook()
	if err != nil {
		return nil, err
	}
	if err := e.transferAsset(e.vaultAddr, order.Receiver, order.AssetValue); err != nil {
		return nil, err
	}
	book.UnfinalizedValue = new(big.Int).Sub(book.UnfinalizedValue, order.AssetValue)
	if book.UnfinalizedValue.Sign() < 0 {
		book.UnfinalizedValue = big.NewInt(0)
	}
	order.Status = OrderFinalized
	if err := e.state.OrderPut(order); err != nil {
		return nil, err
	}
	if err := e.state.BookPut(book); err != nil {
		return nil, err
	}
	e.telemetry.CountOperation("finalize_order", nil)
	e.emit(NewOrderEvent(EventTypeOrderFinalized, order))
	return order.Clone(), nil
}

// CancelOrder returns a pending order's escrowed shares to its owner. The
// owner or controller may cancel once the fill window has elapsed; a caller
// with the filler capability may cancel at any time.
func (e *Engine) CancelOrder(caller [20]byte, orderID uint64) (*RedeemOrder, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	order, err := e.loadOrder(orderID)
	if err != nil {
		return nil, err
	}
	isFiller := e.auth != nil && e.auth.Allowed(nativecommon.CapabilityFiller, caller)
	if !isFiller && caller != order.Owner && caller != order.Controller {
		return nil, errNotOwner
	}
	if order.Status != OrderPending {
		return nil, &OrderStateError{OrderID: orderID, Status: order.Status, Want: OrderPending}
	}
	now := e.now()
	if !isFiller && now < order.DueTime {
		return nil, &OrderNotDueError{OrderID: orderID, Now: now, DueTime: order.DueTime}
	}
	book, err := e.ensureBook()
	if err != nil {
		return nil, err
	}
	if err := e.transferShares(e.vaultAddr, order.Owner, order.Shares); err != nil {
		return nil, err
	}
	order.Status = OrderCancelled
	book.PendingOrders--
	book.PendingShares = new(big.Int).Sub(book.PendingShares, order.Shares)
	if err := e.state.OrderPut(order); err != nil {
		return nil, err
	}
	if err := e.state.BookPut(book); err != nil {
		return nil, err
	}
	e.telemetry.CountOperation("cancel_order", nil)
	e.telemetry.RecordBook(book.PendingOrders, book.PendingShares)
	e.emit(NewOrderEvent(EventTypeOrderCancelled, order))
	return order.Clone(), nil
}

// GetOrder returns a copy of the order with the given identifier.
func (e *Engine) GetOrder(orderID uint64) (*RedeemOrder, error) {
	order, err := e.loadOrder(orderID)
	if err != nil {
		return nil, err
	}
	return order.Clone(), nil
}

// PendingOrderCount reports the number of orders currently pending.
func (e *Engine) PendingOrderCount() (uint64, error) {
	book, err := e.ensureBook()
	if err != nil {
		return 0, err
	}
	return book.PendingOrders, nil
}

// BookSnapshot returns a copy of the aggregate order-book accounting.
func (e *Engine) BookSnapshot() (*BookState, error) {
	book, err := e.ensureBook()
	if err != nil {
		return nil, err
	}
	return book.Clone(), nil
}

// IssuerSnapshot returns a copy of the aggregate issuance accounting.
func (e *Engine) IssuerSnapshot() (*IssuerState, error) {
	issuer, err := e.ensureIssuer()
	if err != nil {
		return nil, err
	}
	return issuer.Clone(), nil
}

// ListOrders returns up to limit orders starting after the cursor identifier,
// in creation order, together with the cursor for the next page. A zero
// cursor starts from the first order.
func (e *Engine) ListOrders(cursor uint64, limit int) ([]*RedeemOrder, uint64, error) {
	if e == nil || e.state == nil {
		return nil, 0, errNilState
	}
	if limit <= 0 {
		limit = 50
	}
	book, err := e.ensureBook()
	if err != nil {
		return nil, 0, err
	}
	orders := make([]*RedeemOrder, 0, limit)
	next := uint64(0)
	for id := cursor + 1; id < book.NextOrderID && len(orders) < limit; id++ {
		order, ok, err := e.state.OrderGet(id)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			continue
		}
		orders = append(orders, order.Clone())
		next = id
	}
	if next == 0 || next >= book.NextOrderID-1 {
		next = 0
	}
	return orders, next, nil
}

func (e *Engine) loadOrder(orderID uint64) (*RedeemOrder, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	order, ok, err := e.state.OrderGet(orderID)
	if err != nil {
		return nil, err
	}
	if !ok || order == nil {
		return nil, errOrderNotFound
	}
	if order.Shares == nil {
		order.Shares = big.NewInt(0)
	}
	if order.AssetValue == nil {
		order.AssetValue = big.NewInt(0)
	}
	return order, nil
}
