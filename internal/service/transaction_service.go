package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/dto"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/infra"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// TxState is the explicit state of one in-flight sale transaction.
// The pipeline is linear with a single failure exit from any
// non-terminal state:
//
//	Idle → GeneratingDocument → SigningDocument → CreatingCharge →
//	AwaitingPayment → Confirmed
type TxState string

const (
	TxIdle               TxState = "idle"
	TxGeneratingDocument TxState = "generating_document"
	TxSigningDocument    TxState = "signing_document"
	TxCreatingCharge     TxState = "creating_charge"
	TxAwaitingPayment    TxState = "awaiting_payment"
	TxConfirmed          TxState = "confirmed"
	TxFailed             TxState = "failed"
)

// Terminal reports whether no further transition is possible.
func (s TxState) Terminal() bool { return s == TxConfirmed || s == TxFailed }

// FiscalDocumentService builds and signs the NFC-e. Implemented by the
// fiscal sidecar client; the core never inspects the XML.
type FiscalDocumentService interface {
	GenerateDocument(ctx context.Context, items []model.SaleItem, subtotal, discountTotal, total decimal.Decimal) (*infra.UnsignedDocument, error)
	SignDocument(ctx context.Context, doc *infra.UnsignedDocument) (*infra.SignedDocument, error)
}

// PaymentProvider creates charges and delivers payment confirmations.
// Subscribe returns a cancellation handle that must be invoked exactly
// once per transaction, on every exit path.
type PaymentProvider interface {
	CreateCharge(ctx context.Context, amount decimal.Decimal) (*infra.PixCharge, error)
	Subscribe(transactionID string, onConfirmed func(infra.PixConfirmation)) func()
}

// TxSnapshot is the externally visible view of a transaction.
type TxSnapshot struct {
	ID     uuid.UUID
	State  TxState
	Charge *infra.PixCharge
	SaleID *uuid.UUID
	Err    error
}

// transaction is the orchestrator's internal record of one sale pipeline.
type transaction struct {
	id uuid.UUID

	mu           sync.Mutex
	state        TxState
	failErr      error
	charge       *infra.PixCharge
	saleID       *uuid.UUID
	subs         []func(TxSnapshot)
	cancelled    bool
	userCancel   chan struct{}
	listenerStop func()
	listenerOnce sync.Once
}

// cancelListener invokes the payment listener's cancellation handle.
// Guarded so that confirmation, provider failure and user cancellation
// paths cannot double-fire it.
func (t *transaction) cancelListener() {
	t.listenerOnce.Do(func() {
		if t.listenerStop != nil {
			t.listenerStop()
		}
	})
}

func (t *transaction) snapshotLocked() TxSnapshot {
	return TxSnapshot{ID: t.id, State: t.state, Charge: t.charge, SaleID: t.saleID, Err: t.failErr}
}

// txRetention is how long a terminal transaction stays readable for late
// Get/SSE requests before it is evicted from the in-memory table.
const txRetention = 5 * time.Minute

// TransactionService sequences the side-effecting steps of turning a cart
// into a confirmed, paid sale. Each transaction runs as one sequential
// goroutine; multiple transactions may be in flight concurrently.
type TransactionService struct {
	fiscal   FiscalDocumentService
	payments PaymentProvider
	ledger   *Ledger
	queue    *SyncQueue

	retention time.Duration

	mu  sync.Mutex
	txs map[uuid.UUID]*transaction
}

func NewTransactionService(fiscal FiscalDocumentService, payments PaymentProvider, ledger *Ledger, queue *SyncQueue) *TransactionService {
	return &TransactionService{
		fiscal:    fiscal,
		payments:  payments,
		ledger:    ledger,
		queue:     queue,
		retention: txRetention,
		txs:       make(map[uuid.UUID]*transaction),
	}
}

// evictLater drops a terminal transaction from the table once its
// retention window expires, keeping the table bounded over a register's
// uptime.
func (s *TransactionService) evictLater(id uuid.UUID) {
	time.AfterFunc(s.retention, func() {
		s.mu.Lock()
		delete(s.txs, id)
		s.mu.Unlock()
	})
}

// resolvedCart carries the validated cart through the pipeline.
type resolvedCart struct {
	items         []model.SaleItem
	payments      []model.SalePayment
	subtotal      decimal.Decimal
	discountTotal decimal.Decimal
	total         decimal.Decimal
	changeGiven   decimal.Decimal
	customerID    *uuid.UUID
}

// Begin validates the cart, registers a transaction in Idle and launches
// its pipeline. The payment invariant sum(payments) - change == total is
// rejected up front — nothing downstream re-checks it.
func (s *TransactionService) Begin(ctx context.Context, req dto.BeginTransactionRequest) (uuid.UUID, error) {
	cart, err := resolveCart(req)
	if err != nil {
		return uuid.Nil, err
	}

	tx := &transaction{
		id:         uuid.New(),
		state:      TxIdle,
		userCancel: make(chan struct{}),
	}

	s.mu.Lock()
	s.txs[tx.id] = tx
	s.mu.Unlock()

	log.Info().
		Str("transaction_id", tx.id.String()).
		Str("total", cart.total.StringFixed(2)).
		Int("items", len(cart.items)).
		Msg("transaction: started")

	// The pipeline outlives the HTTP request that started it: keep the
	// caller's values but not its cancellation, otherwise writing the 202
	// response would abort the sale mid-flight.
	go s.run(context.WithoutCancel(ctx), tx, cart)
	return tx.id, nil
}

// run drives the pipeline for one transaction. No parallelism inside a
// single sale — each step completes (or fails) before the next starts.
func (s *TransactionService) run(ctx context.Context, tx *transaction, cart resolvedCart) {
	if !s.advance(tx, TxGeneratingDocument) {
		return
	}
	doc, err := s.fiscal.GenerateDocument(ctx, cart.items, cart.subtotal, cart.discountTotal, cart.total)
	if err != nil {
		s.fail(tx, err)
		return
	}

	if !s.advance(tx, TxSigningDocument) {
		return
	}
	signed, err := s.fiscal.SignDocument(ctx, doc)
	if err != nil {
		// the partially signed document is dropped here — nothing
		// downstream ever references it
		s.fail(tx, err)
		return
	}

	if !s.advance(tx, TxCreatingCharge) {
		return
	}
	charge, err := s.payments.CreateCharge(ctx, cart.total)
	if err != nil {
		s.fail(tx, fmt.Errorf("%w: %v", ErrChargeCreationFailed, err))
		return
	}

	confirmed := make(chan infra.PixConfirmation, 1)
	stop := s.payments.Subscribe(charge.TransactionID, func(conf infra.PixConfirmation) {
		select {
		case confirmed <- conf:
		default:
		}
	})

	tx.mu.Lock()
	tx.charge = charge
	tx.listenerStop = stop
	tx.mu.Unlock()

	if !s.advance(tx, TxAwaitingPayment) {
		return
	}

	select {
	case <-confirmed:
		s.confirm(ctx, tx, cart, signed)
	case <-tx.userCancel:
		s.fail(tx, ErrUserCancelled)
	case <-ctx.Done():
		s.fail(tx, ctx.Err())
	}
}

// confirm enters the terminal Confirmed state: builds the immutable
// SaleRecord, posts it to the ledger and the sync queue, and releases the
// payment listener.
func (s *TransactionService) confirm(ctx context.Context, tx *transaction, cart resolvedCart, signed *infra.SignedDocument) {
	sale := &model.SaleRecord{
		ID:             uuid.New(),
		Subtotal:       cart.subtotal,
		DiscountTotal:  cart.discountTotal,
		Total:          cart.total,
		ChangeGiven:    cart.changeGiven,
		FiscalDocument: signed.XML,
		CustomerID:     cart.customerID,
		CreatedAt:      time.Now().UTC(),
		Items:          cart.items,
		Payments:       cart.payments,
	}

	if _, err := s.ledger.AddSale(ctx, sale); err != nil {
		s.fail(tx, err)
		return
	}
	if err := s.queue.Record(ctx, sale); err != nil {
		// the sale is already in the ledger; losing the queue append
		// would silently drop the remote copy, so this is a failure the
		// operator must see
		log.Error().Err(err).Str("sale_id", sale.ID.String()).Msg("transaction: queue append failed after ledger post")
	}

	tx.cancelListener()

	tx.mu.Lock()
	tx.state = TxConfirmed
	tx.saleID = &sale.ID
	snap := tx.snapshotLocked()
	subs := append([]func(TxSnapshot){}, tx.subs...)
	tx.mu.Unlock()
	notify(subs, snap)
	s.evictLater(tx.id)

	log.Info().
		Str("transaction_id", tx.id.String()).
		Str("sale_id", sale.ID.String()).
		Msg("transaction: confirmed")

	// best-effort immediate replay; the cron picks it up otherwise
	go func() {
		if err := s.queue.Flush(context.Background(), true); err != nil {
			log.Warn().Err(err).Msg("transaction: post-sale flush failed")
		}
	}()
}

// advance moves the transaction to next unless it was cancelled while in
// the previous step, in which case it fails with ErrUserCancelled and
// reports false.
func (s *TransactionService) advance(tx *transaction, next TxState) bool {
	tx.mu.Lock()
	if tx.cancelled {
		tx.mu.Unlock()
		s.fail(tx, ErrUserCancelled)
		return false
	}
	tx.state = next
	snap := tx.snapshotLocked()
	subs := append([]func(TxSnapshot){}, tx.subs...)
	tx.mu.Unlock()

	notify(subs, snap)
	return true
}

// fail is the single failure exit: releases the listener, discards
// partial artifacts and surfaces the reason. Ledger and queue are never
// touched on this path.
func (s *TransactionService) fail(tx *transaction, reason error) {
	tx.cancelListener()

	tx.mu.Lock()
	if tx.state.Terminal() {
		tx.mu.Unlock()
		return
	}
	tx.state = TxFailed
	tx.failErr = reason
	snap := tx.snapshotLocked()
	subs := append([]func(TxSnapshot){}, tx.subs...)
	tx.mu.Unlock()

	notify(subs, snap)
	s.evictLater(tx.id)

	log.Warn().
		Str("transaction_id", tx.id.String()).
		Err(reason).
		Msg("transaction: failed")
}

// Cancel is the user-initiated exit. While AwaitingPayment it unblocks
// the pipeline immediately; in earlier states the pipeline observes the
// flag at the next step boundary. Terminal transactions cannot be
// cancelled.
func (s *TransactionService) Cancel(id uuid.UUID) error {
	tx, err := s.get(id)
	if err != nil {
		return err
	}

	tx.mu.Lock()
	if tx.state.Terminal() {
		tx.mu.Unlock()
		return fmt.Errorf("transação já finalizada (%s)", tx.state)
	}
	if !tx.cancelled {
		tx.cancelled = true
		close(tx.userCancel)
	}
	tx.mu.Unlock()
	return nil
}

// Subscribe registers fn for state changes and immediately delivers the
// current state so late subscribers do not miss a terminal transition.
func (s *TransactionService) Subscribe(id uuid.UUID, fn func(TxSnapshot)) error {
	tx, err := s.get(id)
	if err != nil {
		return err
	}

	tx.mu.Lock()
	tx.subs = append(tx.subs, fn)
	snap := tx.snapshotLocked()
	tx.mu.Unlock()

	fn(snap)
	return nil
}

// Get returns the current snapshot of a transaction.
func (s *TransactionService) Get(id uuid.UUID) (TxSnapshot, error) {
	tx, err := s.get(id)
	if err != nil {
		return TxSnapshot{}, err
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.snapshotLocked(), nil
}

func (s *TransactionService) get(id uuid.UUID) (*transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return tx, nil
}

func notify(subs []func(TxSnapshot), snap TxSnapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}

// resolveCart validates the request and freezes cart lines and tender
// into sale children. Monetary arithmetic is decimal end to end.
func resolveCart(req dto.BeginTransactionRequest) (resolvedCart, error) {
	var cart resolvedCart
	cart.subtotal = decimal.Zero
	cart.discountTotal = decimal.Zero

	if len(req.Items) == 0 {
		return cart, fmt.Errorf("%w: carrinho vazio", ErrInvalidCart)
	}

	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return cart, fmt.Errorf("%w: quantidade inválida para %s", ErrInvalidCart, item.ProductID)
		}
		if item.Discount.IsNegative() {
			return cart, fmt.Errorf("%w: desconto negativo para %s", ErrInvalidCart, item.ProductID)
		}
		gross := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		line := gross.Sub(item.Discount)
		if line.IsNegative() {
			return cart, fmt.Errorf("%w: desconto maior que o item %s", ErrInvalidCart, item.ProductID)
		}
		cart.subtotal = cart.subtotal.Add(gross)
		cart.discountTotal = cart.discountTotal.Add(item.Discount)
		cart.items = append(cart.items, model.SaleItem{
			ID:           uuid.New(),
			ProductID:    item.ProductID,
			UnitPrice:    item.UnitPrice,
			Quantity:     item.Quantity,
			ItemDiscount: item.Discount,
			LineSubtotal: line,
		})
	}
	cart.total = cart.subtotal.Sub(cart.discountTotal)

	paid := decimal.Zero
	for i, p := range req.Payments {
		method := model.PaymentMethod(p.Method)
		if !method.Valid() {
			return cart, fmt.Errorf("%w: forma de pagamento desconhecida %q", ErrInvalidCart, p.Method)
		}
		if !p.Amount.IsPositive() {
			return cart, fmt.Errorf("%w: pagamento com valor não positivo", ErrInvalidCart)
		}
		paid = paid.Add(p.Amount)
		cart.payments = append(cart.payments, model.SalePayment{
			ID:     uuid.New(),
			Seq:    i,
			Method: method,
			Amount: p.Amount,
		})
	}

	cart.changeGiven = req.ChangeGiven
	if cart.changeGiven.IsNegative() {
		return cart, fmt.Errorf("%w: troco negativo", ErrInvalidCart)
	}
	if !paid.Sub(cart.changeGiven).Equal(cart.total) {
		return cart, fmt.Errorf("%w: pagamentos (%s) menos troco (%s) difere do total (%s)",
			ErrInvalidCart, paid.StringFixed(2), cart.changeGiven.StringFixed(2), cart.total.StringFixed(2))
	}

	if req.CustomerID != nil && *req.CustomerID != "" {
		cid, err := uuid.Parse(*req.CustomerID)
		if err != nil {
			return cart, fmt.Errorf("%w: customer_id inválido", ErrInvalidCart)
		}
		cart.customerID = &cid
	}

	return cart, nil
}
