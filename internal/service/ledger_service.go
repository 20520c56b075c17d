package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/model"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/repository"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// openingReason marks the synthetic inflow movement created at open.
const openingReason = "Abertura de caixa"

// Ledger owns the financial state of one register's active shift. It is
// the single owner of that state: every mutation runs under the mutex and
// completes its durable append before returning, so concurrent checkout
// completions cannot interleave partial updates.
//
// One Ledger per register; the register id is an explicit constructor
// argument, never ambient state, so tests can run several registers in
// one process.
type Ledger struct {
	mu         sync.Mutex
	registerID string
	shifts     repository.ShiftRepository
	sales      repository.SaleRepository
	dispatcher *worker.Dispatcher // nil disables close-of-shift report jobs

	active    *model.CashShift
	payTotals map[model.PaymentMethod]decimal.Decimal
}

// NewLedger restores the register's open shift from storage, if any,
// recomputing running totals from the movement and sale logs.
func NewLedger(registerID string, shifts repository.ShiftRepository, sales repository.SaleRepository, dispatcher *worker.Dispatcher) (*Ledger, error) {
	l := &Ledger{
		registerID: registerID,
		shifts:     shifts,
		sales:      sales,
		dispatcher: dispatcher,
	}

	s, err := shifts.FindOpenShift(context.Background(), registerID)
	switch {
	case err == nil:
		l.restore(s)
		log.Info().
			Str("register_id", registerID).
			Str("shift_id", s.ID.String()).
			Int("movements", len(s.Movements)).
			Int("sales", len(s.Sales)).
			Msg("ledger: open shift restored from storage")
	case errors.Is(err, gorm.ErrRecordNotFound):
		// no open shift — fresh register
	default:
		return nil, err
	}
	return l, nil
}

// restore rebuilds in-memory totals from the durable log.
func (l *Ledger) restore(s *model.CashShift) {
	s.TotalSales = decimal.Zero
	s.TotalInflows = decimal.Zero
	s.TotalOutflows = decimal.Zero
	totals := emptyPaymentTotals()

	for _, m := range s.Movements {
		switch m.Kind {
		case model.MovementInflow:
			s.TotalInflows = s.TotalInflows.Add(m.Amount)
		case model.MovementOutflow:
			s.TotalOutflows = s.TotalOutflows.Add(m.Amount)
		}
	}
	for _, sale := range s.Sales {
		s.TotalSales = s.TotalSales.Add(sale.Total)
		for _, p := range sale.Payments {
			totals[p.Method] = totals[p.Method].Add(p.Amount)
		}
	}

	l.active = s
	l.payTotals = totals
}

// OpenShift creates the active shift with its synthetic opening movement.
func (l *Ledger) OpenShift(ctx context.Context, operatorID uuid.UUID, operatorName string, openingFloat decimal.Decimal) (*model.CashShift, error) {
	if openingFloat.IsNegative() {
		return nil, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active != nil {
		return nil, ErrShiftAlreadyOpen
	}

	shift := &model.CashShift{
		ID:            uuid.New(),
		RegisterID:    l.registerID,
		OperatorID:    operatorID,
		OperatorName:  operatorName,
		Status:        model.ShiftOpen,
		OpeningFloat:  openingFloat,
		TotalSales:    decimal.Zero,
		TotalInflows:  openingFloat,
		TotalOutflows: decimal.Zero,
		OpenedAt:      time.Now().UTC(),
	}
	shift.Movements = []model.ShiftMovement{{
		ID:         uuid.New(),
		ShiftID:    shift.ID,
		Kind:       model.MovementInflow,
		Amount:     openingFloat,
		Reason:     openingReason,
		OperatorID: operatorID,
		CreatedAt:  shift.OpenedAt,
	}}
	// one durable write: shift row and opening inflow land together or
	// not at all, so a restart can never restore a shift whose expected
	// cash misses the float
	if err := l.shifts.CreateShift(ctx, shift); err != nil {
		return nil, err
	}

	l.active = shift
	l.payTotals = emptyPaymentTotals()

	log.Info().
		Str("register_id", l.registerID).
		Str("shift_id", shift.ID.String()).
		Str("operator", operatorName).
		Str("opening_float", openingFloat.StringFixed(2)).
		Msg("ledger: shift opened")

	return l.snapshotLocked(), nil
}

// RecordMovement appends a manual inflow/outflow to the open shift.
func (l *Ledger) RecordMovement(ctx context.Context, kind string, amount decimal.Decimal, reason string, operatorID uuid.UUID) (*model.CashShift, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == nil {
		return nil, ErrNoOpenShift
	}

	mov := &model.ShiftMovement{
		ID:         uuid.New(),
		ShiftID:    l.active.ID,
		Kind:       kind,
		Amount:     amount,
		Reason:     reason,
		OperatorID: operatorID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.shifts.AppendMovement(ctx, mov); err != nil {
		return nil, err
	}

	l.active.Movements = append(l.active.Movements, *mov)
	switch kind {
	case model.MovementInflow:
		l.active.TotalInflows = l.active.TotalInflows.Add(amount)
	case model.MovementOutflow:
		l.active.TotalOutflows = l.active.TotalOutflows.Add(amount)
	}

	return l.snapshotLocked(), nil
}

// AddSale appends a completed sale to the open shift and folds its
// payments into the running totals. The sale row is the durable append;
// it must land before the totals move.
func (l *Ledger) AddSale(ctx context.Context, sale *model.SaleRecord) (*model.CashShift, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == nil {
		return nil, ErrNoOpenShift
	}

	sale.ShiftID = l.active.ID
	if err := l.sales.Create(ctx, sale); err != nil {
		return nil, err
	}

	l.active.Sales = append(l.active.Sales, *sale)
	l.active.TotalSales = l.active.TotalSales.Add(sale.Total)
	for _, p := range sale.Payments {
		l.payTotals[p.Method] = l.payTotals[p.Method].Add(p.Amount)
	}

	log.Info().
		Str("shift_id", l.active.ID.String()).
		Str("sale_id", sale.ID.String()).
		Str("total", sale.Total.StringFixed(2)).
		Msg("ledger: sale added to shift")

	return l.snapshotLocked(), nil
}

// CloseShift reconciles and freezes the active shift, moves it to history
// and clears the active slot. A non-zero variance is not an error — it is
// returned for the caller to surface to management.
//
// expectedCash = openingFloat + paymentTotals[cash]
//              + (totalInflows - openingFloat) - totalOutflows
func (l *Ledger) CloseShift(ctx context.Context, countedCash decimal.Decimal) (*model.CashShift, error) {
	if countedCash.IsNegative() {
		return nil, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == nil {
		return nil, ErrNoOpenShift
	}

	s := l.active
	expected := s.OpeningFloat.
		Add(l.payTotals[model.PayCash]).
		Add(s.TotalInflows.Sub(s.OpeningFloat)).
		Sub(s.TotalOutflows)
	variance := countedCash.Sub(expected)
	classification := classifyVariance(variance, expected)

	now := time.Now().UTC()
	s.Status = model.ShiftClosed
	s.ClosedAt = &now
	s.CountedCash = &countedCash
	s.ExpectedCash = &expected
	s.CashVariance = &variance
	s.VarianceClassification = &classification
	s.PaymentTotals = materializeTotals(s.ID, l.payTotals)

	if err := l.shifts.CloseShift(ctx, s); err != nil {
		// leave the shift open — the close can be retried
		s.Status = model.ShiftOpen
		s.ClosedAt = nil
		s.CountedCash = nil
		s.ExpectedCash = nil
		s.CashVariance = nil
		s.VarianceClassification = nil
		s.PaymentTotals = nil
		return nil, err
	}

	log.Info().
		Str("shift_id", s.ID.String()).
		Str("expected_cash", expected.StringFixed(2)).
		Str("counted_cash", countedCash.StringFixed(2)).
		Str("variance", variance.StringFixed(2)).
		Str("classification", classification).
		Msg("ledger: shift closed")

	if l.dispatcher != nil {
		if err := l.dispatcher.EnqueueShiftReport(ctx, worker.ShiftReportJobPayload{ShiftID: s.ID.String()}); err != nil {
			log.Warn().Err(err).Str("shift_id", s.ID.String()).Msg("ledger: failed to enqueue shift report")
		}
	}

	closed := l.snapshotLocked()
	l.active = nil
	l.payTotals = nil
	return closed, nil
}

// CurrentShift returns a snapshot of the open shift.
func (l *Ledger) CurrentShift() (*model.CashShift, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active == nil {
		return nil, ErrNoOpenShift
	}
	return l.snapshotLocked(), nil
}

// History lists recently closed shifts for this register.
func (l *Ledger) History(ctx context.Context, limit int) ([]model.CashShift, error) {
	if limit < 1 {
		limit = 50
	}
	return l.shifts.ListClosedShifts(ctx, l.registerID, limit)
}

// snapshotLocked copies the active shift with payment totals materialized.
// Callers own the copy; the ledger's internal state is never shared.
func (l *Ledger) snapshotLocked() *model.CashShift {
	s := *l.active
	s.Movements = append([]model.ShiftMovement(nil), l.active.Movements...)
	s.Sales = append([]model.SaleRecord(nil), l.active.Sales...)
	if s.PaymentTotals == nil {
		s.PaymentTotals = materializeTotals(s.ID, l.payTotals)
	}
	return &s
}

func emptyPaymentTotals() map[model.PaymentMethod]decimal.Decimal {
	return map[model.PaymentMethod]decimal.Decimal{
		model.PayCash:        decimal.Zero,
		model.PayPix:         decimal.Zero,
		model.PayCreditCard:  decimal.Zero,
		model.PayDebitCard:   decimal.Zero,
		model.PayStoreCredit: decimal.Zero,
	}
}

func materializeTotals(shiftID uuid.UUID, totals map[model.PaymentMethod]decimal.Decimal) []model.ShiftPaymentTotal {
	out := make([]model.ShiftPaymentTotal, 0, len(totals))
	for _, m := range []model.PaymentMethod{model.PayCash, model.PayPix, model.PayCreditCard, model.PayDebitCard, model.PayStoreCredit} {
		out = append(out, model.ShiftPaymentTotal{
			ID:      uuid.New(),
			ShiftID: shiftID,
			Method:  m,
			Amount:  totals[m],
		})
	}
	return out
}

// classifyVariance returns "normal" | "warning" | "critical".
// normal: |variance| <= 1% of expected, warning: <= 5%, critical: > 5%.
func classifyVariance(variance, expected decimal.Decimal) string {
	if expected.IsZero() {
		if variance.IsZero() {
			return model.VarianceNormal
		}
		return model.VarianceCritical
	}
	pct := variance.Div(expected).Mul(decimal.NewFromInt(100)).Abs()
	switch {
	case pct.LessThanOrEqual(decimal.NewFromInt(1)):
		return model.VarianceNormal
	case pct.LessThanOrEqual(decimal.NewFromInt(5)):
		return model.VarianceWarning
	default:
		return model.VarianceCritical
	}
}
