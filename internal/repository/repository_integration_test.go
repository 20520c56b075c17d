//go:build integration

package repository

// repository_integration_test.go
// Integration tests against real Postgres via testcontainers.
// Run with: go test -tags integration ./internal/repository/... -v
//
// These verify what the in-memory fakes cannot: monetary round trips
// through decimal columns, the one-open-shift-per-register partial index,
// and queue ordering under real SQL.

import (
	"context"
	"testing"
	"time"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/infra"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("pdv_test"),
		tcPostgres.WithUsername("pdv"),
		tcPostgres.WithPassword("pdv"),
		testcontainers.WithWaitStrategy(
			tcPostgres.BasicWaitStrategies()...,
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := infra.NewDatabase(pgURL)
	require.NoError(t, err)
	return db
}

func openShift(t *testing.T, repo ShiftRepository, registerID string, float decimal.Decimal) *model.CashShift {
	t.Helper()
	s := &model.CashShift{
		ID:           uuid.New(),
		RegisterID:   registerID,
		OperatorID:   uuid.New(),
		OperatorName: "Operador Teste",
		Status:       model.ShiftOpen,
		OpeningFloat: float,
		OpenedAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.CreateShift(context.Background(), s))
	return s
}

func TestMonetaryRoundTrip(t *testing.T) {
	db := setupDB(t)
	shifts := NewShiftRepository(db)
	sales := NewSaleRepository(db)
	ctx := context.Background()

	shift := openShift(t, shifts, "caixa-01", decimal.RequireFromString("150.00"))

	// Values chosen to break float64 storage: 0.1+0.2 class sums
	sale := &model.SaleRecord{
		ID:            uuid.New(),
		ShiftID:       shift.ID,
		Subtotal:      decimal.RequireFromString("30.03"),
		Total:         decimal.RequireFromString("29.93"),
		DiscountTotal: decimal.RequireFromString("0.10"),
		ChangeGiven:   decimal.RequireFromString("0.07"),
		CreatedAt:     time.Now().UTC(),
		Items: []model.SaleItem{
			{ID: uuid.New(), ProductID: "sku-1", UnitPrice: decimal.RequireFromString("10.01"), Quantity: 3, ItemDiscount: decimal.RequireFromString("0.10"), LineSubtotal: decimal.RequireFromString("29.93")},
		},
		Payments: []model.SalePayment{
			{ID: uuid.New(), Seq: 0, Method: model.PayCash, Amount: decimal.RequireFromString("20.00")},
			{ID: uuid.New(), Seq: 1, Method: model.PayPix, Amount: decimal.RequireFromString("10.00")},
		},
	}
	require.NoError(t, sales.Create(ctx, sale))

	got, err := sales.FindByID(ctx, sale.ID)
	require.NoError(t, err)

	// Exact fixed-point equality after the round trip
	assert.Equal(t, "29.93", got.Total.StringFixed(2))
	assert.Equal(t, "0.10", got.DiscountTotal.StringFixed(2))
	assert.Equal(t, "0.07", got.ChangeGiven.StringFixed(2))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "10.01", got.Items[0].UnitPrice.StringFixed(2))
	require.Len(t, got.Payments, 2)
	// Payment order is preserved by seq
	assert.Equal(t, model.PayCash, got.Payments[0].Method)
	assert.Equal(t, model.PayPix, got.Payments[1].Method)
	assert.Equal(t, "20.00", got.Payments[0].Amount.StringFixed(2))
}

func TestOneOpenShiftPerRegister(t *testing.T) {
	db := setupDB(t)
	shifts := NewShiftRepository(db)
	ctx := context.Background()

	openShift(t, shifts, "caixa-01", decimal.NewFromInt(100))

	// Second open on the same register violates the partial unique index
	dup := &model.CashShift{
		ID:           uuid.New(),
		RegisterID:   "caixa-01",
		OperatorID:   uuid.New(),
		OperatorName: "Outro",
		Status:       model.ShiftOpen,
		OpeningFloat: decimal.NewFromInt(50),
		OpenedAt:     time.Now().UTC(),
	}
	assert.Error(t, shifts.CreateShift(ctx, dup))

	// A different register is unaffected
	openShift(t, shifts, "caixa-02", decimal.NewFromInt(100))
}

func TestCreateShiftPersistsOpeningMovement(t *testing.T) {
	db := setupDB(t)
	shifts := NewShiftRepository(db)
	ctx := context.Background()

	s := &model.CashShift{
		ID:           uuid.New(),
		RegisterID:   "caixa-01",
		OperatorID:   uuid.New(),
		OperatorName: "Operador Teste",
		Status:       model.ShiftOpen,
		OpeningFloat: decimal.RequireFromString("150.00"),
		OpenedAt:     time.Now().UTC(),
	}
	s.Movements = []model.ShiftMovement{{
		ID:         uuid.New(),
		ShiftID:    s.ID,
		Kind:       model.MovementInflow,
		Amount:     s.OpeningFloat,
		Reason:     "Abertura de caixa",
		OperatorID: s.OperatorID,
		CreatedAt:  s.OpenedAt,
	}}
	require.NoError(t, shifts.CreateShift(ctx, s))

	// Shift row and opening inflow came from the same write
	got, err := shifts.FindOpenShift(ctx, "caixa-01")
	require.NoError(t, err)
	require.Len(t, got.Movements, 1)
	assert.Equal(t, model.MovementInflow, got.Movements[0].Kind)
	assert.Equal(t, "150.00", got.Movements[0].Amount.StringFixed(2))
}

func TestShiftCloseRoundTrip(t *testing.T) {
	db := setupDB(t)
	shifts := NewShiftRepository(db)
	ctx := context.Background()

	shift := openShift(t, shifts, "caixa-01", decimal.RequireFromString("100.00"))

	counted := decimal.RequireFromString("112.34")
	expected := decimal.RequireFromString("112.00")
	variance := decimal.RequireFromString("0.34")
	classification := model.VarianceNormal
	now := time.Now().UTC()

	shift.Status = model.ShiftClosed
	shift.ClosedAt = &now
	shift.CountedCash = &counted
	shift.ExpectedCash = &expected
	shift.CashVariance = &variance
	shift.VarianceClassification = &classification
	shift.PaymentTotals = []model.ShiftPaymentTotal{
		{ID: uuid.New(), ShiftID: shift.ID, Method: model.PayCash, Amount: decimal.RequireFromString("12.00")},
		{ID: uuid.New(), ShiftID: shift.ID, Method: model.PayPix, Amount: decimal.Zero},
	}
	require.NoError(t, shifts.CloseShift(ctx, shift))

	got, err := shifts.FindShiftByID(ctx, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ShiftClosed, got.Status)
	assert.Equal(t, "112.34", got.CountedCash.StringFixed(2))
	assert.Equal(t, "0.34", got.CashVariance.StringFixed(2))
	assert.Equal(t, model.VarianceNormal, *got.VarianceClassification)
	assert.Len(t, got.PaymentTotals, 2)

	// Closed register no longer reports an open shift
	_, err = shifts.FindOpenShift(ctx, "caixa-01")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	closed, err := shifts.ListClosedShifts(ctx, "caixa-01", 10)
	require.NoError(t, err)
	assert.Len(t, closed, 1)
}

func TestQueueOrderingAndAck(t *testing.T) {
	db := setupDB(t)
	shifts := NewShiftRepository(db)
	sales := NewSaleRepository(db)
	queue := NewQueueRepository(db)
	ctx := context.Background()

	shift := openShift(t, shifts, "caixa-01", decimal.NewFromInt(100))

	var ids []uuid.UUID
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		sale := &model.SaleRecord{
			ID:        uuid.New(),
			ShiftID:   shift.ID,
			Subtotal:  decimal.NewFromInt(int64(i + 1)),
			Total:     decimal.NewFromInt(int64(i + 1)),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, sales.Create(ctx, sale))
		require.NoError(t, queue.Append(ctx, &model.QueuedSaleEntry{
			ID:       uuid.New(),
			SaleID:   sale.ID,
			Status:   model.QueuePending,
			QueuedAt: base.Add(time.Duration(i) * time.Second),
		}))
		ids = append(ids, sale.ID)
	}

	pending, err := queue.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	// Arrival order, with the sale row preloaded
	for i, e := range pending {
		assert.Equal(t, ids[i], e.SaleID)
		require.NotNil(t, e.Sale)
	}

	// Partial ack removes only the acknowledged entries
	require.NoError(t, queue.Ack(ctx, []uuid.UUID{ids[0], ids[2]}))
	pending, err = queue.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ids[1], pending[0].SaleID)

	n, err := queue.CountPending(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
