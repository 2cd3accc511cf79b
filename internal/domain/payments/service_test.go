package payments

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/core/tx"
	"salesflow/internal/core/types"
	"salesflow/internal/domain/customers"
	"salesflow/internal/domain/inventory"
	"salesflow/internal/domain/invoices"
	"salesflow/internal/domain/orders"
	"salesflow/pkg/numerator"
)

type seqNumbers struct {
	n atomic.Int64
}

func (s *seqNumbers) GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
	return fmt.Sprintf("%s-%05d", cfg.Prefix, s.n.Add(1)), nil
}

type fixture struct {
	svc       *Service
	invoices  *invoices.Service
	customers *customers.Service
	orders    *orders.Service

	customer *customers.Customer
	invoice  *invoices.Invoice
}

// newFixture issues a single invoice worth 1062 for the test customer.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	invRepo := inventory.NewMemoryRepository()
	stock := inventory.NewService(invRepo, tx.Nop{})

	hub, prod := id.New(), id.New()
	_, err := stock.Receive(ctx, inventory.ReceiveInput{
		HubID:     hub,
		ProductID: prod,
		BatchNo:   "B1",
		Quantity:  types.NewQuantityFromInt(100),
		Recorder:  inventory.Ref{ID: id.New(), Type: "StockReceipt"},
	})
	require.NoError(t, err)

	invoiceRepo := invoices.NewMemoryRepository()
	custSvc := customers.NewService(customers.NewMemoryRepository(), invoiceRepo, tx.Nop{})
	customer, err := custSvc.Create(ctx, "Acme Retail", "", "")
	require.NoError(t, err)

	numbers := &seqNumbers{}
	orderSvc := orders.NewService(orders.NewMemoryRepository(), stock, numbers, tx.Nop{})
	invoiceSvc := invoices.NewService(invoiceRepo, orderSvc, stock, custSvc, numbers, tx.Nop{})

	o, err := orderSvc.Create(ctx, orders.CreateInput{
		CustomerID: customer.ID,
		Items: []orders.ItemInput{{
			ProductID:       prod,
			HubID:           hub,
			BatchNo:         "B1",
			Quantity:        types.NewQuantityFromInt(10),
			UnitPrice:       types.MustMoney("100"),
			DiscountPercent: types.MustMoney("10"),
			TaxRate:         types.MustMoney("18"),
		}},
	})
	require.NoError(t, err)
	_, err = orderSvc.Submit(ctx, o.ID)
	require.NoError(t, err)
	invoice, err := invoiceSvc.Issue(ctx, o.ID)
	require.NoError(t, err)

	svc := NewService(NewMemoryRepository(), invoiceRepo, orderSvc, custSvc, numbers, tx.Nop{})
	return &fixture{
		svc:       svc,
		invoices:  invoiceSvc,
		customers: custSvc,
		orders:    orderSvc,
		customer:  customer,
		invoice:   invoice,
	}
}

func TestRecordPayment_PartialThenOverPayment(t *testing.T) {
	// Scenario: pay 662 of 1062, then try 500 with only 400 remaining.
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.RecordPayment(ctx, RecordInput{
		InvoiceID: &f.invoice.ID,
		Amount:    types.MustMoney("662"),
		Mode:      ModeUPI,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.Number)
	assert.Equal(t, f.customer.ID, p.CustomerID)

	inv, err := f.invoices.Get(ctx, f.invoice.ID)
	require.NoError(t, err)
	assert.True(t, inv.PaidAmount.Equal(types.MustMoney("662")))
	assert.Equal(t, orders.PaymentPartial, inv.PaymentStatus)

	c, err := f.customers.Get(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.True(t, c.OutstandingAmount.Equal(types.MustMoney("400")), "outstanding %s", c.OutstandingAmount)

	_, err = f.svc.RecordPayment(ctx, RecordInput{
		InvoiceID: &f.invoice.ID,
		Amount:    types.MustMoney("500"),
		Mode:      ModeCash,
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeOverPayment))

	// Nothing moved on the failed attempt.
	inv, err = f.invoices.Get(ctx, f.invoice.ID)
	require.NoError(t, err)
	assert.True(t, inv.PaidAmount.Equal(types.MustMoney("662")))
	c, err = f.customers.Get(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.True(t, c.OutstandingAmount.Equal(types.MustMoney("400")))
}

func TestRecordPayment_SettlesInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RecordPayment(ctx, RecordInput{
		InvoiceID: &f.invoice.ID,
		Amount:    types.MustMoney("1062"),
		Mode:      ModeCheque,
	})
	require.NoError(t, err)

	inv, err := f.invoices.Get(ctx, f.invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentPaid, inv.PaymentStatus)
	assert.True(t, inv.Remaining().IsZero())

	// The originating order mirrors the settlement.
	o, err := f.orders.Get(ctx, inv.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentPaid, o.PaymentStatus)

	c, err := f.customers.Get(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.True(t, c.OutstandingAmount.IsZero())
}

func TestRecordPayment_Direct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.RecordPayment(ctx, RecordInput{
		CustomerID: f.customer.ID,
		Amount:     types.MustMoney("200"),
		Mode:       ModeCash,
	})
	require.NoError(t, err)
	assert.True(t, id.IsNil(p.InvoiceID))

	// Only the outstanding balance moves; the invoice is untouched.
	c, err := f.customers.Get(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.True(t, c.OutstandingAmount.Equal(types.MustMoney("862")), "outstanding %s", c.OutstandingAmount)

	inv, err := f.invoices.Get(ctx, f.invoice.ID)
	require.NoError(t, err)
	assert.True(t, inv.PaidAmount.IsZero())
}

func TestRecordPayment_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RecordPayment(ctx, RecordInput{
		InvoiceID: &f.invoice.ID,
		Amount:    types.Zero(),
		Mode:      ModeCash,
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidAmount))

	_, err = f.svc.RecordPayment(ctx, RecordInput{
		InvoiceID: &f.invoice.ID,
		Amount:    types.MustMoney("-10"),
		Mode:      ModeCash,
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidAmount))

	_, err = f.svc.RecordPayment(ctx, RecordInput{
		InvoiceID: &f.invoice.ID,
		Amount:    types.MustMoney("10"),
		Mode:      Mode("barter"),
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestLedgerQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, amount := range []string{"100", "200"} {
		_, err := f.svc.RecordPayment(ctx, RecordInput{
			InvoiceID: &f.invoice.ID,
			Amount:    types.MustMoney(amount),
			Mode:      ModeCash,
		})
		require.NoError(t, err)
	}

	byInvoice, err := f.svc.ListByInvoice(ctx, f.invoice.ID)
	require.NoError(t, err)
	assert.Len(t, byInvoice, 2)

	byCustomer, err := f.svc.ListByCustomer(ctx, f.customer.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, byCustomer, 2)
}

func TestOutstandingReconciliationAfterPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RecordPayment(ctx, RecordInput{
		InvoiceID: &f.invoice.ID,
		Amount:    types.MustMoney("662"),
		Mode:      ModeUPI,
	})
	require.NoError(t, err)

	// Incremental maintenance and full recomputation agree.
	_, drift, err := f.customers.Reconcile(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.True(t, drift.IsZero(), "drift %s", drift)
}
