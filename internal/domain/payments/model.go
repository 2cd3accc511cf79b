// Package payments is the append-only payment ledger. A payment row is
// never edited or deleted after creation; corrections are new entries.
package payments

import (
	"context"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/entity"
	"salesflow/internal/core/id"
	"salesflow/internal/core/types"
)

// Mode is the settlement channel.
type Mode string

const (
	ModeCash       Mode = "cash"
	ModeUPI        Mode = "upi"
	ModeCard       Mode = "card"
	ModeCheque     Mode = "cheque"
	ModeCreditNote Mode = "credit_note"
)

func (m Mode) valid() bool {
	switch m {
	case ModeCash, ModeUPI, ModeCard, ModeCheque, ModeCreditNote:
		return true
	}
	return false
}

// Payment is one ledger entry. Number carries the unique receipt number.
// InvoiceID is nil for direct customer payments.
type Payment struct {
	entity.Document

	InvoiceID  id.ID `db:"invoice_id" json:"invoiceId"`
	CustomerID id.ID `db:"customer_id" json:"customerId"`

	Amount         types.Money `db:"amount" json:"amount"`
	Mode           Mode        `db:"mode" json:"mode"`
	TransactionRef string      `db:"transaction_ref" json:"transactionRef,omitempty"`
}

func (p *Payment) Validate(ctx context.Context) error {
	if err := p.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(p.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customer_id")
	}
	if !p.Amount.IsPositive() {
		return apperror.NewInvalidAmount(p.Amount.String())
	}
	if !p.Mode.valid() {
		return apperror.NewValidation("unknown payment mode").
			WithDetail("mode", string(p.Mode))
	}
	return nil
}
