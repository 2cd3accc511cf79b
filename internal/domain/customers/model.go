// Package customers manages customer records and the derived outstanding
// balance aggregate.
package customers

import (
	"context"
	"strings"
	"time"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/entity"
	"salesflow/internal/core/types"
)

// Customer carries contact data and the running unpaid-invoice balance.
// OutstandingAmount is maintained incrementally on invoice issuance and
// payment, and can be rebuilt from the invoice ledger at any time.
type Customer struct {
	entity.BaseEntity

	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
	Phone string `db:"phone" json:"phone"`

	OutstandingAmount types.Money `db:"outstanding_amount" json:"outstandingAmount"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

func NewCustomer(name, email, phone string) *Customer {
	now := time.Now().UTC()
	c := &Customer{
		Name:              name,
		Email:             email,
		Phone:             phone,
		OutstandingAmount: types.Zero(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	c.BaseEntity = entity.NewBaseEntity()
	return c
}

func (c *Customer) Validate(ctx context.Context) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("customer name is required")
	}
	return nil
}
