package dto

import (
	"time"

	"salesflow/internal/core/types"
	"salesflow/internal/domain/customers"
)

// CreateCustomerRequest for creating customers.
type CreateCustomerRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CustomerResponse contains customer fields.
type CustomerResponse struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Email             string      `json:"email,omitempty"`
	Phone             string      `json:"phone,omitempty"`
	OutstandingAmount types.Money `json:"outstandingAmount"`
	Version           int         `json:"version"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// FromCustomer creates CustomerResponse from customers.Customer.
func FromCustomer(c *customers.Customer) CustomerResponse {
	return CustomerResponse{
		ID:                c.ID.String(),
		Name:              c.Name,
		Email:             c.Email,
		Phone:             c.Phone,
		OutstandingAmount: c.OutstandingAmount,
		Version:           c.Version,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

// FromCustomers converts a customer slice.
func FromCustomers(list []customers.Customer) []CustomerResponse {
	out := make([]CustomerResponse, 0, len(list))
	for i := range list {
		out = append(out, FromCustomer(&list[i]))
	}
	return out
}

// ReconcileResponse reports stored vs recomputed outstanding balance.
type ReconcileResponse struct {
	CustomerID string      `json:"customerId"`
	Stored     types.Money `json:"stored"`
	Computed   types.Money `json:"computed"`
	Drift      types.Money `json:"drift"`
}
