// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"salesflow/internal/core/entity"
	"salesflow/internal/core/id"
)

// --- Pagination ---

// ListRequest contains limit/offset list parameters.
type ListRequest struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// Defaults sets default list values.
func (r *ListRequest) Defaults() {
	if r.Limit == 0 {
		r.Limit = 50
	}
}

// ListResponse wraps list results.
type ListResponse struct {
	Items  any `json:"items"`
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewListResponse creates a list response. count is the number of items
// on this page, not the total.
func NewListResponse(items any, count, limit, offset int) ListResponse {
	return ListResponse{Items: items, Count: count, Limit: limit, Offset: offset}
}

// --- Base DTOs ---

// DocumentResponse contains common document fields.
type DocumentResponse struct {
	ID        string    `json:"id"`
	Number    string    `json:"number"`
	Date      time.Time `json:"date"`
	Version   int       `json:"version"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	CreatedBy string    `json:"createdBy,omitempty"`
}

// FromDocument creates DocumentResponse from entity.Document.
func FromDocument(d entity.Document) DocumentResponse {
	return DocumentResponse{
		ID:        d.ID.String(),
		Number:    d.Number,
		Date:      d.Date,
		Version:   d.Version,
		Comment:   d.Comment,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		CreatedBy: d.CreatedBy,
	}
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// --- Success Response ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
