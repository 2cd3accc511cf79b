package inventory

import (
	"context"
	"time"

	"salesflow/internal/core/id"
	"salesflow/internal/core/types"
)

// Repository defines storage operations for the inventory ledger.
type Repository interface {
	// Lot operations

	// CreateLot inserts a new lot (first receipt for its key)
	CreateLot(ctx context.Context, lot *Lot) error

	// UpdateLot persists a mutated lot with optimistic locking
	UpdateLot(ctx context.Context, lot *Lot) error

	// GetLot retrieves a lot by ID
	GetLot(ctx context.Context, lotID id.ID) (*Lot, error)

	// GetLotForUpdate retrieves a lot by ID with a row lock.
	// Must be called within a transaction.
	GetLotForUpdate(ctx context.Context, lotID id.ID) (*Lot, error)

	// GetLotByKey retrieves a lot by its (hub, product, batch) key
	GetLotByKey(ctx context.Context, hubID, productID id.ID, batchNo string) (*Lot, error)

	// GetLotByKeyForUpdate retrieves a lot by key with a row lock
	GetLotByKeyForUpdate(ctx context.Context, hubID, productID id.ID, batchNo string) (*Lot, error)

	// ListLotsByHub returns lots in a hub
	ListLotsByHub(ctx context.Context, hubID id.ID, filter LotFilter) ([]Lot, error)

	// ListLotsByProduct returns lots across hubs for a product
	ListLotsByProduct(ctx context.Context, productID id.ID) ([]Lot, error)

	// Movement journal

	// CreateMovements appends journal rows (within the mutating transaction)
	CreateMovements(ctx context.Context, movements []Movement) error

	// GetMovementsByRecorder retrieves all movements caused by a document
	GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]Movement, error)

	// GetMovementHistory returns movement history for a product
	GetMovementHistory(ctx context.Context, productID id.ID, filter MovementFilter) ([]Movement, error)
}

// LotFilter for filtering lot queries.
type LotFilter struct {
	ProductIDs  []id.ID
	ExcludeZero bool

	// ExpiringBefore returns only lots expiring before the given date
	ExpiringBefore *time.Time

	MinAvailable *types.Quantity
}

// MovementFilter for filtering movement history.
type MovementFilter struct {
	HubID      *id.ID
	RecordType *RecordType
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}
