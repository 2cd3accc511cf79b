package inventory

import (
	"context"
	"sync"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
)

// MemoryRepository is an in-memory Repository used by unit tests and demos.
// It serializes all access behind one mutex, which satisfies the per-lot
// linearizability requirement; atomicity of multi-step workflows is only
// approximated (the production implementation relies on database
// transactions).
type MemoryRepository struct {
	mu        sync.Mutex
	lots      map[id.ID]*Lot
	byKey     map[lotKey]id.ID
	movements []Movement
}

type lotKey struct {
	hubID     id.ID
	productID id.ID
	batchNo   string
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		lots:  make(map[id.ID]*Lot),
		byKey: make(map[lotKey]id.ID),
	}
}

func (r *MemoryRepository) CreateLot(ctx context.Context, lot *Lot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := lotKey{lot.HubID, lot.ProductID, lot.BatchNo}
	if _, exists := r.byKey[key]; exists {
		return apperror.NewDuplicate("lot", "key", lot.BatchNo)
	}

	cp := *lot
	r.lots[lot.ID] = &cp
	r.byKey[key] = lot.ID
	return nil
}

func (r *MemoryRepository) UpdateLot(ctx context.Context, lot *Lot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.lots[lot.ID]
	if !ok {
		return apperror.NewNotFound("lot", lot.ID.String())
	}
	if stored.Version != lot.Version {
		return apperror.NewConcurrentModification("lot", lot.ID.String())
	}
	cp := *lot
	cp.Version++
	r.lots[lot.ID] = &cp
	lot.Version = cp.Version
	return nil
}

func (r *MemoryRepository) GetLot(ctx context.Context, lotID id.ID) (*Lot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(lotID)
}

func (r *MemoryRepository) GetLotForUpdate(ctx context.Context, lotID id.ID) (*Lot, error) {
	return r.GetLot(ctx, lotID)
}

func (r *MemoryRepository) getLocked(lotID id.ID) (*Lot, error) {
	lot, ok := r.lots[lotID]
	if !ok {
		return nil, apperror.NewNotFound("lot", lotID.String())
	}
	cp := *lot
	return &cp, nil
}

func (r *MemoryRepository) GetLotByKey(ctx context.Context, hubID, productID id.ID, batchNo string) (*Lot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lotID, ok := r.byKey[lotKey{hubID, productID, batchNo}]
	if !ok {
		return nil, apperror.NewNotFound("lot", batchNo)
	}
	return r.getLocked(lotID)
}

func (r *MemoryRepository) GetLotByKeyForUpdate(ctx context.Context, hubID, productID id.ID, batchNo string) (*Lot, error) {
	return r.GetLotByKey(ctx, hubID, productID, batchNo)
}

func (r *MemoryRepository) ListLotsByHub(ctx context.Context, hubID id.ID, filter LotFilter) ([]Lot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Lot
	for _, lot := range r.lots {
		if lot.HubID != hubID {
			continue
		}
		if filter.ExcludeZero && lot.Quantity.IsZero() {
			continue
		}
		if filter.MinAvailable != nil && lot.Available < *filter.MinAvailable {
			continue
		}
		if filter.ExpiringBefore != nil {
			if lot.ExpiryDate == nil || !lot.ExpiryDate.Before(*filter.ExpiringBefore) {
				continue
			}
		}
		if len(filter.ProductIDs) > 0 && !containsID(filter.ProductIDs, lot.ProductID) {
			continue
		}
		out = append(out, *lot)
	}
	return out, nil
}

func (r *MemoryRepository) ListLotsByProduct(ctx context.Context, productID id.ID) ([]Lot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Lot
	for _, lot := range r.lots {
		if lot.ProductID == productID && !lot.Quantity.IsZero() {
			out = append(out, *lot)
		}
	}
	return out, nil
}

func (r *MemoryRepository) CreateMovements(ctx context.Context, movements []Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *MemoryRepository) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Movement
	for _, m := range r.movements {
		if m.RecorderID == recorderID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MemoryRepository) GetMovementHistory(ctx context.Context, productID id.ID, filter MovementFilter) ([]Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Movement
	for _, m := range r.movements {
		if m.ProductID != productID {
			continue
		}
		if filter.HubID != nil && m.HubID != *filter.HubID {
			continue
		}
		if filter.RecordType != nil && m.RecordType != *filter.RecordType {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func containsID(ids []id.ID, target id.ID) bool {
	for _, v := range ids {
		if v == target {
			return true
		}
	}
	return false
}

// Ensure interface compliance.
var _ Repository = (*MemoryRepository)(nil)
