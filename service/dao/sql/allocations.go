package sql

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/viant/carealloc/model"
	"github.com/viant/carealloc/service/dao"
)

const (
	allocationsTable = "allocations"

	insertAllocationStmt = `INSERT INTO allocations (request_id, resource_type, resource_id, created_at, released_at) VALUES (?, ?, ?, ?, ?)`
	updateAllocationStmt = `UPDATE allocations SET request_id = ?, resource_type = ?, resource_id = ?, created_at = ?, released_at = ? WHERE id = ?`
	getAllocationStmt    = `SELECT id, request_id, resource_type, resource_id, created_at, released_at FROM allocations WHERE id = ?`
	deleteAllocationStmt = `DELETE FROM allocations WHERE id = ?`
	listAllocationsStmt  = `SELECT id, request_id, resource_type, resource_id, created_at, released_at FROM allocations`
	activeAllocations    = ` WHERE released_at IS NULL`
	releasedAllocations  = ` WHERE released_at IS NOT NULL`
	allocationsOrder     = ` ORDER BY id`
)

// Allocations implements the allocation ledger store.  Ledger status is
// derived from released_at, so status parameters translate to NULL checks.
type Allocations struct {
	db *sqlx.DB
}

var _ dao.Service[int, model.Allocation] = (*Allocations)(nil)

// Save inserts an allocation with zero ID or updates an existing one
func (a *Allocations) Save(ctx context.Context, allocation *model.Allocation) error {
	if allocation == nil {
		return dao.ErrNilEntity
	}
	if allocation.ID < 0 {
		return fmt.Errorf("%w: %s %d", dao.ErrInvalidID, allocationsTable, allocation.ID)
	}
	if allocation.ID == 0 {
		result, err := a.db.ExecContext(ctx, insertAllocationStmt, allocation.RequestID, string(allocation.ResourceType),
			allocation.ResourceID, allocation.CreatedAt, allocation.ReleasedAt)
		if err != nil {
			return fmt.Errorf("failed to insert allocation: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read allocation id: %w", err)
		}
		allocation.ID = int(id)
		return nil
	}
	result, err := a.db.ExecContext(ctx, updateAllocationStmt, allocation.RequestID, string(allocation.ResourceType),
		allocation.ResourceID, allocation.CreatedAt, allocation.ReleasedAt, allocation.ID)
	if err != nil {
		return fmt.Errorf("failed to update allocation %d: %w", allocation.ID, err)
	}
	return checkAffected(result, allocationsTable, allocation.ID)
}

func (a *Allocations) Load(ctx context.Context, id int) (*model.Allocation, error) {
	ret := &model.Allocation{}
	if err := a.db.GetContext(ctx, ret, getAllocationStmt, id); err != nil {
		return nil, notFound(err, allocationsTable, id)
	}
	return ret, nil
}

func (a *Allocations) Delete(ctx context.Context, id int) error {
	result, err := a.db.ExecContext(ctx, deleteAllocationStmt, id)
	if err != nil {
		return fmt.Errorf("failed to delete allocation %d: %w", id, err)
	}
	return checkAffected(result, allocationsTable, id)
}

// List returns allocations ordered by ID
func (a *Allocations) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Allocation, error) {
	query := listAllocationsStmt + allocationsOrder
	active, released := false, false
	for _, status := range dao.Statuses(parameters) {
		switch status {
		case model.AllocationStatusActive:
			active = true
		case model.AllocationStatusReleased:
			released = true
		}
	}
	switch {
	case active && !released:
		query = listAllocationsStmt + activeAllocations + allocationsOrder
	case released && !active:
		query = listAllocationsStmt + releasedAllocations + allocationsOrder
	}
	var ret []*model.Allocation
	if err := a.db.SelectContext(ctx, &ret, query); err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	return ret, nil
}
