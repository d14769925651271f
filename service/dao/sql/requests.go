package sql

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/viant/carealloc/model"
	"github.com/viant/carealloc/service/dao"
)

const (
	requestsTable = "requests"

	insertRequestStmt = `INSERT INTO requests (name, priority, est_minutes, status, requested_at, allocated_at, released_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	updateRequestStmt = `UPDATE requests SET name = ?, priority = ?, est_minutes = ?, status = ?, requested_at = ?, allocated_at = ?, released_at = ? WHERE id = ?`
	getRequestStmt    = `SELECT id, name, priority, est_minutes, status, requested_at, allocated_at, released_at FROM requests WHERE id = ?`
	deleteRequestStmt = `DELETE FROM requests WHERE id = ?`
	listRequestsStmt  = `SELECT id, name, priority, est_minutes, status, requested_at, allocated_at, released_at FROM requests`
	requestsOrder     = ` ORDER BY requested_at, id`
)

// Requests implements the request queue store
type Requests struct {
	db *sqlx.DB
}

var _ dao.Service[int, model.Request] = (*Requests)(nil)

// Save inserts a request with zero ID or updates an existing one
func (r *Requests) Save(ctx context.Context, request *model.Request) error {
	if request == nil {
		return dao.ErrNilEntity
	}
	if request.ID < 0 {
		return fmt.Errorf("%w: %s %d", dao.ErrInvalidID, requestsTable, request.ID)
	}
	if request.ID == 0 {
		result, err := r.db.ExecContext(ctx, insertRequestStmt, request.Name, request.Priority, request.EstMinutes, request.Status,
			request.RequestedAt, request.AllocatedAt, request.ReleasedAt)
		if err != nil {
			return fmt.Errorf("failed to insert request: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read request id: %w", err)
		}
		request.ID = int(id)
		return nil
	}
	result, err := r.db.ExecContext(ctx, updateRequestStmt, request.Name, request.Priority, request.EstMinutes, request.Status,
		request.RequestedAt, request.AllocatedAt, request.ReleasedAt, request.ID)
	if err != nil {
		return fmt.Errorf("failed to update request %d: %w", request.ID, err)
	}
	return checkAffected(result, requestsTable, request.ID)
}

func (r *Requests) Load(ctx context.Context, id int) (*model.Request, error) {
	ret := &model.Request{}
	if err := r.db.GetContext(ctx, ret, getRequestStmt, id); err != nil {
		return nil, notFound(err, requestsTable, id)
	}
	return ret, nil
}

func (r *Requests) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, deleteRequestStmt, id)
	if err != nil {
		return fmt.Errorf("failed to delete request %d: %w", id, err)
	}
	return checkAffected(result, requestsTable, id)
}

// List returns requests in submission order
func (r *Requests) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Request, error) {
	query, args, err := withStatus(r.db, listRequestsStmt, "status", requestsOrder, parameters)
	if err != nil {
		return nil, err
	}
	var ret []*model.Request
	if err = r.db.SelectContext(ctx, &ret, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return ret, nil
}
