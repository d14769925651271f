package sql

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/viant/carealloc/model"
	"github.com/viant/carealloc/service/dao"
)

const (
	resourcesTable = "resources"

	insertResourceStmt = `INSERT INTO resources (resource_type, label, status) VALUES (?, ?, ?)`
	updateResourceStmt = `UPDATE resources SET resource_type = ?, label = ?, status = ? WHERE id = ?`
	getResourceStmt    = `SELECT id, resource_type, label, status FROM resources WHERE id = ?`
	deleteResourceStmt = `DELETE FROM resources WHERE id = ?`
	listResourcesStmt  = `SELECT id, resource_type, label, status FROM resources`
	resourcesOrder     = ` ORDER BY resource_type, id`
)

// Resources implements the resource inventory store
type Resources struct {
	db *sqlx.DB
}

var _ dao.Service[int, model.Resource] = (*Resources)(nil)

// Save inserts a resource with zero ID or updates an existing one
func (r *Resources) Save(ctx context.Context, resource *model.Resource) error {
	if resource == nil {
		return dao.ErrNilEntity
	}
	if resource.ID < 0 {
		return fmt.Errorf("%w: %s %d", dao.ErrInvalidID, resourcesTable, resource.ID)
	}
	if resource.ID == 0 {
		result, err := r.db.ExecContext(ctx, insertResourceStmt, string(resource.Type), resource.Label, resource.Status)
		if err != nil {
			return fmt.Errorf("failed to insert resource: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read resource id: %w", err)
		}
		resource.ID = int(id)
		return nil
	}
	result, err := r.db.ExecContext(ctx, updateResourceStmt, string(resource.Type), resource.Label, resource.Status, resource.ID)
	if err != nil {
		return fmt.Errorf("failed to update resource %d: %w", resource.ID, err)
	}
	return checkAffected(result, resourcesTable, resource.ID)
}

func (r *Resources) Load(ctx context.Context, id int) (*model.Resource, error) {
	ret := &model.Resource{}
	if err := r.db.GetContext(ctx, ret, getResourceStmt, id); err != nil {
		return nil, notFound(err, resourcesTable, id)
	}
	return ret, nil
}

func (r *Resources) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, deleteResourceStmt, id)
	if err != nil {
		return fmt.Errorf("failed to delete resource %d: %w", id, err)
	}
	return checkAffected(result, resourcesTable, id)
}

// List returns resources ordered by (type, id)
func (r *Resources) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Resource, error) {
	query, args, err := withStatus(r.db, listResourcesStmt, "status", resourcesOrder, parameters)
	if err != nil {
		return nil, err
	}
	var ret []*model.Resource
	if err = r.db.SelectContext(ctx, &ret, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return ret, nil
}
