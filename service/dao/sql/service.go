package sql

import (
	sqldb "database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/viant/carealloc/service/dao"
)

// New creates a store set over db
func New(db *sqlx.DB) *dao.Set {
	return &dao.Set{
		Resources:   &Resources{db: db},
		Requests:    &Requests{db: db},
		Allocations: &Allocations{db: db},
	}
}

func notFound(err error, table string, id int) error {
	if errors.Is(err, sqldb.ErrNoRows) {
		return fmt.Errorf("%w: %s %d", dao.ErrNotFound, table, id)
	}
	return fmt.Errorf("failed to load %s %d: %w", table, id, err)
}

func checkAffected(result sqldb.Result, table string, id int) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s %d", dao.ErrNotFound, table, id)
	}
	return nil
}

// withStatus appends "WHERE column IN (...)" for requested statuses and expands args.
func withStatus(db *sqlx.DB, query, column, order string, parameters []*dao.Parameter) (string, []interface{}, error) {
	statuses := dao.Statuses(parameters)
	if len(statuses) == 0 {
		return query + order, nil, nil
	}
	query, args, err := sqlx.In(query+" WHERE "+column+" IN (?)"+order, statuses)
	if err != nil {
		return "", nil, err
	}
	return db.Rebind(query), args, nil
}
