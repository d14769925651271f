package sql

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const (
	createResourcesStmt = `CREATE TABLE IF NOT EXISTS resources (
	id INT AUTO_INCREMENT PRIMARY KEY,
	resource_type VARCHAR(64) NOT NULL,
	label VARCHAR(255) NOT NULL,
	status VARCHAR(16) NOT NULL DEFAULT 'free',
	INDEX resources_status (status, resource_type, id)
)`

	createRequestsStmt = `CREATE TABLE IF NOT EXISTS requests (
	id INT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	priority INT NOT NULL,
	est_minutes INT NOT NULL,
	status VARCHAR(16) NOT NULL DEFAULT 'queued',
	requested_at DATETIME(6) NOT NULL,
	allocated_at DATETIME(6) NULL,
	released_at DATETIME(6) NULL,
	INDEX requests_status (status, requested_at, id)
)`

	createAllocationsStmt = `CREATE TABLE IF NOT EXISTS allocations (
	id INT AUTO_INCREMENT PRIMARY KEY,
	request_id INT NOT NULL,
	resource_type VARCHAR(64) NOT NULL,
	resource_id INT NOT NULL,
	created_at DATETIME(6) NOT NULL,
	released_at DATETIME(6) NULL,
	INDEX allocations_open (released_at, id)
)`
)

var schema = []string{createResourcesStmt, createRequestsStmt, createAllocationsStmt}

// Migrate creates missing tables
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
