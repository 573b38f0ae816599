package repository

import "context"

// TransactionManager runs a unit of work atomically. The Postgres backend
// maps it onto a database transaction; the in-memory backend serializes
// writers and restores a snapshot on failure.
type TransactionManager interface {
	// Execute commits when fn returns nil and rolls back otherwise,
	// including when fn panics.
	Execute(ctx context.Context, fn func(txRepoFactory RepositoryFactory) error) error
}

// RepositoryFactory hands out repositories bound to the running transaction.
type RepositoryFactory interface {
	NewUserRepository() UserRepository
}
