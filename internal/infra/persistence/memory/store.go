// Package memory keeps accounts in process memory. It backs the service when
// no database is configured and serves as the store for scenario tests.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"accounts/internal/domain/entity"
	"accounts/internal/domain/repository"

	"github.com/google/uuid"
)

// Store is an in-memory implementation of the user repository and transaction manager.
type Store struct {
	// txMu serializes writers: a transaction holds it for its whole callback.
	txMu sync.Mutex

	mu      sync.RWMutex
	users   map[uuid.UUID]entity.User
	byEmail map[string]uuid.UUID

	now func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:   make(map[uuid.UUID]entity.User),
		byEmail: make(map[string]uuid.UUID),
		now:     time.Now,
	}
}

// Users returns a repository that runs each write on its own.
func (s *Store) Users() repository.UserRepository {
	return &userRepository{store: s}
}

// TransactionManager exposes the store's transaction support.
func (s *Store) TransactionManager() repository.TransactionManager {
	return &transactionManager{store: s}
}

type snapshot struct {
	users   map[uuid.UUID]entity.User
	byEmail map[string]uuid.UUID
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return snapshot{users: maps.Clone(s.users), byEmail: maps.Clone(s.byEmail)}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = snap.users
	s.byEmail = snap.byEmail
}

type transactionManager struct {
	store *Store
}

// Execute runs fn with exclusive write access and restores the previous
// state if fn fails or panics.
func (tm *transactionManager) Execute(ctx context.Context, fn func(repoFactory repository.RepositoryFactory) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tm.store.txMu.Lock()
	defer tm.store.txMu.Unlock()

	snap := tm.store.snapshot()

	defer func() {
		if r := recover(); r != nil {
			tm.store.restore(snap)
			panic(r)
		}
	}()

	if err := fn(&repositoryFactory{store: tm.store}); err != nil {
		tm.store.restore(snap)

		return err
	}

	return nil
}

type repositoryFactory struct {
	store *Store
}

// NewUserRepository returns a repository bound to the running transaction.
func (f *repositoryFactory) NewUserRepository() repository.UserRepository {
	return &userRepository{store: f.store, inTx: true}
}
