package memory

import (
	"context"

	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"

	"github.com/google/uuid"
)

type userRepository struct {
	store *Store
	inTx  bool
}

// lockWriter takes the store's writer lock unless the caller already holds it
// through a transaction.
func (r *userRepository) lockWriter() func() {
	if r.inTx {
		return func() {}
	}
	r.store.txMu.Lock()

	return r.store.txMu.Unlock
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, ok := r.store.users[id]
	if !ok {
		return nil, domainerrors.ErrUserNotFound
	}

	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.byEmail[email]
	if !ok {
		return nil, domainerrors.ErrUserNotFound
	}
	user := r.store.users[id]

	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.lockWriter()()

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, taken := r.store.byEmail[user.Email]; taken {
		return domainerrors.ErrUserAlreadyExists.WrapMessage("email already exists")
	}
	if _, taken := r.store.users[user.ID]; taken || user.ID == uuid.Nil {
		return domainerrors.ErrUserCreationFailed.WrapMessage("invalid user id")
	}

	now := r.store.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	r.store.users[user.ID] = *user
	r.store.byEmail[user.Email] = user.ID

	return nil
}

func (r *userRepository) Update(ctx context.Context, user *entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.lockWriter()()

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.users[user.ID]
	if !ok {
		return domainerrors.ErrUserNotFound
	}
	if owner, taken := r.store.byEmail[user.Email]; taken && owner != user.ID {
		return domainerrors.ErrUserAlreadyExists.WrapMessage("email already exists")
	}

	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = r.store.now()

	delete(r.store.byEmail, current.Email)
	r.store.users[user.ID] = *user
	r.store.byEmail[user.Email] = user.ID

	return nil
}
