// Package persistence picks the account store the application runs on.
package persistence

import (
	"log/slog"

	"accounts/internal/domain/repository"
	"accounts/internal/infra/persistence/memory"
	"accounts/internal/infra/persistence/postgres"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Params holds dependencies for the store, injected by Fx.
type Params struct {
	fx.In

	DB     *gorm.DB
	Logger *slog.Logger
}

// Result exposes the repositories chosen for this process.
type Result struct {
	fx.Out

	UserRepo  repository.UserRepository
	TxManager repository.TransactionManager
}

// New returns the Postgres repositories when a database is configured and
// the in-process store otherwise.
func New(params Params) Result {
	if params.DB == nil {
		params.Logger.Info("Using in-memory account store")
		store := memory.NewStore()

		return Result{
			UserRepo:  store.Users(),
			TxManager: store.TransactionManager(),
		}
	}

	return Result{
		UserRepo:  postgres.NewUserRepository(params.DB),
		TxManager: postgres.NewTransactionManager(params.DB),
	}
}
