package postgres

import (
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// SQLSTATE codes of the constraint violations the user table can raise.
const (
	sqlStateNotNullViolation = "23502"
	sqlStateUniqueViolation  = "23505"
	sqlStateCheckViolation   = "23514"

	constraintUsersEmail = "users_email_key"
)

// constraintViolation reports the SQLSTATE and constraint name of a driver
// error. Errors that did not come from the server fall back to their message.
func constraintViolation(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}

	msg := err.Error()
	for _, candidate := range []string{sqlStateNotNullViolation, sqlStateUniqueViolation, sqlStateCheckViolation} {
		if strings.Contains(msg, candidate) {
			code = candidate

			break
		}
	}
	if strings.Contains(msg, constraintUsersEmail) {
		constraint = constraintUsersEmail
	}

	return code, constraint
}

func isUniqueConstraintViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	code, _ := constraintViolation(err)

	return code == sqlStateUniqueViolation
}

// isEmailTaken singles out the unique email constraint from other unique keys.
func isEmailTaken(err error) bool {
	if !isUniqueConstraintViolation(err) {
		return false
	}
	_, constraint := constraintViolation(err)

	return constraint == constraintUsersEmail
}

func isNotNullConstraintViolation(err error) bool {
	code, _ := constraintViolation(err)

	return code == sqlStateNotNullViolation
}

func isCheckConstraintViolation(err error) bool {
	if errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}
	code, _ := constraintViolation(err)

	return code == sqlStateCheckViolation
}
