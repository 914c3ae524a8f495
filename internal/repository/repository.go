// internal/repository/repository.go
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicateInviteCode is returned by GroupRepository.Create when the
	// generated invite code is already taken.
	ErrDuplicateInviteCode = errors.New("invite code already in use")

	// ErrGroupNotFound is returned by GroupRepository.AddMember when the
	// group no longer exists.
	ErrGroupNotFound = errors.New("group not found")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
