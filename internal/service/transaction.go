package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/noah-isme/sma-exam-results/pkg/errors"
)

// txProvider is satisfied by *sqlx.DB. Reads outside a transaction go through the embedded ExtContext.
type txProvider interface {
	sqlx.ExtContext
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type advisoryLocker interface {
	TryAcquire(ctx context.Context, tx *sqlx.Tx, key string) (bool, error)
	Acquire(ctx context.Context, tx *sqlx.Tx, key string) error
}

// lookupError turns a repository read failure into NOT_FOUND or INTERNAL_ERROR.
func lookupError(err error, notFoundMessage, failureMessage string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFoundMessage)
	}
	return internalError(err, failureMessage)
}

func internalError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func requireTenant(tenantID string) error {
	if tenantID == "" {
		return appErrors.ErrTenantRequired
	}
	return nil
}

func validationError(message string) error {
	return appErrors.Clone(appErrors.ErrValidation, message)
}
