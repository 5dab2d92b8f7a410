package service

import (
	"context"
	"log/slog"

	"github.com/sakif/menu-planner/internal/apperror"
	"github.com/sakif/menu-planner/internal/repository"
)

// runTx runs fn as one unit of work.
//
// Errors the closure raises on purpose (validation, forbidden, not found) are
// AppErrors and pass through unchanged, so the caller still gets a precise
// reason. Anything else is a store failure: it is logged with its cause and
// reported as a generic TransactionFailure.
func runTx(ctx context.Context, store repository.Store, logger *slog.Logger, op string, fn func(tx repository.Store) error) error {
	err := store.WithinTx(ctx, fn)
	if err == nil || apperror.Is(err) {
		return err
	}
	logger.Error("transaction rolled back",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return apperror.TransactionFailed(op, err)
}
