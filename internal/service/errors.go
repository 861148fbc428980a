package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/apperr"
	"github.com/mmynk/splitledger/internal/middleware"
)

// toConnectError maps domain errors onto Connect codes. Anything unclassified
// is logged and surfaced as an internal error without its details.
func toConnectError(ctx context.Context, op string, err error) error {
	var connectErr *connect.Error
	switch {
	case errors.As(err, &connectErr):
		return connectErr
	case apperr.IsValidation(err):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case apperr.IsForbidden(err):
		return connect.NewError(connect.CodePermissionDenied, err)
	case apperr.IsNotFound(err):
		return connect.NewError(connect.CodeNotFound, err)
	case apperr.IsConflict(err):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}

	slog.Error(op+" failed", "user_id", middleware.GetUserID(ctx), "error", err)
	return connect.NewError(connect.CodeInternal, errors.New("internal error"))
}

// actor returns the authenticated caller or an Unauthenticated error.
func actor(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}
	return userID, nil
}
