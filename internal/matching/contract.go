package matching

import (
	"context"

	app_error "github.com/wwoosshh/clearly-web-sub000/internal/errors"
)

// ServiceContract is the decline/complete/report/confirm workflow layered on a
// room's linked matching. None of these calls are retried automatically.
type ServiceContract interface {
	Decline(ctx context.Context, roomID string) *app_error.AppError
	Complete(ctx context.Context, roomID string) *app_error.AppError
	ReportCompletion(ctx context.Context, roomID string, images []string) *app_error.AppError
	ConfirmCompletion(ctx context.Context, roomID string) *app_error.AppError
}
