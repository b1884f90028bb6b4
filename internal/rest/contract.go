package rest

import (
	"context"

	"github.com/wwoosshh/clearly-web-sub000/internal/dtos/chat_dto"
	"github.com/wwoosshh/clearly-web-sub000/internal/entity"
	app_error "github.com/wwoosshh/clearly-web-sub000/internal/errors"
)

// PullChannelContract is the request/response side of the sync engine. List
// calls are safe to retry; the state-changing calls (Decline, Complete,
// ReportCompletion, ConfirmCompletion) are never retried automatically.
type PullChannelContract interface {
	ListRooms(ctx context.Context) ([]entity.Room, *app_error.AppError)
	CreateRoom(ctx context.Context, companyID string) (*entity.Room, *app_error.AppError)
	GetRoom(ctx context.Context, roomID string) (*entity.Room, *app_error.AppError)
	ListMessages(ctx context.Context, roomID string) ([]entity.Message, *app_error.AppError)
	SendMessage(ctx context.Context, roomID string, req chat_dto.SendMessageRequest) (*entity.Message, *app_error.AppError)
	MarkRead(ctx context.Context, roomID string) *app_error.AppError
	Decline(ctx context.Context, roomID string) (*chat_dto.DeclineResponse, *app_error.AppError)
	Complete(ctx context.Context, roomID string) (*chat_dto.CompleteResponse, *app_error.AppError)
	ReportCompletion(ctx context.Context, matchingID string, req chat_dto.ReportCompletionRequest) *app_error.AppError
	ConfirmCompletion(ctx context.Context, matchingID string) *app_error.AppError
	ReportAbuse(ctx context.Context, req chat_dto.ReportAbuseRequest) *app_error.AppError
}
