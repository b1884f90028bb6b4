package matching

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wwoosshh/clearly-web-sub000/internal/dtos/chat_dto"
	"github.com/wwoosshh/clearly-web-sub000/internal/engine"
	"github.com/wwoosshh/clearly-web-sub000/internal/entity"
	app_error "github.com/wwoosshh/clearly-web-sub000/internal/errors"
	"github.com/wwoosshh/clearly-web-sub000/internal/rest"
)

type Service struct {
	Engine *engine.Engine
	Pull   rest.PullChannelContract
	now    func() time.Time
}

func NewService(eng *engine.Engine, pull rest.PullChannelContract) ServiceContract {
	return &Service{
		Engine: eng,
		Pull:   pull,
		now:    time.Now,
	}
}

// Decline flips the caller's decline flag optimistically, then confirms with
// the server. bothDeclined is trusted exclusively from the server's computed
// flag: deriving it from the two local booleans would race when both parties
// decline near-simultaneously and each client only sees its own flip.
func (s *Service) Decline(ctx context.Context, roomID string) *app_error.AppError {
	var flip func(*entity.Room)
	var unflip func(*entity.Room)

	switch s.Engine.User.Role {
	case entity.RoleCustomer:
		flip = func(r *entity.Room) { r.UserDeclined = true }
		unflip = func(r *entity.Room) { r.UserDeclined = false }
	case entity.RoleCompany:
		flip = func(r *entity.Room) { r.CompanyDeclined = true }
		unflip = func(r *entity.Room) { r.CompanyDeclined = false }
	default:
		return app_error.NewAppError(http.StatusForbidden, "only conversation parties can decline", "role")
	}

	s.Engine.PatchRoom(roomID, flip)

	resp, appErr := s.Pull.Decline(ctx, roomID)
	if appErr != nil {
		// rollback the optimistic flip to its pre-action value
		s.Engine.PatchRoom(roomID, unflip)
		log.Warn().Str("roomID", roomID).Str("error", appErr.Message).Msg("matching: decline rejected, rolled back")
		return appErr
	}

	if resp.BothDeclined {
		s.Engine.PatchRoom(roomID, func(r *entity.Room) {
			r.UserDeclined = true
			r.CompanyDeclined = true
			refund := entity.RefundRequested
			if resp.RefundStatus != nil {
				refund = *resp.RefundStatus
			}
			r.RefundStatus = &refund
		})
	}
	return nil
}

// Complete is the customer-initiated direct completion. Nothing is mutated
// before server success, so failure needs no rollback.
func (s *Service) Complete(ctx context.Context, roomID string) *app_error.AppError {
	resp, appErr := s.Pull.Complete(ctx, roomID)
	if appErr != nil {
		return appErr
	}

	completedAt := s.now()
	s.Engine.PatchRoom(roomID, func(r *entity.Room) {
		if r.Matching == nil {
			r.Matching = &entity.Matching{ID: resp.MatchingID}
		}
		r.Matching.Status = entity.MatchingCompleted
		r.Matching.CompletedAt = &completedAt
	})
	return nil
}

// ReportCompletion is the company-initiated half of the completion handshake.
// Requires 1 to 5 evidence images.
func (s *Service) ReportCompletion(ctx context.Context, roomID string, images []string) *app_error.AppError {
	room, ok := s.Engine.Store().Room(roomID)
	if !ok || room.Matching == nil {
		return app_error.NewAppError(http.StatusNotFound, "no matching linked to this conversation", "matching")
	}

	appErr := s.Pull.ReportCompletion(ctx, room.Matching.ID, chat_dto.ReportCompletionRequest{Images: images})
	if appErr != nil {
		return appErr
	}

	reportedAt := s.now()
	s.Engine.PatchRoom(roomID, func(r *entity.Room) {
		if r.Matching == nil {
			return
		}
		r.Matching.CompletionReportedAt = &reportedAt
		r.Matching.CompletionImages = images
	})
	return nil
}

// ConfirmCompletion is the customer's acknowledgment of a completion report;
// only available once a report exists.
func (s *Service) ConfirmCompletion(ctx context.Context, roomID string) *app_error.AppError {
	room, ok := s.Engine.Store().Room(roomID)
	if !ok || room.Matching == nil {
		return app_error.NewAppError(http.StatusNotFound, "no matching linked to this conversation", "matching")
	}
	if room.Matching.CompletionReportedAt == nil {
		return app_error.NewAppError(http.StatusConflict, "completion has not been reported yet", "matching")
	}

	appErr := s.Pull.ConfirmCompletion(ctx, room.Matching.ID)
	if appErr != nil {
		return appErr
	}

	completedAt := s.now()
	s.Engine.PatchRoom(roomID, func(r *entity.Room) {
		if r.Matching == nil {
			return
		}
		r.Matching.Status = entity.MatchingCompleted
		r.Matching.CompletedAt = &completedAt
	})
	return nil
}
