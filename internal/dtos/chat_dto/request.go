package chat_dto

import "github.com/wwoosshh/clearly-web-sub000/internal/entity"

type CreateRoomRequest struct {
	CompanyID string `json:"companyId" validate:"required"`
}

type SendMessageRequest struct {
	Content     string             `json:"content" validate:"required,min=1"`
	MessageType entity.MessageType `json:"messageType,omitempty" validate:"omitempty,oneof=TEXT IMAGE SYSTEM"`
	FileURL     *string            `json:"fileUrl,omitempty" validate:"omitempty,url"`
}

type ReportCompletionRequest struct {
	Images []string `json:"images" validate:"required,min=1,max=5,dive,required"`
}

// ReportAbuseRequest is the out-of-band /reports call. It shares the room
// context but is not part of the sync engine proper.
type ReportAbuseRequest struct {
	TargetType  string `json:"targetType" validate:"required,oneof=USER COMPANY MESSAGE"`
	TargetID    string `json:"targetId" validate:"required"`
	Reason      string `json:"reason" validate:"required,min=1"`
	Description string `json:"description,omitempty"`
}
