package chat_dto

import "github.com/wwoosshh/clearly-web-sub000/internal/entity"

type DeclineResponse struct {
	BothDeclined bool                 `json:"bothDeclined"`
	RefundStatus *entity.RefundStatus `json:"refundStatus,omitempty"`
}

type CompleteResponse struct {
	MatchingID string `json:"matchingId"`
	CompanyID  string `json:"companyId"`
}
