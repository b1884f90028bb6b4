package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wwoosshh/clearly-web-sub000/internal/dtos"
	"github.com/wwoosshh/clearly-web-sub000/internal/dtos/chat_dto"
	"github.com/wwoosshh/clearly-web-sub000/internal/entity"
	app_error "github.com/wwoosshh/clearly-web-sub000/internal/errors"
)

type Client struct {
	BaseURL  string
	Token    string
	HTTP     *http.Client
	validate *validator.Validate
}

func NewClient(baseURL, token string) PullChannelContract {
	return &Client{
		BaseURL:  baseURL,
		Token:    token,
		HTTP:     &http.Client{Timeout: 15 * time.Second},
		validate: validator.New(),
	}
}

// do performs one request and returns the raw "data" field of the envelope.
// Non-2xx responses become AppErrors built from the server's error payload.
func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, *app_error.AppError) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, app_error.NewAppError(http.StatusBadRequest, "failed to encode request body", "encode")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, app_error.NewAppError(http.StatusBadRequest, "failed to build request", "request")
	}

	reqID := uuid.New().String()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Authorization", "Bearer "+c.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("requestID", reqID).Str("path", path).Msg("rest: request failed")
		return nil, app_error.FromNetwork(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		appErr := app_error.FromResponse(resp.StatusCode, resp.Body)
		log.Warn().Int("status", resp.StatusCode).Str("requestID", reqID).Str("path", path).Str("message", appErr.Message).Msg("rest: server rejected request")
		return nil, appErr
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	var envelope dtos.Response[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, app_error.NewAppError(resp.StatusCode, "failed to decode response", "decode")
	}

	return envelope.Data, nil
}

func decodeOne[T any](data json.RawMessage) (*T, *app_error.AppError) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, app_error.NewAppError(http.StatusInternalServerError, "unexpected response shape", "decode")
	}
	return &out, nil
}

func (c *Client) ListRooms(ctx context.Context) ([]entity.Room, *app_error.AppError) {
	data, appErr := c.do(ctx, http.MethodGet, "/chat/rooms", nil)
	if appErr != nil {
		return nil, appErr
	}

	rooms, err := dtos.UnwrapList[entity.Room](data)
	if err != nil {
		return nil, app_error.NewAppError(http.StatusInternalServerError, "unexpected room list shape", "decode")
	}
	return rooms, nil
}

func (c *Client) CreateRoom(ctx context.Context, companyID string) (*entity.Room, *app_error.AppError) {
	req := chat_dto.CreateRoomRequest{CompanyID: companyID}
	if err := c.validate.Struct(req); err != nil {
		return nil, app_error.NewAppError(http.StatusBadRequest, "companyId is required", "companyId")
	}

	data, appErr := c.do(ctx, http.MethodPost, "/chat/rooms", req)
	if appErr != nil {
		return nil, appErr
	}
	return decodeOne[entity.Room](data)
}

func (c *Client) GetRoom(ctx context.Context, roomID string) (*entity.Room, *app_error.AppError) {
	data, appErr := c.do(ctx, http.MethodGet, "/chat/rooms/"+roomID, nil)
	if appErr != nil {
		return nil, appErr
	}
	return decodeOne[entity.Room](data)
}

func (c *Client) ListMessages(ctx context.Context, roomID string) ([]entity.Message, *app_error.AppError) {
	data, appErr := c.do(ctx, http.MethodGet, fmt.Sprintf("/chat/rooms/%s/messages", roomID), nil)
	if appErr != nil {
		return nil, appErr
	}

	messages, err := dtos.UnwrapList[entity.Message](data)
	if err != nil {
		return nil, app_error.NewAppError(http.StatusInternalServerError, "unexpected message list shape", "decode")
	}
	return messages, nil
}

func (c *Client) SendMessage(ctx context.Context, roomID string, req chat_dto.SendMessageRequest) (*entity.Message, *app_error.AppError) {
	if err := c.validate.Struct(req); err != nil {
		return nil, app_error.NewAppError(http.StatusBadRequest, "message content is required", "content")
	}

	data, appErr := c.do(ctx, http.MethodPost, fmt.Sprintf("/chat/rooms/%s/messages", roomID), req)
	if appErr != nil {
		return nil, appErr
	}
	return decodeOne[entity.Message](data)
}

func (c *Client) MarkRead(ctx context.Context, roomID string) *app_error.AppError {
	_, appErr := c.do(ctx, http.MethodPatch, fmt.Sprintf("/chat/rooms/%s/read", roomID), nil)
	return appErr
}

func (c *Client) Decline(ctx context.Context, roomID string) (*chat_dto.DeclineResponse, *app_error.AppError) {
	data, appErr := c.do(ctx, http.MethodPatch, fmt.Sprintf("/chat/rooms/%s/decline", roomID), nil)
	if appErr != nil {
		return nil, appErr
	}
	return decodeOne[chat_dto.DeclineResponse](data)
}

func (c *Client) Complete(ctx context.Context, roomID string) (*chat_dto.CompleteResponse, *app_error.AppError) {
	data, appErr := c.do(ctx, http.MethodPatch, fmt.Sprintf("/chat/rooms/%s/complete", roomID), nil)
	if appErr != nil {
		return nil, appErr
	}
	return decodeOne[chat_dto.CompleteResponse](data)
}

func (c *Client) ReportCompletion(ctx context.Context, matchingID string, req chat_dto.ReportCompletionRequest) *app_error.AppError {
	if err := c.validate.Struct(req); err != nil {
		return app_error.NewAppError(http.StatusBadRequest, "completion report requires 1 to 5 images", "images")
	}

	_, appErr := c.do(ctx, http.MethodPost, fmt.Sprintf("/matchings/requests/%s/report-completion", matchingID), req)
	return appErr
}

func (c *Client) ConfirmCompletion(ctx context.Context, matchingID string) *app_error.AppError {
	_, appErr := c.do(ctx, http.MethodPatch, fmt.Sprintf("/matchings/requests/%s/confirm-completion", matchingID), nil)
	return appErr
}

func (c *Client) ReportAbuse(ctx context.Context, req chat_dto.ReportAbuseRequest) *app_error.AppError {
	if err := c.validate.Struct(req); err != nil {
		return app_error.NewAppError(http.StatusBadRequest, "invalid report", "report")
	}

	_, appErr := c.do(ctx, http.MethodPost, "/reports", req)
	return appErr
}
