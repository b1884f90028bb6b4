package app_error

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromResponse_ServerErrorPayload(t *testing.T) {
	body := strings.NewReader(`{"errors":{"code":400,"message":"content is required","field":"content"}}`)

	appErr := FromResponse(http.StatusBadRequest, body)

	assert.Equal(t, http.StatusBadRequest, appErr.Code)
	assert.Equal(t, "content is required", appErr.Message)
	assert.Equal(t, "content", appErr.Field)
}

func TestFromResponse_TopLevelMessage(t *testing.T) {
	body := strings.NewReader(`{"message":"room not found"}`)

	appErr := FromResponse(http.StatusNotFound, body)

	assert.Equal(t, "room not found", appErr.Message)
}

func TestFromResponse_MalformedBodyFallsBack(t *testing.T) {
	body := strings.NewReader(`<html>bad gateway</html>`)

	appErr := FromResponse(http.StatusBadGateway, body)

	require.NotEmpty(t, appErr.Message)
	assert.NotContains(t, appErr.Message, "<html>", "raw bodies never leak to the user")
}

func TestTransient(t *testing.T) {
	assert.True(t, FromNetwork(errors.New("dial tcp: refused")).Transient())
	assert.True(t, NewAppError(http.StatusBadGateway, "upstream down", "").Transient())
	assert.False(t, NewAppError(http.StatusBadRequest, "bad content", "content").Transient())
	assert.False(t, NewAppError(http.StatusConflict, "already declined", "").Transient())
}

func TestAppError_ImplementsError(t *testing.T) {
	var err error = NewAppError(http.StatusBadRequest, "nope", "")
	assert.Equal(t, "nope", err.Error())
}
