package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/hotel-frontdesk/pkg/apperr"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestError_MapsKinds(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
		wantCode   string
	}{
		{"validation", apperr.NewValidation("All fields are required"), http.StatusBadRequest, "All fields are required", apperr.CodeInvalidInput},
		{"scheduling conflict", fmt.Errorf("svc: %w", apperr.New(apperr.Conflict, apperr.CodeRoomUnavailable, "Room is already booked for those dates")), http.StatusBadRequest, "Room is already booked for those dates", apperr.CodeRoomUnavailable},
		{"duplicate account", apperr.New(apperr.Conflict, apperr.CodeDuplicateAccount, "User already exists"), http.StatusConflict, "User already exists", apperr.CodeDuplicateAccount},
		{"not found", apperr.NewNotFound("Room not found"), http.StatusNotFound, "Room not found", apperr.CodeNotFound},
		{"forbidden", apperr.NewForbidden("Invalid hotel registration key"), http.StatusForbidden, "Invalid hotel registration key", apperr.CodeForbidden},
		{"unauthorized", apperr.NewUnauthorized("Invalid token"), http.StatusUnauthorized, "Invalid token", apperr.CodeUnauthorized},
		{"kind without code", &apperr.Error{Kind: apperr.TooManyRequests, Message: "slow down"}, http.StatusTooManyRequests, "slow down", apperr.CodeRateLimited},
		{"plain error hides cause", errors.New("pq: connection refused"), http.StatusInternalServerError, "Internal server error", apperr.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/bookings", nil)

			Error(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			body := decode(t, rec)
			assert.Equal(t, tt.wantMsg, body.Message)
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, Message{Message: "Booking successful"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"message":"Booking successful"}`, rec.Body.String())
}
