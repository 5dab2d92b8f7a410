package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/menu-planner/internal/apperror"
	"github.com/sakif/menu-planner/internal/auth"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantKind    string
		wantMessage string
		wantField   string
	}{
		{"validation", apperror.ValidationFailed("name", "Name is required"), 400, "validation_error", "Name is required", "name"},
		{"unauthorized", apperror.Unauthorized("valid authentication required"), 401, "unauthorized", "valid authentication required", ""},
		{"forbidden", apperror.Forbidden("You are not a member of this group"), 403, "forbidden", "You are not a member of this group", ""},
		{"not found", apperror.NotFound("menu item", "x1"), 404, "not_found", "menu item not found with id x1", ""},
		{"conflict", apperror.Conflict("group", "g1"), 409, "conflict", "group conflict with id g1", ""},
		{"wrapped", fmt.Errorf("service/menu: %w", apperror.NotFound("menu item", "x2")), 404, "not_found", "menu item not found with id x2", ""},
		{"transaction", apperror.TransactionFailed("join group", errors.New("disk I/O error")), 500, "transaction_failed", "could not join group, no changes were saved", ""},
		{"raw error", errors.New("sqlstore: near \"SELEC\": syntax error"), 500, "internal_error", "An internal error occurred", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, newTestLogger(), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			body := decodeError(t, rec)
			assert.Equal(t, tt.wantKind, body.Error)
			assert.Equal(t, tt.wantMessage, body.Message)
			assert.Equal(t, tt.wantField, body.Field)
			assert.NotContains(t, rec.Body.String(), "disk I/O", "causes are never serialized")
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name     string
		body     string
		wantErr  bool
		wantName string
	}{
		{"object", `{"name":"Soup"}`, false, "Soup"},
		{"empty body", ``, false, ""},
		{"malformed", `{"name":`, true, ""},
		{"wrong type", `{"name": 5}`, true, ""},
		{"two values", `{"name":"a"}{"name":"b"}`, true, ""},
		{"too large", `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var got payload
			err := decodeJSON(httptest.NewRecorder(), req, &got)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, got.Name)
		})
	}
}

func TestRequestUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := requestUserID(req)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	req = req.WithContext(auth.WithUserID(req.Context(), "u1"))
	id, err := requestUserID(req)
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
}
