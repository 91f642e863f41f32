package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/usercenter/pkg/auth"
)

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"message": "success"}

	err := WriteJSON(w, http.StatusOK, data)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "success")
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteSuccess(w, map[string]int64{"id": 7}))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, "ok", resp.Message)
	assert.Equal(t, map[string]interface{}{"id": float64(7)}, resp.Data)
}

func TestWriteAccountError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
		wantMsg    string
	}{
		{"invalid argument", auth.InvalidArgument("account is too short"), http.StatusBadRequest, CodeParamsError, "account is too short"},
		{"conflict", auth.NewError(auth.KindConflict, "account already exists"), http.StatusConflict, CodeConflict, "account already exists"},
		{"not authenticated", auth.NewError(auth.KindNotAuthenticated, "not logged in"), http.StatusUnauthorized, CodeNotLogin, "not logged in"},
		{"forbidden", auth.NewError(auth.KindForbidden, "account is banned"), http.StatusForbidden, CodeForbidden, "account is banned"},
		{"not found", auth.NewError(auth.KindNotFound, "account not found"), http.StatusNotFound, CodeNotFound, "account not found"},
		{"invalid credentials", auth.NewError(auth.KindInvalidCredentials, "wrong account or password"), http.StatusUnauthorized, CodeInvalidCredentials, "wrong account or password"},
		{"system", auth.SystemError("login failed, system error", errors.New("dial tcp: refused")), http.StatusInternalServerError, CodeSystemError, "login failed, system error"},
		{"operation not permitted", auth.NewError(auth.KindOperationNotPermitted, "not logged in"), http.StatusBadRequest, CodeOperationError, "not logged in"},
		{"wrapped", fmt.Errorf("handler: %w", auth.NewError(auth.KindNotFound, "gone")), http.StatusNotFound, CodeNotFound, "gone"},
		{"plain error", errors.New("pq: connection refused"), http.StatusInternalServerError, CodeSystemError, "system error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteAccountError(w, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantMsg, resp.Message)
			assert.Nil(t, resp.Data)
		})
	}
}

func TestWriteAccountError_HidesCause(t *testing.T) {
	w := httptest.NewRecorder()
	WriteAccountError(w, auth.SystemError("system error", errors.New("password authentication failed for user postgres")))

	assert.NotContains(t, w.Body.String(), "postgres")
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter)
		wantStatus int
		wantCode   int
	}{
		{"bad request", func(w http.ResponseWriter) { WriteBadRequest(w, "bad") }, http.StatusBadRequest, CodeParamsError},
		{"unauthorized", func(w http.ResponseWriter) { WriteUnauthorized(w, "login") }, http.StatusUnauthorized, CodeNotLogin},
		{"no auth", func(w http.ResponseWriter) { WriteNoAuth(w, "no permission") }, http.StatusForbidden, CodeNoAuth},
		{"too many requests", func(w http.ResponseWriter) { WriteTooManyRequests(w, "slow down") }, http.StatusTooManyRequests, CodeTooManyRequests},
		{"internal", WriteInternalError, http.StatusInternalServerError, CodeSystemError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeResponse(t, w).Code)
		})
	}
}
