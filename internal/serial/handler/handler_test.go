package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackmark/internal/admintoken"
	"trackmark/internal/serial"
	"trackmark/internal/serial/store/counter"
	"trackmark/pkg/platform/middleware/admin"
)

var tokenService = admintoken.NewService("test-key", "trackmark", "trackmark-admin")

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	allocator, err := serial.New(counter.NewInMemoryStore())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdmin(admintoken.NewMiddlewareAdapter(tokenService), logger))
		New(allocator, nil, logger).Register(r)
	})
	return r
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := tokenService.GenerateToken("ops@trackmark", "admin", time.Hour)
	require.NoError(t, err)
	return token
}

func doReserve(t *testing.T, r chi.Router, token string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/admin/serials/reserve", bytes.NewReader(payload))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func reserveBody() map[string]any {
	return map[string]any{
		"region":         "WR",
		"division":       "BCT",
		"component_type": "BOLT",
		"year":           2024,
		"serial":         500,
	}
}

func TestHandleReserve(t *testing.T) {
	t.Run("requires a bearer token", func(t *testing.T) {
		r := newTestRouter(t)
		w := doReserve(t, r, "", reserveBody())
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects a forged token", func(t *testing.T) {
		r := newTestRouter(t)
		forged, err := admintoken.NewService("wrong-key", "trackmark", "trackmark-admin").
			GenerateToken("intruder", "admin", time.Hour)
		require.NoError(t, err)
		w := doReserve(t, r, forged, reserveBody())
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("reserves a fresh serial", func(t *testing.T) {
		r := newTestRouter(t)
		w := doReserve(t, r, adminToken(t), reserveBody())
		require.Equal(t, http.StatusCreated, w.Code)

		var resp struct {
			Partition string `json:"partition"`
			Serial    int    `json:"serial"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "WR:BCT:BOLT:2024", resp.Partition)
		assert.Equal(t, 500, resp.Serial)
	})

	t.Run("double reservation conflicts", func(t *testing.T) {
		r := newTestRouter(t)
		token := adminToken(t)
		require.Equal(t, http.StatusCreated, doReserve(t, r, token, reserveBody()).Code)
		assert.Equal(t, http.StatusConflict, doReserve(t, r, token, reserveBody()).Code)
	})

	t.Run("out-of-range serial is rejected", func(t *testing.T) {
		r := newTestRouter(t)
		body := reserveBody()
		body["serial"] = 1000000
		w := doReserve(t, r, adminToken(t), body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleStatus(t *testing.T) {
	r := newTestRouter(t)
	token := adminToken(t)
	require.Equal(t, http.StatusCreated, doReserve(t, r, token, reserveBody()).Code)

	req := httptest.NewRequest(http.MethodGet,
		"/admin/serials/status?region=WR&division=BCT&component_type=BOLT&year=2024", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		LastIssued int   `json:"last_issued"`
		Remaining  int   `json:"remaining"`
		Reserved   []int `json:"reserved"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 500, resp.LastIssued)
	assert.Equal(t, 999499, resp.Remaining)
	assert.Equal(t, []int{500}, resp.Reserved)
}
