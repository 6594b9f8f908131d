package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackmark/internal/audit"
	"trackmark/internal/quality"
	"trackmark/internal/render"
)

type recordingPublisher struct {
	events []audit.Event
}

func (p *recordingPublisher) Emit(_ context.Context, event audit.Event) error {
	p.events = append(p.events, event)
	return nil
}

const testIdentifier = "IR-WR-BCT-021-114320-BOLT-2024-001234"

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	engine, err := quality.New(render.NewDecoder(), quality.DefaultConfig())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(engine, logger).Register(r)
	return r
}

func scoreRequest(t *testing.T, png []byte, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if png != nil {
		part, err := mw.CreateFormFile("image", "capture.png")
		require.NoError(t, err)
		_, err = part.Write(png)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/quality/score", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func renderPNG(t *testing.T) []byte {
	t.Helper()
	cfg := render.DefaultConfig()
	png, err := render.NewRenderer(cfg).RenderPNG(testIdentifier)
	require.NoError(t, err)
	return png
}

func TestHandleScore(t *testing.T) {
	t.Run("clean render passes", func(t *testing.T) {
		r := newTestRouter(t)
		req := scoreRequest(t, renderPNG(t), map[string]string{"identifier": testIdentifier})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var report quality.Report
		require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
		assert.Equal(t, quality.VerdictPass, report.Verdict)
		assert.Equal(t, 100.0, report.ReadabilityScore)
	})

	t.Run("identifier mismatch fails readability", func(t *testing.T) {
		r := newTestRouter(t)
		req := scoreRequest(t, renderPNG(t), map[string]string{
			"identifier": "IR-WR-BCT-021-114320-BOLT-2024-009999",
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var report quality.Report
		require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
		assert.Equal(t, 0.0, report.ReadabilityScore)
		assert.NotEqual(t, quality.VerdictPass, report.Verdict)
	})

	t.Run("malformed identifier is rejected", func(t *testing.T) {
		r := newTestRouter(t)
		req := scoreRequest(t, renderPNG(t), map[string]string{"identifier": "not-an-id"})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing image is rejected", func(t *testing.T) {
		r := newTestRouter(t)
		req := scoreRequest(t, nil, map[string]string{"identifier": testIdentifier})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unreadable image bytes are rejected", func(t *testing.T) {
		r := newTestRouter(t)
		req := scoreRequest(t, []byte("not a png"), map[string]string{"identifier": testIdentifier})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("verdict lands on the audit trail", func(t *testing.T) {
		engine, err := quality.New(render.NewDecoder(), quality.DefaultConfig())
		require.NoError(t, err)

		pub := &recordingPublisher{}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		r := chi.NewRouter()
		New(engine, logger, WithAuditPublisher(pub)).Register(r)

		req := scoreRequest(t, renderPNG(t), map[string]string{"identifier": testIdentifier})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		require.Len(t, pub.events, 1)
		assert.Equal(t, audit.ActionQualityScored, pub.events[0].Action)
		assert.Equal(t, testIdentifier, pub.events[0].Identifier)
		assert.Equal(t, "WR:BCT:BOLT:2024", pub.events[0].Partition)
		assert.Equal(t, string(quality.VerdictPass), pub.events[0].Detail)
	})

	t.Run("invalid size override is rejected", func(t *testing.T) {
		r := newTestRouter(t)
		req := scoreRequest(t, renderPNG(t), map[string]string{
			"identifier":      testIdentifier,
			"marking_size_mm": "-3",
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
