package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackmark/internal/batch"
	"trackmark/internal/component"
	"trackmark/internal/serial"
	"trackmark/internal/serial/store/counter"
	"trackmark/internal/validation"
)

const manifest = "region,division,track_id,km_marker,component_type,year,serial\n" +
	"WR,BCT,21,114320,BOLT,2024,\n" +
	"QQ,BCT,21,114320,BOLT,2024,\n"

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	allocator, err := serial.New(counter.NewInMemoryStore())
	require.NoError(t, err)
	validator, err := validation.New(validation.DefaultRegistry(),
		validation.WithSerialReader(allocator),
		validation.WithClock(func() time.Time {
			return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		}),
	)
	require.NoError(t, err)
	svc, err := component.New(component.NewInMemoryStore(), validator, allocator)
	require.NoError(t, err)
	processor, err := batch.New(svc)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(processor, logger).Register(r)
	return r
}

func TestHandleProcess(t *testing.T) {
	t.Run("raw CSV body returns a JSON report", func(t *testing.T) {
		r := newTestRouter(t)
		req := httptest.NewRequest(http.MethodPost, "/batches", strings.NewReader(manifest))
		req.Header.Set("Content-Type", "text/csv")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var report batch.Report
		require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
		assert.Equal(t, 1, report.Succeeded)
		assert.Equal(t, 1, report.Failed)
	})

	t.Run("multipart manifest upload", func(t *testing.T) {
		r := newTestRouter(t)

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("manifest", "components.csv")
		require.NoError(t, err)
		_, err = io.WriteString(part, manifest)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/batches", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("CSV report when requested", func(t *testing.T) {
		r := newTestRouter(t)
		req := httptest.NewRequest(http.MethodPost, "/batches", strings.NewReader(manifest))
		req.Header.Set("Content-Type", "text/csv")
		req.Header.Set("Accept", "text/csv")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "line,encoded,warnings,error")
	})

	t.Run("bad header is rejected", func(t *testing.T) {
		r := newTestRouter(t)
		req := httptest.NewRequest(http.MethodPost, "/batches", strings.NewReader("a,b\n1,2\n"))
		req.Header.Set("Content-Type", "text/csv")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing multipart manifest is rejected", func(t *testing.T) {
		r := newTestRouter(t)

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("other", "x"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/batches", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
