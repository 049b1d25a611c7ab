package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloudshare/internal/infra/logging"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func nopLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

func TestTraceID(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.TraceID(r.Context())
	}), TraceID())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(traceHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(traceHeader, "req-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", seen)
}

func TestRecover(t *testing.T) {
	log := nopLogger()

	t.Run("writes 500 before the response starts", func(t *testing.T) {
		h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}), RequestLog(log), Recover(log))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("leaves a committed response alone", func(t *testing.T) {
		h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte("partial"))
			panic("boom")
		}), RequestLog(log), Recover(log))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "partial", rec.Body.String())
	})
}

func TestTimeout(t *testing.T) {
	var deadline time.Time
	var ok bool
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)
}

func TestRespWriter_Committed(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &respWriter{ResponseWriter: rec, status: http.StatusOK}
	assert.False(t, w.Committed())
	_, _ = w.Write([]byte("x"))
	assert.True(t, w.Committed())
	w.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusOK, w.status)
}
