package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/revenue-ledger/internal/auth"
	"github.com/josh-kwaku/revenue-ledger/internal/handler"
	"github.com/josh-kwaku/revenue-ledger/internal/logging"
	"github.com/josh-kwaku/revenue-ledger/internal/repository"
)

const testSecret = "test-secret"

type memoryIdempotency struct {
	mu      sync.Mutex
	entries map[string]*repository.IdempotentResponse
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{entries: make(map[string]*repository.IdempotentResponse)}
}

func (m *memoryIdempotency) Lookup(_ context.Context, key string, userID uuid.UUID) (*repository.IdempotentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[key+userID.String()], nil
}

func (m *memoryIdempotency) Store(_ context.Context, resp *repository.IdempotentResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := resp.Key + resp.UserID.String()
	if _, ok := m.entries[k]; !ok {
		m.entries[k] = resp
	}
	return nil
}

func bearer(t *testing.T, userID uuid.UUID, role auth.Role) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, role, testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestAuth(t *testing.T) {
	userID := uuid.New()
	var seen *auth.Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := Auth(testSecret)(next)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"garbage token", "Bearer nope", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"valid admin token", bearer(t, userID, auth.RoleAdmin), http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me/balance", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decodeEnvelope(t, rr).Code)
				assert.Nil(t, seen)
				return
			}
			require.NotNil(t, seen)
			assert.Equal(t, userID, seen.UserID)
			assert.True(t, seen.IsAdmin())
		})
	}
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	repo := newMemoryIdempotency()
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler.RespondSuccess(w, http.StatusCreated, map[string]int{"call": calls})
	})
	h := Chain(next, Auth(testSecret), Idempotency(repo, true))
	token := bearer(t, uuid.New(), auth.RoleUser)

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/me/withdrawals", strings.NewReader(body))
		req.Header.Set("Authorization", token)
		req.Header.Set(IdempotencyKeyHeader, "withdraw-1")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	first := send(`{"amount":"5"}`)
	assert.Equal(t, http.StatusCreated, first.Code)

	second := send(`{"amount":"5"}`)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("X-Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	conflict := send(`{"amount":"6"}`)
	assert.Equal(t, http.StatusConflict, conflict.Code)
	assert.Equal(t, "IDEMPOTENCY_CONFLICT", decodeEnvelope(t, conflict).Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotency_FailuresAreNotCached(t *testing.T) {
	repo := newMemoryIdempotency()
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			handler.RespondAppError(w, handler.ErrGatewayUnavailable, nil)
			return
		}
		handler.RespondSuccess(w, http.StatusCreated, nil)
	})
	h := Chain(next, Auth(testSecret), Idempotency(repo, true))
	token := bearer(t, uuid.New(), auth.RoleUser)

	for _, want := range []int{http.StatusBadGateway, http.StatusCreated} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/me/withdrawals", strings.NewReader(`{}`))
		req.Header.Set("Authorization", token)
		req.Header.Set(IdempotencyKeyHeader, "retry-me")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, want, rr.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotency_KeyRequirement(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	token := bearer(t, uuid.New(), auth.RoleUser)

	t.Run("required", func(t *testing.T) {
		h := Chain(next, Auth(testSecret), Idempotency(newMemoryIdempotency(), true))
		req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{}`))
		req.Header.Set("Authorization", token)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "MISSING_IDEMPOTENCY_KEY", decodeEnvelope(t, rr).Code)
	})

	t.Run("optional", func(t *testing.T) {
		h := Chain(next, Auth(testSecret), Idempotency(newMemoryIdempotency(), false))
		req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{}`))
		req.Header.Set("Authorization", token)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("reads pass through", func(t *testing.T) {
		h := Idempotency(newMemoryIdempotency(), true)(next)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), Recovery, Tracing)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/me/withdrawals", nil)
	req.Header.Set(traceIDHeader, "req-panic")
	req = req.WithContext(logging.WithLogger(req.Context(), logger))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	resp := decodeEnvelope(t, rr)
	assert.Equal(t, "error", resp.Status)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "panic recovered", entry["msg"])
	assert.Equal(t, "req-panic", entry["request_id"])
	assert.Equal(t, "/api/v1/accounts/me/withdrawals", entry["path"])
}

func TestTracing(t *testing.T) {
	var seen string
	h := Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(traceIDHeader, "req-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rr.Header().Get(traceIDHeader))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)

	for _, bad := range []string{strings.Repeat("a", maxTraceIDLen+1), "id with spaces", "line\nbreak"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(traceIDHeader, bad)
		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err, "inbound %q should be replaced", bad)
		assert.Equal(t, seen, rr.Header().Get(traceIDHeader))
	}
}
