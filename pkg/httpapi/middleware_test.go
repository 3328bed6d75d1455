package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsense/aicore/pkg/logger"
)

func newTestMiddleware(t *testing.T, next http.HandlerFunc, perMinute int) http.HandlerFunc {
	t.Helper()
	l := logger.NewLogger(logger.Config{Level: logger.Error, ServiceName: "httpapi-test"})
	cfg := Config{RequestTimeout: 5 * time.Second, RateLimitPerMinute: perMinute}
	return middleware(next, "/test", cfg, newCallerLimiter(perMinute), l, nil)
}

func TestMiddleware_PanicReturnsInternalError(t *testing.T) {
	h := newTestMiddleware(t, func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}, 100)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, CodeInternalError, body["error_code"])
}

func TestMiddleware_PanicAfterWriteKeepsFirstResponse(t *testing.T) {
	h := newTestMiddleware(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("partial"))
		panic("boom")
	}, 100)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	// The headers already went out; the recovery path must not stack a second
	// response on top of the first.
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestCallerLimiter_EvictsIdleEntries(t *testing.T) {
	c := newCallerLimiter(100)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.allow("owner-old")
	require.Len(t, c.limiters, 1)

	// The idle entry is swept the next time any caller arrives after the TTL.
	now = now.Add(limiterIdleTTL + time.Minute)
	c.allow("owner-new")

	assert.Len(t, c.limiters, 1)
	_, stale := c.limiters["owner-old"]
	assert.False(t, stale, "idle caller entry was not evicted")
	_, fresh := c.limiters["owner-new"]
	assert.True(t, fresh)
}

func TestCallerKey_QueryParamWins(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/test?owner_id=owner-q", nil)
	r.RemoteAddr = "10.0.0.1:4000"
	assert.Equal(t, "owner-q", callerKey(r))
}

func TestCallerKey_SearchBodyOwner(t *testing.T) {
	payload := `{"owner_id":"owner-b","search_text":"invoice"}`
	r := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(payload))
	r.RemoteAddr = "10.0.0.1:4000"

	assert.Equal(t, "owner-b", callerKey(r))

	// The peek rewinds: a handler decoding the body afterwards sees all of it.
	rest, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, string(rest))
}

func TestCallerKey_FallsBackToRemoteAddr(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{broken`))
	r.RemoteAddr = "10.0.0.7:4000"
	assert.Equal(t, "10.0.0.7", callerKey(r))
}

func TestRateLimit_SearchKeyedByBodyOwner(t *testing.T) {
	srv := newTestServer(t, &fakeRetriever{}, 1)

	post := func(owner string) *http.Response {
		body := `{"owner_id":"` + owner + `"}`
		resp, err := http.Post(srv.URL+"/document_chunks/search", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		return resp
	}

	resp := post("owner-a")
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post("owner-a")
	body := decodeEnvelope(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, CodeRateLimited, body["error_code"])

	// A different body owner is a different bucket, not the shared remote
	// address.
	resp = post("owner-b")
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
