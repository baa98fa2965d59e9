package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearthside/estate/internal/config"
)

func serviceRequest(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func setupServiceRouter(shutdownChan chan struct{}) *gin.Engine {
	gin.SetMode(gin.TestMode)
	// The Redis client is only dialed on a getTestEmail lookup, which these
	// tests never reach.
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	return SetupServiceRouter(&config.Config{}, rdb, shutdownChan)
}

func TestServiceRouter_ShutdownSignalsChannel(t *testing.T) {
	shutdownChan := make(chan struct{}, 1)
	r := setupServiceRouter(shutdownChan)

	w := serviceRequest(t, r, `{"method": "shutdown"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	select {
	case <-shutdownChan:
	default:
		t.Fatal("shutdown command did not signal the channel")
	}
}

func TestServiceRouter_ShutdownDoesNotBlockWhenAlreadySignaled(t *testing.T) {
	shutdownChan := make(chan struct{}, 1)
	shutdownChan <- struct{}{} // channel already full
	r := setupServiceRouter(shutdownChan)

	w := serviceRequest(t, r, `{"method": "shutdown"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServiceRouter_GetTestEmailRejectsBadArguments(t *testing.T) {
	r := setupServiceRouter(make(chan struct{}, 1))

	for _, body := range []string{
		`{"method": "getTestEmail"}`,
		`{"method": "getTestEmail", "arguments": ["only-one"]}`,
		`{"method": "getTestEmail", "arguments": {"kind": "x"}}`,
	} {
		w := serviceRequest(t, r, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)
		assert.Contains(t, w.Body.String(), `"success":false`)
	}
}

func TestServiceRouter_UnknownMethod(t *testing.T) {
	r := setupServiceRouter(make(chan struct{}, 1))

	w := serviceRequest(t, r, `{"method": "rebootEverything"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestServiceRouter_MalformedBody(t *testing.T) {
	r := setupServiceRouter(make(chan struct{}, 1))

	w := serviceRequest(t, r, `not-json`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
