package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHandler(token string) *http.ServeMux {
	h := NewHandler(nil, StaticTokenAuthorizer{Token: token}, zap.NewNop())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func TestResearchRejectsNonPost(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler("").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/research", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestResearchRejectsBadToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(`{"question":"q"}`))
	req.Header.Set("Authorization", "Bearer wrong")

	rec := httptest.NewRecorder()
	newTestHandler("secret").ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
}

func TestResearchRejectsMalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	newTestHandler("").ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResearchRejectsMissingQuestion(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(`{"model":"m"}`))
	rec := httptest.NewRecorder()
	newTestHandler("").ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "question is required")
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler("").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStaticTokenAuthorizer(t *testing.T) {
	open := StaticTokenAuthorizer{}
	identity, ok := open.Authorize(httptest.NewRequest(http.MethodPost, "/", nil))
	assert.True(t, ok)
	assert.Equal(t, "anonymous", identity)

	guarded := StaticTokenAuthorizer{Token: "secret"}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer secret")
	identity, ok = guarded.Authorize(req)
	assert.True(t, ok)
	assert.Equal(t, "token-client", identity)

	_, ok = guarded.Authorize(httptest.NewRequest(http.MethodPost, "/", nil))
	assert.False(t, ok)
}
