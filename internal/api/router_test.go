package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"agriapp/internal/config"

	"github.com/gin-gonic/gin"
)

func TestSetupRouter_Subpath(t *testing.T) {
	s := newTestServer(t)
	expectStatus(t, s.do("GET", "/health", nil, ""), http.StatusOK)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("routes must only be served under the subpath, got %d", w.Code)
	}
}

func TestSetupRouter_EmptySubpath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupRouter(Deps{Config: &config.Config{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET /health should return 200, got %d", w.Code)
	}
}

func TestOnlineUsers_WithoutRedis(t *testing.T) {
	s := newTestServer(t)
	w := s.do("GET", "/users/online", nil, "")
	expectStatus(t, w, http.StatusOK)
	body := decode[map[string]int](t, w)
	if body["online"] != 0 {
		t.Errorf("expected 0 online users without redis, got %d", body["online"])
	}
}
