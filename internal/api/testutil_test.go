package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"agriapp/internal/auth"
	"agriapp/internal/comment"
	"agriapp/internal/config"
	"agriapp/internal/db/dbtest"
	"agriapp/internal/user"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	router   *gin.Engine
	users    *user.Service
	comments *comment.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn := dbtest.Open(t)

	cfg := &config.Config{}
	cfg.Server.Subpath = "/api"
	users := user.NewService(
		user.NewGormStore(conn),
		user.NewBcryptHasher(bcrypt.MinCost),
		auth.NewManager("api-test-secret", time.Hour),
	)
	comments := comment.NewService(comment.NewGormStore(conn))
	r := SetupRouter(Deps{Config: cfg, Users: users, Comments: comments})
	return &testServer{router: r, users: users, comments: comments}
}

func (s *testServer) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, "/api"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// signup registers a regular user through the service and returns its id and
// token.
func (s *testServer) signup(t *testing.T, username string) (string, string) {
	t.Helper()
	res, err := s.users.Register(context.Background(), user.RegisterInput{
		Username: username, Email: username + "@farm.org", Password: "pw-" + username,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return res.User.ID, res.Token
}

// signupAdmin creates an admin directly and logs it in.
func (s *testServer) signupAdmin(t *testing.T, username string) (string, string) {
	t.Helper()
	ctx := context.Background()
	u, err := s.users.CreateUser(ctx, user.CreateInput{
		RegisterInput: user.RegisterInput{Username: username, Email: username + "@farm.org", Password: "pw"},
		Role:          user.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	res, err := s.users.Login(ctx, username, "pw")
	if err != nil {
		t.Fatalf("login admin: %v", err)
	}
	return u.ID, res.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

