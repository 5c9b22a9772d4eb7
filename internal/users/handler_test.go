package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"resume-analyzer/internal/shared/auth"
	"resume-analyzer/internal/shared/server/middleware"
)

func newMeRouter(t *testing.T, repo Repo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")
	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(middleware.Auth("test"))
	NewHandler(NewService(repo)).RegisterRoutes(api)
	return router
}

func bearer(t *testing.T, subject, email string) string {
	t.Helper()
	token, err := auth.SignJWT(auth.Claims{Email: email, RegisteredClaims: jwt.RegisteredClaims{Subject: subject}})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	return "Bearer " + token
}

func TestMeReturnsPersistedUser(t *testing.T) {
	repo := NewMemoryRepo()
	_ = repo.Create(context.Background(), User{ID: "local:1", Email: "ada@example.com", FullName: "Ada"})
	router := newMeRouter(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", bearer(t, "local:1", "ada@example.com"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &body)
	if body["fullName"] != "Ada" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestMeFallsBackToClaims(t *testing.T) {
	router := newMeRouter(t, NewMemoryRepo())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", bearer(t, "google:42", "g@example.com"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &body)
	if body["id"] != "google:42" || body["email"] != "g@example.com" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestMeRejectsGuests(t *testing.T) {
	router := newMeRouter(t, NewMemoryRepo())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Guest-Id", "g1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
