package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		header   string
		wantEcho bool
	}{
		{name: "generated when absent", header: "", wantEcho: false},
		{name: "caller id reused", header: "req-123.abc:1", wantEcho: true},
		{name: "control characters replaced", header: "bad\tid", wantEcho: false},
		{name: "json breaking characters replaced", header: `x"}`, wantEcho: false},
		{name: "overlong replaced", header: strings.Repeat("a", maxRequestIDLen+1), wantEcho: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			r := gin.New()
			r.Use(RequestID())
			r.GET("/x", func(c *gin.Context) {
				seen = RequestIDFromContext(c)
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-Id", tt.header)
			}
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)

			if got := resp.Header().Get("X-Request-Id"); got != seen {
				t.Fatalf("header %q does not match context %q", got, seen)
			}
			if tt.wantEcho {
				if seen != tt.header {
					t.Fatalf("expected caller id %q, got %q", tt.header, seen)
				}
				return
			}
			if _, err := uuid.Parse(seen); err != nil {
				t.Fatalf("expected generated uuid, got %q", seen)
			}
		})
	}
}
