package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakeTester struct{ err error }

func (f fakeTester) TestConnection(context.Context) error { return f.err }

func okPing(context.Context) error { return nil }

func TestStatusShallowSkipsChecks(t *testing.T) {
	svc := NewService(PingFunc(func(context.Context) error {
		t.Fatal("shallow status should not ping")
		return nil
	}), nil, nil)

	report := svc.Status(context.Background(), false)
	if !report.OK || report.Checks != nil {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestStatusDeep(t *testing.T) {
	tests := []struct {
		name   string
		db     error
		model  error
		wantOK bool
	}{
		{name: "all healthy", wantOK: true},
		{name: "database down", db: errors.New("refused"), wantOK: false},
		{name: "model down", model: errors.New("LLM provider not configured: API key missing"), wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbErr := tt.db
			svc := NewService(PingFunc(func(context.Context) error { return dbErr }), PingFunc(okPing), fakeTester{err: tt.model})
			report := svc.Status(context.Background(), true)
			if report.OK != tt.wantOK {
				t.Fatalf("ok=%v, want %v (%+v)", report.OK, tt.wantOK, report)
			}
			if len(report.Checks) != 3 {
				t.Fatalf("expected 3 checks, got %v", report.Checks)
			}
		})
	}
}

func TestHandlerStatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(nil, nil, fakeTester{err: errors.New("boom")})
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health?deep=1", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	var report Report
	if err := json.Unmarshal(resp.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Checks["model"].Error != "boom" {
		t.Fatalf("unexpected checks %+v", report.Checks)
	}
}
