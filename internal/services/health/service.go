package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resume-analyzer/internal/shared/server/respond"
)

const defaultCheckTimeout = 5 * time.Second

// Pinger is satisfied by *sql.DB and the redis progress store.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// ConnectionTester checks the model provider.
type ConnectionTester interface {
	TestConnection(ctx context.Context) error
}

// Check is the outcome of one dependency check.
type Check struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Report is the health payload.
type Report struct {
	OK     bool             `json:"ok"`
	Checks map[string]Check `json:"checks,omitempty"`
}

// Service encapsulates health-related checks.
type Service struct {
	DB       Pinger
	Progress Pinger
	Model    ConnectionTester
	Timeout  time.Duration
}

// NewService constructs a new health service. Nil dependencies are skipped.
func NewService(db, progress Pinger, model ConnectionTester) *Service {
	return &Service{DB: db, Progress: progress, Model: model, Timeout: defaultCheckTimeout}
}

// Status reports liveness. With deep set it also checks the database, the
// progress store and the model provider.
func (s *Service) Status(ctx context.Context, deep bool) Report {
	report := Report{OK: true}
	if !deep {
		return report
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report.Checks = map[string]Check{}
	record := func(name string, err error) {
		c := Check{OK: err == nil}
		if err != nil {
			c.Error = err.Error()
			report.OK = false
		}
		report.Checks[name] = c
	}
	if s.DB != nil {
		record("database", s.DB.PingContext(ctx))
	}
	if s.Progress != nil {
		record("progress", s.Progress.PingContext(ctx))
	}
	if s.Model != nil {
		record("model", s.Model.TestConnection(ctx))
	}
	return report
}

// Handler serves GET /health.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.health)
}

func (h *Handler) health(c *gin.Context) {
	deep := c.Query("deep") == "1" || c.Query("deep") == "true"
	report := h.Svc.Status(c.Request.Context(), deep)
	status := http.StatusOK
	if !report.OK {
		status = http.StatusServiceUnavailable
	}
	respond.JSON(c, status, report)
}
