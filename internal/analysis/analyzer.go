package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resume-analyzer/internal/llm"
	"resume-analyzer/internal/shared/metrics"
	"resume-analyzer/internal/shared/telemetry"
)

const (
	defaultMaxRetries = 2
	retryBaseDelay    = 1000 * time.Millisecond
	retryMaxDelay     = 5000 * time.Millisecond
)

// DefaultGenerationConfig holds the sampling parameters used for analysis.
var DefaultGenerationConfig = llm.GenerationConfig{
	Temperature:     0.7,
	TopK:            40,
	TopP:            0.95,
	MaxOutputTokens: 2048,
}

// Analyzer turns resume text into a Result using a generative model, with
// bounded retries on overload and heuristic fallbacks.
type Analyzer struct {
	Generator  llm.Generator
	Config     llm.GenerationConfig
	MaxRetries int
	Sleep      func(ctx context.Context, d time.Duration) error
	Now        func() time.Time
}

// NewAnalyzer returns an Analyzer with default sampling and retry settings.
func NewAnalyzer(gen llm.Generator) *Analyzer {
	return &Analyzer{
		Generator:  gen,
		Config:     DefaultGenerationConfig,
		MaxRetries: defaultMaxRetries,
		Sleep:      sleepContext,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// Analyze runs the analysis. Errors are either a context error or an
// *AnalysisError matching one of the ErrXxx categories.
func (a *Analyzer) Analyze(ctx context.Context, resumeText string) (Result, error) {
	started := time.Now()
	metrics.IncAnalysisStarted()
	defer func() {
		metrics.ObserveAnalysisDurationMs(float64(time.Since(started).Milliseconds()))
	}()

	result, err := a.analyze(ctx, resumeText)
	if err != nil {
		metrics.IncAnalysisFailed()
		return Result{}, err
	}
	if result.Source != SourceModel {
		metrics.IncAnalysisFallback()
	}
	metrics.IncAnalysisCompleted()
	return result, nil
}

func (a *Analyzer) analyze(ctx context.Context, resumeText string) (Result, error) {
	if a.Generator == nil {
		return Result{}, classify(llm.ErrNotConfigured)
	}
	prompt := BuildPrompt(resumeText)

	for attempt := 0; ; attempt++ {
		raw, err := a.Generator.Generate(ctx, prompt, a.Config)
		if err == nil {
			return a.parse(raw), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}

		if !isOverloaded(err) {
			classified := classify(err)
			telemetry.Error("analysis.failed", map[string]any{
				"model":   a.Generator.Model(),
				"attempt": attempt + 1,
				"error":   err,
			})
			return Result{}, classified
		}

		if attempt >= a.maxRetries() {
			telemetry.Warn("analysis.fallback", map[string]any{
				"model":    a.Generator.Model(),
				"attempts": attempt + 1,
				"reason":   "max retries reached",
			})
			return FromContentHeuristics(resumeText, a.now()), nil
		}

		delay := backoff(attempt)
		metrics.IncAnalysisRetry()
		telemetry.Warn("analysis.retry", map[string]any{
			"model":    a.Generator.Model(),
			"attempt":  attempt + 1,
			"delay_ms": delay.Milliseconds(),
			"error":    err,
		})
		if err := a.sleep(ctx, delay); err != nil {
			return Result{}, err
		}
	}
}

func (a *Analyzer) parse(raw string) Result {
	now := a.now()
	result, err := FromModelJSON(raw, now)
	if err == nil {
		return result
	}
	telemetry.Warn("analysis.parse_fallback", map[string]any{
		"error":    err,
		"response": telemetry.Truncate(raw, 300),
	})
	return FromTextHeuristics(raw, now)
}

// TestConnection sends a trivial prompt and reports the raw provider error.
func (a *Analyzer) TestConnection(ctx context.Context) error {
	if a.Generator == nil {
		return llm.ErrNotConfigured
	}
	if _, err := a.Generator.Generate(ctx, connectionPrompt, llm.GenerationConfig{}); err != nil {
		return fmt.Errorf("test connection: %w", err)
	}
	return nil
}

func (a *Analyzer) maxRetries() int {
	if a.MaxRetries < 0 {
		return 0
	}
	return a.MaxRetries
}

func (a *Analyzer) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

func (a *Analyzer) sleep(ctx context.Context, d time.Duration) error {
	if a.Sleep != nil {
		return a.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func backoff(attempt int) time.Duration {
	delay := retryBaseDelay << attempt
	if delay > retryMaxDelay || delay <= 0 {
		return retryMaxDelay
	}
	return delay
}

func isOverloaded(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "503") || strings.Contains(msg, "overloaded")
}

// classify maps a provider error onto a user-facing category. Order matters:
// a message naming both a quota and a model is a rate limit.
func classify(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "API key"):
		return &AnalysisError{Kind: ErrConfiguration, Message: "Invalid Gemini API key. Please check your configuration.", Err: err}
	case strings.Contains(msg, "quota") || strings.Contains(msg, "limit"):
		return &AnalysisError{Kind: ErrRateLimited, Message: "API quota exceeded. Please try again later.", Err: err}
	case strings.Contains(msg, "model"):
		return &AnalysisError{Kind: ErrServiceUnavailable, Message: "AI model unavailable. Please try again later.", Err: err}
	case strings.Contains(msg, "404"):
		return &AnalysisError{Kind: ErrServiceUnavailable, Message: "AI service temporarily unavailable. Please try again later.", Err: err}
	default:
		return &AnalysisError{Kind: ErrAnalysisFailed, Message: "Failed to analyze resume. Please try again.", Err: err}
	}
}

// UserMessage returns the message to show for err, falling back to the
// generic failure text.
func UserMessage(err error) string {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "Failed to analyze resume. Please try again."
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
