package resumes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resume-analyzer/internal/queue"
	"resume-analyzer/internal/shared/telemetry"
)

// Dispatcher starts analysis for a stored resume without blocking the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, resumeID string) error
}

// Processor runs one analysis to completion.
type Processor interface {
	ProcessAnalysis(ctx context.Context, resumeID string) error
}

// QueueDispatcher hands analysis jobs to the worker through the queue.
type QueueDispatcher struct {
	Queue queue.Client
	Now   func() time.Time
}

func (d QueueDispatcher) Dispatch(ctx context.Context, resumeID string) error {
	if d.Queue == nil {
		return errors.New("job queue not configured")
	}
	now := time.Now().UTC()
	if d.Now != nil {
		now = d.Now()
	}
	msg := queue.Message{
		ResumeID:   resumeID,
		RequestID:  requestIDFromContext(ctx),
		EnqueuedAt: now.Format(time.RFC3339),
		Version:    queue.MessageVersion,
	}
	if err := d.Queue.Send(ctx, msg); err != nil {
		return fmt.Errorf("enqueue analysis %s: %w", resumeID, err)
	}
	telemetry.Info("analysis.enqueued", map[string]any{
		"resume_id":  resumeID,
		"request_id": msg.RequestID,
	})
	return nil
}

// AsyncDispatcher runs the analysis on a goroutine in the API process.
type AsyncDispatcher struct {
	Processor Processor
	Timeout   time.Duration
}

func (d AsyncDispatcher) Dispatch(ctx context.Context, resumeID string) error {
	if d.Processor == nil {
		return errors.New("analysis processor not configured")
	}
	bg := backgroundWithRequestID(ctx)
	go func() {
		runCtx := bg
		if d.Timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(bg, d.Timeout)
			defer cancel()
		}
		defer func() {
			if r := recover(); r != nil {
				telemetry.Error("analysis.panic", map[string]any{
					"resume_id": resumeID,
					"panic":     fmt.Sprint(r),
				})
			}
		}()
		if err := d.Processor.ProcessAnalysis(runCtx, resumeID); err != nil {
			telemetry.Error("analysis.async_failed", map[string]any{
				"resume_id":  resumeID,
				"request_id": requestIDFromContext(bg),
				"error":      err,
			})
		}
	}()
	return nil
}
