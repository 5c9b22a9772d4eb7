package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"resume-analyzer/internal/bootstrap"
	"resume-analyzer/internal/resumes"
	"resume-analyzer/internal/shared/config"
	"resume-analyzer/internal/shared/metrics"
	"resume-analyzer/internal/shared/telemetry"
	"resume-analyzer/internal/workerproc"
)

var (
	initOnce  sync.Once
	initErr   error
	processor resumes.Processor
)

func initApp() {
	cfg := config.Load()
	if err := telemetry.Configure(telemetry.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		telemetry.Warn("lambda.logger_config_invalid", map[string]any{"error": err})
	}
	app, err := bootstrap.Build(context.Background(), cfg, bootstrap.RoleLambda)
	if err != nil {
		initErr = err
		return
	}
	processor = app.Resumes
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": initErr})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return processBatch(ctx, processor, event), nil
}

// processBatch reports only retryable failures back to SQS. Payloads that can
// never succeed are acknowledged so they do not cycle until the DLQ.
func processBatch(ctx context.Context, p resumes.Processor, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		metrics.IncAnalysisJobsReceived()
		fields := map[string]any{"sqs_message_id": record.MessageId}

		msg, _, err := workerproc.ParseMessage(record.Body)
		if err == nil {
			fields["resume_id"] = msg.ResumeID
			err = workerproc.Process(ctx, p, msg)
		}
		switch {
		case err == nil:
			metrics.IncAnalysisJobsCompleted()
		case workerproc.Unrecoverable(err):
			fields["error"] = err.Error()
			telemetry.Warn("lambda.analysis.dropped", fields)
			metrics.IncAnalysisJobsDeletedUnrecoverable()
		default:
			fields["error"] = err.Error()
			telemetry.Error("lambda.analysis.failed", fields)
			metrics.IncAnalysisJobsFailed()
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
