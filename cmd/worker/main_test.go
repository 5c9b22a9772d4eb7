package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"resume-analyzer/internal/queue"
	"resume-analyzer/internal/resumes"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(context.Context, *sqs.ReceiveMessageInput, ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeProcessor struct {
	err error
	ids []string
}

func (f *fakeProcessor) ProcessAnalysis(_ context.Context, resumeID string) error {
	f.ids = append(f.ids, resumeID)
	return f.err
}

func sqsMessage(t *testing.T, id string, body string) sqstypes.Message {
	t.Helper()
	return sqstypes.Message{
		MessageId:     aws.String("m-" + id),
		ReceiptHandle: aws.String("r-" + id),
		Body:          aws.String(body),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func encoded(t *testing.T, msg queue.Message) string {
	t.Helper()
	body, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(body)
}

func TestHandleMessage(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		procErr    error
		wantDelete bool
		wantCalls  int
	}{
		{name: "success", body: `{"resumeId":"r-1","requestId":"req-1"}`, wantDelete: true, wantCalls: 1},
		{name: "transient failure kept", body: `{"resumeId":"r-2"}`, procErr: errors.New("db down"), wantDelete: false, wantCalls: 1},
		{name: "resume gone", body: `{"resumeId":"r-3"}`, procErr: resumes.ErrNotFound, wantDelete: true, wantCalls: 1},
		{name: "already finished", body: `{"resumeId":"r-4"}`, procErr: resumes.ErrConflict, wantDelete: true, wantCalls: 1},
		{name: "another run within lease kept", body: `{"resumeId":"r-5"}`, procErr: resumes.ErrInProgress, wantDelete: false, wantCalls: 1},
		{name: "invalid json", body: "{bad-json", wantDelete: true},
		{name: "empty body", body: "", wantDelete: true},
		{name: "missing id", body: `{"requestId":"req"}`, wantDelete: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeSQS{}
			proc := &fakeProcessor{err: tt.procErr}
			handleMessage(context.Background(), client, "queue", proc, sqsMessage(t, tt.name, tt.body))

			if got := len(client.deleted) == 1; got != tt.wantDelete {
				t.Fatalf("deleted=%v, want %v", client.deleted, tt.wantDelete)
			}
			if len(proc.ids) != tt.wantCalls {
				t.Fatalf("processor calls=%d, want %d", len(proc.ids), tt.wantCalls)
			}
		})
	}
}

func TestHandleMessageUsesEncodedPayload(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{}
	body := encoded(t, queue.Message{ResumeID: "r-9", RequestID: "req-9", Version: queue.MessageVersion})

	handleMessage(context.Background(), client, "queue", proc, sqsMessage(t, "9", body))

	if len(proc.ids) != 1 || proc.ids[0] != "r-9" {
		t.Fatalf("unexpected processor calls %v", proc.ids)
	}
}

func TestReceiveCount(t *testing.T) {
	if got := receiveCount(sqstypes.Message{Attributes: map[string]string{"ApproximateReceiveCount": "3"}}); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
