package workerproc

import (
	"context"
	"errors"
	"testing"

	"ats-backend/internal/queue"
)

func TestParseMessage(t *testing.T) {
	payload, err := queue.EncodeMessage(queue.Message{TaskID: "t-1", RequestID: "r-1", Version: 1})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	msg, meta, err := ParseMessage(string(payload))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if msg.TaskID != "t-1" || msg.RequestID != "r-1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if meta.BodyLen != len(payload) || meta.BodySHA == "" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestParseMessageEmptyBody(t *testing.T) {
	var target ErrEmptyBody
	if _, _, err := ParseMessage("   "); !errors.As(err, &target) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
}

func TestParseMessageBadJSON(t *testing.T) {
	var target ErrDecode
	if _, _, err := ParseMessage("{nope"); !errors.As(err, &target) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestParseMessageMissingTaskID(t *testing.T) {
	var target ErrMissingTaskID
	if _, _, err := ParseMessage(`{"requestId":"r-1"}`); !errors.As(err, &target) {
		t.Fatalf("expected ErrMissingTaskID, got %v", err)
	}
}

type fakeProcessor struct {
	taskID string
	err    error
}

func (p *fakeProcessor) ProcessTask(ctx context.Context, taskID string) error {
	p.taskID = taskID
	return p.err
}

func TestHandleMessage(t *testing.T) {
	payload, _ := queue.EncodeMessage(queue.Message{TaskID: "t-9", RequestID: "r-9", Version: 1})

	proc := &fakeProcessor{}
	if err := HandleMessage(context.Background(), proc, string(payload)); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if proc.taskID != "t-9" {
		t.Fatalf("processor got %q", proc.taskID)
	}
}

func TestHandleMessageWrapsProcessError(t *testing.T) {
	payload, _ := queue.EncodeMessage(queue.Message{TaskID: "t-9", Version: 1})

	proc := &fakeProcessor{err: errors.New("boom")}
	err := HandleMessage(context.Background(), proc, string(payload))
	var target ErrProcess
	if !errors.As(err, &target) {
		t.Fatalf("expected ErrProcess, got %v", err)
	}
	if target.TaskID != "t-9" {
		t.Fatalf("unexpected task id: %q", target.TaskID)
	}
}

func TestHandleMessageNilProcessor(t *testing.T) {
	if err := HandleMessage(context.Background(), nil, "{}"); err == nil {
		t.Fatal("expected error for nil processor")
	}
}
