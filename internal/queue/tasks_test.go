package queue

import (
	"encoding/json"
	"testing"
)

func TestNewIncrementalLoadTask(t *testing.T) {
	task, err := NewIncrementalLoadTask(IncrementalLoadPayload{Boards: []string{"g", "ck"}})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if task.Type() != TaskIncrementalLoad {
		t.Fatalf("task type want %s got %s", TaskIncrementalLoad, task.Type())
	}
	var payload IncrementalLoadPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("unmarshal payload failed: %v", err)
	}
	if len(payload.Boards) != 2 || payload.Boards[0] != "g" {
		t.Fatalf("unexpected boards in payload: %v", payload.Boards)
	}
}

func TestNewReportCreatedTask(t *testing.T) {
	task, err := NewReportCreatedTask(ReportCreatedPayload{Board: "g", Num: 123})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if task.Type() != TaskReportCreated {
		t.Fatalf("task type want %s got %s", TaskReportCreated, task.Type())
	}
	var payload ReportCreatedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("unmarshal payload failed: %v", err)
	}
	if payload.Board != "g" || payload.Num != 123 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestDisabledClientEnqueueIsNoop(t *testing.T) {
	client, err := NewClient(nil)
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("nil config should produce a disabled client")
	}
	if err := client.EnqueueIncrementalLoad(IncrementalLoadPayload{}); err != nil {
		t.Fatalf("disabled enqueue should be a no-op, got %v", err)
	}
	if err := client.EnqueueReportCreated(ReportCreatedPayload{Board: "g", Num: 1}); err != nil {
		t.Fatalf("disabled enqueue should be a no-op, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close of disabled client failed: %v", err)
	}
}
