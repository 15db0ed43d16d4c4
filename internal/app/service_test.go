package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeService struct {
	name    string
	started chan struct{}
	stopped bool
	runErr  error
}

func (f *fakeService) Name() string { return f.name }

func (f *fakeService) Start(ctx context.Context) error {
	close(f.started)
	if f.runErr != nil {
		return f.runErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeService) Stop(ctx context.Context) error {
	f.stopped = true
	return nil
}

func TestRunnerStopsAllOnFirstExit(t *testing.T) {
	failing := &fakeService{name: "worker", started: make(chan struct{}), runErr: errors.New("boom")}
	longRunning := &fakeService{name: "archive-http", started: make(chan struct{})}

	err := NewRunner(longRunning, failing).Run(context.Background(), time.Second, nil)
	if err == nil || err.Error() != "boom" {
		t.Fatalf("want boom got %v", err)
	}
	if !failing.stopped || !longRunning.stopped {
		t.Fatalf("all services must be stopped")
	}
}

func TestRunnerCancelIsCleanShutdown(t *testing.T) {
	svc := &fakeService{name: "archive-http", started: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-svc.started
		cancel()
	}()

	if err := NewRunner(svc).Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("cancel must shut down cleanly, got %v", err)
	}
	if !svc.stopped {
		t.Fatalf("service must be stopped")
	}
}

func TestRunnerRejectsEmpty(t *testing.T) {
	if err := NewRunner().Run(context.Background(), time.Second, nil); err == nil {
		t.Fatalf("empty runner must error")
	}
}
