package daemon

import (
	"context"
	"testing"

	"reelscan/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	daemon, err := New(testsupport.NewConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer daemon.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := daemon.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !daemon.Status(ctx).Running {
		t.Fatal("daemon should report running")
	}

	daemon.Stop()
	if daemon.Status(ctx).Running {
		t.Fatal("daemon should report stopped")
	}
}

func TestDaemonSecondInstanceRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	first, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New first: %v", err)
	}
	defer first.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start first: %v", err)
	}

	second, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	defer second.Close()

	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second instance should fail to start")
	}
}

func TestDaemonDoubleStart(t *testing.T) {
	daemon, err := New(testsupport.NewConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer daemon.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := daemon.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := daemon.Start(ctx); err == nil {
		t.Fatal("second Start should fail")
	}
}

func TestDaemonStatusIncludesChecks(t *testing.T) {
	daemon, err := New(testsupport.NewConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer daemon.Close()

	status := daemon.Status(context.Background())
	if len(status.Checks) == 0 {
		t.Fatal("status should include preflight checks")
	}
	if status.IndexPath == "" || status.LockFilePath == "" {
		t.Fatalf("status = %+v", status)
	}
}
