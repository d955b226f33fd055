package launcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"avn-launcher/internal/models"
)

type sessionRecorder struct {
	mu       sync.Mutex
	sessions []models.PlaySession
}

func (r *sessionRecorder) AddPlaySession(_ context.Context, s models.PlaySession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
	return nil
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts only")
	}
	path := filepath.Join(t.TempDir(), "run.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestLaunchRecordsSession(t *testing.T) {
	path := writeScript(t, "exit 0")
	rec := &sessionRecorder{}
	l := New(rec, nil)

	game := models.Game{ThreadID: 12, Version: "0.9", ExecutablePaths: []string{path}}
	if err := l.Launch(context.Background(), game, path); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	l.Wait()

	if len(rec.sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(rec.sessions))
	}
	s := rec.sessions[0]
	if s.GameID != 12 || s.Version != "0.9" {
		t.Errorf("session = %+v", s)
	}
	if s.EndTime.Before(s.StartTime) {
		t.Errorf("end %v before start %v", s.EndTime, s.StartTime)
	}
}

func TestLaunchRecordsSessionOnFailingExit(t *testing.T) {
	path := writeScript(t, "exit 3")
	rec := &sessionRecorder{}
	l := New(rec, nil)

	if err := l.Launch(context.Background(), models.Game{ThreadID: 1, ExecutablePaths: []string{path}}, path); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	l.Wait()
	if len(rec.sessions) != 1 {
		t.Errorf("sessions = %d, want 1", len(rec.sessions))
	}
}

func TestLaunchRejectsUnknownPath(t *testing.T) {
	l := New(&sessionRecorder{}, nil)
	game := models.Game{ThreadID: 1, ExecutablePaths: []string{"/games/a/run"}}

	err := l.Launch(context.Background(), game, "/usr/bin/true")
	if !errors.Is(err, ErrUnknownExecutable) {
		t.Errorf("err = %v, want ErrUnknownExecutable", err)
	}
}

func TestLaunchMissingBinary(t *testing.T) {
	l := New(&sessionRecorder{}, nil)
	path := filepath.Join(t.TempDir(), "missing")
	game := models.Game{ThreadID: 1, ExecutablePaths: []string{path}}

	if err := l.Launch(context.Background(), game, path); err == nil {
		t.Error("expected start error")
	}
}
