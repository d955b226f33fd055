// Package launcher starts game executables and records how long they ran.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"avn-launcher/internal/models"
)

var ErrUnknownExecutable = errors.New("path is not an executable of this game")

type SessionStore interface {
	AddPlaySession(ctx context.Context, session models.PlaySession) error
}

type Launcher struct {
	store  SessionStore
	logger *zap.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

func New(store SessionStore, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{store: store, logger: logger, now: time.Now}
}

// Launch starts path in its own directory and returns once the process is
// running. The play session is written when the process exits.
func (l *Launcher) Launch(ctx context.Context, game models.Game, path string) error {
	if !game.HasExecutable(path) {
		return fmt.Errorf("launch %d: %w: %s", game.ThreadID, ErrUnknownExecutable, path)
	}

	cmd := exec.Command(path)
	cmd.Dir = filepath.Dir(path)

	start := l.now()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %d: %w", game.ThreadID, err)
	}
	l.logger.Info("game started",
		zap.Int("thread_id", game.ThreadID), zap.String("path", path), zap.Int("pid", cmd.Process.Pid))

	recordCtx := context.WithoutCancel(ctx)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := cmd.Wait(); err != nil {
			l.logger.Warn("game exited with error", zap.Int("thread_id", game.ThreadID), zap.Error(err))
		}
		session := models.PlaySession{
			GameID:    game.ThreadID,
			StartTime: start,
			EndTime:   l.now(),
			Version:   game.Version,
		}
		if err := l.store.AddPlaySession(recordCtx, session); err != nil {
			l.logger.Error("recording play session failed", zap.Int("thread_id", game.ThreadID), zap.Error(err))
			return
		}
		l.logger.Info("game exited",
			zap.Int("thread_id", game.ThreadID), zap.Duration("played", session.Duration()))
	}()
	return nil
}

// Wait blocks until every launched game has exited and its session is stored.
func (l *Launcher) Wait() {
	l.wg.Wait()
}
