// Package settings keeps user preferences in the local store and notifies
// observers when the update check interval changes.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	keyUpdateCheckInterval              = "update_check_interval_ms"
	keyLastUpdateCheck                  = "last_update_check_ms"
	keyArchivedGamesDisableUpdateChecks = "archived_games_disable_update_checks"
)

// Backend is the key/value persistence behind Settings.
type Backend interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Defaults apply to keys that were never written.
type Defaults struct {
	UpdateCheckInterval              time.Duration
	ArchivedGamesDisableUpdateChecks bool
}

type Settings struct {
	backend Backend
	logger  *zap.Logger

	mu                               sync.RWMutex
	updateCheckInterval              time.Duration
	lastUpdateCheck                  time.Time
	archivedGamesDisableUpdateChecks bool

	observersMu    sync.Mutex
	observers      map[uint64]func(time.Duration)
	nextObserverID uint64
}

func Load(ctx context.Context, backend Backend, defaults Defaults, logger *zap.Logger) (*Settings, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Settings{
		backend:                          backend,
		logger:                           logger,
		updateCheckInterval:              defaults.UpdateCheckInterval,
		archivedGamesDisableUpdateChecks: defaults.ArchivedGamesDisableUpdateChecks,
		observers:                        make(map[uint64]func(time.Duration)),
	}

	if v, ok, err := s.readInt(ctx, keyUpdateCheckInterval); err != nil {
		return nil, err
	} else if ok {
		s.updateCheckInterval = time.Duration(v) * time.Millisecond
	}
	if v, ok, err := s.readInt(ctx, keyLastUpdateCheck); err != nil {
		return nil, err
	} else if ok && v > 0 {
		s.lastUpdateCheck = time.UnixMilli(v)
	}

	raw, ok, err := backend.GetSetting(ctx, keyArchivedGamesDisableUpdateChecks)
	if err != nil {
		return nil, err
	}
	if ok {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			logger.Warn("ignoring malformed setting", zap.String("key", keyArchivedGamesDisableUpdateChecks), zap.String("value", raw))
		} else {
			s.archivedGamesDisableUpdateChecks = b
		}
	}

	return s, nil
}

func (s *Settings) readInt(ctx context.Context, key string) (int64, bool, error) {
	raw, ok, err := s.backend.GetSetting(ctx, key)
	if err != nil || !ok {
		return 0, false, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.logger.Warn("ignoring malformed setting", zap.String("key", key), zap.String("value", raw))
		return 0, false, nil
	}
	return v, true, nil
}

func (s *Settings) UpdateCheckInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updateCheckInterval
}

// SetUpdateCheckInterval persists d and notifies observers when the value changed.
func (s *Settings) SetUpdateCheckInterval(ctx context.Context, d time.Duration) error {
	if err := s.backend.PutSetting(ctx, keyUpdateCheckInterval, strconv.FormatInt(d.Milliseconds(), 10)); err != nil {
		return fmt.Errorf("save update check interval: %w", err)
	}

	s.mu.Lock()
	changed := s.updateCheckInterval != d
	s.updateCheckInterval = d
	s.mu.Unlock()

	if changed {
		s.notifyIntervalChanged(d)
	}
	return nil
}

func (s *Settings) LastUpdateCheck() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdateCheck
}

func (s *Settings) SetLastUpdateCheck(ctx context.Context, t time.Time) error {
	if err := s.backend.PutSetting(ctx, keyLastUpdateCheck, strconv.FormatInt(t.UnixMilli(), 10)); err != nil {
		return fmt.Errorf("save last update check: %w", err)
	}
	s.mu.Lock()
	s.lastUpdateCheck = t
	s.mu.Unlock()
	return nil
}

func (s *Settings) ArchivedGamesDisableUpdateChecks() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.archivedGamesDisableUpdateChecks
}

func (s *Settings) SetArchivedGamesDisableUpdateChecks(ctx context.Context, v bool) error {
	if err := s.backend.PutSetting(ctx, keyArchivedGamesDisableUpdateChecks, strconv.FormatBool(v)); err != nil {
		return fmt.Errorf("save archived games setting: %w", err)
	}
	s.mu.Lock()
	s.archivedGamesDisableUpdateChecks = v
	s.mu.Unlock()
	return nil
}

// OnUpdateCheckIntervalChange registers fn and returns a func that removes it.
// fn runs on the goroutine that changed the setting.
func (s *Settings) OnUpdateCheckIntervalChange(fn func(time.Duration)) func() {
	s.observersMu.Lock()
	defer s.observersMu.Unlock()

	s.nextObserverID++
	id := s.nextObserverID
	s.observers[id] = fn

	return func() {
		s.observersMu.Lock()
		defer s.observersMu.Unlock()
		delete(s.observers, id)
	}
}

func (s *Settings) notifyIntervalChanged(d time.Duration) {
	s.observersMu.Lock()
	fns := make([]func(time.Duration), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.observersMu.Unlock()

	for _, fn := range fns {
		fn(d)
	}
}
