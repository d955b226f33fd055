// Package updater keeps local games in step with the remote provider.
//
// A Checker runs update checks on a schedule or on demand. A check reads the
// candidate games from the store, asks the provider for their current
// versions in batches, fetches full records only for games whose version
// moved, merges them into the local entities and writes them back in one
// batch. Only one check or bulk update runs at a time; extra attempts are
// dropped. Progress is reported through a Publisher.
package updater

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"avn-launcher/internal/events"
	"avn-launcher/internal/models"
)

const (
	// MaxGamesPerVersionRequest caps the ids sent in one versions request.
	MaxGamesPerVersionRequest = 100
	// MinInterval is the floor for the periodic check interval.
	MinInterval = time.Hour
)

type Store interface {
	All(ctx context.Context) ([]models.Game, error)
	UpdateGames(ctx context.Context, games []models.Game) error
}

type Source interface {
	GetGame(ctx context.Context, threadID int) models.Result[models.RemoteGame]
	GetVersions(ctx context.Context, threadIDs []int) models.Result[map[int]string]
}

type Settings interface {
	UpdateCheckInterval() time.Duration
	LastUpdateCheck() time.Time
	SetLastUpdateCheck(ctx context.Context, t time.Time) error
	ArchivedGamesDisableUpdateChecks() bool
	OnUpdateCheckIntervalChange(fn func(time.Duration)) func()
}

type Publisher interface {
	Publish(t events.Type, payload any)
}

type Checker struct {
	store     Store
	source    Source
	settings  Settings
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time

	maxConcurrentFetches int
	minInterval          time.Duration

	// set while a check or bulk update runs
	active atomic.Bool

	mu             sync.Mutex
	cancelSchedule context.CancelFunc
	closed         bool

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	unsubscribe func()
}

type Option func(*Checker)

func WithLogger(l *zap.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMaxConcurrentFetches(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.maxConcurrentFetches = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Checker) {
		if now != nil {
			c.now = now
		}
	}
}

// New wires a Checker and subscribes it to interval changes. Call Close to release it.
func New(store Store, source Source, settings Settings, publisher Publisher, opts ...Option) *Checker {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Checker{
		store:                store,
		source:               source,
		settings:             settings,
		publisher:            publisher,
		logger:               zap.NewNop(),
		now:                  time.Now,
		maxConcurrentFetches: 8,
		minInterval:          MinInterval,
		ctx:                  ctx,
		cancel:               cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.unsubscribe = settings.OnUpdateCheckIntervalChange(c.onIntervalChanged)
	return c
}

// Close stops the schedule, cancels in-flight network calls and waits for
// background work to finish.
func (c *Checker) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.Stop()
	c.cancel()
	c.wg.Wait()
}

// CheckNow starts one check in the background without touching the schedule.
// It returns false once the checker is closed.
func (c *Checker) CheckNow() bool {
	return c.goTracked("check", func() { c.RunCheck(c.ctx) })
}

// UpdateAllGames refreshes every remote game in the background. It returns
// false once the checker is closed.
func (c *Checker) UpdateAllGames() bool {
	return c.goTracked("update-all", func() { c.RunUpdateAll(c.ctx) })
}

func (c *Checker) goTracked(name string, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.logger.Warn("checker is closed", zap.String("operation", name))
		return false
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
	return true
}
