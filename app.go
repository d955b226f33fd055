package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"avn-launcher/internal/api"
	"avn-launcher/internal/config"
	"avn-launcher/internal/database"
	"avn-launcher/internal/events"
	"avn-launcher/internal/launcher"
	"avn-launcher/internal/models"
	"avn-launcher/internal/obslog"
	"avn-launcher/internal/settings"
	"avn-launcher/internal/updater"
)

const eventBufferSize = 64

var (
	errNotReady      = errors.New("backend is not ready")
	errCheckerClosed = errors.New("update checker is closed")
)

type App struct {
	ctx      context.Context
	cfg      *config.AppConfig
	logger   *zap.Logger
	db       *database.Service
	source   api.Source
	bus      *events.Bus
	settings *settings.Settings
	checker  *updater.Checker
	launcher *launcher.Launcher

	closers []func()

	isReady    bool
	readyMutex sync.Mutex
}

func NewApp() *App {
	return &App{logger: zap.NewNop()}
}

func (a *App) OnStartup(ctx context.Context) {
	a.ctx = ctx
	defer func() {
		if r := recover(); r != nil {
			a.logger.Fatal("panic during startup", zap.Any("panic", r))
		}
	}()

	if err := a.init(ctx); err != nil {
		a.logger.Fatal("startup failed", zap.Error(err))
	}

	a.readyMutex.Lock()
	a.isReady = true
	a.readyMutex.Unlock()

	runtime.EventsEmit(a.ctx, "backend-ready")
}

func (a *App) init(ctx context.Context) error {
	path := os.Getenv("AVN_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	logger, err := obslog.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.logger = logger
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	a.db, err = database.NewService(cfg.DatabasePath, logger.Named("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, a.db.Close)

	a.source, err = a.newSource()
	if err != nil {
		return fmt.Errorf("remote source: %w", err)
	}

	a.bus = events.NewBus(eventBufferSize, logger.Named("events"))
	a.closers = append(a.closers, a.bus.Close)
	a.bus.Subscribe(a.forwardEvent)

	a.settings, err = settings.Load(ctx, a.db, settings.Defaults{
		UpdateCheckInterval:              cfg.Updates.Interval,
		ArchivedGamesDisableUpdateChecks: cfg.Updates.ArchivedGamesDisableUpdateChecks,
	}, logger.Named("settings"))
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	a.checker = updater.New(a.db, a.source, a.settings, a.bus,
		updater.WithLogger(logger.Named("updater")),
		updater.WithMaxConcurrentFetches(cfg.Updates.MaxConcurrentFetches),
	)
	a.launcher = launcher.New(a.db, logger.Named("launcher"))

	if cfg.Updates.StartOnLaunch {
		a.checker.Start()
	}
	logger.Info("backend ready",
		zap.String("database", cfg.DatabasePath), zap.String("remote", cfg.Remote.Kind))
	return nil
}

func (a *App) newSource() (api.Source, error) {
	remote := a.cfg.Remote
	var source api.Source
	switch remote.Kind {
	case config.RemoteHTTP:
		source = api.NewClient(remote.BaseURL,
			api.WithTimeout(remote.Timeout),
			api.WithRetry(remote.Retries),
			api.WithHeaders(remote.Headers),
			api.WithLogger(a.logger.Named("api")),
		)
	default:
		sqlSource, err := api.NewSQLSource(remote.Kind, remote.DSN, a.logger.Named("mirror"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlSource.Close)
		source = sqlSource
	}

	if a.cfg.Cache.RedisURL == "" {
		return source, nil
	}
	rdb, err := api.NewRedisClient(a.cfg.Cache.RedisURL)
	if err != nil {
		a.logger.Warn("redis cache disabled", zap.Error(err))
		return source, nil
	}
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	return api.NewCachedSource(source, rdb, a.cfg.Cache.TTL, a.logger.Named("cache")), nil
}

func (a *App) OnShutdown(ctx context.Context) {
	if a.checker != nil {
		a.checker.Close()
	}
	if a.launcher != nil {
		a.launcher.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *App) forwardEvent(e events.Event) {
	var payload any
	switch p := e.Payload.(type) {
	case models.UpdateCheckResult:
		payload = newUpdateCheckView(p)
	case models.UpdateResult:
		payload = UpdateResultView{RunID: p.RunID, SuccessCount: p.SuccessCount, ErrorCount: p.ErrorCount}
	}
	runtime.EventsEmit(a.ctx, string(e.Type), payload)
}

func (a *App) CheckBackendReady() bool {
	a.readyMutex.Lock()
	defer a.readyMutex.Unlock()
	return a.isReady
}

func (a *App) ready() error {
	if !a.CheckBackendReady() {
		return errNotReady
	}
	return nil
}

func (a *App) GetGames(keyword string, limit int, offset int) ([]GameView, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	games, err := a.db.Search(a.ctx, keyword, limit, offset)
	if err != nil {
		return nil, err
	}
	views := make([]GameView, 0, len(games))
	for _, g := range games {
		views = append(views, newGameView(g))
	}
	return views, nil
}

func (a *App) GetGameDetails(id int) (GameDetailsView, error) {
	if err := a.ready(); err != nil {
		return GameDetailsView{}, err
	}
	game, err := a.db.Get(a.ctx, id)
	if err != nil {
		return GameDetailsView{}, err
	}
	if game == nil {
		return GameDetailsView{}, database.ErrGameNotFound
	}
	return newGameDetailsView(*game), nil
}

// ImportGame fetches a game from the remote source and adds it to the library.
func (a *App) ImportGame(threadID int) (GameDetailsView, error) {
	if err := a.ready(); err != nil {
		return GameDetailsView{}, err
	}
	remote, err := a.source.GetGame(a.ctx, threadID).Unwrap()
	if err != nil {
		return GameDetailsView{}, fmt.Errorf("fetch game %d: %w", threadID, err)
	}
	game := remote.ToGame(time.Now())
	if err := a.db.InsertGame(a.ctx, game); err != nil {
		return GameDetailsView{}, err
	}
	a.logger.Info("game imported", zap.Int("thread_id", threadID), zap.String("title", game.Title))
	return newGameDetailsView(game), nil
}

func (a *App) UpdateRating(id int, rating int) error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.db.UpdateRating(a.ctx, id, rating)
}

func (a *App) UpdateGame(id int, req GameUpdateRequest) error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.db.UpdateGame(a.ctx, id, req.toUpdate())
}

func (a *App) AcceptUpdate(id int) error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.db.AcceptUpdate(a.ctx, id)
}

func (a *App) LaunchGame(id int, path string) error {
	if err := a.ready(); err != nil {
		return err
	}
	game, err := a.db.Get(a.ctx, id)
	if err != nil {
		return err
	}
	if game == nil {
		return database.ErrGameNotFound
	}
	return a.launcher.Launch(a.ctx, *game, path)
}

// CheckForUpdates runs one check in the background; progress arrives as events.
func (a *App) CheckForUpdates() error {
	if err := a.ready(); err != nil {
		return err
	}
	if !a.checker.CheckNow() {
		return errCheckerClosed
	}
	return nil
}

func (a *App) UpdateAllGames() error {
	if err := a.ready(); err != nil {
		return err
	}
	if !a.checker.UpdateAllGames() {
		return errCheckerClosed
	}
	return nil
}

func (a *App) StartPeriodicUpdateChecks() error {
	if err := a.ready(); err != nil {
		return err
	}
	a.checker.Start()
	return nil
}

func (a *App) StopPeriodicUpdateChecks() error {
	if err := a.ready(); err != nil {
		return err
	}
	a.checker.Stop()
	return nil
}

func (a *App) SetUpdateCheckInterval(ms int64) error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.settings.SetUpdateCheckInterval(a.ctx, time.Duration(ms)*time.Millisecond)
}

func (a *App) SetArchivedGamesDisableUpdateChecks(v bool) error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.settings.SetArchivedGamesDisableUpdateChecks(a.ctx, v)
}
