package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var ErrGameNotFound = errors.New("game not found")

type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewService(dbPath string, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	service := &Service{db: db, logger: logger}
	if err = service.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return service, nil
}

func (s *Service) createTables() error {
	createGamesQuery := `
    CREATE TABLE IF NOT EXISTS games (
        thread_id INTEGER PRIMARY KEY,
        title TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        developer TEXT NOT NULL DEFAULT '',
        image_url TEXT NOT NULL DEFAULT '',
        custom_image_url TEXT,
        executable_paths TEXT NOT NULL DEFAULT '[]',
        version TEXT NOT NULL DEFAULT '',
        play_time INTEGER NOT NULL DEFAULT 0,
        rating INTEGER NOT NULL DEFAULT 0,
        remote_rating REAL NOT NULL DEFAULT 0,
        update_available INTEGER NOT NULL DEFAULT 0,
        added INTEGER NOT NULL DEFAULT 0,
        last_played INTEGER NOT NULL DEFAULT 0,
        first_played INTEGER NOT NULL DEFAULT 0,
        hidden INTEGER NOT NULL DEFAULT 0,
        release_date INTEGER NOT NULL DEFAULT 0,
        first_release_date INTEGER NOT NULL DEFAULT 0,
        play_state_id TEXT NOT NULL DEFAULT 'none',
        play_state_label TEXT NOT NULL DEFAULT 'None',
        play_state_description TEXT NOT NULL DEFAULT '',
        available_version TEXT,
        tags TEXT NOT NULL DEFAULT '[]',
        prefixes TEXT NOT NULL DEFAULT '[]',
        check_for_updates INTEGER NOT NULL DEFAULT 1,
        notes TEXT
    );`

	createSessionsQuery := `
    CREATE TABLE IF NOT EXISTS play_sessions (
        game_id INTEGER NOT NULL REFERENCES games(thread_id) ON DELETE CASCADE,
        start_time INTEGER NOT NULL,
        end_time INTEGER NOT NULL,
        version TEXT NOT NULL DEFAULT '',
        PRIMARY KEY (game_id, start_time)
    );`

	createListsQuery := `
    CREATE TABLE IF NOT EXISTS games_lists (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL UNIQUE,
        description TEXT
    );
    CREATE TABLE IF NOT EXISTS game_to_list (
        game_id INTEGER NOT NULL REFERENCES games(thread_id) ON DELETE CASCADE,
        list_id INTEGER NOT NULL REFERENCES games_lists(id) ON DELETE CASCADE,
        PRIMARY KEY (game_id, list_id)
    );`

	createSettingsQuery := `
    CREATE TABLE IF NOT EXISTS settings (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL
    );`

	if _, err := s.db.Exec(createGamesQuery); err != nil {
		return fmt.Errorf("create games table: %w", err)
	}
	if _, err := s.db.Exec(createSessionsQuery); err != nil {
		return fmt.Errorf("create play_sessions table: %w", err)
	}
	if _, err := s.db.Exec(createListsQuery); err != nil {
		return fmt.Errorf("create list tables: %w", err)
	}
	if _, err := s.db.Exec(createSettingsQuery); err != nil {
		return fmt.Errorf("create settings table: %w", err)
	}

	createIndexQuery := `
    CREATE INDEX IF NOT EXISTS idx_games_title ON games(title);
    CREATE INDEX IF NOT EXISTS idx_play_sessions_game ON play_sessions(game_id);`
	if _, err := s.db.Exec(createIndexQuery); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}

	return nil
}

// withTx commits when fn succeeds and rolls back otherwise, re-panicking after rollback.
func (s *Service) withTx(fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	return fn(tx)
}

func (s *Service) Close() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("close database", zap.Error(err))
		}
	}
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
