package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"avn-launcher/internal/models"

	"go.uber.org/zap"
)

// GameUpdate holds the user-editable fields written by UpdateGame.
type GameUpdate struct {
	ExecutablePaths []string
	CheckForUpdates bool
	PlayState       models.PlayState
	ListIDs         []int64
	Hidden          bool
	Notes           string
}

const gameColumns = `
    thread_id, title, description, developer, image_url, custom_image_url,
    executable_paths, version, play_time, rating, remote_rating, update_available,
    added, last_played, first_played, hidden, release_date, first_release_date,
    play_state_id, play_state_label, play_state_description, available_version,
    tags, prefixes, check_for_updates, notes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (models.Game, error) {
	var (
		g                                        models.Game
		customImageURL, availableVersion, notes  sql.NullString
		executablePaths, tags, prefixes          string
		playTime, added, lastPlayed, firstPlayed int64
		releaseDate, firstReleaseDate            int64
	)
	err := row.Scan(
		&g.ThreadID, &g.Title, &g.Description, &g.Developer, &g.ImageURL, &customImageURL,
		&executablePaths, &g.Version, &playTime, &g.Rating, &g.RemoteRating, &g.UpdateAvailable,
		&added, &lastPlayed, &firstPlayed, &g.Hidden, &releaseDate, &firstReleaseDate,
		&g.PlayState.ID, &g.PlayState.Label, &g.PlayState.Description, &availableVersion,
		&tags, &prefixes, &g.CheckForUpdates, &notes,
	)
	if err != nil {
		return models.Game{}, err
	}

	g.CustomImageURL = customImageURL.String
	g.AvailableVersion = availableVersion.String
	g.Notes = notes.String
	g.PlayTime = time.Duration(playTime) * time.Millisecond
	g.Added = fromMillis(added)
	g.LastPlayed = fromMillis(lastPlayed)
	g.FirstPlayed = fromMillis(firstPlayed)
	g.ReleaseDate = fromMillis(releaseDate)
	g.FirstReleaseDate = fromMillis(firstReleaseDate)

	if err := decodeStrings(executablePaths, &g.ExecutablePaths); err != nil {
		return models.Game{}, fmt.Errorf("decode executable_paths of %d: %w", g.ThreadID, err)
	}
	if err := decodeStrings(tags, &g.Tags); err != nil {
		return models.Game{}, fmt.Errorf("decode tags of %d: %w", g.ThreadID, err)
	}
	if err := decodeStrings(prefixes, &g.Prefixes); err != nil {
		return models.Game{}, fmt.Errorf("decode prefixes of %d: %w", g.ThreadID, err)
	}
	return g, nil
}

func decodeStrings(raw string, out *[]string) error {
	if raw == "" {
		*out = nil
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}

func encodeStrings(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, _ := json.Marshal(values)
	return string(b)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *Service) All(ctx context.Context) ([]models.Game, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+gameColumns+` FROM games ORDER BY title;`)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			s.logger.Warn("close rows", zap.Error(err))
		}
	}(rows)

	var games []models.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}

	sessions, err := s.playSessions(ctx, 0)
	if err != nil {
		return nil, err
	}
	lists, err := s.gameLists(ctx, 0)
	if err != nil {
		return nil, err
	}
	for i := range games {
		games[i].PlaySessions = sessions[games[i].ThreadID]
		games[i].Lists = lists[games[i].ThreadID]
	}
	return games, nil
}

// Get returns nil without error when no game has the thread id.
func (s *Service) Get(ctx context.Context, id int) (*models.Game, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE thread_id = ?;`, id)
	g, err := scanGame(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query game %d: %w", id, err)
	}

	sessions, err := s.playSessions(ctx, id)
	if err != nil {
		return nil, err
	}
	lists, err := s.gameLists(ctx, id)
	if err != nil {
		return nil, err
	}
	g.PlaySessions = sessions[id]
	g.Lists = lists[id]
	return &g, nil
}

func (s *Service) Search(ctx context.Context, keyword string, limit, offset int) ([]models.Game, error) {
	keywords := strings.Fields(strings.TrimSpace(keyword))

	var args []any
	var whereClause string
	if len(keywords) > 0 {
		conditions := make([]string, 0, len(keywords))
		for _, kw := range keywords {
			likeKeyword := "%" + kw + "%"
			conditions = append(conditions, "(title LIKE ? OR developer LIKE ? OR tags LIKE ?)")
			args = append(args, likeKeyword, likeKeyword, likeKeyword)
		}
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
       SELECT %s
       FROM games
       %s
       ORDER BY title
       LIMIT ? OFFSET ?
    `, gameColumns, whereClause)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search games: %w", err)
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			s.logger.Warn("skip unreadable game row", zap.Error(err))
			continue
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (s *Service) InsertGame(ctx context.Context, g models.Game) error {
	query := `INSERT INTO games (` + gameColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	_, err := s.db.ExecContext(ctx, query,
		g.ThreadID, g.Title, g.Description, g.Developer, g.ImageURL, nullString(g.CustomImageURL),
		encodeStrings(g.ExecutablePaths), g.Version, g.PlayTime.Milliseconds(), g.Rating, g.RemoteRating, g.UpdateAvailable,
		toMillis(g.Added), toMillis(g.LastPlayed), toMillis(g.FirstPlayed), g.Hidden, toMillis(g.ReleaseDate), toMillis(g.FirstReleaseDate),
		playStateID(g.PlayState), playStateLabel(g.PlayState), g.PlayState.Description, nullString(g.AvailableVersion),
		encodeStrings(g.Tags), encodeStrings(g.Prefixes), g.CheckForUpdates, nullString(g.Notes),
	)
	if err != nil {
		return fmt.Errorf("insert game %d: %w", g.ThreadID, err)
	}
	return nil
}

// UpdateGames writes the remote-sourced columns and the update flags of each
// game in a single transaction. Local columns are left alone so edits made
// while the games were being fetched survive.
func (s *Service) UpdateGames(ctx context.Context, games []models.Game) error {
	if len(games) == 0 {
		return nil
	}
	return s.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
        UPDATE games SET
            title = ?, description = ?, developer = ?, image_url = ?, remote_rating = ?,
            release_date = ?, first_release_date = ?, tags = ?, prefixes = ?,
            update_available = ?, available_version = ?
        WHERE thread_id = ?;`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, g := range games {
			_, err := stmt.ExecContext(ctx,
				g.Title, g.Description, g.Developer, g.ImageURL, g.RemoteRating,
				toMillis(g.ReleaseDate), toMillis(g.FirstReleaseDate), encodeStrings(g.Tags), encodeStrings(g.Prefixes),
				g.UpdateAvailable, nullString(g.AvailableVersion),
				g.ThreadID,
			)
			if err != nil {
				return fmt.Errorf("update game %d: %w", g.ThreadID, err)
			}
		}
		return nil
	})
}

func (s *Service) UpdateRating(ctx context.Context, id int, rating int) error {
	return s.execOne(ctx, id, `UPDATE games SET rating = ? WHERE thread_id = ?;`, rating, id)
}

func (s *Service) UpdateGame(ctx context.Context, id int, u GameUpdate) error {
	return s.withTx(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
        UPDATE games SET executable_paths = ?, check_for_updates = ?,
            play_state_id = ?, play_state_label = ?, play_state_description = ?,
            hidden = ?, notes = ?
        WHERE thread_id = ?;`,
			encodeStrings(u.ExecutablePaths), u.CheckForUpdates,
			playStateID(u.PlayState), playStateLabel(u.PlayState), u.PlayState.Description,
			u.Hidden, nullString(u.Notes), id,
		)
		if err != nil {
			return fmt.Errorf("update game %d: %w", id, err)
		}
		if err := requireRow(res, id); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM game_to_list WHERE game_id = ?;`, id); err != nil {
			return fmt.Errorf("clear lists of %d: %w", id, err)
		}
		for _, listID := range u.ListIDs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO game_to_list (game_id, list_id) VALUES (?, ?);`, id, listID); err != nil {
				return fmt.Errorf("add %d to list %d: %w", id, listID, err)
			}
		}
		return nil
	})
}

func (s *Service) UpdateExecutablePaths(ctx context.Context, paths map[int][]string) error {
	if len(paths) == 0 {
		return nil
	}
	return s.withTx(func(tx *sql.Tx) error {
		for id, p := range paths {
			if _, err := tx.ExecContext(ctx, `UPDATE games SET executable_paths = ? WHERE thread_id = ?;`, encodeStrings(p), id); err != nil {
				return fmt.Errorf("update executable paths of %d: %w", id, err)
			}
		}
		return nil
	})
}

// AcceptUpdate commits the pending available version as the current one.
func (s *Service) AcceptUpdate(ctx context.Context, id int) error {
	return s.execOne(ctx, id, `
        UPDATE games SET version = COALESCE(available_version, version),
            available_version = NULL, update_available = 0
        WHERE thread_id = ?;`, id)
}

func (s *Service) execOne(ctx context.Context, id int, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update game %d: %w", id, err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id int) error {
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("thread %d: %w", id, ErrGameNotFound)
	}
	return nil
}

func playStateID(p models.PlayState) string {
	if p.ID == "" {
		return models.PlayStateNone.ID
	}
	return p.ID
}

func playStateLabel(p models.PlayState) string {
	if p.ID == "" {
		return models.PlayStateNone.Label
	}
	return p.Label
}
