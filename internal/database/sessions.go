package database

import (
	"context"
	"database/sql"
	"fmt"

	"avn-launcher/internal/models"
)

func (s *Service) AddPlaySession(ctx context.Context, session models.PlaySession) error {
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO play_sessions (game_id, start_time, end_time, version) VALUES (?, ?, ?, ?);`,
			session.GameID, toMillis(session.StartTime), toMillis(session.EndTime), session.Version,
		)
		if err != nil {
			return fmt.Errorf("insert play session of %d: %w", session.GameID, err)
		}
		// the earliest session start wins, whatever the insert order
		start := toMillis(session.StartTime)
		_, err = tx.ExecContext(ctx, `
        UPDATE games SET
            first_played = CASE WHEN first_played = 0 OR ? < first_played THEN ? ELSE first_played END,
            last_played = MAX(last_played, ?)
        WHERE thread_id = ?;`,
			start, start, toMillis(session.EndTime), session.GameID,
		)
		if err != nil {
			return fmt.Errorf("update play times of %d: %w", session.GameID, err)
		}
		return nil
	})
}

// playSessions loads sessions grouped by game; id 0 loads every game.
func (s *Service) playSessions(ctx context.Context, id int) (map[int][]models.PlaySession, error) {
	query := `SELECT game_id, start_time, end_time, version FROM play_sessions`
	var args []any
	if id != 0 {
		query += ` WHERE game_id = ?`
		args = append(args, id)
	}
	query += ` ORDER BY start_time;`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query play sessions: %w", err)
	}
	defer rows.Close()

	out := make(map[int][]models.PlaySession)
	for rows.Next() {
		var ps models.PlaySession
		var start, end int64
		if err := rows.Scan(&ps.GameID, &start, &end, &ps.Version); err != nil {
			return nil, fmt.Errorf("scan play session: %w", err)
		}
		ps.StartTime = fromMillis(start)
		ps.EndTime = fromMillis(end)
		out[ps.GameID] = append(out[ps.GameID], ps)
	}
	return out, rows.Err()
}

func (s *Service) CreateList(ctx context.Context, name, description string) (models.GamesList, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO games_lists (name, description) VALUES (?, ?);`, name, nullString(description))
	if err != nil {
		return models.GamesList{}, fmt.Errorf("create list %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.GamesList{}, err
	}
	return models.GamesList{ID: id, Name: name, Description: description}, nil
}

func (s *Service) gameLists(ctx context.Context, id int) (map[int][]models.GamesList, error) {
	query := `
    SELECT gl.game_id, l.id, l.name, COALESCE(l.description, '')
    FROM game_to_list gl JOIN games_lists l ON l.id = gl.list_id`
	var args []any
	if id != 0 {
		query += ` WHERE gl.game_id = ?`
		args = append(args, id)
	}
	query += ` ORDER BY l.name;`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query game lists: %w", err)
	}
	defer rows.Close()

	out := make(map[int][]models.GamesList)
	for rows.Next() {
		var gameID int
		var l models.GamesList
		if err := rows.Scan(&gameID, &l.ID, &l.Name, &l.Description); err != nil {
			return nil, fmt.Errorf("scan game list: %w", err)
		}
		out[gameID] = append(out[gameID], l)
	}
	return out, rows.Err()
}
