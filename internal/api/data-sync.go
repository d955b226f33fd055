package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"avn-launcher/internal/models"
)

// SQLSource serves remote metadata from a mirror database that a separate
// crawler keeps in sync with the site. Supported drivers: mysql, postgres, sqlite3.
type SQLSource struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

func NewSQLSource(driver, dsn string, logger *zap.Logger) (*SQLSource, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("mirror dsn must not be empty")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s mirror: %w", driver, err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s mirror: %w", driver, err)
	}

	return NewSQLSourceFromDB(db, driver, logger), nil
}

func NewSQLSourceFromDB(db *sql.DB, driver string, logger *zap.Logger) *SQLSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLSource{db: db, driver: driver, logger: logger}
}

func (r *SQLSource) Close() {
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			r.logger.Warn("close mirror", zap.Error(err))
		}
	}
}

func (r *SQLSource) GetGame(ctx context.Context, threadID int) models.Result[models.RemoteGame] {
	query := r.rebind(`
        SELECT thread_id, title, description, developer, image_url, version, rating,
               release_date, first_release_date, tags, prefixes
        FROM remote_games
        WHERE thread_id = ?`)

	var (
		g                             models.RemoteGame
		releaseDate, firstReleaseDate sql.NullString
		tags, prefixes                sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, threadID).Scan(
		&g.ThreadID, &g.Title, &g.Description, &g.Developer, &g.ImageURL, &g.Version, &g.Rating,
		&releaseDate, &firstReleaseDate, &tags, &prefixes,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Fail[models.RemoteGame](fmt.Errorf("game %d not found in mirror", threadID))
		}
		r.logger.Error("mirror query failed", zap.Int("thread_id", threadID), zap.Error(err))
		return models.Fail[models.RemoteGame](fmt.Errorf("query game %d: %w", threadID, err))
	}

	g.ReleaseDate = parseMirrorDate(releaseDate)
	g.FirstReleaseDate = parseMirrorDate(firstReleaseDate)
	if g.Tags, err = parseMirrorList(tags); err != nil {
		return models.Fail[models.RemoteGame](fmt.Errorf("decode tags of %d: %w", threadID, err))
	}
	if g.Prefixes, err = parseMirrorList(prefixes); err != nil {
		return models.Fail[models.RemoteGame](fmt.Errorf("decode prefixes of %d: %w", threadID, err))
	}
	return models.Ok(g)
}

func (r *SQLSource) GetVersions(ctx context.Context, threadIDs []int) models.Result[map[int]string] {
	if len(threadIDs) == 0 {
		return models.Ok(map[int]string{})
	}

	placeholders := strings.Repeat("?,", len(threadIDs))
	placeholders = placeholders[:len(placeholders)-1]
	query := r.rebind(fmt.Sprintf(`SELECT thread_id, version FROM remote_games WHERE thread_id IN (%s)`, placeholders))

	args := make([]any, len(threadIDs))
	for i, id := range threadIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("mirror versions query failed", zap.Int("count", len(threadIDs)), zap.Error(err))
		return models.Fail[map[int]string](fmt.Errorf("query versions: %w", err))
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.logger.Warn("close rows", zap.Error(err))
		}
	}(rows)

	versions := make(map[int]string, len(threadIDs))
	for rows.Next() {
		var id int
		var version string
		if err := rows.Scan(&id, &version); err != nil {
			return models.Fail[map[int]string](fmt.Errorf("scan version: %w", err))
		}
		versions[id] = version
	}
	if err := rows.Err(); err != nil {
		return models.Fail[map[int]string](fmt.Errorf("iterate versions: %w", err))
	}
	return models.Ok(versions)
}

// rebind rewrites ? placeholders into $n for postgres.
func (r *SQLSource) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func parseMirrorDate(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	// DATE columns come back as "2006-01-02" or a full timestamp depending on the driver
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s.String); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseMirrorList accepts a JSON array or a comma separated list.
func parseMirrorList(s sql.NullString) ([]string, error) {
	raw := strings.TrimSpace(s.String)
	if !s.Valid || raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		var out []string
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
