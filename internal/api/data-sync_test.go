package api

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func newMirror(t *testing.T) *SQLSource {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "mirror.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err = db.Exec(`
    CREATE TABLE remote_games (
        thread_id INTEGER PRIMARY KEY,
        title TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        developer TEXT NOT NULL DEFAULT '',
        image_url TEXT NOT NULL DEFAULT '',
        version TEXT NOT NULL,
        rating REAL NOT NULL DEFAULT 0,
        release_date TEXT,
        first_release_date TEXT,
        tags TEXT,
        prefixes TEXT
    );
    INSERT INTO remote_games VALUES
        (1, 'One', 'd', 'Dev', 'http://img/1', '1.0', 4.5, '2024-02-03', NULL, '["romance","drama"]', 'Ren''Py, Completed'),
        (2, 'Two', '', '', '', '0.3', 3, NULL, NULL, NULL, NULL);`)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	src := NewSQLSourceFromDB(db, "sqlite3", nil)
	t.Cleanup(src.Close)
	return src
}

func TestSQLSourceGetGame(t *testing.T) {
	src := newMirror(t)

	res := src.GetGame(context.Background(), 1)
	if !res.IsOk() {
		t.Fatalf("GetGame: %v", res.Err)
	}
	g := res.Value
	if g.Title != "One" || g.Version != "1.0" || g.Rating != 4.5 {
		t.Errorf("game = %+v", g)
	}
	if len(g.Tags) != 2 || g.Tags[0] != "romance" {
		t.Errorf("Tags = %v", g.Tags)
	}
	if len(g.Prefixes) != 2 || g.Prefixes[1] != "Completed" {
		t.Errorf("Prefixes = %v", g.Prefixes)
	}
	if g.ReleaseDate.Year() != 2024 || !g.FirstReleaseDate.IsZero() {
		t.Errorf("dates = %v / %v", g.ReleaseDate, g.FirstReleaseDate)
	}

	if missing := src.GetGame(context.Background(), 404); missing.IsOk() {
		t.Error("expected error for missing game")
	}
}

func TestSQLSourceGetVersions(t *testing.T) {
	src := newMirror(t)

	res := src.GetVersions(context.Background(), []int{1, 2, 3})
	if !res.IsOk() {
		t.Fatalf("GetVersions: %v", res.Err)
	}
	if len(res.Value) != 2 || res.Value[1] != "1.0" || res.Value[2] != "0.3" {
		t.Errorf("versions = %v", res.Value)
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLSource{driver: "postgres"}
	if got := pg.rebind("a = ? AND b IN (?,?)"); got != "a = $1 AND b IN ($2,$3)" {
		t.Errorf("rebind postgres = %q", got)
	}
	my := &SQLSource{driver: "mysql"}
	if got := my.rebind("a = ?"); got != "a = ?" {
		t.Errorf("rebind mysql = %q", got)
	}
}
