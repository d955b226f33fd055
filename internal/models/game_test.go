package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestMergeRemoteKeepsLocalFields(t *testing.T) {
	added := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	local := Game{
		ThreadID:        42,
		Title:           "Old Title",
		Version:         "1.0",
		Rating:          5,
		Notes:           "x",
		Hidden:          true,
		CheckForUpdates: false,
		ExecutablePaths: []string{"/games/a/run.sh"},
		Lists:           []GamesList{{ID: 1, Name: "Favourites"}},
		PlaySessions:    []PlaySession{{GameID: 42, StartTime: added, EndTime: added.Add(time.Hour), Version: "0.9"}},
		Added:           added,
	}
	remote := RemoteGame{
		ThreadID: 42,
		Title:    "New Title",
		Version:  "1.1",
		Rating:   4.5,
		Tags:     []string{"romance"},
		Prefixes: []string{"Completed"},
	}

	merged := local.MergeRemote(remote)

	if merged.Title != "New Title" {
		t.Errorf("Title = %q, want New Title", merged.Title)
	}
	if merged.Rating != 5 || merged.Notes != "x" || !merged.Hidden || merged.CheckForUpdates {
		t.Errorf("local fields changed: %+v", merged)
	}
	if merged.Version != "1.0" {
		t.Errorf("Version = %q, want 1.0 kept until accepted", merged.Version)
	}
	if merged.RemoteRating != 4.5 {
		t.Errorf("RemoteRating = %v, want 4.5", merged.RemoteRating)
	}
	if len(merged.PlaySessions) != 1 || len(merged.Lists) != 1 || len(merged.ExecutablePaths) != 1 {
		t.Errorf("collections not kept: %+v", merged)
	}
	if !merged.Added.Equal(added) {
		t.Errorf("Added = %v, want %v", merged.Added, added)
	}
	if len(merged.Tags) != 1 || merged.Tags[0] != "romance" {
		t.Errorf("Tags = %v", merged.Tags)
	}
}

func TestTotalPlayTime(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	g := Game{
		PlayTime: 30 * time.Minute,
		PlaySessions: []PlaySession{
			{StartTime: start, EndTime: start.Add(time.Hour)},
			{StartTime: start.Add(2 * time.Hour), EndTime: start.Add(150 * time.Minute)},
		},
	}
	if got, want := g.TotalPlayTime(), 2*time.Hour; got != want {
		t.Errorf("TotalPlayTime = %v, want %v", got, want)
	}
	if !g.FirstPlayedTime().Equal(start) {
		t.Errorf("FirstPlayedTime = %v, want %v", g.FirstPlayedTime(), start)
	}
	if want := start.Add(150 * time.Minute); !g.LastPlayedTime().Equal(want) {
		t.Errorf("LastPlayedTime = %v, want %v", g.LastPlayedTime(), want)
	}
}

func TestIsRemoteGame(t *testing.T) {
	if (Game{ThreadID: 0}).IsRemoteGame() {
		t.Error("thread id 0 should not be a remote game")
	}
	if !(Game{ThreadID: 7}).IsRemoteGame() {
		t.Error("thread id 7 should be a remote game")
	}
}

func TestRemoteGameUnmarshal(t *testing.T) {
	raw := `{"thread_id":"123","title":"T","version":"v0.5","rating":4.2,
		"release_date":"2024-05-06","first_release_date":"","tags":["a","b"],"prefixes":["Ren'Py"]}`

	var r RemoteGame
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r.ThreadID != 123 || r.Version != "v0.5" || r.Title != "T" {
		t.Errorf("unexpected record: %+v", r)
	}
	if want := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC); !r.ReleaseDate.Equal(want) {
		t.Errorf("ReleaseDate = %v, want %v", r.ReleaseDate, want)
	}
	if !r.FirstReleaseDate.IsZero() {
		t.Errorf("FirstReleaseDate = %v, want zero", r.FirstReleaseDate)
	}

	g := r.ToGame(time.Unix(10, 0))
	if !g.CheckForUpdates || g.PlayState != PlayStateNone || g.Rating != 0 {
		t.Errorf("imported game has unexpected local state: %+v", g)
	}
}

func TestRemoteGameUnmarshalBadID(t *testing.T) {
	var r RemoteGame
	if err := json.Unmarshal([]byte(`{"thread_id":"abc"}`), &r); err == nil {
		t.Fatal("expected error for non-numeric thread id")
	}
}

func TestRemoteGameUnmarshalWithoutID(t *testing.T) {
	var r RemoteGame
	if err := json.Unmarshal([]byte(`{"title":"x","version":"1.0"}`), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r.ThreadID != 0 || r.Title != "x" || r.Version != "1.0" {
		t.Errorf("got %+v", r)
	}
}

func TestResult(t *testing.T) {
	ok := Ok(3)
	if !ok.IsOk() {
		t.Fatal("Ok should be ok")
	}
	v, err := ok.Unwrap()
	if v != 3 || err != nil {
		t.Fatalf("Unwrap = %v, %v", v, err)
	}
	failed := Fail[int](errors.New("boom"))
	if failed.IsOk() {
		t.Fatal("Fail should not be ok")
	}
}
