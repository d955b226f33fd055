package main

import (
	"errors"
	"testing"
	"time"

	"avn-launcher/internal/models"
)

func TestGameDetailsViewPrefersCustomImage(t *testing.T) {
	g := models.Game{
		ThreadID:       3,
		ImageURL:       "https://example.org/cover.jpg",
		CustomImageURL: "/home/me/cover.png",
		PlayTime:       time.Hour,
		PlaySessions: []models.PlaySession{{
			StartTime: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2025, 1, 1, 10, 30, 0, 0, time.UTC),
		}},
	}
	v := newGameDetailsView(g)
	if v.ImageURL != g.CustomImageURL {
		t.Errorf("ImageURL = %q", v.ImageURL)
	}
	if v.PlayTimeSeconds != 5400 {
		t.Errorf("PlayTimeSeconds = %d, want 5400", v.PlayTimeSeconds)
	}
	if v.FirstPlayed != "2025-01-01T10:00:00Z" || v.LastPlayed != "2025-01-01T10:30:00Z" {
		t.Errorf("first=%q last=%q", v.FirstPlayed, v.LastPlayed)
	}
	if v.ReleaseDate != "" {
		t.Errorf("ReleaseDate = %q, want empty for zero date", v.ReleaseDate)
	}
}

func TestUpdateCheckViewFlattensErrors(t *testing.T) {
	v := newUpdateCheckView(models.UpdateCheckResult{
		RunID:   "r1",
		Updates: []models.Game{{ThreadID: 1, Title: "one"}},
		Errors:  []error{errors.New("batch 0 failed")},
	})
	if len(v.Updates) != 1 || v.Updates[0].Title != "one" {
		t.Errorf("updates = %+v", v.Updates)
	}
	if len(v.Errors) != 1 || v.Errors[0] != "batch 0 failed" {
		t.Errorf("errors = %v", v.Errors)
	}
}

func TestGameUpdateRequestDefaultsPlayState(t *testing.T) {
	u := GameUpdateRequest{Notes: "n"}.toUpdate()
	if u.PlayState != models.PlayStateNone {
		t.Errorf("PlayState = %+v", u.PlayState)
	}
	u = GameUpdateRequest{PlayStateID: "playing", PlayStateLabel: "Playing"}.toUpdate()
	if u.PlayState.ID != "playing" {
		t.Errorf("PlayState = %+v", u.PlayState)
	}
}
