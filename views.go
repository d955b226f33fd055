package main

import (
	"time"

	"avn-launcher/internal/database"
	"avn-launcher/internal/models"
)

type GameView struct {
	ThreadID         int    `json:"thread_id"`
	Title            string `json:"title"`
	Developer        string `json:"developer"`
	Version          string `json:"version"`
	ImageURL         string `json:"image_url"`
	Rating           int    `json:"rating"`
	UpdateAvailable  bool   `json:"update_available"`
	AvailableVersion string `json:"available_version,omitempty"`
	Hidden           bool   `json:"hidden"`
}

type SessionView struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Version   string `json:"version"`
}

type ListView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type GameDetailsView struct {
	GameView
	Description      string        `json:"description"`
	ReleaseDate      string        `json:"release_date"`
	FirstReleaseDate string        `json:"first_release_date"`
	RemoteRating     float32       `json:"remote_rating"`
	Tags             []string      `json:"tags"`
	Prefixes         []string      `json:"prefixes"`
	ExecutablePaths  []string      `json:"executable_paths"`
	Notes            string        `json:"notes"`
	CheckForUpdates  bool          `json:"check_for_updates"`
	PlayStateID      string        `json:"play_state_id"`
	PlayStateLabel   string        `json:"play_state_label"`
	Lists            []ListView    `json:"lists"`
	Sessions         []SessionView `json:"sessions"`
	PlayTimeSeconds  int64         `json:"play_time_seconds"`
	Added            string        `json:"added"`
	FirstPlayed      string        `json:"first_played,omitempty"`
	LastPlayed       string        `json:"last_played,omitempty"`
}

type GameUpdateRequest struct {
	ExecutablePaths []string `json:"executable_paths"`
	CheckForUpdates bool     `json:"check_for_updates"`
	PlayStateID     string   `json:"play_state_id"`
	PlayStateLabel  string   `json:"play_state_label"`
	ListIDs         []int64  `json:"list_ids"`
	Hidden          bool     `json:"hidden"`
	Notes           string   `json:"notes"`
}

type UpdateCheckView struct {
	RunID   string     `json:"run_id"`
	Updates []GameView `json:"updates"`
	Errors  []string   `json:"errors"`
}

type UpdateResultView struct {
	RunID        string `json:"run_id"`
	SuccessCount int    `json:"success_count"`
	ErrorCount   int    `json:"error_count"`
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func newGameView(g models.Game) GameView {
	image := g.ImageURL
	if g.CustomImageURL != "" {
		image = g.CustomImageURL
	}
	return GameView{
		ThreadID:         g.ThreadID,
		Title:            g.Title,
		Developer:        g.Developer,
		Version:          g.Version,
		ImageURL:         image,
		Rating:           g.Rating,
		UpdateAvailable:  g.UpdateAvailable,
		AvailableVersion: g.AvailableVersion,
		Hidden:           g.Hidden,
	}
}

func newGameDetailsView(g models.Game) GameDetailsView {
	v := GameDetailsView{
		GameView:         newGameView(g),
		Description:      g.Description,
		ReleaseDate:      formatDate(g.ReleaseDate),
		FirstReleaseDate: formatDate(g.FirstReleaseDate),
		RemoteRating:     g.RemoteRating,
		Tags:             g.Tags,
		Prefixes:         g.Prefixes,
		ExecutablePaths:  g.ExecutablePaths,
		Notes:            g.Notes,
		CheckForUpdates:  g.CheckForUpdates,
		PlayStateID:      g.PlayState.ID,
		PlayStateLabel:   g.PlayState.Label,
		PlayTimeSeconds:  int64(g.TotalPlayTime() / time.Second),
		Added:            formatTime(g.Added),
		FirstPlayed:      formatTime(g.FirstPlayedTime()),
		LastPlayed:       formatTime(g.LastPlayedTime()),
	}
	for _, l := range g.Lists {
		v.Lists = append(v.Lists, ListView{ID: l.ID, Name: l.Name})
	}
	for _, s := range g.PlaySessions {
		v.Sessions = append(v.Sessions, SessionView{
			StartTime: formatTime(s.StartTime),
			EndTime:   formatTime(s.EndTime),
			Version:   s.Version,
		})
	}
	return v
}

func newUpdateCheckView(r models.UpdateCheckResult) UpdateCheckView {
	v := UpdateCheckView{RunID: r.RunID, Updates: make([]GameView, 0, len(r.Updates)), Errors: make([]string, 0, len(r.Errors))}
	for _, g := range r.Updates {
		v.Updates = append(v.Updates, newGameView(g))
	}
	for _, err := range r.Errors {
		v.Errors = append(v.Errors, err.Error())
	}
	return v
}

func (r GameUpdateRequest) toUpdate() database.GameUpdate {
	state := models.PlayStateNone
	if r.PlayStateID != "" {
		state = models.PlayState{ID: r.PlayStateID, Label: r.PlayStateLabel}
	}
	return database.GameUpdate{
		ExecutablePaths: r.ExecutablePaths,
		CheckForUpdates: r.CheckForUpdates,
		PlayState:       state,
		ListIDs:         r.ListIDs,
		Hidden:          r.Hidden,
		Notes:           r.Notes,
	}
}
