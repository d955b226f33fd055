package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RemoteGame is a game record as published by the remote provider.
type RemoteGame struct {
	ThreadID         int
	Title            string
	Description      string
	Developer        string
	ImageURL         string
	Version          string
	Rating           float32
	ReleaseDate      time.Time
	FirstReleaseDate time.Time
	Tags             []string
	Prefixes         []string
}

const remoteDateLayout = "2006-01-02"

func (r *RemoteGame) UnmarshalJSON(data []byte) error {
	type Alias struct {
		ThreadID         json.Number `json:"thread_id"`
		Title            string      `json:"title"`
		Description      string      `json:"description"`
		Developer        string      `json:"developer"`
		ImageURL         string      `json:"image_url"`
		Version          string      `json:"version"`
		Rating           float32     `json:"rating"`
		ReleaseDate      *string     `json:"release_date"`
		FirstReleaseDate *string     `json:"first_release_date"`
		Tags             []string    `json:"tags"`
		Prefixes         []string    `json:"prefixes"`
	}

	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	// single-game answers may omit the id; the caller knows it
	r.ThreadID = 0
	if a.ThreadID != "" {
		id, err := a.ThreadID.Int64()
		if err != nil {
			return fmt.Errorf("could not parse thread_id %s as int: %w", a.ThreadID, err)
		}
		r.ThreadID = int(id)
	}

	// the site leaves dates blank for unreleased games
	r.ReleaseDate = parseRemoteDate(a.ReleaseDate)
	r.FirstReleaseDate = parseRemoteDate(a.FirstReleaseDate)

	r.Title = a.Title
	r.Description = a.Description
	r.Developer = a.Developer
	r.ImageURL = a.ImageURL
	r.Version = a.Version
	r.Rating = a.Rating
	r.Tags = a.Tags
	r.Prefixes = a.Prefixes

	return nil
}

func (r RemoteGame) MarshalJSON() ([]byte, error) {
	type wire struct {
		ThreadID         int      `json:"thread_id"`
		Title            string   `json:"title"`
		Description      string   `json:"description"`
		Developer        string   `json:"developer"`
		ImageURL         string   `json:"image_url"`
		Version          string   `json:"version"`
		Rating           float32  `json:"rating"`
		ReleaseDate      string   `json:"release_date"`
		FirstReleaseDate string   `json:"first_release_date"`
		Tags             []string `json:"tags"`
		Prefixes         []string `json:"prefixes"`
	}
	return json.Marshal(wire{
		ThreadID:         r.ThreadID,
		Title:            r.Title,
		Description:      r.Description,
		Developer:        r.Developer,
		ImageURL:         r.ImageURL,
		Version:          r.Version,
		Rating:           r.Rating,
		ReleaseDate:      formatRemoteDate(r.ReleaseDate),
		FirstReleaseDate: formatRemoteDate(r.FirstReleaseDate),
		Tags:             r.Tags,
		Prefixes:         r.Prefixes,
	})
}

func formatRemoteDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(remoteDateLayout)
}

func parseRemoteDate(s *string) time.Time {
	if s == nil || *s == "" {
		return time.Time{}
	}
	t, err := time.Parse(remoteDateLayout, *s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ToGame builds a freshly imported local game.
func (r RemoteGame) ToGame(now time.Time) Game {
	return Game{
		ThreadID:         r.ThreadID,
		Title:            r.Title,
		Description:      r.Description,
		Developer:        r.Developer,
		ImageURL:         r.ImageURL,
		Version:          r.Version,
		RemoteRating:     r.Rating,
		ReleaseDate:      r.ReleaseDate,
		FirstReleaseDate: r.FirstReleaseDate,
		Tags:             r.Tags,
		Prefixes:         r.Prefixes,
		CheckForUpdates:  true,
		PlayState:        PlayStateNone,
		Added:            now,
	}
}
