package models

import (
	"slices"
	"time"
)

type PlayState struct {
	ID          string
	Label       string
	Description string
}

var PlayStateNone = PlayState{ID: "none", Label: "None"}

type GamesList struct {
	ID          int64
	Name        string
	Description string
}

// PlaySession is one closed play interval of a game.
type PlaySession struct {
	GameID    int
	StartTime time.Time
	EndTime   time.Time
	Version   string
}

func (s PlaySession) Duration() time.Duration {
	if s.EndTime.Before(s.StartTime) {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

type Game struct {
	ThreadID int

	// remote
	Title            string
	Description      string
	Developer        string
	ImageURL         string
	Version          string
	RemoteRating     float32
	ReleaseDate      time.Time
	FirstReleaseDate time.Time
	Tags             []string
	Prefixes         []string

	// local
	CustomImageURL  string
	ExecutablePaths []string
	Rating          int
	Hidden          bool
	Notes           string
	CheckForUpdates bool
	PlayState       PlayState
	Lists           []GamesList
	PlaySessions    []PlaySession
	PlayTime        time.Duration // legacy aggregate, predates sessions
	Added           time.Time
	FirstPlayed     time.Time
	LastPlayed      time.Time

	UpdateAvailable  bool
	AvailableVersion string
}

func (g Game) IsRemoteGame() bool {
	return g.ThreadID > 0
}

func (g Game) TotalPlayTime() time.Duration {
	total := g.PlayTime
	for _, s := range g.PlaySessions {
		total += s.Duration()
	}
	return total
}

// FirstPlayedTime falls back to the earliest session when no explicit value was stored.
func (g Game) FirstPlayedTime() time.Time {
	if !g.FirstPlayed.IsZero() {
		return g.FirstPlayed
	}
	var first time.Time
	for _, s := range g.PlaySessions {
		if first.IsZero() || s.StartTime.Before(first) {
			first = s.StartTime
		}
	}
	return first
}

func (g Game) LastPlayedTime() time.Time {
	last := g.LastPlayed
	for _, s := range g.PlaySessions {
		if s.EndTime.After(last) {
			last = s.EndTime
		}
	}
	return last
}

func (g Game) HasExecutable(path string) bool {
	return slices.Contains(g.ExecutablePaths, path)
}

// MergeRemote returns g with every remote-sourced field replaced by r.
// Local fields, including the committed Version, are kept.
func (g Game) MergeRemote(r RemoteGame) Game {
	merged := g
	merged.Title = r.Title
	merged.Description = r.Description
	merged.Developer = r.Developer
	merged.ImageURL = r.ImageURL
	merged.RemoteRating = r.Rating
	merged.ReleaseDate = r.ReleaseDate
	merged.FirstReleaseDate = r.FirstReleaseDate
	merged.Tags = slices.Clone(r.Tags)
	merged.Prefixes = slices.Clone(r.Prefixes)
	return merged
}
