package updater

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"avn-launcher/internal/models"
)

// fetchAndMerge refreshes each game from the provider, at most
// maxConcurrentFetches at a time. Failed games are left out of the returned
// slice and their errors collected.
func (c *Checker) fetchAndMerge(ctx context.Context, games []models.Game) ([]models.Game, []error) {
	results := make([]models.Result[models.Game], len(games))
	sem := make(chan struct{}, c.maxConcurrentFetches)

	var wg sync.WaitGroup
	for i, g := range games {
		i, g := i, g
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = c.updateGameFromRemote(ctx, g)
		}()
	}
	wg.Wait()

	var (
		merged []models.Game
		errs   []error
	)
	for _, r := range results {
		if r.IsOk() {
			merged = append(merged, r.Value)
		} else {
			errs = append(errs, r.Err)
		}
	}
	return merged, errs
}

func (c *Checker) updateGameFromRemote(ctx context.Context, g models.Game) models.Result[models.Game] {
	currentVersion := g.Version
	c.logger.Debug("updating game data", zap.Int("thread_id", g.ThreadID), zap.String("title", g.Title))

	remote, err := c.source.GetGame(ctx, g.ThreadID).Unwrap()
	if err != nil {
		c.logger.Warn("fetching game failed", zap.Int("thread_id", g.ThreadID), zap.Error(err))
		return models.Fail[models.Game](err)
	}

	merged := g.MergeRemote(remote)
	if remote.Version != currentVersion {
		merged.UpdateAvailable = true
		merged.AvailableVersion = remote.Version
		c.logger.Info("update available",
			zap.Int("thread_id", g.ThreadID), zap.String("title", merged.Title),
			zap.String("installed", currentVersion), zap.String("available", remote.Version))
	}
	return models.Ok(merged)
}
