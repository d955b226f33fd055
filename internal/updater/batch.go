package updater

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"avn-launcher/internal/models"
)

type batchResult struct {
	updates []models.Game
	errs    []error
}

func (c *Checker) candidates(all []models.Game) []models.Game {
	skipHidden := c.settings.ArchivedGamesDisableUpdateChecks()
	out := make([]models.Game, 0, len(all))
	for _, g := range all {
		if !g.CheckForUpdates || !g.IsRemoteGame() {
			continue
		}
		if skipHidden && g.Hidden {
			continue
		}
		out = append(out, g)
	}
	return out
}

func chunk(games []models.Game, size int) [][]models.Game {
	var out [][]models.Game
	for size < len(games) {
		games, out = games[size:], append(out, games[:size:size])
	}
	if len(games) > 0 {
		out = append(out, games)
	}
	return out
}

// gamesWithUpdate asks for versions one batch per request, all batches at
// once, and returns after every batch has answered.
func (c *Checker) gamesWithUpdate(ctx context.Context, games []models.Game) []batchResult {
	batches := chunk(games, MaxGamesPerVersionRequest)
	results := make([]batchResult, len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		i, batch := i, batch
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.diffBatch(ctx, i, batch)
		}()
	}
	wg.Wait()
	return results
}

func (c *Checker) diffBatch(ctx context.Context, index int, batch []models.Game) batchResult {
	ids := make([]int, len(batch))
	for i, g := range batch {
		ids[i] = g.ThreadID
	}

	versions, err := c.source.GetVersions(ctx, ids).Unwrap()
	if err != nil {
		c.logger.Warn("version request failed", zap.Int("batch", index), zap.Int("games", len(batch)), zap.Error(err))
		return batchResult{errs: []error{err}}
	}

	var updates []models.Game
	for _, g := range batch {
		if hasNewVersion(g, versions) {
			updates = append(updates, g)
		}
	}
	return batchResult{updates: updates}
}

// hasNewVersion is true when the remote version is neither the installed one
// nor the one already announced. A game missing from the answer counts as
// changed so the full fetch reports on it.
func hasNewVersion(g models.Game, versions map[int]string) bool {
	remote, ok := versions[g.ThreadID]
	if !ok {
		return true
	}
	return g.Version != remote && g.AvailableVersion != remote
}
