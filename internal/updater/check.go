package updater

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"avn-launcher/internal/events"
	"avn-launcher/internal/models"
)

// RunCheck performs one update check and blocks until it is done. ran is
// false when another check or bulk update was already active.
func (c *Checker) RunCheck(ctx context.Context) (result models.UpdateCheckResult, ran bool) {
	ran = c.runIfNotAlreadyRunning("check", func() {
		result = c.checkForUpdates(ctx)
	})
	return result, ran
}

// RunUpdateAll refreshes every remote game regardless of its update flags.
func (c *Checker) RunUpdateAll(ctx context.Context) (result models.UpdateResult, ran bool) {
	ran = c.runIfNotAlreadyRunning("update-all", func() {
		result = c.updateAllGames(ctx)
	})
	return result, ran
}

func (c *Checker) checkForUpdates(ctx context.Context) models.UpdateCheckResult {
	result := models.UpdateCheckResult{RunID: uuid.NewString()}
	log := c.logger.With(zap.String("run_id", result.RunID))

	c.publisher.Publish(events.UpdateCheckStarted, nil)
	start := c.now()

	all, err := c.store.All(ctx)
	if err != nil {
		log.Error("loading games failed", zap.Error(err))
		result.Errors = append(result.Errors, fmt.Errorf("load games: %w", err))
		c.publisher.Publish(events.UpdateCheckComplete, result)
		return result
	}

	games := c.candidates(all)
	log.Info("checking games for updates", zap.Int("games", len(games)))

	batches := c.gamesWithUpdate(ctx, games)
	log.Info("version check done", zap.Duration("took", c.now().Sub(start)), zap.Int("requests", len(batches)))

	var toUpdate []models.Game
	for _, b := range batches {
		toUpdate = append(toUpdate, b.updates...)
		result.Errors = append(result.Errors, b.errs...)
	}
	if len(toUpdate) == 0 {
		log.Info("no updates available")
	}

	log.Info("updating games", zap.Int("games", len(toUpdate)))
	merged, errs := c.fetchAndMerge(ctx, toUpdate)
	result.Errors = append(result.Errors, errs...)

	if err := c.store.UpdateGames(ctx, merged); err != nil {
		log.Error("saving updated games failed", zap.Error(err))
		result.Errors = append(result.Errors, fmt.Errorf("save games: %w", err))
	} else {
		result.Updates = merged
	}

	c.publisher.Publish(events.UpdateCheckComplete, result)
	if err := c.settings.SetLastUpdateCheck(ctx, c.now()); err != nil {
		log.Warn("recording last update check failed", zap.Error(err))
	}
	log.Info("update check complete",
		zap.Int("updates", len(result.Updates)), zap.Int("errors", len(result.Errors)),
		zap.Duration("took", c.now().Sub(start)))
	return result
}

func (c *Checker) updateAllGames(ctx context.Context) models.UpdateResult {
	result := models.UpdateResult{RunID: uuid.NewString()}
	log := c.logger.With(zap.String("run_id", result.RunID))

	c.publisher.Publish(events.UpdatingGamesStarted, nil)
	start := c.now()

	all, err := c.store.All(ctx)
	if err != nil {
		log.Error("loading games failed", zap.Error(err))
		result.ErrorCount = 1
		c.publisher.Publish(events.UpdatingGamesComplete, result)
		return result
	}

	games := make([]models.Game, 0, len(all))
	for _, g := range all {
		if g.IsRemoteGame() {
			games = append(games, g)
		}
	}
	log.Info("updating all games", zap.Int("games", len(games)))

	merged, errs := c.fetchAndMerge(ctx, games)
	result.SuccessCount = len(merged)
	result.ErrorCount = len(errs)

	if err := c.store.UpdateGames(ctx, merged); err != nil {
		log.Error("saving updated games failed", zap.Error(err))
		result.SuccessCount = 0
		result.ErrorCount += len(merged)
	}

	c.publisher.Publish(events.UpdatingGamesComplete, result)
	log.Info("update of all games complete",
		zap.Int("success", result.SuccessCount), zap.Int("errors", result.ErrorCount),
		zap.Duration("took", c.now().Sub(start)))
	return result
}
