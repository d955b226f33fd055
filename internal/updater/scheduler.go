package updater

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Start (re)arms the periodic schedule. Any previous schedule is cancelled.
func (c *Checker) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.logger.Warn("checker is closed, not starting schedule")
		return
	}
	c.startLocked()
}

// Stop cancels the schedule. A check already running is left to finish.
func (c *Checker) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopLocked() {
		c.logger.Info("periodic update checks stopped")
	}
}

func (c *Checker) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelSchedule != nil
}

func (c *Checker) startLocked() {
	c.stopLocked()

	interval := c.effectiveInterval()
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelSchedule = cancel

	c.logger.Info("periodic update checks started", zap.Duration("interval", interval))
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.loop(ctx, interval)
	}()
}

func (c *Checker) stopLocked() bool {
	if c.cancelSchedule == nil {
		return false
	}
	c.cancelSchedule()
	c.cancelSchedule = nil
	return true
}

// onIntervalChanged restarts a running schedule so the time since the last
// check is measured against the new interval.
func (c *Checker) onIntervalChanged(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelSchedule == nil || c.closed {
		return
	}
	c.logger.Info("update check interval changed, restarting schedule", zap.Duration("interval", d))
	c.startLocked()
}

func (c *Checker) effectiveInterval() time.Duration {
	interval := c.settings.UpdateCheckInterval()
	if interval < c.minInterval {
		c.logger.Info("update check interval below minimum, using minimum",
			zap.Duration("configured", interval), zap.Duration("minimum", c.minInterval))
		return c.minInterval
	}
	return interval
}

// loop only watches ctx between checks; the checks themselves run on the
// checker context so stopping the schedule never aborts one halfway.
func (c *Checker) loop(ctx context.Context, interval time.Duration) {
	for ctx.Err() == nil {
		elapsed := c.now().Sub(c.settings.LastUpdateCheck())
		if elapsed > interval {
			c.RunCheck(c.ctx)
			elapsed = 0
		}
		if elapsed < 0 {
			elapsed = 0
		}

		if !sleepContext(ctx, interval-elapsed) {
			return
		}
		c.RunCheck(c.ctx)
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
