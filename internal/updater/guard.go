package updater

import "go.uber.org/zap"

// runIfNotAlreadyRunning runs fn unless another check or bulk update is
// active, in which case the attempt is dropped and false is returned.
func (c *Checker) runIfNotAlreadyRunning(name string, fn func()) bool {
	if !c.active.CompareAndSwap(false, true) {
		c.logger.Warn("attempted to run multiple update checks in parallel", zap.String("operation", name))
		return false
	}
	defer c.active.Store(false)

	fn()
	return true
}

// Active reports whether a check or bulk update is running.
func (c *Checker) Active() bool {
	return c.active.Load()
}
