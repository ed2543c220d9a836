// Package health implements liveness and readiness checks.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Check is a single named health check.
type Check func(ctx context.Context) error

// Checker runs registered checks and reports aggregate status.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]Check
}

// NewChecker creates an empty Checker.
func NewChecker() *Checker {
	return &Checker{checks: make(map[string]Check)}
}

// Register adds a named check. Later registrations replace earlier ones.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Status holds the result of running all checks.
type Status struct {
	Healthy bool              `json:"healthy"`
	Checks  map[string]string `json:"checks"`
	Time    time.Time         `json:"time"`
}

// Run executes all registered checks with a per-check timeout.
func (c *Checker) Run(ctx context.Context) Status {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	status := Status{
		Healthy: true,
		Checks:  make(map[string]string, len(checks)),
		Time:    time.Now().UTC(),
	}
	for name, check := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := check(checkCtx); err != nil {
			status.Healthy = false
			status.Checks[name] = err.Error()
		} else {
			status.Checks[name] = "ok"
		}
		cancel()
	}
	return status
}

// Handler returns a gin handler reporting full health status.
func (c *Checker) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		status := c.Run(ctx.Request.Context())
		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		ctx.JSON(code, status)
	}
}

// LiveHandler always reports alive. Used by orchestrators to detect hangs.
func LiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	}
}
