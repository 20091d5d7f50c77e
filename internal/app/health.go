package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// pinger is a dependency that can report its availability
type pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	checks map[string]pinger
}

func NewHealthChecker(infra Infrastructure) *HealthChecker {
	return newHealthChecker(map[string]pinger{
		"postgres": infra.Postgres(),
		"redis":    infra.Redis(),
	})
}

func newHealthChecker(checks map[string]pinger) *HealthChecker {
	return &HealthChecker{checks: checks}
}

func (h *HealthChecker) check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	errs := make(chan error, len(h.checks))
	for name, p := range h.checks {
		go func() {
			if err := p.Ping(ctx); err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
				return
			}
			errs <- nil
		}()
	}

	var err error
	for range h.checks {
		err = errors.Join(err, <-errs)
	}
	return err
}

func (h *HealthChecker) Handler(c *gin.Context) {
	if err := h.check(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "fail",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "pass",
	})
}
