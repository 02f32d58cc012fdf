// Package health tracks whether the prediction API is reachable.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Reporter receives the outcome of every check.
type Reporter interface {
	SetAPIHealth(healthy bool)
}

// Status is the outcome of the latest check. The zero Status is unhealthy
// and has never been checked.
type Status struct {
	Healthy   bool
	LastCheck time.Time
	LastError string
}

// Checker checks that the prediction API answers.
//
// Any response below 500 counts as reachable: the base URL is not an API
// route and may well return 404.
type Checker struct {
	apiURL   string
	interval time.Duration
	timeout  time.Duration
	reporter Reporter
	logger   *slog.Logger
	client   *http.Client
	now      func() time.Time

	mu     sync.RWMutex
	status Status
}

// NewChecker creates an idle checker; call Run to check on an interval.
func NewChecker(apiURL string, interval, timeout time.Duration, reporter Reporter, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		apiURL:   apiURL,
		interval: interval,
		timeout:  timeout,
		reporter: reporter,
		logger:   logger,
		client:   &http.Client{Timeout: timeout},
		now:      time.Now,
	}
}

// Run checks once, then every interval, until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	c.Check(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check requests the API base URL once, records the outcome and returns it.
func (c *Checker) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	errMsg := c.request(ctx)
	st := Status{Healthy: errMsg == "", LastCheck: c.now(), LastError: errMsg}

	c.mu.Lock()
	c.status = st
	c.mu.Unlock()

	if errMsg != "" {
		c.logger.Debug("api health check failed", "error", errMsg)
	}
	if c.reporter != nil {
		c.reporter.SetAPIHealth(st.Healthy)
	}
	return st
}

// request returns "" when the API answered below 500, or why it did not.
func (c *Checker) request(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return err.Error()
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "status code: " + strconv.Itoa(resp.StatusCode)
	}
	return ""
}

// Status returns the outcome of the latest check.
func (c *Checker) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Healthy reports whether the latest check reached the API.
func (c *Checker) Healthy() bool {
	return c.Status().Healthy
}
