package health

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Status represents the health status of a component
type Status string

const (
	// StatusUp indicates a component is working correctly
	StatusUp Status = "up"
	// StatusDown indicates a component is not working
	StatusDown Status = "down"
)

// Component is the reported state of one checked dependency
type Component struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Check probes one dependency
type Check func() error

// Checker runs registered health checks on demand
type Checker struct {
	mu     sync.RWMutex
	checks map[string]Check
}

// NewChecker creates a new health checker
func NewChecker() *Checker {
	return &Checker{checks: make(map[string]Check)}
}

// RegisterCheck registers a named health check
func (c *Checker) RegisterCheck(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Handler returns a Gin handler reporting overall and per-component health.
// Responds 503 when any component is down.
func (c *Checker) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		c.mu.RLock()
		names := make([]string, 0, len(c.checks))
		for name := range c.checks {
			names = append(names, name)
		}
		c.mu.RUnlock()

		overall := StatusUp
		components := make([]Component, 0, len(names))
		for _, name := range names {
			c.mu.RLock()
			check := c.checks[name]
			c.mu.RUnlock()

			comp := Component{Name: name, Status: StatusUp, LastChecked: time.Now()}
			if err := check(); err != nil {
				comp.Status = StatusDown
				comp.Error = err.Error()
				overall = StatusDown
			}
			components = append(components, comp)
		}

		code := http.StatusOK
		if overall == StatusDown {
			code = http.StatusServiceUnavailable
		}

		ctx.JSON(code, gin.H{
			"status":     overall,
			"components": components,
		})
	}
}
