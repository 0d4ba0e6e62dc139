// Package plan caches the scan configuration suggested by the server.
package plan

import (
	"context"
	"fmt"
	"sync"

	"github.com/L1nMay/portscanner-console/internal/logger"
	"github.com/L1nMay/portscanner-console/internal/model"
)

type Fetcher interface {
	Plan(ctx context.Context) (*model.ScanPlan, error)
}

type Cache struct {
	src Fetcher

	mu   sync.Mutex
	plan *model.ScanPlan
}

func NewCache(src Fetcher) *Cache {
	return &Cache{src: src}
}

// Fetch loads the current plan from the server. A failed fetch keeps the
// previously cached plan.
func (c *Cache) Fetch(ctx context.Context) (model.ScanPlan, error) {
	p, err := c.src.Plan(ctx)
	if err != nil {
		return model.ScanPlan{}, fmt.Errorf("fetch scan plan: %w", err)
	}

	cp := *p
	cp.Targets = append([]string(nil), p.Targets...)

	c.mu.Lock()
	c.plan = &cp
	c.mu.Unlock()

	logger.Debugf("scan plan cached: %d targets, ports %q, engine %s", len(cp.Targets), cp.Ports, cp.Engine)
	return cp, nil
}

func (c *Cache) Current() (model.ScanPlan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.plan == nil {
		return model.ScanPlan{}, false
	}
	cp := *c.plan
	cp.Targets = append([]string(nil), c.plan.Targets...)
	return cp, true
}

// Replay turns the cached plan into a custom launch request, fetching the
// plan first when nothing is cached.
func (c *Cache) Replay(ctx context.Context) (model.ScanRequest, error) {
	p, ok := c.Current()
	if !ok {
		var err error
		if p, err = c.Fetch(ctx); err != nil {
			return model.ScanRequest{}, err
		}
	}

	ports := p.Ports
	if ports == "" {
		ports = "auto"
	}
	return model.ScanRequest{Targets: p.Targets, Ports: ports}, nil
}
