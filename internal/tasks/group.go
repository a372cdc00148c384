// Package tasks runs bulk platform edits as joinable work.
package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Group runs functions concurrently and collects every error. Unlike a bare
// errgroup one failure does not cancel the others: bulk edits are best
// effort and partial application is kept.
type Group struct {
	ctx     context.Context
	timeout time.Duration
	g       errgroup.Group

	mu   sync.Mutex
	errs []error
}

// NewGroup returns a group running at most limit functions at once (no limit
// when limit <= 0). Each function gets ctx bounded by timeout when timeout > 0.
func NewGroup(ctx context.Context, limit int, timeout time.Duration) *Group {
	g := &Group{ctx: ctx, timeout: timeout}
	if limit > 0 {
		g.g.SetLimit(limit)
	}
	return g
}

// Go starts fn.
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.g.Go(func() error {
		ctx := g.ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		if err := fn(ctx); err != nil {
			g.mu.Lock()
			g.errs = append(g.errs, err)
			g.mu.Unlock()
		}
		return nil
	})
}

// Wait blocks until every function returned and joins their errors.
func (g *Group) Wait() error {
	_ = g.g.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}
