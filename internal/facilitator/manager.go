// Package facilitator implements the eager-start, lazy-await lifecycle
// wrapper around a facilitator proxy described in spec.md §4.10: start and
// health-wait begin at construction time so multiple facilitators can warm
// up concurrently, while the orchestrator proceeds with other setup.
package facilitator

import (
	"context"
	"sync"

	"muster/internal/health"
	"muster/internal/proxy"
	"muster/pkg/logging"
)

// Manager owns one facilitator's lifecycle: start (at construction),
// ready (awaited lazily, once), and stop.
type Manager struct {
	name string
	px   proxy.Facilitator

	once    sync.Once
	readyCh chan readyResult
	result  readyResult
}

type readyResult struct {
	url string
	ok  bool
}

// New constructs a Manager and immediately kicks off Start + the health
// gate in a background goroutine; the result is buffered for Ready to
// consume whenever it is called.
func New(ctx context.Context, name string, px proxy.Facilitator, cfg proxy.FacilitatorConfig) *Manager {
	m := &Manager{
		name:    name,
		px:      px,
		readyCh: make(chan readyResult, 1),
	}

	go func() {
		if err := px.Start(ctx, cfg); err != nil {
			logging.Error("FacilitatorManager", err, "%s: failed to start", name)
			m.readyCh <- readyResult{ok: false}
			return
		}

		ok := health.Wait(ctx, func(ctx context.Context) (bool, error) {
			res, err := px.Health(ctx)
			if err != nil {
				return false, err
			}
			return res.Success, nil
		}, health.Options{Label: name})

		if !ok {
			m.readyCh <- readyResult{ok: false}
			return
		}
		m.readyCh <- readyResult{url: px.URL(), ok: true}
	}()

	return m
}

// Ready awaits the in-flight start+health operation exactly once, caching
// the outcome so repeat or concurrent callers all observe the same result.
func (m *Manager) Ready() (string, bool) {
	m.once.Do(func() {
		m.result = <-m.readyCh
	})
	return m.result.url, m.result.ok
}

// Stop forwards to the underlying facilitator proxy. Idempotent because
// the proxy's Stop is idempotent.
func (m *Manager) Stop(ctx context.Context) error {
	return m.px.Stop(ctx)
}
