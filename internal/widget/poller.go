package widget

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Tip mirrors the tip endpoint payload.
type Tip struct {
	Title string `json:"title"`
	Code  string `json:"code"`
}

// TipAPI fetches one tip.
type TipAPI interface {
	Tip(ctx context.Context) (Tip, error)
}

// PollerConfig tunes a TipPoller. Zero values get defaults.
type PollerConfig struct {
	Interval time.Duration // between fetches, default 15s
	Tick     time.Duration // countdown resolution, default 1s

	OnTip       func(Tip)
	OnCountdown func(remaining int)
	OnClear     func()
	OnError     func(error)
}

// TipPoller fetches tips periodically while the chat widget is closed and
// tips are enabled. The timer goroutine only exists while that condition
// holds; SetCondition and Close release it on every exit path.
type TipPoller struct {
	api TipAPI
	cfg PollerConfig

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTipPoller(api TipAPI, cfg PollerConfig) *TipPoller {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.Tick > cfg.Interval {
		cfg.Tick = cfg.Interval
	}
	return &TipPoller{api: api, cfg: cfg}
}

// SetCondition updates the governing state and starts or stops polling.
func (p *TipPoller) SetCondition(widgetOpen, tipsDisabled bool) {
	p.mu.Lock()
	want := !widgetOpen && !tipsDisabled
	running := p.cancel != nil

	switch {
	case want && !running:
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		p.done = make(chan struct{})
		go p.run(ctx, p.done)
		p.mu.Unlock()
	case !want && running:
		p.releaseLocked()
	default:
		p.mu.Unlock()
	}
}

// Active reports whether the timer is currently held.
func (p *TipPoller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Close stops polling and waits for the goroutine to exit.
func (p *TipPoller) Close() {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return
	}
	p.releaseLocked()
}

// releaseLocked cancels the running window, unlocks and waits for it.
func (p *TipPoller) releaseLocked() {
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	cancel()
	<-done
	if p.cfg.OnClear != nil {
		p.cfg.OnClear()
	}
}

func (p *TipPoller) run(ctx context.Context, done chan struct{}) {
	var (
		wg       sync.WaitGroup
		inFlight atomic.Bool
	)
	defer close(done)
	defer wg.Wait()

	ticksPerFetch := int64(p.cfg.Interval / p.cfg.Tick)
	var remaining atomic.Int64
	remaining.Store(ticksPerFetch)

	fetch := func() {
		// Skip a tick that lands while the previous fetch is still running.
		if !inFlight.CompareAndSwap(false, true) {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer inFlight.Store(false)

			tip, err := p.api.Tip(ctx)
			if ctx.Err() != nil {
				// Released while fetching: drop the stale result.
				return
			}
			if err != nil {
				if p.cfg.OnError != nil {
					p.cfg.OnError(err)
				}
				return
			}
			if tip.Title == "" || tip.Code == "" {
				return
			}
			remaining.Store(ticksPerFetch)
			if p.cfg.OnTip != nil {
				p.cfg.OnTip(tip)
			}
		}()
	}

	fetch()

	ticker := time.NewTicker(p.cfg.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			left := remaining.Add(-1)
			if left <= 0 {
				remaining.Store(ticksPerFetch)
				left = ticksPerFetch
				fetch()
			}
			if p.cfg.OnCountdown != nil {
				p.cfg.OnCountdown(int(left))
			}
		}
	}
}
