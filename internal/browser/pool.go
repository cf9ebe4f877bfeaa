// Package browser manages a bounded pool of Chrome processes and browsing
// contexts for the submission actors. Contexts carry a randomized
// fingerprint, a request interceptor, and a popup closer; the process count
// never exceeds the configured hard cap.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/outreach/internal/common"
)

// acquirePollInterval is the backoff between availability checks when every
// context slot is taken.
const acquirePollInterval = 250 * time.Millisecond

// shutdownTimeout bounds cleanup so a wedged Chrome cannot hang process exit
const shutdownTimeout = 30 * time.Second

// Context is one browsing context (a tab) leased from the pool. Callers run
// chromedp actions against Ctx and must hand the context back with
// Pool.Release on every exit path.
type Context struct {
	Ctx         context.Context
	Fingerprint Fingerprint

	cancel context.CancelFunc
	proc   *browserProc
	fresh  bool
}

// browserProc is one underlying Chrome process
type browserProc struct {
	ctx            context.Context
	cancel         context.CancelFunc
	allocatorCancel context.CancelFunc
	tabs           int
}

// Pool owns the browser processes and the warm-context list
type Pool struct {
	config common.BrowserConfig
	logger arbor.ILogger

	mu       sync.Mutex
	procs    []*browserProc
	idle     []*Context
	total    int // live contexts, idle or leased
	starting int // process launches in flight, counted against MaxBrowsers
	shutdown bool

	// startProc launches one Chrome process; overridable in tests
	startProc func(ctx context.Context) (*browserProc, error)
}

// NewPool creates an empty pool. Processes are started lazily on first
// Acquire so a worker with no submittable pages never launches Chrome.
func NewPool(config common.BrowserConfig, logger arbor.ILogger) *Pool {
	if config.MaxBrowsers <= 0 {
		config.MaxBrowsers = 5
	}
	if config.MaxContexts < config.MaxBrowsers {
		config.MaxContexts = config.MaxBrowsers
	}
	if config.NavTimeout <= 0 {
		config.NavTimeout = common.Duration(45 * time.Second)
	}
	p := &Pool{
		config: config,
		logger: logger,
	}
	p.startProc = p.startProcess
	return p
}

// Acquire returns a ready browsing context: a pooled one when available,
// otherwise a new one while under the context cap, otherwise it polls with
// backoff until a context frees up or ctx is cancelled.
func (p *Pool) Acquire(ctx context.Context) (*Context, error) {
	for {
		p.mu.Lock()
		if p.shutdown {
			p.mu.Unlock()
			return nil, fmt.Errorf("browser pool is shut down")
		}

		if n := len(p.idle); n > 0 {
			bc := p.idle[n-1]
			p.idle = p.idle[:n-1]
			p.mu.Unlock()
			p.logger.Debug().Msg("Reusing pooled browser context")
			return bc, nil
		}

		if p.total < p.config.MaxContexts {
			p.total++
			p.mu.Unlock()

			bc, err := p.newContext(ctx, false)
			if err != nil {
				p.mu.Lock()
				p.total--
				p.mu.Unlock()
				return nil, err
			}
			return bc, nil
		}
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(acquirePollInterval):
		}
	}
}

// Fresh returns a brand-new context with a brand-new fingerprint, bypassing
// the warm pool. Used when every submission should look like a different
// visitor. The context is closed, not pooled, on Release.
func (p *Pool) Fresh(ctx context.Context) (*Context, error) {
	for {
		p.mu.Lock()
		if p.shutdown {
			p.mu.Unlock()
			return nil, fmt.Errorf("browser pool is shut down")
		}

		// Evict an idle context rather than wait when the cap is reached
		if p.total >= p.config.MaxContexts && len(p.idle) > 0 {
			n := len(p.idle)
			victim := p.idle[n-1]
			p.idle = p.idle[:n-1]
			p.total--
			victim.proc.tabs--
			p.mu.Unlock()
			victim.cancel()
			continue
		}

		if p.total < p.config.MaxContexts {
			p.total++
			p.mu.Unlock()

			bc, err := p.newContext(ctx, true)
			if err != nil {
				p.mu.Lock()
				p.total--
				p.mu.Unlock()
				return nil, err
			}
			return bc, nil
		}
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(acquirePollInterval):
		}
	}
}

// Release hands a context back. Cookies and web storage are cleared so the
// next lease starts clean; fresh contexts and overflow are closed instead of
// pooled.
func (p *Pool) Release(bc *Context) {
	if bc == nil {
		return
	}

	p.mu.Lock()
	shutdown := p.shutdown
	poolable := !bc.fresh && !shutdown && len(p.idle) < p.config.MaxContexts
	p.mu.Unlock()

	if poolable {
		clearCtx, cancel := context.WithTimeout(bc.Ctx, 5*time.Second)
		err := chromedp.Run(clearCtx,
			chromedp.Navigate("about:blank"),
			storage.ClearCookies(),
			storage.ClearDataForOrigin("*", "all"),
		)
		cancel()
		if err == nil {
			p.mu.Lock()
			p.idle = append(p.idle, bc)
			p.mu.Unlock()
			p.logger.Debug().Msg("Browser context returned to pool")
			return
		}
		p.logger.Debug().Err(err).Msg("Context cleanup failed, closing instead of pooling")
	}

	p.closeContext(bc)
}

// closeContext cancels a context and releases its slot
func (p *Pool) closeContext(bc *Context) {
	bc.cancel()
	p.mu.Lock()
	p.total--
	bc.proc.tabs--
	p.mu.Unlock()
	p.logger.Debug().Msg("Browser context closed")
}

// newContext creates a tab on the least-loaded process, spinning up a new
// process while under the cap, and installs fingerprint, interceptor and
// popup closer before the caller's first navigation.
func (p *Pool) newContext(ctx context.Context, fresh bool) (*Context, error) {
	proc, err := p.pickProcess(ctx)
	if err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(proc.ctx)

	fp := RandomFingerprint()

	setupCtx, setupCancel := context.WithTimeout(tabCtx, p.config.NavTimeout.Std())
	defer setupCancel()

	if err := chromedp.Run(setupCtx, fp.apply()); err != nil {
		tabCancel()
		p.releaseProcSlot(proc)
		return nil, fmt.Errorf("failed to apply fingerprint: %w", err)
	}
	if err := attachInterceptor(tabCtx, p.logger); err != nil {
		tabCancel()
		p.releaseProcSlot(proc)
		return nil, fmt.Errorf("failed to attach request interceptor: %w", err)
	}

	p.logger.Debug().
		Int64("viewport_w", fp.ViewportWidth).
		Int64("viewport_h", fp.ViewportHeight).
		Str("timezone", fp.Timezone).
		Str("locale", fp.Locale).
		Bool("fresh", fresh).
		Msg("Browser context created")

	return &Context{
		Ctx:         tabCtx,
		Fingerprint: fp,
		cancel:      tabCancel,
		proc:        proc,
		fresh:       fresh,
	}, nil
}

// pickProcess returns the live process with the fewest tabs, starting a new
// process while under MaxBrowsers. The chosen process has its tab count
// bumped before return. A start slot is reserved under the mutex before the
// (slow, unlocked) Chrome launch so concurrent callers can never push the
// live-plus-starting process count past the cap.
func (p *Pool) pickProcess(ctx context.Context) (*browserProc, error) {
	for {
		p.mu.Lock()

		var best *browserProc
		for _, proc := range p.procs {
			if best == nil || proc.tabs < best.tabs {
				best = proc
			}
		}

		atCap := len(p.procs)+p.starting >= p.config.MaxBrowsers
		if best != nil && (atCap || best.tabs == 0) {
			best.tabs++
			p.mu.Unlock()
			return best, nil
		}
		if atCap {
			// Every slot is a process still starting; wait for one to land
			p.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(acquirePollInterval):
			}
			continue
		}

		p.starting++
		p.mu.Unlock()

		proc, err := p.startProc(ctx)

		p.mu.Lock()
		p.starting--
		if err != nil {
			// Fall back to an existing process when Chrome refuses to start
			// another instance
			for _, existing := range p.procs {
				existing.tabs++
				p.mu.Unlock()
				return existing, nil
			}
			p.mu.Unlock()
			return nil, err
		}
		p.procs = append(p.procs, proc)
		proc.tabs++
		p.mu.Unlock()

		return proc, nil
	}
}

func (p *Pool) releaseProcSlot(proc *browserProc) {
	p.mu.Lock()
	proc.tabs--
	p.mu.Unlock()
}

// startProcess launches one Chrome process and verifies it responds
func (p *Pool) startProcess(ctx context.Context) (*browserProc, error) {
	start := time.Now()

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", p.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", p.config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	testCtx, testCancel := context.WithTimeout(browserCtx, p.config.NavTimeout.Std())
	defer testCancel()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("browser process failed startup test: %w", err)
	}

	attachPopupCloser(browserCtx, p.logger)

	p.logger.Info().
		Dur("startup_time", time.Since(start)).
		Bool("headless", p.config.Headless).
		Msg("Browser process started")

	return &browserProc{
		ctx:             browserCtx,
		cancel:          browserCancel,
		allocatorCancel: allocatorCancel,
	}, nil
}

// Shutdown closes every context and browser process. Safe to call more than
// once; cleanup is bounded by shutdownTimeout.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return
	}
	p.shutdown = true
	idle := p.idle
	procs := p.procs
	p.idle = nil
	p.procs = nil
	p.total = 0
	p.mu.Unlock()

	p.logger.Info().
		Int("contexts", len(idle)).
		Int("processes", len(procs)).
		Msg("Shutting down browser pool")

	done := make(chan struct{})
	go func() {
		for _, bc := range idle {
			bc.cancel()
		}
		for _, proc := range procs {
			proc.cancel()
			proc.allocatorCancel()
		}
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info().Msg("Browser pool shut down")
	case <-time.After(shutdownTimeout):
		p.logger.Warn().Msg("Browser pool shutdown timed out")
	}
}

// Stats reports pool occupancy for the worker's periodic status log
func (p *Pool) Stats() (processes, contexts, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.procs), p.total, len(p.idle)
}
