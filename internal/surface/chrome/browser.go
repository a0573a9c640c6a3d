// internal/surface/chrome/browser.go
//
// Package chrome renders creatives in a real browser driven over the Chrome
// DevTools Protocol. One Browser process is shared by every surface; each
// surface owns a tab.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrClosed is returned when a surface is created on a closed browser.
var ErrClosed = errors.New("chrome: browser closed")

// BrowserOptions configure the browser process.
type BrowserOptions struct {
	// ExecPath overrides browser discovery.
	ExecPath   string
	Headless   bool
	NoSandbox  bool
	DisableGPU bool
	UserAgent  string
	// Flags are passed to the browser command line verbatim.
	Flags map[string]any
}

// DefaultBrowserOptions returns a headless configuration suitable for CI.
func DefaultBrowserOptions() BrowserOptions {
	return BrowserOptions{Headless: true, DisableGPU: true}
}

// Browser is a running browser process.
type Browser struct {
	logger *zap.Logger

	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// LookupExecPath reports the first browser binary found on PATH.
func LookupExecPath() (string, bool) {
	for _, name := range []string{
		"google-chrome",
		"google-chrome-stable",
		"chromium",
		"chromium-browser",
		"chrome",
		"headless-shell",
	} {
		if p, err := exec.LookPath(name); err == nil {
			return p, true
		}
	}
	return "", false
}

// Launch starts a browser and waits for its first target to attach.
func Launch(ctx context.Context, logger *zap.Logger, opts BrowserOptions) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("chrome")

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("enable-automation", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-background-timer-throttling", true),
	}
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Headless)
	}
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}
	if opts.DisableGPU {
		allocOpts = append(allocOpts, chromedp.DisableGPU)
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	for key, value := range opts.Flags {
		allocOpts = append(allocOpts, chromedp.Flag(key, value))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	sugar := logger.Sugar()
	browserCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Errorf),
	)

	start := time.Now()
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	logger.Info("Browser started.", zap.Duration("startup", time.Since(start)), zap.Bool("headless", opts.Headless))

	return &Browser{
		logger:      logger,
		allocCancel: allocCancel,
		ctx:         browserCtx,
		cancel:      cancel,
	}, nil
}

// newTab derives a context for a fresh tab. The tab is created by the first
// action run on it.
func (b *Browser) newTab() (context.Context, context.CancelFunc, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, nil, ErrClosed
	}
	ctx, cancel := chromedp.NewContext(b.ctx)
	return ctx, cancel, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (b *Browser) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	err := chromedp.Cancel(b.ctx)
	b.cancel()
	b.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("closing browser: %w", err)
	}
	b.logger.Info("Browser closed.")
	return nil
}
