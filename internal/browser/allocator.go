// internal/browser/allocator.go
package browser

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ghostpatch/internal/config"
)

// LaunchFlags returns the command-line flags for a launched Chrome, keyed by
// name without the leading dashes. A false value removes a default flag.
// enable-automation is dropped and the AutomationControlled Blink feature
// disabled so the browser layer agrees with the stealth bundle.
func LaunchFlags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		"enable-automation":      false,
		"headless":               cfg.Headless,
		"disable-blink-features": "AutomationControlled",
		"disable-extensions":     true,
		"disable-gpu":            cfg.DisableGPU,
	}
	if cfg.IgnoreTLSErrors {
		flags["ignore-certificate-errors"] = true
		flags["allow-insecure-localhost"] = true
	}
	if cfg.UserAgent != "" {
		flags["user-agent"] = cfg.UserAgent
	}

	// Containers (Docker on Linux) need these.
	if runtime.GOOS == "linux" {
		flags["no-sandbox"] = true
		flags["disable-dev-shm-usage"] = true
		flags["disable-setuid-sandbox"] = true
	}

	// Custom arguments, "--name=value" or "--name", win over the above.
	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			flags[name] = parts[1]
		} else {
			flags[name] = true
		}
	}
	return flags
}

// AllocatorOptions layers LaunchFlags over chromedp's defaults.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	flags := LaunchFlags(cfg)
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, chromedp.Flag(name, flags[name]))
	}

	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// Browser owns one Chrome process, launched or attached, and hands out tabs.
type Browser struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocCancel context.CancelFunc
	// ctx is the first browser context; tabs derive from it so they share the
	// process.
	ctx    context.Context
	cancel context.CancelFunc

	wg sync.WaitGroup
}

// Launch starts Chrome, or attaches to cfg.RemoteURL when set, and verifies
// the browser responds.
func Launch(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Browser{logger: logger.Named("browser"), cfg: cfg}

	var allocCtx context.Context
	if cfg.RemoteURL != "" {
		b.logger.Info("Attaching to remote browser.", zap.String("url", cfg.RemoteURL))
		allocCtx, b.allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		b.logger.Info("Launching browser.", zap.Bool("headless", cfg.Headless))
		allocCtx, b.allocCancel = chromedp.NewExecAllocator(ctx, AllocatorOptions(cfg)...)
	}
	b.ctx, b.cancel = chromedp.NewContext(allocCtx)

	// The first Run allocates the browser and ties it to the context it is
	// given, so it must be b.ctx itself.
	if err := chromedp.Run(b.ctx); err != nil {
		b.cancel()
		b.allocCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	b.logger.Info("Browser is responsive.")
	return b, nil
}

// OpenTab opens a new tab in the browser.
func (b *Browser) OpenTab(ctx context.Context) (Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tabCtx, cancel := chromedp.NewContext(b.ctx)
	id := uuid.New().String()
	s := &Session{
		id:     id,
		logger: b.logger.Named("session").With(zap.String("session_id", id)),
		cfg:    b.cfg,
		ctx:    tabCtx,
		cancel: cancel,
	}
	// As in Launch, the tab context itself creates the target.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	b.wg.Add(1)
	s.onClose = b.wg.Done
	return s, nil
}

// Close waits for open tabs until ctx is done, then terminates the browser.
func (b *Browser) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	b.cancel()
	b.allocCancel()
	b.logger.Info("Browser closed.")
	return nil
}

// combineContext derives from parent, which carries the chromedp target, and
// is also cancelled when secondary is done.
func combineContext(parent, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
