// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ghostpatch/api/schemas"
	"github.com/xkilldash9x/ghostpatch/internal/browser/stealth"
	"github.com/xkilldash9x/ghostpatch/internal/config"
	"github.com/xkilldash9x/ghostpatch/internal/probe"
)

// Tab is one browser tab that can carry a stealth bundle.
type Tab interface {
	probe.Evaluator
	Install(ctx context.Context, bundle *stealth.Bundle, profile schemas.Profile) error
	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	Close() error
}

// Opener opens tabs. *Browser is the production implementation.
type Opener interface {
	OpenTab(ctx context.Context) (Tab, error)
}

var (
	_ Tab    = (*Session)(nil)
	_ Opener = (*Browser)(nil)
)

// Session is a chromedp-backed tab.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	cfg    config.BrowserConfig

	onClose func()

	mu       sync.Mutex
	isClosed bool
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Install registers the bundle to run ahead of page scripts in every new
// document of the tab. It must precede Navigate.
func (s *Session) Install(ctx context.Context, bundle *stealth.Bundle, profile schemas.Profile) error {
	if err := s.run(ctx, stealth.Apply(bundle, profile, s.logger)); err != nil {
		return fmt.Errorf("failed to install stealth bundle: %w", err)
	}
	s.logger.Debug("Stealth bundle installed.", zap.String("marker", bundle.Marker))
	return nil
}

// Navigate loads url, bounded by the navigation timeout, then waits
// PostLoadWait for asynchronous page checks to settle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))

	navCtx := ctx
	if s.cfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, s.cfg.NavigationTimeout)
		defer cancel()
	}
	if err := s.run(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	if s.cfg.PostLoadWait > 0 {
		if err := s.run(ctx, chromedp.Sleep(s.cfg.PostLoadWait)); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate runs script in the page and returns its value, awaiting it when it
// is a promise.
func (s *Session) Evaluate(ctx context.Context, script string) (interface{}, error) {
	var res interface{}
	err := s.run(ctx, chromedp.Evaluate(script, &res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Title returns document.title.
func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// Close closes the tab. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")
	if s.cancel != nil {
		s.cancel()
	}
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}

// run executes actions on the tab under ctx's deadline and cancellation.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}
