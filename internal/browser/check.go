// internal/browser/check.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/ghostpatch/api/schemas"
	"github.com/xkilldash9x/ghostpatch/internal/browser/stealth"
	"github.com/xkilldash9x/ghostpatch/internal/config"
	"github.com/xkilldash9x/ghostpatch/internal/probe"
)

// NavigationProbe names the result recorded when a target fails to load.
const NavigationProbe = "navigation"

// Checker runs the probe suite against live pages, one fresh tab per target,
// pacing navigations with a token bucket.
type Checker struct {
	logger  *zap.Logger
	opener  Opener
	engine  *stealth.Engine
	cfg     config.CheckConfig
	limiter *rate.Limiter
}

// NewChecker creates a Checker. cfg must be valid.
func NewChecker(opener Opener, engine *stealth.Engine, cfg config.CheckConfig, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		logger:  logger.Named("checker"),
		opener:  opener,
		engine:  engine,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
	}
}

// Check renders the bundle for profile once and checks every target in order.
// extra probes run after the suite. A target that fails to load yields a
// report with a single failed navigation result; tab or install failures and
// cancellation abort the run.
func (c *Checker) Check(ctx context.Context, profile schemas.Profile, targets []string, extra ...probe.Probe) ([]probe.Report, error) {
	bundle, err := c.engine.Render(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to render bundle: %w", err)
	}

	probes := append(probe.Suite(profile), extra...)
	if bundle.Debug {
		probes = append(probes, probe.Installed(bundle))
	}

	reports := make([]probe.Report, 0, len(targets))
	for _, target := range targets {
		if err := c.limiter.Wait(ctx); err != nil {
			return reports, fmt.Errorf("check interrupted: %w", err)
		}
		report, err := c.checkOne(ctx, bundle, profile, target, probes)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (c *Checker) checkOne(ctx context.Context, bundle *stealth.Bundle, profile schemas.Profile, target string, probes []probe.Probe) (probe.Report, error) {
	logger := c.logger.With(zap.String("target", target))
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	tab, err := c.opener.OpenTab(ctx)
	if err != nil {
		return probe.Report{}, err
	}
	defer tab.Close()

	if err := tab.Install(ctx, bundle, profile); err != nil {
		return probe.Report{}, err
	}

	start := time.Now()
	if err := tab.Navigate(ctx, target); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return probe.Report{}, err
		}
		logger.Warn("Target failed to load.", zap.Error(err))
		return probe.Report{
			Target:   target,
			Profile:  profile.Normalize(),
			Results:  []probe.Result{{Name: NavigationProbe, Error: err.Error()}},
			Duration: time.Since(start),
		}, nil
	}

	if title, err := tab.Title(ctx); err == nil {
		logger.Debug("Target loaded.", zap.String("title", title))
	}

	report, err := probe.Run(ctx, tab, probes, logger)
	if err != nil {
		return report, err
	}
	report.Target = target
	report.Profile = profile.Normalize()
	return report, nil
}
