package probe

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/ghostpatch/api/schemas"
	"github.com/xkilldash9x/ghostpatch/internal/browser/jsbind"
	"github.com/xkilldash9x/ghostpatch/internal/browser/stealth"
)

// SandboxTarget names reports produced by CheckSandbox.
const SandboxTarget = "sandbox"

// PatchesInstalled is the name of the synthetic result recording patches
// that failed to install. It is only present for debug bundles.
const PatchesInstalled = "patches_installed"

// CheckSandbox renders the bundle for profile, evaluates it in a fresh
// headless-Chrome double, runs the page's inline scripts (if any) the way a
// detection page would, and then runs the probe suite followed by extra.
func CheckSandbox(ctx context.Context, engine *stealth.Engine, profile schemas.Profile, env jsbind.Environment, page *jsbind.Page, logger *zap.Logger, extra ...Probe) (Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	bundle, err := engine.Render(profile)
	if err != nil {
		return Report{}, fmt.Errorf("failed to render bundle: %w", err)
	}

	rt, err := jsbind.NewSandbox(logger, env)
	if err != nil {
		return Report{}, err
	}
	defer rt.Close()

	if _, err := rt.Evaluate(ctx, bundle.Script); err != nil {
		return Report{}, fmt.Errorf("failed to evaluate bundle: %w", err)
	}
	if page != nil {
		for i, script := range page.Scripts {
			// Page errors are the page's business, as in a browser.
			if _, err := rt.Evaluate(ctx, script); err != nil {
				logger.Warn("Page script failed", zap.Int("index", i), zap.Error(err))
			}
		}
	}

	probes := append(Suite(profile), extra...)
	report, err := Run(ctx, rt, probes, logger)
	if err != nil {
		return report, err
	}
	report.Target = SandboxTarget
	report.Profile = profile.Normalize()

	if bundle.Debug {
		report.Results = append(report.Results, runOne(ctx, rt, Installed(bundle)))
	}
	return report, nil
}

// Installed reports the patches a debug bundle recorded as failed to install.
func Installed(bundle *stealth.Bundle) Probe {
	return Probe{
		Name:   PatchesInstalled,
		Script: `globalThis[` + quote(bundle.FailedGlobal()) + `] || []`,
		Check: func(v interface{}) error {
			if failed, ok := v.([]interface{}); ok && len(failed) > 0 {
				return fmt.Errorf("patches failed to install: %v", failed)
			}
			return nil
		},
	}
}

func quote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

// RunMatrix checks every profile in parallel, one sandbox per profile.
// Reports are returned in profile order. The first error cancels the rest.
func RunMatrix(ctx context.Context, engine *stealth.Engine, profiles []schemas.Profile, env jsbind.Environment, page *jsbind.Page, logger *zap.Logger, extra ...Probe) ([]Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	reports := make([]Report, len(profiles))

	g, groupCtx := errgroup.WithContext(ctx)
	for i, profile := range profiles {
		g.Go(func() error {
			r, err := CheckSandbox(groupCtx, engine, profile, env, page, logger.With(zap.Int("profile", i)), extra...)
			if err != nil {
				return fmt.Errorf("profile %d: %w", i, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
