// File: cmd/check.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ghostpatch/api/schemas"
	"github.com/xkilldash9x/ghostpatch/internal/browser"
	"github.com/xkilldash9x/ghostpatch/internal/browser/jsbind"
	"github.com/xkilldash9x/ghostpatch/internal/browser/stealth"
	"github.com/xkilldash9x/ghostpatch/internal/config"
	"github.com/xkilldash9x/ghostpatch/internal/observability"
	"github.com/xkilldash9x/ghostpatch/internal/probe"
	"github.com/xkilldash9x/ghostpatch/internal/testpage"
)

// errChecksFailed is returned when any non-advisory probe failed.
var errChecksFailed = errors.New("fingerprint checks failed")

// checkOptions carries the check command's flags.
type checkOptions struct {
	useBrowser  bool
	headful     bool
	remoteURL   string
	targets     []string
	matrix      bool
	fingerprint bool
	format      string
}

// newCheckCmd creates the `check` command.
func newCheckCmd() *cobra.Command {
	var opts checkOptions

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the bundle against detection probes",
		Long: `Runs the detection probe suite against the rendered bundle.

By default the bundle is evaluated in the built-in headless-Chrome sandbox
together with the local detection page. With --browser a real Chrome is
driven over the DevTools protocol; without --target it loads the detection
page from a loopback server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			applyCheckFlags(cmd, cfg, opts)
			return runCheck(cmd.Context(), cmd.OutOrStdout(), observability.GetLogger(), cfg, opts)
		},
	}

	f := checkCmd.Flags()
	f.BoolVar(&opts.useBrowser, "browser", false, "check in a real Chrome instead of the sandbox")
	f.BoolVar(&opts.headful, "headful", false, "show the browser window (with --browser)")
	f.StringVar(&opts.remoteURL, "remote", "", "DevTools URL of a running browser (implies --browser)")
	f.StringSliceVarP(&opts.targets, "target", "t", nil, "URL to check (repeatable, requires --browser)")
	f.BoolVar(&opts.matrix, "matrix", false, "check desktop and mobile variants of the profile")
	f.BoolVar(&opts.fingerprint, "fingerprint", false, "add a row with the values a fingerprinting script would hash")
	f.StringVarP(&opts.format, "format", "f", formatText, "report format: text, json or yaml")
	return checkCmd
}

// applyCheckFlags writes changed flags over the loaded configuration.
func applyCheckFlags(cmd *cobra.Command, cfg config.Interface, opts checkOptions) {
	flags := cmd.Flags()
	if flags.Changed("headful") {
		cfg.SetBrowserHeadless(!opts.headful)
	}
	if flags.Changed("remote") {
		cfg.SetBrowserRemoteURL(opts.remoteURL)
	}
	if flags.Changed("target") {
		cfg.SetCheckTargets(opts.targets)
	}
	if flags.Changed("matrix") {
		cfg.SetCheckMatrix(opts.matrix)
	}
}

// runCheck contains the testable core of the check command.
func runCheck(ctx context.Context, stdout io.Writer, logger *zap.Logger, cfg config.Interface, opts checkOptions) error {
	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	profile, err := cfg.Stealth().ResolveProfile()
	if err != nil {
		return fmt.Errorf("failed to resolve profile: %w", err)
	}
	profiles := []schemas.Profile{profile}
	if cfg.Check().Matrix {
		profiles = matrixProfiles(profile)
	}

	var extra []probe.Probe
	if opts.fingerprint {
		extra = append(extra, probe.Fingerprint())
	}

	var reports []probe.Report
	if opts.useBrowser || cfg.Browser().RemoteURL != "" {
		reports, err = checkBrowser(ctx, logger, cfg, engine, profiles, extra)
	} else {
		if len(cfg.Check().Targets) > 0 {
			return errors.New("targets can only be checked with --browser")
		}
		reports, err = checkSandbox(ctx, logger, cfg, engine, profiles, extra)
	}
	if err != nil {
		return err
	}

	if err := writeReports(stdout, reports, opts.format); err != nil {
		return err
	}
	if n := failureCount(reports); n > 0 {
		logger.Warn("Fingerprint checks failed", zap.Int("failures", n), zap.Int("reports", len(reports)))
		return errChecksFailed
	}
	logger.Info("All fingerprint checks passed", zap.Int("reports", len(reports)))
	return nil
}

// matrixProfiles returns desktop and mobile variants of p.
func matrixProfiles(p schemas.Profile) []schemas.Profile {
	desktop, mobile := p, p
	desktop.IsMobile, desktop.EmulateTouch = false, false
	mobile.IsMobile, mobile.EmulateTouch = true, true
	return []schemas.Profile{desktop.Normalize(), mobile.Normalize()}
}

func checkSandbox(ctx context.Context, logger *zap.Logger, cfg config.Interface, engine *stealth.Engine, profiles []schemas.Profile, extra []probe.Probe) ([]probe.Report, error) {
	page, err := testpage.Page()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Check().Timeout)
	defer cancel()
	extra = append([]probe.Probe{testpage.Verdict()}, extra...)
	return probe.RunMatrix(ctx, engine, profiles, jsbind.HeadlessChrome(), page, logger, extra...)
}

func checkBrowser(ctx context.Context, logger *zap.Logger, cfg config.Interface, engine *stealth.Engine, profiles []schemas.Profile, extra []probe.Probe) ([]probe.Report, error) {
	b, err := browser.Launch(ctx, cfg.Browser(), logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = b.Close(closeCtx)
	}()

	targets := cfg.Check().Targets
	if len(targets) == 0 {
		srv := testpage.New(logger)
		url, err := srv.Start()
		if err != nil {
			return nil, err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		targets = []string{url}
		extra = append(extra, testpage.Verdict())
	}

	checker := browser.NewChecker(b, engine, cfg.Check(), logger)
	var reports []probe.Report
	for _, p := range profiles {
		r, err := checker.Check(ctx, p, targets, extra...)
		reports = append(reports, r...)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}
