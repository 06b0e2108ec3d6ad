package stealth

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ghostpatch/api/schemas"
)

// Apply constructs the Chrome DevTools Protocol actions that install the
// bundle into every new document of the target, ahead of page scripts. Touch
// emulation and the hardware concurrency override keep the protocol level in
// line with what the patches report.
func Apply(bundle *Bundle, profile schemas.Profile, logger *zap.Logger) chromedp.Tasks {
	if logger == nil {
		logger = zap.NewNop()
	}
	profile = profile.Normalize()

	logger.Debug("Applying stealth bundle",
		zap.String("marker", bundle.Marker),
		zap.Strings("patches", bundle.Patches),
		zap.Bool("mobile", profile.IsMobile),
	)

	tasks := chromedp.Tasks{
		// AddScriptToEvaluateOnNewDocument returns two values, which doesn't
		// match the chromedp.Action interface.
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(bundle.Script).Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to inject stealth bundle: %w", err)
			}
			return nil
		}),
		emulation.SetHardwareConcurrencyOverride(int64(profile.HardwareConcurrency)),
	}

	if touch := profile.MaxTouchPoints(); touch > 0 {
		tasks = append(tasks, emulation.SetTouchEmulationEnabled(true).WithMaxTouchPoints(int64(touch)))
	}
	return tasks
}
