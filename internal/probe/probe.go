// Package probe runs detection checks against a patched page. A probe is a
// script the way a fingerprinting library would write it plus the value a real
// browser presenting the profile would report.
package probe

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ghostpatch/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Evaluator runs a script in a page and returns its completion value. A
// returned promise must be awaited. jsexec.Runtime and browser.Session both
// satisfy it.
type Evaluator interface {
	Evaluate(ctx context.Context, script string) (interface{}, error)
}

// Check inspects the value a probe script produced. Values arrive as decoded
// JSON: numbers are float64, arrays []interface{}, objects map[string]interface{}.
type Check func(value interface{}) error

// Probe is one detection check.
type Probe struct {
	Name string
	// Script is a JavaScript expression. It may evaluate to a promise.
	Script string
	Check  Check
	// Advisory probes are reported but do not fail the run.
	Advisory bool
}

// Result is the outcome of one probe.
type Result struct {
	Name     string      `json:"name" yaml:"name"`
	Passed   bool        `json:"passed" yaml:"passed"`
	Advisory bool        `json:"advisory,omitempty" yaml:"advisory,omitempty"`
	Value    interface{} `json:"value,omitempty" yaml:"value,omitempty"`
	Error    string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report collects the results of a run.
type Report struct {
	Target   string          `json:"target" yaml:"target"`
	Profile  schemas.Profile `json:"profile" yaml:"profile"`
	Results  []Result        `json:"results" yaml:"results"`
	Duration time.Duration   `json:"duration" yaml:"duration"`
}

// Passed reports whether every non-advisory probe passed.
func (r Report) Passed() bool {
	return len(r.Failures()) == 0
}

// Failures returns the failed non-advisory results.
func (r Report) Failures() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.Passed && !res.Advisory {
			failed = append(failed, res)
		}
	}
	return failed
}

// wrap evaluates a probe expression and serializes its (awaited) value so
// every Evaluator hands back the same JSON shapes.
func wrap(script string) string {
	return `Promise.resolve((function () { return (` + script + `); })()).then(function (v) {
	return JSON.stringify(v === undefined ? null : v);
})`
}

// Run evaluates each probe in order. A probe that throws or fails its check is
// recorded as failed; the run continues. Run only returns an error when ctx is
// done.
func Run(ctx context.Context, ev Evaluator, probes []Probe, logger *zap.Logger) (Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("probe")

	start := time.Now()
	report := Report{Results: make([]Result, 0, len(probes))}
	for _, p := range probes {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("probe run interrupted: %w", err)
		}
		res := runOne(ctx, ev, p)
		if !res.Passed {
			logger.Warn("Probe failed",
				zap.String("probe", res.Name),
				zap.Bool("advisory", res.Advisory),
				zap.Any("value", res.Value),
				zap.String("error", res.Error),
			)
		} else {
			logger.Debug("Probe passed", zap.String("probe", res.Name))
		}
		report.Results = append(report.Results, res)
	}
	report.Duration = time.Since(start)

	logger.Info("Probe run complete",
		zap.Int("probes", len(report.Results)),
		zap.Int("failures", len(report.Failures())),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func runOne(ctx context.Context, ev Evaluator, p Probe) Result {
	res := Result{Name: p.Name, Advisory: p.Advisory}

	raw, err := ev.Evaluate(ctx, wrap(p.Script))
	if err != nil {
		res.Error = err.Error()
		return res
	}
	encoded, ok := raw.(string)
	if !ok {
		res.Error = fmt.Sprintf("probe returned %T, want serialized JSON", raw)
		return res
	}
	if err := json.UnmarshalFromString(encoded, &res.Value); err != nil {
		res.Error = fmt.Sprintf("failed to decode probe value: %v", err)
		return res
	}
	if p.Check != nil {
		if err := p.Check(res.Value); err != nil {
			res.Error = err.Error()
			return res
		}
	}
	res.Passed = true
	return res
}
