package testpage

import (
	"fmt"
	"sort"

	"github.com/xkilldash9x/ghostpatch/internal/probe"
)

// Verdict returns a probe that reads the page's per-check results. It passes
// when the page ran and every check came back clean.
func Verdict() probe.Probe {
	return probe.Probe{
		Name:   "page_verdict",
		Script: `window.` + ResultsGlobal + ` || null`,
		Check: func(v interface{}) error {
			results, ok := v.(map[string]interface{})
			if !ok {
				return fmt.Errorf("detection page did not publish results")
			}
			var failed []string
			for name, passed := range results {
				if passed != true {
					failed = append(failed, name)
				}
			}
			if len(failed) > 0 {
				sort.Strings(failed)
				return fmt.Errorf("detection page flagged %v", failed)
			}
			return nil
		},
	}
}
