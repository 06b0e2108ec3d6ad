// File: cmd/report.go
package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/ghostpatch/internal/probe"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Report formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// writeReports renders check reports to w in the requested format.
func writeReports(w io.Writer, reports []probe.Report, format string) error {
	switch strings.ToLower(format) {
	case "", formatText:
		return writeText(w, reports)
	case formatJSON:
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize reports to JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(reports); err != nil {
			return fmt.Errorf("failed to serialize reports to YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported report format %q (use text, json or yaml)", format)
	}
}

// writeText prints one block per report: a header, then a row per probe.
func writeText(w io.Writer, reports []probe.Report) error {
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		status := "PASS"
		if !r.Passed() {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s  %s (mobile=%t) in %s\n", status, r.Target, r.Profile.IsMobile, r.Duration.Round(time.Millisecond))

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, res := range r.Results {
			mark := "ok"
			switch {
			case res.Passed:
			case res.Advisory:
				mark = "warn"
			default:
				mark = "FAIL"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", mark, res.Name, res.Error)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// failureCount counts failed non-advisory results across reports.
func failureCount(reports []probe.Report) int {
	n := 0
	for _, r := range reports {
		n += len(r.Failures())
	}
	return n
}
