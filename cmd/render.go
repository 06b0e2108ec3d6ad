// File: cmd/render.go
package cmd

import (
	"fmt"
	"io"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ghostpatch/internal/browser/stealth"
	"github.com/xkilldash9x/ghostpatch/internal/config"
	"github.com/xkilldash9x/ghostpatch/internal/observability"
)

// newRenderCmd creates the `render` command.
func newRenderCmd() *cobra.Command {
	var rawPath string
	var outputPath string

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Print the stealth bundle for the configured profile",
		Long: `Renders the self-contained patch bundle for the configured profile. The
bundle is meant to be injected ahead of page scripts, for example through
Page.addScriptToEvaluateOnNewDocument.

With --raw the profile is read verbatim from a JSON file and bound into the
bundle unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return runRender(cmd.OutOrStdout(), observability.GetLogger(), cfg, rawPath, outputPath)
		},
	}

	renderCmd.Flags().StringVar(&rawPath, "raw", "", "JSON profile file bound into the bundle as-is")
	renderCmd.Flags().StringVarP(&outputPath, "out", "o", "", "write the bundle to this file instead of stdout")
	return renderCmd
}

// runRender contains the testable core of the render command.
func runRender(stdout io.Writer, logger *zap.Logger, cfg config.Interface, rawPath, outputPath string) error {
	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	var bundle *stealth.Bundle
	if rawPath != "" {
		path, err := homedir.Expand(rawPath)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read raw profile: %w", err)
		}
		if bundle, err = engine.RenderRaw(data); err != nil {
			return err
		}
	} else {
		profile, err := cfg.Stealth().ResolveProfile()
		if err != nil {
			return fmt.Errorf("failed to resolve profile: %w", err)
		}
		if bundle, err = engine.Render(profile); err != nil {
			return err
		}
	}

	if outputPath == "" {
		_, err := io.WriteString(stdout, bundle.Script)
		return err
	}
	path, err := homedir.Expand(outputPath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(bundle.Script), 0o644); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	logger.Info("Bundle written", zap.String("path", path), zap.String("marker", bundle.Marker))
	return nil
}

// newEngine builds the patch engine the stealth section describes.
func newEngine(cfg config.Interface, logger *zap.Logger) (*stealth.Engine, error) {
	opts, err := cfg.Stealth().EngineOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, stealth.WithLogger(logger))
	return stealth.NewEngine(opts...)
}
