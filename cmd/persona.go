// File: cmd/persona.go
package cmd

import (
	"fmt"
	"io"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ghostpatch/internal/config"
	"github.com/xkilldash9x/ghostpatch/internal/observability"
	"github.com/xkilldash9x/ghostpatch/internal/persona"
)

// newPersonaCmd creates the `persona` command.
func newPersonaCmd() *cobra.Command {
	var mobile, touch bool
	var outputPath string

	personaCmd := &cobra.Command{
		Use:   "persona",
		Short: "Derive a profile and print it as YAML",
		Long: `Derives a fingerprint profile from the configured identity. The consistent
identity (the default here) yields the same profile for the same --seed, or
for the same --out path when no seed is given; ghost yields a new one on every
run. The output can be passed back with --profile-file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return runPersona(cmd.OutOrStdout(), observability.GetLogger(), cfg, mobile, touch, outputPath)
		},
	}

	personaCmd.Flags().BoolVar(&mobile, "mobile", false, "derive a mobile profile")
	personaCmd.Flags().BoolVar(&touch, "touch", false, "emulate touch on a desktop profile")
	personaCmd.Flags().StringVarP(&outputPath, "out", "o", "", "write the profile to this file instead of stdout")
	return personaCmd
}

// runPersona contains the testable core of the persona command.
func runPersona(stdout io.Writer, logger *zap.Logger, cfg config.Interface, mobile, touch bool, outputPath string) error {
	s := cfg.Stealth()
	identity := persona.IdentityConsistent
	if s.Identity != "" {
		var err error
		if identity, err = persona.ParseIdentity(s.Identity); err != nil {
			return err
		}
	}

	opts := persona.Options{
		Identity:     identity,
		Seed:         s.Seed,
		ProfilePath:  outputPath,
		Mobile:       mobile,
		EmulateTouch: touch,
	}
	seed, seeded := persona.ResolveSeed(opts)
	profile := persona.Derive(opts)
	if seeded {
		logger.Info("Derived consistent persona", zap.String("seed", seed))
	} else {
		logger.Info("Derived ghost persona")
	}

	data, err := persona.Marshal(profile)
	if err != nil {
		return err
	}
	if outputPath == "" {
		_, err := stdout.Write(data)
		return err
	}
	path, err := homedir.Expand(outputPath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	logger.Info("Profile written", zap.String("path", path))
	return nil
}
