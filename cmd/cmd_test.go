// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/ghostpatch/internal/config"
)

// executeCommandNoPreRun is for testing argument and flag validation without
// triggering the config loading in PersistentPreRunE.
func executeCommandNoPreRun(t *testing.T, args ...string) (string, error) {
	t.Helper()
	testRootCmd := NewRootCommand()

	buf := new(bytes.Buffer)
	testRootCmd.PersistentPreRunE = nil
	testRootCmd.SetOut(buf)
	testRootCmd.SetErr(buf)
	testRootCmd.SetArgs(args)
	err := testRootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// executeCommand runs the full command tree, config loading included.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Keep a stray ghostpatch.yaml in the working directory out of the test.
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	testRootCmd := NewRootCommand()
	buf := new(bytes.Buffer)
	testRootCmd.SetOut(buf)
	testRootCmd.SetErr(buf)
	testRootCmd.SetArgs(args)
	err := testRootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// createTempConfig writes content to a config file in a temp directory.
func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ghostpatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// captureConfig replaces the named subcommand's RunE with one that records
// the configuration the root command loaded.
func captureConfig(t *testing.T, root *cobra.Command, name string) **config.Config {
	t.Helper()
	var captured *config.Config
	for _, c := range root.Commands() {
		if c.Name() == name {
			c.RunE = func(cmd *cobra.Command, args []string) error {
				cfg, err := getConfigFromContext(cmd.Context())
				captured = cfg
				return err
			}
			return &captured
		}
	}
	t.Fatalf("no %q command", name)
	return nil
}

func TestConfigFlagOverride(t *testing.T) {
	configFile := createTempConfig(t, `
logger:
  level: warn
stealth:
  identity: ghost
  collection_policy: fresh
  profile:
    hardware_concurrency: 4
check:
  rate: 3
`)

	testRootCmd := NewRootCommand()
	cfgPtr := captureConfig(t, testRootCmd, "render")
	testRootCmd.SetArgs([]string{"--config", configFile, "--identity", "consistent", "--seed", "abc", "--debug", "render"})
	require.NoError(t, testRootCmd.ExecuteContext(context.Background()))

	cfg := *cfgPtr
	require.NotNil(t, cfg)
	assert.Equal(t, "warn", cfg.Logger().Level)
	assert.Equal(t, "consistent", cfg.Stealth().Identity, "flags override the file")
	assert.Equal(t, "abc", cfg.Stealth().Seed)
	assert.True(t, cfg.Stealth().Debug)
	assert.Equal(t, "fresh", cfg.Stealth().CollectionPolicy)
	assert.Equal(t, 4, cfg.Stealth().Profile.HardwareConcurrency)
	assert.Equal(t, 3.0, cfg.Check().Rate)
}

func TestConfigEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GHOSTPATCH_STEALTH_COLLECTION_POLICY", "fresh")

	testRootCmd := NewRootCommand()
	cfgPtr := captureConfig(t, testRootCmd, "render")
	testRootCmd.SetArgs([]string{"render"})
	require.NoError(t, testRootCmd.ExecuteContext(context.Background()))
	assert.Equal(t, "fresh", (*cfgPtr).Stealth().CollectionPolicy)
}

func TestInvalidConfigIsRejected(t *testing.T) {
	configFile := createTempConfig(t, "stealth:\n  collection_policy: sometimes\n")
	_, err := executeCommand(t, "--config", configFile, "render")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown collection policy")
}

func TestCommands_RejectArgs(t *testing.T) {
	for _, name := range []string{"render", "check", "persona", "version"} {
		_, err := executeCommandNoPreRun(t, name, "extra")
		assert.Error(t, err, name)
	}
}

func TestGetConfigFromContext(t *testing.T) {
	_, err := getConfigFromContext(context.Background())
	assert.EqualError(t, err, "configuration not loaded")

	cfg := config.NewDefaultConfig()
	got, err := getConfigFromContext(context.WithValue(context.Background(), configKey, cfg))
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}
