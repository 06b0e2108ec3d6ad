// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/ghostpatch/api/schemas"
	"github.com/xkilldash9x/ghostpatch/internal/browser/stealth"
	"github.com/xkilldash9x/ghostpatch/internal/persona"
)

// EnvPrefix prefixes every environment override, e.g. GHOSTPATCH_LOGGER_LEVEL.
const EnvPrefix = "GHOSTPATCH"

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Stealth() StealthConfig
	Check() CheckConfig

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserRemoteURL(string)

	// Stealth Setters
	SetStealthDebug(bool)
	SetStealthProfile(schemas.Profile)

	// Check Setters
	SetCheckTargets([]string)
	SetCheckMatrix(bool)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	StealthCfg StealthConfig `mapstructure:"stealth" yaml:"stealth"`
	CheckCfg   CheckConfig   `mapstructure:"check" yaml:"check"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Stealth() StealthConfig { return c.StealthCfg }
func (c *Config) Check() CheckConfig     { return c.CheckCfg }

// -- Browser Setters --
func (c *Config) SetBrowserHeadless(b bool)      { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserRemoteURL(url string) { c.BrowserCfg.RemoteURL = url }

// -- Stealth Setters --
func (c *Config) SetStealthDebug(b bool)              { c.StealthCfg.Debug = b }
func (c *Config) SetStealthProfile(p schemas.Profile) { c.StealthCfg.Profile = p }

// -- Check Setters --
func (c *Config) SetCheckTargets(targets []string) { c.CheckCfg.Targets = targets }
func (c *Config) SetCheckMatrix(b bool)            { c.CheckCfg.Matrix = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the Chrome instance used by browser checks.
// A non-empty RemoteURL attaches to a running browser's DevTools endpoint
// instead of launching one.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	RemoteURL         string        `mapstructure:"remote_url" yaml:"remote_url"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	DisableGPU        bool          `mapstructure:"disable_gpu" yaml:"disable_gpu"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// StealthConfig selects the profile and shapes the rendered bundle. Profile is
// used as given unless ProfileFile or Identity ("ghost" or "consistent") is set.
type StealthConfig struct {
	Profile          schemas.Profile `mapstructure:"profile" yaml:"profile"`
	ProfileFile      string          `mapstructure:"profile_file" yaml:"profile_file"`
	Identity         string          `mapstructure:"identity" yaml:"identity"`
	Seed             string          `mapstructure:"seed" yaml:"seed"`
	CollectionPolicy string          `mapstructure:"collection_policy" yaml:"collection_policy"`
	Debug            bool            `mapstructure:"debug" yaml:"debug"`
	DisabledPatches  []string        `mapstructure:"disabled_patches" yaml:"disabled_patches"`
}

// CheckConfig configures verification runs. Rate is the number of target
// navigations allowed per second.
type CheckConfig struct {
	Targets []string      `mapstructure:"targets" yaml:"targets"`
	Rate    float64       `mapstructure:"rate" yaml:"rate"`
	Burst   int           `mapstructure:"burst" yaml:"burst"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Matrix  bool          `mapstructure:"matrix" yaml:"matrix"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "ghostpatch")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.disable_gpu", true)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.post_load_wait", "500ms")

	// -- Stealth --
	p := schemas.DefaultProfile
	v.SetDefault("stealth.profile.is_mobile", p.IsMobile)
	v.SetDefault("stealth.profile.hardware_concurrency", p.HardwareConcurrency)
	v.SetDefault("stealth.profile.device_memory", p.DeviceMemory)
	v.SetDefault("stealth.profile.webgl_vendor", p.WebGLVendor)
	v.SetDefault("stealth.profile.webgl_renderer", p.WebGLRenderer)
	v.SetDefault("stealth.profile.canvas_noise", p.CanvasNoise)
	v.SetDefault("stealth.profile.mask_plugins", p.MaskPlugins)
	v.SetDefault("stealth.profile.emulate_touch", p.EmulateTouch)
	v.SetDefault("stealth.identity", "")
	v.SetDefault("stealth.collection_policy", string(stealth.CollectionsPage))
	v.SetDefault("stealth.debug", false)

	// -- Check --
	v.SetDefault("check.rate", 1.0)
	v.SetDefault("check.burst", 1)
	v.SetDefault("check.timeout", "2m")
	v.SetDefault("check.matrix", false)
}

// BindEnv enables GHOSTPATCH_* environment overrides on v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.BrowserCfg.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be a positive duration")
	}
	if c.BrowserCfg.PostLoadWait < 0 {
		return fmt.Errorf("browser.post_load_wait must not be negative")
	}
	if err := c.StealthCfg.Validate(); err != nil {
		return fmt.Errorf("stealth configuration invalid: %w", err)
	}
	if err := c.CheckCfg.Validate(); err != nil {
		return fmt.Errorf("check configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the StealthConfig settings.
func (s *StealthConfig) Validate() error {
	if _, err := stealth.ParseCollectionPolicy(s.CollectionPolicy); err != nil {
		return err
	}
	if _, err := persona.ParseIdentity(s.Identity); err != nil {
		return err
	}
	for _, name := range s.DisabledPatches {
		if !stealth.IsPatch(name) {
			return fmt.Errorf("%w: %q in disabled_patches", stealth.ErrUnknownPatch, name)
		}
	}
	// A file or derived identity replaces the inline profile.
	if s.ProfileFile == "" && s.Identity == "" {
		if err := s.Profile.Normalize().Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the CheckConfig settings.
func (c *CheckConfig) Validate() error {
	if c.Rate <= 0 {
		return errors.New("rate must be positive")
	}
	if c.Burst <= 0 {
		return errors.New("burst must be a positive integer")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be a positive duration")
	}
	return nil
}

// EngineOptions translates the stealth section into engine options.
func (s StealthConfig) EngineOptions() ([]stealth.Option, error) {
	policy, err := stealth.ParseCollectionPolicy(s.CollectionPolicy)
	if err != nil {
		return nil, err
	}
	return []stealth.Option{
		stealth.WithCollectionPolicy(policy),
		stealth.WithDebug(s.Debug),
		stealth.WithDisabled(s.DisabledPatches...),
	}, nil
}

// ResolveProfile returns the profile the stealth section selects: a profile
// file first, then a derived identity, then the inline profile.
func (s StealthConfig) ResolveProfile() (schemas.Profile, error) {
	if s.ProfileFile != "" {
		return persona.Load(s.ProfileFile)
	}
	if s.Identity != "" {
		identity, err := persona.ParseIdentity(s.Identity)
		if err != nil {
			return schemas.Profile{}, err
		}
		return persona.Derive(persona.Options{
			Identity:     identity,
			Seed:         s.Seed,
			Mobile:       s.Profile.IsMobile,
			EmulateTouch: s.Profile.EmulateTouch,
		}), nil
	}
	p := s.Profile.Normalize()
	if err := p.Validate(); err != nil {
		return schemas.Profile{}, err
	}
	return p, nil
}
