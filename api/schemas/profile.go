package schemas

import (
	"errors"
	"fmt"
)

// -- Fingerprint Profile Schemas --

// ErrProfileInvalid is returned by Profile.Validate for out of range values.
var ErrProfileInvalid = errors.New("invalid profile")

// Platform strings reported through navigator.platform.
const (
	PlatformDesktop = "Win32"
	PlatformMobile  = "Linux armv8l"
)

// Touch point counts reported through navigator.maxTouchPoints.
const (
	TouchPointsNone   = 0
	TouchPointsMobile = 5
)

// NavigatorVendor is the constant navigator.vendor value for Chromium builds.
const NavigatorVendor = "Google Inc."

// WebGL debug-renderer-info enum values intercepted by the WebGL patch.
const (
	UnmaskedVendorWebGL   = 37445
	UnmaskedRendererWebGL = 37446
)

// MinCanvasNoise is the blur floor applied when the profile carries no noise.
const MinCanvasNoise = 0.001

// Profile is the configuration carrier bound into the patch bundle. The JSON
// names are the keys the in-page patches read.
type Profile struct {
	IsMobile            bool    `json:"is_mobile" mapstructure:"is_mobile" yaml:"is_mobile"`
	HardwareConcurrency int     `json:"hardware_concurrency" mapstructure:"hardware_concurrency" yaml:"hardware_concurrency"`
	DeviceMemory        float64 `json:"device_memory" mapstructure:"device_memory" yaml:"device_memory"`
	WebGLVendor         string  `json:"webgl_vendor" mapstructure:"webgl_vendor" yaml:"webgl_vendor"`
	WebGLRenderer       string  `json:"webgl_renderer" mapstructure:"webgl_renderer" yaml:"webgl_renderer"`
	CanvasNoise         float64 `json:"canvas_noise" mapstructure:"canvas_noise" yaml:"canvas_noise"`
	MaskPlugins         bool    `json:"mask_plugins" mapstructure:"mask_plugins" yaml:"mask_plugins"`
	EmulateTouch        bool    `json:"emulate_touch" mapstructure:"emulate_touch" yaml:"emulate_touch"`
}

// DefaultProfile is a mid-range Windows desktop.
var DefaultProfile = Profile{
	IsMobile:            false,
	HardwareConcurrency: 8,
	DeviceMemory:        8,
	WebGLVendor:         "Intel Inc.",
	WebGLRenderer:       "Intel Iris OpenGL Engine",
	CanvasNoise:         0.002,
	MaskPlugins:         true,
	EmulateTouch:        false,
}

// Normalize returns a copy with zero or negative numeric fields and empty
// strings replaced by DefaultProfile values. Booleans are taken as given.
func (p Profile) Normalize() Profile {
	if p.HardwareConcurrency <= 0 {
		p.HardwareConcurrency = DefaultProfile.HardwareConcurrency
	}
	if p.DeviceMemory <= 0 {
		p.DeviceMemory = DefaultProfile.DeviceMemory
	}
	if p.WebGLVendor == "" {
		p.WebGLVendor = DefaultProfile.WebGLVendor
	}
	if p.WebGLRenderer == "" {
		p.WebGLRenderer = DefaultProfile.WebGLRenderer
	}
	if p.CanvasNoise < 0 {
		p.CanvasNoise = 0
	}
	return p
}

// Validate rejects values no real browser would report.
func (p Profile) Validate() error {
	if p.HardwareConcurrency < 1 || p.HardwareConcurrency > 128 {
		return fmt.Errorf("%w: hardware_concurrency %d out of range [1,128]", ErrProfileInvalid, p.HardwareConcurrency)
	}
	if p.DeviceMemory <= 0 || p.DeviceMemory > 64 {
		return fmt.Errorf("%w: device_memory %v out of range (0,64]", ErrProfileInvalid, p.DeviceMemory)
	}
	if p.CanvasNoise < 0 || p.CanvasNoise >= 1 {
		return fmt.Errorf("%w: canvas_noise %v out of range [0,1)", ErrProfileInvalid, p.CanvasNoise)
	}
	if p.WebGLVendor == "" || p.WebGLRenderer == "" {
		return fmt.Errorf("%w: webgl_vendor and webgl_renderer are required", ErrProfileInvalid)
	}
	return nil
}

// Platform is the navigator.platform value this profile presents.
func (p Profile) Platform() string {
	if p.IsMobile {
		return PlatformMobile
	}
	return PlatformDesktop
}

// MaxTouchPoints is the navigator.maxTouchPoints value this profile presents.
func (p Profile) MaxTouchPoints() int {
	if p.IsMobile || p.EmulateTouch {
		return TouchPointsMobile
	}
	return TouchPointsNone
}

// PluginCount is the navigator.plugins length this profile presents when
// plugin masking is enabled.
func (p Profile) PluginCount() int {
	if p.IsMobile {
		return 0
	}
	return 3
}

// MimeTypeCount is the navigator.mimeTypes length this profile presents when
// plugin masking is enabled.
func (p Profile) MimeTypeCount() int {
	if p.IsMobile {
		return 0
	}
	return 1
}
