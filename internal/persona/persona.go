// Package persona derives fingerprint profiles. A consistent identity draws its
// values from a seeded generator so the same seed always yields the same
// profile; a ghost identity draws fresh values on every call.
package persona

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"time"

	"github.com/xkilldash9x/ghostpatch/api/schemas"
)

// Identity selects how derived values relate across sessions.
type Identity string

const (
	// IdentityGhost randomizes every derivation.
	IdentityGhost Identity = "ghost"
	// IdentityConsistent derives from a stable seed.
	IdentityConsistent Identity = "consistent"
)

// DefaultSeed is used by a consistent identity when neither an explicit seed
// nor a profile path is configured.
const DefaultSeed = "stable-seed"

// ErrUnknownIdentity is returned by ParseIdentity.
var ErrUnknownIdentity = errors.New("unknown identity")

// Value pools drawn from when deriving a profile.
var (
	WebGLVendors = []string{"Intel Inc.", "Google Inc.", "NVIDIA Corporation"}

	WebGLRenderers = []string{
		"Intel Iris OpenGL Engine",
		"Intel(R) UHD Graphics 620",
		"ANGLE (NVIDIA, NVIDIA GeForce GTX 1060 Direct3D11)",
	}

	HardwareConcurrencies = []int{4, 8, 12, 16}
	DeviceMemories        = []float64{4, 8, 16}
)

// Canvas noise is drawn uniformly from [MinNoise, MaxNoise).
const (
	MinNoise = 0.001
	MaxNoise = 0.005
)

// Options controls a derivation.
type Options struct {
	Identity     Identity `mapstructure:"identity" yaml:"identity"`
	Seed         string   `mapstructure:"seed" yaml:"seed"`
	ProfilePath  string   `mapstructure:"profile_path" yaml:"profile_path"`
	Mobile       bool     `mapstructure:"mobile" yaml:"mobile"`
	EmulateTouch bool     `mapstructure:"emulate_touch" yaml:"emulate_touch"`
}

// ParseIdentity maps a configuration string to an Identity. Empty means ghost.
func ParseIdentity(s string) (Identity, error) {
	switch Identity(strings.ToLower(strings.TrimSpace(s))) {
	case "", IdentityGhost:
		return IdentityGhost, nil
	case IdentityConsistent:
		return IdentityConsistent, nil
	default:
		return "", fmt.Errorf("%w: %q (want ghost or consistent)", ErrUnknownIdentity, s)
	}
}

// ResolveSeed returns the seed a derivation uses and whether it is seeded at
// all. Priority: explicit seed, then profile path, then DefaultSeed.
func ResolveSeed(opts Options) (string, bool) {
	if opts.Identity != IdentityConsistent {
		return "", false
	}
	switch {
	case opts.Seed != "":
		return opts.Seed, true
	case opts.ProfilePath != "":
		return opts.ProfilePath, true
	default:
		return DefaultSeed, true
	}
}

// Derive builds a profile from opts. The result is normalized and valid.
func Derive(opts Options) schemas.Profile {
	rng := newRNG(opts)

	// Draw order is fixed so a seed maps to one profile.
	p := schemas.Profile{
		IsMobile:            opts.Mobile,
		WebGLVendor:         WebGLVendors[rng.Intn(len(WebGLVendors))],
		WebGLRenderer:       WebGLRenderers[rng.Intn(len(WebGLRenderers))],
		CanvasNoise:         MinNoise + rng.Float64()*(MaxNoise-MinNoise),
		HardwareConcurrency: HardwareConcurrencies[rng.Intn(len(HardwareConcurrencies))],
		DeviceMemory:        DeviceMemories[rng.Intn(len(DeviceMemories))],
		MaskPlugins:         true,
		EmulateTouch:        opts.EmulateTouch,
	}
	return p.Normalize()
}

func newRNG(opts Options) *rand.Rand {
	seed, ok := ResolveSeed(opts)
	if !ok {
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}
