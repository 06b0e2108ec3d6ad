package stealth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ghostpatch/api/schemas"
	"github.com/xkilldash9x/ghostpatch/internal/browser/shim"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrUnknownPatch is returned when a disabled patch name is not recognised.
	ErrUnknownPatch = errors.New("unknown patch")
	// ErrInvalidCarrier is returned when a raw carrier is not a JSON object.
	ErrInvalidCarrier = errors.New("carrier must be a JSON object")
	// ErrUnknownCollectionPolicy is returned for a policy other than page or fresh.
	ErrUnknownCollectionPolicy = errors.New("unknown collection policy")
)

// Template placeholders filled by the engine.
const (
	placeholderOptions = "GHOSTPATCH_OPTIONS"
	placeholderCarrier = "GHOSTPATCH_CARRIER"
	placeholderPrelude = "GHOSTPATCH_PRELUDE"
	placeholderPatches = "GHOSTPATCH_PATCHES"
)

// markerNamespace seeds the name-based UUIDs that become bundle sentinels.
var markerNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ghostpatch:sentinel"))

// CollectionPolicy controls how emulated plugin and MIME type collections are cached.
type CollectionPolicy string

const (
	// CollectionsPage builds the collections once per page load, so repeated
	// reads return the same objects as native Chrome does.
	CollectionsPage CollectionPolicy = "page"
	// CollectionsFresh rebuilds the collections on every read.
	CollectionsFresh CollectionPolicy = "fresh"
)

// ParseCollectionPolicy maps a configuration string to a policy. Empty means page.
func ParseCollectionPolicy(s string) (CollectionPolicy, error) {
	switch CollectionPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", CollectionsPage:
		return CollectionsPage, nil
	case CollectionsFresh:
		return CollectionsFresh, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCollectionPolicy, s)
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCollectionPolicy sets the plugin/MIME collection caching policy.
func WithCollectionPolicy(p CollectionPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithDebug makes rendered bundles record the names of failed patches in a
// non-enumerable global, see Bundle.FailedGlobal.
func WithDebug(debug bool) Option {
	return func(e *Engine) { e.debug = debug }
}

// WithDisabled leaves the named patches out of rendered bundles.
func WithDisabled(names ...string) Option {
	return func(e *Engine) {
		for _, n := range names {
			e.disabled[strings.TrimSpace(n)] = true
		}
	}
}

// Engine assembles patch bundles. It is immutable once constructed and safe
// for concurrent use.
type Engine struct {
	logger   *zap.Logger
	policy   CollectionPolicy
	debug    bool
	disabled map[string]bool

	template string
	prelude  string
	patches  []patchSource
}

type patchSource struct {
	name   string
	source string
}

// Bundle is one rendered, self-contained injection script.
type Bundle struct {
	Script string
	// Marker is the sentinel global that gates re-installation.
	Marker string
	// Patches lists the included patches in installation order.
	Patches []string
	Debug   bool
}

// FailedGlobal names the global holding failed patch names. It only exists
// in debug bundles.
func (b *Bundle) FailedGlobal() string {
	return b.Marker + "_failed"
}

type bundleOptions struct {
	Marker      string           `json:"marker"`
	Collections CollectionPolicy `json:"collections"`
	Debug       bool             `json:"debug"`
}

// NewEngine loads the embedded patch sources and applies the options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:   zap.NewNop(),
		policy:   CollectionsPage,
		disabled: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("stealth")

	if _, err := ParseCollectionPolicy(string(e.policy)); err != nil {
		return nil, err
	}
	for name := range e.disabled {
		if !IsPatch(name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPatch, name)
		}
	}

	var err error
	if e.template, err = readSource("bundle.js"); err != nil {
		return nil, err
	}
	if e.prelude, err = readSource("prelude.js"); err != nil {
		return nil, err
	}
	for _, name := range patchOrder {
		if e.disabled[name] {
			continue
		}
		src, err := readSource(name + ".js")
		if err != nil {
			return nil, err
		}
		e.patches = append(e.patches, patchSource{name: name, source: strings.TrimSpace(src)})
	}
	return e, nil
}

// Render normalizes the profile and renders a bundle carrying it.
func (e *Engine) Render(profile schemas.Profile) (*Bundle, error) {
	carrier, err := json.Marshal(profile.Normalize())
	if err != nil {
		return nil, fmt.Errorf("failed to serialize profile: %w", err)
	}
	return e.render(carrier)
}

// RenderRaw renders a bundle around an externally serialized carrier. The
// document must be a JSON object; its fields are not validated, the in-page
// readers fall back to safe defaults for anything missing or mistyped.
func (e *Engine) RenderRaw(raw []byte) (*Bundle, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCarrier, err)
	}
	if fields == nil {
		return nil, ErrInvalidCarrier
	}
	// Re-encoding gives a canonical form, so equal carriers share a sentinel.
	carrier, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize carrier: %w", err)
	}
	return e.render(carrier)
}

func (e *Engine) render(carrier []byte) (*Bundle, error) {
	names := make([]string, 0, len(e.patches))
	entries := make([]string, 0, len(e.patches))
	for _, p := range e.patches {
		names = append(names, p.name)
		entries = append(entries, fmt.Sprintf("[%q, %s]", p.name, p.source))
	}

	opts := bundleOptions{Collections: e.policy, Debug: e.debug}
	opts.Marker = e.marker(carrier, names)
	optionsJSON, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize bundle options: %w", err)
	}

	script, err := shim.Fill(e.template, map[string]string{
		placeholderOptions: string(optionsJSON),
		placeholderCarrier: string(carrier),
		placeholderPrelude: strings.TrimSpace(e.prelude),
		placeholderPatches: strings.Join(entries, ",\n"),
	})
	if err != nil {
		e.logger.Error("Failed to fill bundle template", zap.Error(err))
		return nil, fmt.Errorf("failed to build bundle: %w", err)
	}

	e.logger.Debug("Rendered stealth bundle",
		zap.String("marker", opts.Marker),
		zap.Strings("patches", names),
		zap.String("collections", string(e.policy)),
		zap.Int("bytes", len(script)),
	)
	return &Bundle{Script: script, Marker: opts.Marker, Patches: names, Debug: e.debug}, nil
}

// marker derives the sentinel name from everything that shapes the bundle,
// so the same bundle always gets the same sentinel.
func (e *Engine) marker(carrier []byte, names []string) string {
	var b strings.Builder
	b.Write(carrier)
	b.WriteString("|")
	b.WriteString(strings.Join(names, ","))
	fmt.Fprintf(&b, "|%s|%t", e.policy, e.debug)
	id := uuid.NewSHA1(markerNamespace, []byte(b.String()))
	return "__" + strings.ReplaceAll(id.String(), "-", "")[:16]
}
