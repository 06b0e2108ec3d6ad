// internal/browser/jsbind/dom_bridge.go
package jsbind

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/dop251/goja"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ghostpatch/internal/browser/jsexec"
)

//go:embed host.js
var hostScript string

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Environment describes the unpatched browser the bridge emulates. The zero
// value is not useful; start from HeadlessChrome.
type Environment struct {
	Webdriver           bool
	HardwareConcurrency int
	DeviceMemory        float64
	Platform            string
	Vendor              string
	MaxTouchPoints      int
	UserAgent           string
	Title               string

	// NotificationPermission is Notification.permission. Empty removes the
	// Notification interface altogether.
	NotificationPermission string
	// PermissionStates maps permission names to the state query resolves
	// with. Unlisted names resolve to "prompt".
	PermissionStates map[string]string

	WebGL           bool
	WebGL2          bool
	WebGLParameters map[int]interface{}

	// Chrome installs the sparse chrome object headless builds expose.
	Chrome bool

	// LockedNavigatorProperties are installed non-configurable on the
	// Navigator prototype, as some hardened builds do.
	LockedNavigatorProperties []string
	// LockedGlobals are installed non-writable and non-configurable on the
	// global object.
	LockedGlobals []string
}

// WebGL parameter enums the default environment answers.
const (
	GLVendor                = 7936
	GLRenderer              = 7937
	GLVersion               = 7938
	GLShadingLanguage       = 35724
	GLMaxTextureSize        = 3379
	GLUnmaskedVendorWebGL   = 37445
	GLUnmaskedRendererWebGL = 37446
)

// HeadlessChrome is an automated Chrome with the tell-tale values detection
// pages look for: webdriver set, no plugins, SwiftShader rendering and
// permission states that disagree with Notification.permission.
func HeadlessChrome() Environment {
	return Environment{
		Webdriver:              true,
		HardwareConcurrency:    2,
		DeviceMemory:           2,
		Platform:               "Linux x86_64",
		Vendor:                 "Google Inc.",
		MaxTouchPoints:         0,
		UserAgent:              "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) HeadlessChrome/126.0.0.0 Safari/537.36",
		Title:                  "about:blank",
		NotificationPermission: "denied",
		PermissionStates: map[string]string{
			"notifications": "prompt",
			"geolocation":   "denied",
			"camera":        "denied",
			"microphone":    "denied",
			"midi":          "granted",
		},
		WebGL:  true,
		WebGL2: true,
		WebGLParameters: map[int]interface{}{
			GLVendor:                "WebKit",
			GLRenderer:              "WebKit WebGL",
			GLVersion:               "WebGL 1.0 (OpenGL ES 2.0 Chromium)",
			GLShadingLanguage:       "WebGL GLSL ES 1.0 (OpenGL ES GLSL ES 1.0 Chromium)",
			GLMaxTextureSize:        8192,
			GLUnmaskedVendorWebGL:   "Google Inc. (Google)",
			GLUnmaskedRendererWebGL: "ANGLE (Google, Vulkan 1.3.0 (SwiftShader Device (Subzero) (0x0000C0DE)), SwiftShader driver)",
		},
	}
}

// hostEnv is the document host.js reads.
type hostEnv struct {
	Webdriver           bool                   `json:"webdriver"`
	HardwareConcurrency int                    `json:"hardware_concurrency"`
	DeviceMemory        float64                `json:"device_memory"`
	Platform            string                 `json:"platform"`
	Vendor              string                 `json:"vendor"`
	MaxTouchPoints      int                    `json:"max_touch_points"`
	UserAgent           string                 `json:"user_agent"`
	Title               string                 `json:"title"`
	Notification        string                 `json:"notification"`
	WebGL               bool                   `json:"webgl"`
	WebGL2              bool                   `json:"webgl2"`
	WebGLParameters     map[string]interface{} `json:"webgl_parameters"`
	Chrome              bool                   `json:"chrome"`
	LockedNavigator     []string               `json:"locked_navigator"`
	LockedGlobals       []string               `json:"locked_globals"`
}

func (e Environment) document() hostEnv {
	params := make(map[string]interface{}, len(e.WebGLParameters))
	for k, v := range e.WebGLParameters {
		params[fmt.Sprint(k)] = v
	}
	return hostEnv{
		Webdriver:           e.Webdriver,
		HardwareConcurrency: e.HardwareConcurrency,
		DeviceMemory:        e.DeviceMemory,
		Platform:            e.Platform,
		Vendor:              e.Vendor,
		MaxTouchPoints:      e.MaxTouchPoints,
		UserAgent:           e.UserAgent,
		Title:               e.Title,
		Notification:        e.NotificationPermission,
		WebGL:               e.WebGL,
		WebGL2:              e.WebGL && e.WebGL2,
		WebGLParameters:     params,
		Chrome:              e.Chrome,
		LockedNavigator:     append([]string{}, e.LockedNavigatorProperties...),
		LockedGlobals:       append([]string{}, e.LockedGlobals...),
	}
}

// DOMBridge installs the emulated browser object graph into a VM and backs
// its native parts (canvas surfaces, permission states, console) from Go.
type DOMBridge struct {
	vm     *goja.Runtime
	logger *zap.Logger
	env    Environment

	mu       sync.Mutex
	surfaces []*surface
}

// NewDOMBridge installs the environment into the VM.
func NewDOMBridge(vm *goja.Runtime, logger *zap.Logger, env Environment) (*DOMBridge, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &DOMBridge{
		vm:     vm,
		logger: logger.Named("dom_bridge"),
		env:    env,
	}
	if err := b.initializeRuntime(); err != nil {
		return nil, err
	}
	return b, nil
}

// Install returns a runtime setup step that installs env.
func Install(logger *zap.Logger, env Environment) jsexec.Setup {
	return func(vm *goja.Runtime) error {
		_, err := NewDOMBridge(vm, logger, env)
		return err
	}
}

// NewSandbox returns a runtime whose global object emulates env.
func NewSandbox(logger *zap.Logger, env Environment) (*jsexec.Runtime, error) {
	return jsexec.NewRuntime(logger, Install(logger, env))
}

func (b *DOMBridge) initializeRuntime() error {
	doc, err := json.Marshal(b.env.document())
	if err != nil {
		return fmt.Errorf("failed to serialize environment: %w", err)
	}

	natives := b.vm.NewObject()
	for name, fn := range map[string]func(goja.FunctionCall) goja.Value{
		"newSurface":     b.newSurface,
		"resize":         b.resize,
		"fillRect":       b.fillRect,
		"drawText":       b.drawText,
		"dataURL":        b.dataURL,
		"normalizeColor": b.normalizeColor,
		"permission":     b.permission,
		"log":            b.log,
	} {
		if err := natives.Set(name, fn); err != nil {
			return fmt.Errorf("failed to bind native %s: %w", name, err)
		}
	}

	prog, err := goja.Compile("host.js", hostScript, true)
	if err != nil {
		return fmt.Errorf("failed to compile host script: %w", err)
	}
	val, err := b.vm.RunProgram(prog)
	if err != nil {
		return fmt.Errorf("failed to evaluate host script: %w", err)
	}
	install, ok := goja.AssertFunction(val)
	if !ok {
		return fmt.Errorf("host script did not evaluate to a function")
	}
	if _, err := install(goja.Undefined(), b.vm.GlobalObject(), natives, b.vm.ToValue(string(doc))); err != nil {
		b.logger.Error("Failed to install browser environment", zap.Error(err))
		return fmt.Errorf("failed to install browser environment: %w", err)
	}
	b.logger.Debug("Installed browser environment",
		zap.Bool("webdriver", b.env.Webdriver),
		zap.Bool("webgl2", b.env.WebGL2),
		zap.Strings("locked_navigator", b.env.LockedNavigatorProperties),
		zap.Strings("locked_globals", b.env.LockedGlobals),
	)
	return nil
}

func (b *DOMBridge) permission(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	if state, ok := b.env.PermissionStates[name]; ok {
		return b.vm.ToValue(state)
	}
	return b.vm.ToValue("prompt")
}

func (b *DOMBridge) log(call goja.FunctionCall) goja.Value {
	level := call.Argument(0).String()
	message := call.Argument(1).String()
	switch level {
	case "error":
		b.logger.Warn("[JS console]", zap.String("level", level), zap.String("message", message))
	default:
		b.logger.Debug("[JS console]", zap.String("level", level), zap.String("message", message))
	}
	return goja.Undefined()
}

// -- Canvas surfaces --

func (b *DOMBridge) surfaceAt(v goja.Value) *surface {
	id := int(v.ToInteger())
	b.mu.Lock()
	defer b.mu.Unlock()
	if id < 0 || id >= len(b.surfaces) {
		panic(b.vm.NewTypeError("invalid canvas surface %d", id))
	}
	return b.surfaces[id]
}

func (b *DOMBridge) newSurface(call goja.FunctionCall) goja.Value {
	s := newSurface(int(call.Argument(0).ToInteger()), int(call.Argument(1).ToInteger()))
	b.mu.Lock()
	defer b.mu.Unlock()
	b.surfaces = append(b.surfaces, s)
	return b.vm.ToValue(len(b.surfaces) - 1)
}

func (b *DOMBridge) resize(call goja.FunctionCall) goja.Value {
	b.surfaceAt(call.Argument(0)).reset(int(call.Argument(1).ToInteger()), int(call.Argument(2).ToInteger()))
	return goja.Undefined()
}

func (b *DOMBridge) fillRect(call goja.FunctionCall) goja.Value {
	s := b.surfaceAt(call.Argument(0))
	c, _ := parseColor(call.Argument(5).String())
	s.fillRect(
		int(call.Argument(1).ToFloat()), int(call.Argument(2).ToFloat()),
		int(call.Argument(3).ToFloat()), int(call.Argument(4).ToFloat()), c)
	return goja.Undefined()
}

func (b *DOMBridge) drawText(call goja.FunctionCall) goja.Value {
	s := b.surfaceAt(call.Argument(0))
	fill, _ := parseColor(call.Argument(4).String())
	shadow, _ := parseColor(call.Argument(6).String())
	s.drawText(
		call.Argument(1).String(),
		int(call.Argument(2).ToFloat()), int(call.Argument(3).ToFloat()),
		fill, call.Argument(5).ToFloat(), shadow, call.Argument(7).ToBoolean())
	return goja.Undefined()
}

func (b *DOMBridge) dataURL(call goja.FunctionCall) goja.Value {
	url, err := b.surfaceAt(call.Argument(0)).dataURL()
	if err != nil {
		panic(b.vm.NewGoError(err))
	}
	return b.vm.ToValue(url)
}

func (b *DOMBridge) normalizeColor(call goja.FunctionCall) goja.Value {
	c, ok := parseColor(call.Argument(0).String())
	if !ok {
		return call.Argument(1)
	}
	return b.vm.ToValue(formatColor(c))
}
