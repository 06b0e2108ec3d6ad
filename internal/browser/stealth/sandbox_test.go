package stealth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/ghostpatch/api/schemas"
	"github.com/xkilldash9x/ghostpatch/internal/browser/jsbind"
	"github.com/xkilldash9x/ghostpatch/internal/browser/jsexec"
	"github.com/xkilldash9x/ghostpatch/internal/browser/stealth"
)

// -- Test Setup --

type patchedPage struct {
	t      *testing.T
	rt     *jsexec.Runtime
	bundle *stealth.Bundle
}

// newPatchedPage evaluates a debug bundle for profile in a fresh headless sandbox.
func newPatchedPage(t *testing.T, profile schemas.Profile, env jsbind.Environment, opts ...stealth.Option) *patchedPage {
	t.Helper()
	logger := zaptest.NewLogger(t)

	engine, err := stealth.NewEngine(append([]stealth.Option{stealth.WithLogger(logger), stealth.WithDebug(true)}, opts...)...)
	require.NoError(t, err)
	bundle, err := engine.Render(profile)
	require.NoError(t, err)

	rt, err := jsbind.NewSandbox(logger, env)
	require.NoError(t, err)
	t.Cleanup(rt.Close)

	_, err = rt.Evaluate(context.Background(), bundle.Script)
	require.NoError(t, err, "the bundle must never throw into the page")
	return &patchedPage{t: t, rt: rt, bundle: bundle}
}

func (p *patchedPage) eval(script string) interface{} {
	p.t.Helper()
	v, err := p.rt.Evaluate(context.Background(), script)
	require.NoError(p.t, err, script)
	return v
}

func (p *patchedPage) failed() []interface{} {
	p.t.Helper()
	v := p.eval(`globalThis["` + p.bundle.FailedGlobal() + `"]`)
	list, ok := v.([]interface{})
	require.True(p.t, ok, "debug bundles record failures")
	return list
}

var desktop = schemas.Profile{
	IsMobile:            false,
	HardwareConcurrency: 8,
	DeviceMemory:        8,
	WebGLVendor:         "Intel Inc.",
	WebGLRenderer:       "Intel Iris",
	CanvasNoise:         0.02,
	MaskPlugins:         true,
}

func mobile() schemas.Profile {
	p := desktop
	p.IsMobile = true
	return p
}

// -- Test Cases --

func TestBundle_EndToEnd(t *testing.T) {
	page := newPatchedPage(t, desktop, jsbind.HeadlessChrome())

	assert.Empty(t, page.failed())
	assert.Equal(t, int64(8), page.eval(`navigator.hardwareConcurrency`))
	assert.Equal(t, "Win32", page.eval(`navigator.platform`))
	assert.Equal(t, int64(3), page.eval(`navigator.plugins.length`))
	assert.Equal(t, "Intel Inc.", page.eval(`document.createElement('canvas').getContext('webgl').getParameter(37445)`))
}

func TestIdentity(t *testing.T) {
	page := newPatchedPage(t, desktop, jsbind.HeadlessChrome())

	t.Run("webdriver", func(t *testing.T) {
		assert.Equal(t, false, page.eval(`navigator.webdriver`))
		assert.Equal(t, true, page.eval(`Object.getOwnPropertyDescriptor(navigator, 'webdriver') === undefined`))
		assert.Equal(t, true, page.eval(`Object.getOwnPropertyDescriptor(Navigator.prototype, 'webdriver').configurable`))
		assert.Equal(t, true, page.eval(`Object.getOwnPropertyDescriptor(Navigator.prototype, 'webdriver').enumerable`))
	})

	t.Run("values", func(t *testing.T) {
		got := page.eval(`[navigator.deviceMemory, navigator.vendor, navigator.maxTouchPoints]`)
		assert.Equal(t, []interface{}{int64(8), "Google Inc.", int64(0)}, got)
	})

	t.Run("no own shadows", func(t *testing.T) {
		assert.Equal(t, int64(0), page.eval(`Object.getOwnPropertyNames(navigator).length`))
	})

	t.Run("getters look native and stay branded", func(t *testing.T) {
		assert.Equal(t, "function get platform() { [native code] }",
			page.eval(`Function.prototype.toString.call(Object.getOwnPropertyDescriptor(Navigator.prototype, 'platform').get)`))
		assert.Equal(t, "TypeError",
			page.eval(`try { Object.getOwnPropertyDescriptor(Navigator.prototype, 'platform').get.call({}); 'none' } catch (e) { e.name }`))
		assert.Equal(t, "TypeError",
			page.eval(`try { Navigator.prototype.webdriver; 'none' } catch (e) { e.name }`))
	})

	t.Run("untouched properties stay native", func(t *testing.T) {
		assert.Contains(t, page.eval(`navigator.userAgent`), "HeadlessChrome")
	})
}

func TestIdentity_Mobile(t *testing.T) {
	page := newPatchedPage(t, mobile(), jsbind.HeadlessChrome())
	assert.Equal(t, "Linux armv8l", page.eval(`navigator.platform`))
	assert.Equal(t, int64(5), page.eval(`navigator.maxTouchPoints`))
}

func TestIdentity_TouchEmulation(t *testing.T) {
	p := desktop
	p.EmulateTouch = true
	page := newPatchedPage(t, p, jsbind.HeadlessChrome())
	assert.Equal(t, "Win32", page.eval(`navigator.platform`))
	assert.Equal(t, int64(5), page.eval(`navigator.maxTouchPoints`))
}

func TestIdentity_LockedPropertyIsIsolated(t *testing.T) {
	env := jsbind.HeadlessChrome()
	env.LockedNavigatorProperties = []string{"webdriver"}
	page := newPatchedPage(t, desktop, env)

	assert.Equal(t, []interface{}{"identity"}, page.failed())
	// Siblings in the same patch and later patches still apply.
	assert.Equal(t, "Win32", page.eval(`navigator.platform`))
	assert.Equal(t, int64(8), page.eval(`navigator.hardwareConcurrency`))
	assert.Equal(t, int64(3), page.eval(`navigator.plugins.length`))
	assert.Equal(t, "object", page.eval(`typeof chrome`))
}

func TestIdentity_MissingNumbersStayNative(t *testing.T) {
	engine, err := stealth.NewEngine()
	require.NoError(t, err)
	bundle, err := engine.RenderRaw([]byte(`{"hardware_concurrency": "eight", "device_memory": -1}`))
	require.NoError(t, err)

	rt, err := jsbind.NewSandbox(zaptest.NewLogger(t), jsbind.HeadlessChrome())
	require.NoError(t, err)
	defer rt.Close()
	_, err = rt.Evaluate(context.Background(), bundle.Script)
	require.NoError(t, err)

	got, err := rt.Evaluate(context.Background(), `[navigator.hardwareConcurrency, navigator.deviceMemory, navigator.platform, navigator.webdriver]`)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(2), int64(2), "Win32", false}, got)
}

func TestChromeRuntime(t *testing.T) {
	env := jsbind.HeadlessChrome()
	env.Chrome = true
	page := newPatchedPage(t, desktop, env)

	t.Run("whole object replacement", func(t *testing.T) {
		assert.Equal(t, "undefined", page.eval(`typeof chrome.headless`))
	})

	t.Run("runtime no-ops", func(t *testing.T) {
		assert.Equal(t, true, page.eval(`[
			chrome.runtime.connect('x', {a: 1}),
			chrome.runtime.sendMessage(undefined, null, function () {}),
			chrome.runtime.onMessage.addListener(function () {}),
			chrome.runtime.onConnect.removeListener()
		].every(function (v) { return v === undefined; })`))
	})

	t.Run("timings are jittered and plausible", func(t *testing.T) {
		got := page.eval(`
			var a = chrome.loadTimes(), b = chrome.loadTimes(), now = Date.now() / 1000;
			[a.requestTime !== b.requestTime || a.startLoadTime !== b.startLoadTime,
			 a.requestTime <= now && a.requestTime > now - 10,
			 typeof chrome.csi().pageT === 'number',
			 a.connectionInfo]
		`)
		assert.Equal(t, []interface{}{true, true, true, "h2"}, got)
	})

	t.Run("app namespace", func(t *testing.T) {
		got := page.eval(`[chrome.app.isInstalled, chrome.app.InstallState.INSTALLED, chrome.app.RunningState.CANNOT_RUN,
			chrome.app.getIsInstalled(), chrome.app.runningState(), chrome.app.getDetails()]`)
		assert.Equal(t, []interface{}{false, "installed", "cannot_run", false, "cannot_run", nil}, got)
	})

	t.Run("methods look native", func(t *testing.T) {
		assert.Equal(t, "function loadTimes() { [native code] }", page.eval(`Function.prototype.toString.call(chrome.loadTimes)`))
	})
}

func TestChromeRuntime_LockedGlobalIsIsolated(t *testing.T) {
	env := jsbind.HeadlessChrome()
	env.LockedGlobals = []string{"chrome"}
	page := newPatchedPage(t, desktop, env)

	assert.Equal(t, []interface{}{"chrome_runtime"}, page.failed())
	assert.Equal(t, "prompt", page.eval(`navigator.permissions.query({name: 'geolocation'}).then(s => s.state)`))
	assert.Equal(t, "Intel Inc.", page.eval(`document.createElement('canvas').getContext('webgl').getParameter(37445)`))
}

func TestPermissions(t *testing.T) {
	page := newPatchedPage(t, desktop, jsbind.HeadlessChrome())

	for _, name := range []string{"geolocation", "camera", "microphone"} {
		t.Run(name+" prompts", func(t *testing.T) {
			got := page.eval(`navigator.permissions.query({name: '` + name + `'}).then(s => [s.state, s.name])`)
			assert.Equal(t, []interface{}{"prompt", name}, got)
		})
	}

	t.Run("notifications follow Notification.permission", func(t *testing.T) {
		assert.Equal(t, "denied", page.eval(`navigator.permissions.query({name: 'notifications'}).then(s => s.state)`))
	})

	t.Run("other names delegate", func(t *testing.T) {
		assert.Equal(t, "granted", page.eval(`navigator.permissions.query({name: 'midi'}).then(s => s.state)`))
		_, err := page.rt.Evaluate(context.Background(), `navigator.permissions.query({name: 'bogus'})`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a valid enum value")
		_, err = page.rt.Evaluate(context.Background(), `navigator.permissions.query(null)`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not of type 'object'")
	})

	t.Run("always a promise", func(t *testing.T) {
		assert.Equal(t, true, page.eval(`navigator.permissions.query({name: 'camera'}) instanceof Promise`))
	})

	t.Run("status keeps native identity", func(t *testing.T) {
		got := page.eval(`navigator.permissions.query({name: 'camera'}).then(s => [
			s instanceof PermissionStatus,
			Object.prototype.toString.call(s),
			Object.getOwnPropertyNames(s).length
		])`)
		assert.Equal(t, []interface{}{true, "[object PermissionStatus]", int64(0)}, got)
	})

	t.Run("status supports change handlers", func(t *testing.T) {
		for _, name := range []string{"geolocation", "camera", "microphone", "notifications"} {
			got := page.eval(`navigator.permissions.query({name: '` + name + `'}).then(s => {
				var seen = [];
				var handler = function () { seen.push('handler'); };
				s.onchange = handler;
				s.addEventListener('change', function () { seen.push('listener'); });
				s.dispatchEvent({type: 'change'});
				return [s.onchange === handler, s.name, seen.sort().join(',')];
			})`)
			assert.Equal(t, []interface{}{true, name, "handler,listener"}, got, name)
		}
	})

	t.Run("delegated status is untouched", func(t *testing.T) {
		assert.Equal(t, []interface{}{"granted", nil},
			page.eval(`navigator.permissions.query({name: 'midi'}).then(s => [s.state, s.onchange])`))
	})

	t.Run("query looks native", func(t *testing.T) {
		assert.Equal(t, "function query() { [native code] }",
			page.eval(`Function.prototype.toString.call(navigator.permissions.query)`))
		assert.Equal(t, "query", page.eval(`navigator.permissions.query.name`))
	})
}

func TestPermissions_NotificationStates(t *testing.T) {
	for permission, want := range map[string]string{"default": "prompt", "granted": "granted", "denied": "denied", "": "prompt"} {
		t.Run("permission "+permission, func(t *testing.T) {
			env := jsbind.HeadlessChrome()
			env.NotificationPermission = permission
			page := newPatchedPage(t, desktop, env)
			assert.Equal(t, want, page.eval(`navigator.permissions.query({name: 'notifications'}).then(s => s.state)`))
		})
	}
}

func TestPlugins_Desktop(t *testing.T) {
	page := newPatchedPage(t, desktop, jsbind.HeadlessChrome())

	t.Run("collections", func(t *testing.T) {
		got := page.eval(`[
			navigator.plugins.length,
			navigator.mimeTypes.length,
			navigator.plugins.namedItem('Chrome PDF Plugin') !== null,
			navigator.plugins.item(0).name,
			navigator.plugins[2].name,
			navigator.plugins['Chrome PDF Viewer'].filename,
			navigator.plugins.namedItem('Flash'),
			navigator.plugins.item(7),
			navigator.plugins.refresh(),
			navigator.mimeTypes.item(0).type,
			navigator.mimeTypes.namedItem('application/pdf').suffixes
		]`)
		assert.Equal(t, []interface{}{
			int64(3), int64(1), true, "Chrome PDF Plugin", "Native Client", "mhjfbmdgcfjbbpaeojofohoefgiehjai",
			nil, nil, nil, "application/pdf", "pdf",
		}, got)
	})

	t.Run("type identity", func(t *testing.T) {
		got := page.eval(`[
			navigator.plugins instanceof PluginArray,
			navigator.plugins.item(0) instanceof Plugin,
			navigator.mimeTypes instanceof MimeTypeArray,
			navigator.mimeTypes[0] instanceof MimeType,
			Object.prototype.toString.call(navigator.plugins),
			Object.prototype.toString.call(navigator.plugins[0]),
			Object.prototype.toString.call(navigator.mimeTypes),
			Object.prototype.toString.call(navigator.mimeTypes[0])
		]`)
		assert.Equal(t, []interface{}{
			true, true, true, true,
			"[object PluginArray]", "[object Plugin]", "[object MimeTypeArray]", "[object MimeType]",
		}, got)
	})

	t.Run("entries carry no own data", func(t *testing.T) {
		assert.Equal(t, "", page.eval(`Object.getOwnPropertyNames(navigator.plugins[0]).filter(function (k) { return isNaN(k) && k !== 'application/pdf'; }).join(',')`))
		assert.Equal(t, int64(0), page.eval(`Object.getOwnPropertyNames(navigator.mimeTypes[0]).length`))
		assert.Equal(t, "0,1,2", page.eval(`Object.keys(navigator.plugins).join(',')`))
	})

	t.Run("cross links", func(t *testing.T) {
		assert.Equal(t, true, page.eval(`navigator.mimeTypes[0].enabledPlugin === navigator.plugins[0]`))
		assert.Equal(t, true, page.eval(`navigator.plugins[0][0] === navigator.mimeTypes[0]`))
		assert.Equal(t, int64(0), page.eval(`navigator.plugins[2].length`))
	})

	t.Run("page policy keeps identity", func(t *testing.T) {
		assert.Equal(t, true, page.eval(`navigator.plugins === navigator.plugins`))
	})

	t.Run("methods stay branded", func(t *testing.T) {
		assert.Equal(t, "TypeError", page.eval(`try { PluginArray.prototype.item.call({}, 0); 'none' } catch (e) { e.name }`))
		assert.Equal(t, "function namedItem() { [native code] }", page.eval(`Function.prototype.toString.call(navigator.plugins.namedItem)`))
	})
}

func TestPlugins_Mobile(t *testing.T) {
	page := newPatchedPage(t, mobile(), jsbind.HeadlessChrome())
	assert.Equal(t, []interface{}{int64(0), int64(0), nil, "[object PluginArray]"},
		page.eval(`[navigator.plugins.length, navigator.mimeTypes.length, navigator.plugins.item(0), Object.prototype.toString.call(navigator.plugins)]`))
}

func TestPlugins_FreshPolicy(t *testing.T) {
	page := newPatchedPage(t, desktop, jsbind.HeadlessChrome(), stealth.WithCollectionPolicy(stealth.CollectionsFresh))
	assert.Equal(t, false, page.eval(`navigator.plugins === navigator.plugins`))
	assert.Equal(t, int64(3), page.eval(`navigator.plugins.length`))
}

func TestPlugins_MaskingDisabled(t *testing.T) {
	p := desktop
	p.MaskPlugins = false
	page := newPatchedPage(t, p, jsbind.HeadlessChrome())
	assert.Equal(t, int64(0), page.eval(`navigator.plugins.length`))
}

func TestCanvas(t *testing.T) {
	const render = `
		function render(text) {
			var c = document.createElement('canvas');
			var ctx = c.getContext('2d');
			ctx.fillText(text, 2, 20);
			return [c.toDataURL(), ctx.shadowBlur, ctx.shadowColor];
		}
	`

	t.Run("noise changes every draw", func(t *testing.T) {
		page := newPatchedPage(t, desktop, jsbind.HeadlessChrome())
		got := page.eval(render + `var a = render('probe'), b = render('probe'); [a[0] !== b[0], a[1], a[2]]`)
		assert.Equal(t, []interface{}{true, int64(0), "rgba(0, 0, 0, 0)"}, got, "noise applies and page-visible state is restored")
	})

	t.Run("page shadow blur is perturbed, not replaced", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		rt, err := jsbind.NewSandbox(logger, jsbind.HeadlessChrome())
		require.NoError(t, err)
		t.Cleanup(rt.Close)

		// Record the blur in effect when the native draw runs.
		_, err = rt.Evaluate(context.Background(), `(function () {
			var proto = CanvasRenderingContext2D.prototype;
			var fillText = proto.fillText;
			globalThis.drawBlurs = [];
			proto.fillText = function () {
				drawBlurs.push(this.shadowBlur);
				return fillText.apply(this, arguments);
			};
		})()`)
		require.NoError(t, err)

		engine, err := stealth.NewEngine(stealth.WithLogger(logger))
		require.NoError(t, err)
		bundle, err := engine.Render(desktop)
		require.NoError(t, err)
		_, err = rt.Evaluate(context.Background(), bundle.Script)
		require.NoError(t, err)

		got, err := rt.Evaluate(context.Background(), `
			var ctx = document.createElement('canvas').getContext('2d');
			ctx.shadowBlur = 10;
			ctx.shadowColor = 'red';
			ctx.fillText('shadowed', 2, 20);
			ctx.shadowBlur = 0;
			ctx.fillText('plain', 2, 40);
			[
				drawBlurs.length,
				drawBlurs[0] >= 10 && drawBlurs[0] < 10.02,
				drawBlurs[1] >= 0 && drawBlurs[1] < 0.02,
				ctx.shadowBlur === 0
			]`)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{int64(2), true, true, true}, got)
	})

	t.Run("strokeText is perturbed too", func(t *testing.T) {
		page := newPatchedPage(t, desktop, jsbind.HeadlessChrome())
		got := page.eval(`
			function stroke() {
				var c = document.createElement('canvas');
				c.getContext('2d').strokeText('probe', 2, 20);
				return c.toDataURL();
			}
			stroke() !== stroke()
		`)
		assert.Equal(t, true, got)
	})

	t.Run("unpatched draws are stable", func(t *testing.T) {
		rt, err := jsbind.NewSandbox(zaptest.NewLogger(t), jsbind.HeadlessChrome())
		require.NoError(t, err)
		defer rt.Close()
		got, err := rt.Evaluate(context.Background(), render+`render('probe')[0] === render('probe')[0]`)
		require.NoError(t, err)
		assert.Equal(t, true, got)
	})

	t.Run("other context types are untouched", func(t *testing.T) {
		page := newPatchedPage(t, desktop, jsbind.HeadlessChrome())
		got := page.eval(`
			var gl = document.createElement('canvas').getContext('webgl');
			[gl instanceof WebGLRenderingContext, gl.getParameter(7936), document.createElement('canvas').getContext('bitmaprenderer')]
		`)
		assert.Equal(t, []interface{}{true, "WebKit", nil}, got)
	})

	t.Run("getContext looks native", func(t *testing.T) {
		page := newPatchedPage(t, desktop, jsbind.HeadlessChrome())
		assert.Equal(t, "function getContext() { [native code] }",
			page.eval(`Function.prototype.toString.call(HTMLCanvasElement.prototype.getContext)`))
	})
}

func TestWebGL(t *testing.T) {
	page := newPatchedPage(t, desktop, jsbind.HeadlessChrome())

	got := page.eval(`
		var gl = document.createElement('canvas').getContext('webgl');
		var gl2 = document.createElement('canvas').getContext('webgl2');
		[gl.getParameter(37445), gl.getParameter(37446), gl2.getParameter(37445), gl2.getParameter(37446),
		 gl.getParameter(7936), gl.getParameter(3379), gl.getParameter(1)]
	`)
	assert.Equal(t, []interface{}{"Intel Inc.", "Intel Iris", "Intel Inc.", "Intel Iris", "WebKit", int64(8192), nil}, got)

	t.Run("delegation preserves native errors", func(t *testing.T) {
		assert.Equal(t, "TypeError", page.eval(`try { document.createElement('canvas').getContext('webgl').getParameter(); 'none' } catch (e) { e.name }`))
		assert.Equal(t, "TypeError", page.eval(`try { WebGLRenderingContext.prototype.getParameter(37445); 'none' } catch (e) { e.name }`))
	})
}

func TestWebGL_Version1Only(t *testing.T) {
	env := jsbind.HeadlessChrome()
	env.WebGL2 = false
	page := newPatchedPage(t, desktop, env)

	assert.Empty(t, page.failed())
	assert.Equal(t, "Intel Inc.", page.eval(`document.createElement('canvas').getContext('webgl').getParameter(37445)`))
}

func TestWebGL_Absent(t *testing.T) {
	env := jsbind.HeadlessChrome()
	env.WebGL = false
	page := newPatchedPage(t, desktop, env)
	assert.Empty(t, page.failed())
}

func TestBundle_Idempotent(t *testing.T) {
	page := newPatchedPage(t, desktop, jsbind.HeadlessChrome())
	page.eval(`globalThis.firstPlugins = navigator.plugins; globalThis.firstGetContext = HTMLCanvasElement.prototype.getContext;`)

	for i := 0; i < 2; i++ {
		_, err := page.rt.Evaluate(context.Background(), page.bundle.Script)
		require.NoError(t, err)
	}

	assert.Empty(t, page.failed())
	assert.Equal(t, true, page.eval(`navigator.plugins === firstPlugins && HTMLCanvasElement.prototype.getContext === firstGetContext`))
	assert.Equal(t, false, page.eval(`Object.getOwnPropertyDescriptor(globalThis, '`+page.bundle.Marker+`').enumerable`))
	assert.Equal(t, false, page.eval(`Object.keys(globalThis).indexOf('`+page.bundle.Marker+`') >= 0`))
}

func TestBundle_SecondEvaluationIsNoop(t *testing.T) {
	page := newPatchedPage(t, desktop, jsbind.HeadlessChrome())
	page.eval(`globalThis.firstChrome = chrome; globalThis.firstQuery = Permissions.prototype.query;`)

	_, err := page.rt.Evaluate(context.Background(), page.bundle.Script)
	require.NoError(t, err)

	assert.Equal(t, true, page.eval(`chrome === firstChrome && Permissions.prototype.query === firstQuery`))
}

func TestBundle_DisabledPatches(t *testing.T) {
	page := newPatchedPage(t, desktop, jsbind.HeadlessChrome(), stealth.WithDisabled(stealth.PatchIdentity))
	assert.Equal(t, true, page.eval(`navigator.webdriver`))
	assert.Equal(t, int64(3), page.eval(`navigator.plugins.length`))
}

func TestBundle_RawCarrierIsSafe(t *testing.T) {
	engine, err := stealth.NewEngine(stealth.WithDebug(true))
	require.NoError(t, err)
	bundle, err := engine.RenderRaw([]byte(`{}`))
	require.NoError(t, err)

	rt, err := jsbind.NewSandbox(zaptest.NewLogger(t), jsbind.HeadlessChrome())
	require.NoError(t, err)
	defer rt.Close()
	_, err = rt.Evaluate(context.Background(), bundle.Script)
	require.NoError(t, err)

	got, err := rt.Evaluate(context.Background(), `[
		globalThis["`+bundle.FailedGlobal()+`"].length,
		navigator.webdriver,
		navigator.platform,
		navigator.plugins.length,
		document.createElement('canvas').getContext('webgl').getParameter(37445)
	]`)
	require.NoError(t, err)
	// Missing strings delegate to the native value; mask_plugins defaults off.
	assert.Equal(t, []interface{}{int64(0), false, "Win32", int64(0), "Google Inc. (Google)"}, got)
}
