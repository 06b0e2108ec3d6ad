package probe

import (
	"fmt"
	"reflect"

	"github.com/xkilldash9x/ghostpatch/api/schemas"
)

// Equals passes when the value deep-equals want after JSON normalization.
func Equals(want interface{}) Check {
	normalized := normalize(want)
	return func(v interface{}) error {
		if !reflect.DeepEqual(normalized, v) {
			return fmt.Errorf("got %v, want %v", v, normalized)
		}
		return nil
	}
}

// IsTrue passes on a boolean true.
func IsTrue() Check {
	return Equals(true)
}

// IsFalsy passes on false, null, zero and the empty string.
func IsFalsy() Check {
	return func(v interface{}) error {
		switch x := v.(type) {
		case nil:
			return nil
		case bool:
			if !x {
				return nil
			}
		case float64:
			if x == 0 {
				return nil
			}
		case string:
			if x == "" {
				return nil
			}
		}
		return fmt.Errorf("got %v, want a falsy value", v)
	}
}

func normalize(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

const webglParam = `(function () {
	var gl = document.createElement('canvas').getContext('webgl');
	return gl ? gl.getParameter(%d) : null;
})()`

const canvasDraw = `(function () {
	function draw() {
		var c = document.createElement('canvas');
		var ctx = c.getContext('2d');
		ctx.font = '14px Arial';
		ctx.textBaseline = 'top';
		ctx.fillText('Cwm fjordbank glyphs vext quiz', 2, 2);
		return c.toDataURL();
	}
	return draw() !== draw();
})()`

const canvasState = `(function () {
	var ctx = document.createElement('canvas').getContext('2d');
	ctx.fillText('x', 0, 10);
	return [ctx.shadowBlur, ctx.shadowColor];
})()`

// Suite returns the detection probes for a page patched with profile.
func Suite(profile schemas.Profile) []Probe {
	p := profile.Normalize()

	probes := []Probe{
		{Name: "webdriver", Script: `navigator.webdriver`, Check: IsFalsy()},
		{Name: "webdriver_own_descriptor", Script: `Object.getOwnPropertyDescriptor(navigator, 'webdriver') === undefined`, Check: IsTrue()},
		{Name: "webdriver_in_keys", Script: `Object.keys(navigator).indexOf('webdriver') === -1`, Check: IsTrue()},
		{Name: "hardware_concurrency", Script: `navigator.hardwareConcurrency`, Check: Equals(p.HardwareConcurrency)},
		{Name: "device_memory", Script: `navigator.deviceMemory`, Check: Equals(p.DeviceMemory)},
		{Name: "platform", Script: `navigator.platform`, Check: Equals(p.Platform())},
		{Name: "vendor", Script: `navigator.vendor`, Check: Equals(schemas.NavigatorVendor)},
		{Name: "max_touch_points", Script: `navigator.maxTouchPoints`, Check: Equals(p.MaxTouchPoints())},
		{
			Name:   "chrome_object",
			Script: `typeof window.chrome === 'object' && typeof chrome.runtime === 'object' && typeof chrome.loadTimes === 'function' && typeof chrome.csi === 'function' && typeof chrome.app === 'object'`,
			Check:  IsTrue(),
		},
		{
			Name:   "chrome_functions_native",
			Script: `/\[native code\]/.test(Function.prototype.toString.call(chrome.loadTimes))`,
			Check:  IsTrue(),
		},
		{
			Name:   "permissions_geolocation",
			Script: `navigator.permissions.query({name: 'geolocation'}).then(function (s) { return s.state; })`,
			Check:  Equals("prompt"),
		},
		{
			Name: "permissions_notifications",
			Script: `navigator.permissions.query({name: 'notifications'}).then(function (s) {
				var n = typeof Notification === 'undefined' ? 'default' : Notification.permission;
				return s.state === (n === 'default' ? 'prompt' : n);
			})`,
			Check: IsTrue(),
		},
		{Name: "webgl_vendor", Script: fmt.Sprintf(webglParam, schemas.UnmaskedVendorWebGL), Check: Equals(p.WebGLVendor)},
		{Name: "webgl_renderer", Script: fmt.Sprintf(webglParam, schemas.UnmaskedRendererWebGL), Check: Equals(p.WebGLRenderer)},
		{Name: "canvas_state_restored", Script: canvasState, Check: Equals([]interface{}{0, "rgba(0, 0, 0, 0)"})},
		// Pixel-level differences depend on the rasterizer.
		{Name: "canvas_noise", Script: canvasDraw, Check: IsTrue(), Advisory: true},
	}

	if p.MaskPlugins {
		probes = append(probes,
			Probe{Name: "plugins_length", Script: `navigator.plugins.length`, Check: Equals(p.PluginCount())},
			Probe{Name: "mime_types_length", Script: `navigator.mimeTypes.length`, Check: Equals(p.MimeTypeCount())},
			Probe{
				Name:   "plugins_type",
				Script: `Object.prototype.toString.call(navigator.plugins) + ' ' + (navigator.plugins instanceof PluginArray)`,
				Check:  Equals("[object PluginArray] true"),
			},
		)
		if p.PluginCount() > 0 {
			probes = append(probes, Probe{
				Name: "plugins_named_item",
				Script: `(function () {
					var p = navigator.plugins;
					return p.namedItem('Chrome PDF Plugin') instanceof Plugin && p.item(0) === p[0] && p.namedItem('Flash') === null;
				})()`,
				Check: IsTrue(),
			})
		}
	}
	return probes
}

// Fingerprint returns a single probe collecting the values a fingerprinting
// script would hash. Useful for comparing identities across sessions.
func Fingerprint() Probe {
	return Probe{
		Name: "fingerprint",
		Script: `({
			concurrency: navigator.hardwareConcurrency,
			memory: navigator.deviceMemory,
			platform: navigator.platform,
			webgl_vendor: ` + fmt.Sprintf(webglParam, schemas.UnmaskedVendorWebGL) + `,
			webgl_renderer: ` + fmt.Sprintf(webglParam, schemas.UnmaskedRendererWebGL) + `,
			plugins: navigator.plugins.length
		})`,
		Check: func(v interface{}) error {
			if _, ok := v.(map[string]interface{}); !ok {
				return fmt.Errorf("got %T, want an object", v)
			}
			return nil
		},
	}
}

// Names returns the probe names in order.
func Names(probes []Probe) []string {
	names := make([]string, len(probes))
	for i, p := range probes {
		names[i] = p.Name
	}
	return names
}
