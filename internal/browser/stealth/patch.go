package stealth

import (
	"embed"
	"fmt"
	"slices"
)

//go:embed patches/*.js
var patchFS embed.FS

// Patch names. Installation always follows the order of Patches.
const (
	PatchIdentity      = "identity"
	PatchChromeRuntime = "chrome_runtime"
	PatchPermissions   = "permissions"
	PatchPlugins       = "plugins"
	PatchCanvas        = "canvas"
	PatchWebGL         = "webgl"
)

var patchOrder = []string{
	PatchIdentity,
	PatchChromeRuntime,
	PatchPermissions,
	PatchPlugins,
	PatchCanvas,
	PatchWebGL,
}

// Patches returns every patch name in installation order.
func Patches() []string {
	return slices.Clone(patchOrder)
}

// IsPatch reports whether name is a known patch.
func IsPatch(name string) bool {
	return slices.Contains(patchOrder, name)
}

func readSource(file string) (string, error) {
	b, err := patchFS.ReadFile("patches/" + file)
	if err != nil {
		return "", fmt.Errorf("failed to read embedded %s: %w", file, err)
	}
	if len(b) == 0 {
		return "", fmt.Errorf("embedded %s is empty", file)
	}
	return string(b), nil
}
