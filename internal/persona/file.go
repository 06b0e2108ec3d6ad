package persona

import (
	"bytes"
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/ghostpatch/api/schemas"
)

// Load reads a YAML profile from path. A leading ~ expands to the home
// directory. Unknown keys are rejected; missing fields take default values.
func Load(path string) (schemas.Profile, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return schemas.Profile{}, fmt.Errorf("failed to expand profile path %q: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return schemas.Profile{}, fmt.Errorf("failed to read profile: %w", err)
	}
	return Decode(data)
}

// Decode parses a YAML profile document.
func Decode(data []byte) (schemas.Profile, error) {
	var p schemas.Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return schemas.Profile{}, fmt.Errorf("failed to parse profile: %w", err)
	}
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return schemas.Profile{}, err
	}
	return p, nil
}

// Marshal renders p as a YAML document.
func Marshal(p schemas.Profile) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}
	return buf.Bytes(), nil
}
