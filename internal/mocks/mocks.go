// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/ghostpatch/api/schemas"
	"github.com/xkilldash9x/ghostpatch/internal/browser/stealth"
	"github.com/xkilldash9x/ghostpatch/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	args := m.Called()
	return args.Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Stealth() config.StealthConfig {
	args := m.Called()
	return args.Get(0).(config.StealthConfig)
}

func (m *MockConfig) Check() config.CheckConfig {
	args := m.Called()
	return args.Get(0).(config.CheckConfig)
}

// --- Setters ---

func (m *MockConfig) SetBrowserHeadless(b bool)           { m.Called(b) }
func (m *MockConfig) SetBrowserRemoteURL(url string)      { m.Called(url) }
func (m *MockConfig) SetStealthDebug(b bool)              { m.Called(b) }
func (m *MockConfig) SetStealthProfile(p schemas.Profile) { m.Called(p) }
func (m *MockConfig) SetCheckTargets(targets []string)    { m.Called(targets) }
func (m *MockConfig) SetCheckMatrix(b bool)               { m.Called(b) }

// -- Browser Mocks --

// MockTab mocks a browser tab (browser.Tab).
type MockTab struct {
	mock.Mock
}

func (m *MockTab) Evaluate(ctx context.Context, script string) (interface{}, error) {
	args := m.Called(ctx, script)
	return args.Get(0), args.Error(1)
}

func (m *MockTab) Install(ctx context.Context, bundle *stealth.Bundle, profile schemas.Profile) error {
	args := m.Called(ctx, bundle, profile)
	return args.Error(0)
}

func (m *MockTab) Navigate(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockTab) Title(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockTab) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockEvaluator mocks probe.Evaluator.
type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) Evaluate(ctx context.Context, script string) (interface{}, error) {
	args := m.Called(ctx, script)
	return args.Get(0), args.Error(1)
}
