//go:build tools

package tools

// Tool dependencies are not tracked here. mockery is used as an installed
// binary: run mockery from the module root to regenerate pkg/notify/mocks
// from .mockery.yaml.
