package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid wraps every error Validate returns.
var ErrInvalid = errors.New("config validation errors")

// Validate checks the config for:
//   - Required fields
//   - Unknown object types in the filter and lifecycle sections
//   - Non-positive layout sizes and engine limits
func Validate(cfg *Config) error {
	if cfg.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalid)
	}
	var errs []string

	for t := range cfg.Filter.Visible {
		if !t.Valid() {
			errs = append(errs, fmt.Sprintf("filter.visible: unknown object type %q", t))
		}
	}
	for i, t := range cfg.Lifecycle.DuplicableTypes {
		if !t.Valid() {
			errs = append(errs, fmt.Sprintf("lifecycle.duplicable_types[%d]: unknown object type %q", i, t))
		}
	}

	l := cfg.Layout
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"node_width", l.NodeWidth},
		{"scene_height", l.SceneHeight},
		{"row_height", l.RowHeight},
		{"center_row_height", l.CenterRowHeight},
	} {
		if f.v <= 0 {
			errs = append(errs, fmt.Sprintf("layout.%s must be positive, got %v", f.name, f.v))
		}
	}
	if l.RootMargin < 0 || l.ColumnMargin < 0 {
		errs = append(errs, "layout margins must not be negative")
	}

	if cfg.Engine.QueueDepth < 1 {
		errs = append(errs, fmt.Sprintf("engine.queue_depth must be at least 1, got %d", cfg.Engine.QueueDepth))
	}
	if cfg.Engine.CommandTimeoutMs < 1 {
		errs = append(errs, fmt.Sprintf("engine.command_timeout_ms must be at least 1, got %d", cfg.Engine.CommandTimeoutMs))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalid, strings.Join(errs, "\n  - "))
	}
	return nil
}
