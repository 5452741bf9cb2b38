package config

import "github.com/gyaneshwarpardhi/scenenodes/internal/source"

// Config is the top-level YAML structure.
type Config struct {
	Version   string        `yaml:"version"`
	Document  string        `yaml:"document"` // host document path; empty = no document
	Filter    FilterConf    `yaml:"filter"`
	Layout    LayoutConf    `yaml:"layout"`
	Lifecycle LifecycleConf `yaml:"lifecycle"`
	Engine    EngineConf    `yaml:"engine"`
	Store     StoreConf     `yaml:"store"`
}

// FilterConf decides which entities a rebuild includes.
type FilterConf struct {
	FilteringEnabled bool                       `yaml:"filtering_enabled"`
	Visible          map[source.ObjectType]bool `yaml:"visible"`           // missing type = visible
	MaterialsEnabled *bool                      `yaml:"materials_enabled"` // nil = true
}

// ShowsType reports whether objects of type t are included.
func (f FilterConf) ShowsType(t source.ObjectType) bool {
	if !f.FilteringEnabled {
		return true
	}
	v, ok := f.Visible[t]
	return !ok || v
}

// ShowsMaterials reports whether material nodes are included.
func (f FilterConf) ShowsMaterials() bool {
	if !f.FilteringEnabled || f.MaterialsEnabled == nil {
		return true
	}
	return *f.MaterialsEnabled
}

// LayoutConf holds the constants of the column layout, in node-editor units.
type LayoutConf struct {
	NodeWidth       float64 `yaml:"node_width"`
	SceneHeight     float64 `yaml:"scene_height"`
	RootMargin      float64 `yaml:"root_margin"`
	ColumnMargin    float64 `yaml:"column_margin"`
	RowHeight       float64 `yaml:"row_height"`
	CenterRowHeight float64 `yaml:"center_row_height"`
	VerticalNudge   float64 `yaml:"vertical_nudge"` // may be zero or negative
}

// DefaultLayout returns the stock layout constants.
func DefaultLayout() LayoutConf {
	return LayoutConf{
		NodeWidth:       140,
		SceneHeight:     100,
		RootMargin:      80,
		ColumnMargin:    120,
		RowHeight:       140,
		CenterRowHeight: 110,
		VerticalNudge:   12,
	}
}

// LifecycleConf configures node duplication.
type LifecycleConf struct {
	DuplicableTypes []source.ObjectType `yaml:"duplicable_types"`
}

// EngineConf holds the command queue settings.
type EngineConf struct {
	QueueDepth       int `yaml:"queue_depth"`
	CommandTimeoutMs int `yaml:"command_timeout_ms"`
}

// StoreConf configures snapshot persistence.
type StoreConf struct {
	Path       string `yaml:"path"` // empty = in-memory
	SyncWrites bool   `yaml:"sync_writes"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{Version: "v1", Layout: LayoutConf{VerticalNudge: DefaultLayout().VerticalNudge}}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	def := DefaultLayout()
	l := &cfg.Layout
	if l.NodeWidth == 0 {
		l.NodeWidth = def.NodeWidth
	}
	if l.SceneHeight == 0 {
		l.SceneHeight = def.SceneHeight
	}
	if l.RootMargin == 0 {
		l.RootMargin = def.RootMargin
	}
	if l.ColumnMargin == 0 {
		l.ColumnMargin = def.ColumnMargin
	}
	if l.RowHeight == 0 {
		l.RowHeight = def.RowHeight
	}
	if l.CenterRowHeight == 0 {
		l.CenterRowHeight = def.CenterRowHeight
	}
	if cfg.Lifecycle.DuplicableTypes == nil {
		cfg.Lifecycle.DuplicableTypes = []source.ObjectType{source.TypeCamera}
	}
	if cfg.Engine.QueueDepth == 0 {
		cfg.Engine.QueueDepth = 64
	}
	if cfg.Engine.CommandTimeoutMs == 0 {
		cfg.Engine.CommandTimeoutMs = 5000
	}
}
