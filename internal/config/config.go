// Package config handles tool configuration loading and management.
package config

// Config holds all stagemap settings.
type Config struct {
	Roots   RootsConfig   `yaml:"roots"`
	Scan    ScanConfig    `yaml:"scan"`
	Dedup   DedupConfig   `yaml:"dedup"`
	Logging LoggingConfig `yaml:"logging"`
}

// RootsConfig holds the extraction root directories.
type RootsConfig struct {
	// MaterialRoots are scanned recursively for .mtl files. Textures are
	// often not co-located with the models that reference them, so every
	// root is merged into one global index.
	MaterialRoots []string `yaml:"material_roots"`
	// TextureRoots are scanned recursively for converted texture files.
	TextureRoots []string `yaml:"texture_roots"`
	// StageSetRoot anchors relative .ssb paths found in map layouts.
	StageSetRoot string `yaml:"stageset_root"`
}

// ScanConfig controls the recursive index scan.
type ScanConfig struct {
	// SkipDirs lists directory names excluded from the scan. An empty
	// list selects the built-in blacklist.
	SkipDirs []string `yaml:"skip_dirs"`
}

// DedupConfig controls spatial deduplication of co-located entities.
type DedupConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Tolerance float64 `yaml:"tolerance"` // position quantization step, meters
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Roots: RootsConfig{
			MaterialRoots: []string{"."},
			TextureRoots:  []string{"."},
			StageSetRoot:  ".",
		},
		Dedup: DedupConfig{
			Enabled:   true,
			Tolerance: 0.01,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
