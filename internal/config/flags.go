package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagTolerance = flag.Float64("tolerance", 0, "Dedup position quantization step in meters")
	flagNoDedup   = flag.Bool("no-dedup", false, "Disable spatial deduplication")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagTolerance > 0 {
		cfg.Dedup.Tolerance = *flagTolerance
	}
	if *flagNoDedup {
		cfg.Dedup.Enabled = false
	}
}
