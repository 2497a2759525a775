package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile   = flag.String("log", "", "Write logs to this file")
	flagPrecision = flag.Int("precision", 0, "Decimal places for written numbers")
	flagRelaxed   = flag.Bool("relaxed", false, "Report recoverable violations as warnings")
)

// ParseFlags parses the global flags. Parsing stops at the first
// non-flag argument, which is the subcommand.
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
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagPrecision > 0 {
		cfg.Codec.Precision = *flagPrecision
	}
	if *flagRelaxed {
		cfg.Codec.Relaxed = true
	}
}
