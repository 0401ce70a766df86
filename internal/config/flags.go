package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagWidth    = flag.Int("width", 0, "Window width")
	flagHeight   = flag.Int("height", 0, "Window height")
	flagUpload   = flag.String("upload", "", "Upload backend: local, http or s3")
	flagEndpoint = flag.String("endpoint", "", "Upload service base URL")
	flagWatch    = flag.String("watch", "", "Directory to watch for dropped model files")
	flagAuto     = flag.String("automation", "", "Directory for command.json / state.json automation")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// Args returns the positional arguments, model files to open at startup.
func Args() []string {
	return flag.Args()
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagUpload != "" {
		cfg.Upload.Backend = *flagUpload
	}
	if *flagEndpoint != "" {
		cfg.Upload.Endpoint = *flagEndpoint
	}
	if *flagWatch != "" {
		cfg.Watch.Dir = *flagWatch
		cfg.Watch.Enabled = true
	}
	if *flagAuto != "" {
		cfg.Viewer.AutomationDir = *flagAuto
	}
}
