package app

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string // optional HCL server config file

	Listen          string // overrides the config file's listen address
	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

// NewConfig validates and normalizes a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return &cfg, nil
}
