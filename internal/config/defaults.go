package config

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            8099,
		DataDir:         ".claimdeck",
		AllowAllOrigins: false,
		CacheTTLSeconds: 300,
	}
}
