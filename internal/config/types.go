package config

// Config is the top-level claimdeck configuration, corresponding to
// .claimdeck.yml.
type Config struct {
	Port            int    `yaml:"port" koanf:"port"`
	DataDir         string `yaml:"data_dir" koanf:"data_dir"`
	AllowAllOrigins bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds" koanf:"cache_ttl_seconds"`
}
