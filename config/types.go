package config

// RedisConfig addresses the redis backend of the chain store.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	Namespace string `yaml:"namespace"`
}

// StorageConfig selects the chain store backend.
type StorageConfig struct {
	Type  string      `yaml:"type"`
	Redis RedisConfig `yaml:"redis"`
}

// RateLimitConfig bounds JSON-RPC traffic. A zero max disables that limit.
type RateLimitConfig struct {
	IPMaxRequests     int `yaml:"ip_max_requests"`
	SenderMaxRequests int `yaml:"sender_max_requests"`
	WindowMs          int `yaml:"window_ms"`
}

// NodeConfig represents a node's configuration
type NodeConfig struct {
	Name         string          `yaml:"name"`
	DataDir      string          `yaml:"data_dir"`
	Storage      StorageConfig   `yaml:"storage"`
	RPCAddr      string          `yaml:"rpc_addr"`
	MetricsAddr  string          `yaml:"metrics_addr"`
	CORSOrigins  []string        `yaml:"cors_origins"`
	MirrorDSN    string          `yaml:"mirror_dsn"`
	AdminLogSize int             `yaml:"admin_log_size"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

// ConfigFile is the top-level structure of node.yml
type ConfigFile struct {
	Node NodeConfig `yaml:"node"`
}
