package config

// RedisConfig contains key-value store configuration. Stand-alone,
// sentinel, and cluster deployments are all supported; the bootstrap layer
// maps this onto a go-redis universal client.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// Addrs returns the node addresses for the configured deployment shape.
func (r *RedisConfig) Addrs() []string {
	switch {
	case r.UseCluster:
		return r.ClusterNodes
	case r.UseSentinel:
		return r.SentinelNodes
	default:
		return []string{r.URI}
	}
}
