// internal/pipeline/jobs/stop-job/config.go
package stopjob

type Config struct {
	RegistryPath    string
	RegistryEnabled bool
}

func LoadConfig() *Config {
	return &Config{}
}
