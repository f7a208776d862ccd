// internal/pipeline/jobs/check-status/config.go
package checkstatus

type Config struct {
	RegistryPath    string
	RegistryEnabled bool
	MaxResults      int32
}

func LoadConfig() *Config {
	return &Config{
		MaxResults: 20,
	}
}
