// internal/pipeline/jobs/fetch-results/config.go
package fetchresults

type Config struct {
	Bucket string
	Prefix string
}

func LoadConfig() *Config {
	return &Config{
		Prefix: "batch-output/",
	}
}
