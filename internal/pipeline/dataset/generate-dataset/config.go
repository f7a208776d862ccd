// internal/pipeline/dataset/generate-dataset/config.go
package generatedataset

type Config struct {
	CustomerCount       int
	RecommendationCount int
}

func LoadConfig() *Config {
	return &Config{
		CustomerCount:       10,
		RecommendationCount: 3,
	}
}
