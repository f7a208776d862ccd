// internal/pipeline/batch/write-records/config.go
package writerecords

type Config struct {
	OutputPath string
}

func LoadConfig() *Config {
	return &Config{
		OutputPath: "data/batch-input.jsonl",
	}
}
