// internal/pipeline/batch/upload-input/config.go
package uploadinput

type Config struct {
	Bucket string
	Prefix string
}

func LoadConfig() *Config {
	return &Config{
		Prefix: "batch-input/",
	}
}
