// internal/pipeline/jobs/submit-job/config.go
package submitjob

type Config struct {
	ModelID         string
	RoleArn         string
	JobNamePrefix   string
	InputS3URI      string
	OutputS3URI     string
	TimeoutHours    int32
	RegistryPath    string
	RegistryEnabled bool
}

func LoadConfig() *Config {
	return &Config{
		JobNamePrefix: "batch-inference",
		TimeoutHours:  24,
	}
}
