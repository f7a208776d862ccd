// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig              `mapstructure:"app"`
	AWS           AWSConfig              `mapstructure:"aws"`
	Dataset       DatasetConfig          `mapstructure:"dataset"`
	Inference     InferenceConfig        `mapstructure:"inference"`
	Batch         BatchConfig            `mapstructure:"batch"`
	Registry      RegistryConfig         `mapstructure:"registry"`
	Pipeline      map[string]StageConfig `mapstructure:"pipeline"`
	Notifications NotificationConfig     `mapstructure:"notifications"`
	Metrics       MetricsConfig          `mapstructure:"metrics"`
	Logging       LoggingConfig          `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// AWSConfig holds the region plus the S3 and Bedrock settings shared by the
// remote stages.
type AWSConfig struct {
	Region string `mapstructure:"region"`

	S3 struct {
		Bucket       string `mapstructure:"bucket"`
		InputPrefix  string `mapstructure:"input_prefix"`
		OutputPrefix string `mapstructure:"output_prefix"`
	} `mapstructure:"s3"`

	Bedrock struct {
		RoleArn      string `mapstructure:"role_arn"`
		TimeoutHours int    `mapstructure:"timeout_hours"`
	} `mapstructure:"bedrock"`
}

// InputS3URI returns the s3:// URI of the configured input location.
func (a AWSConfig) InputS3URI() string {
	return fmt.Sprintf("s3://%s/%s", a.S3.Bucket, a.S3.InputPrefix)
}

// OutputS3URI returns the s3:// URI of the configured output location.
func (a AWSConfig) OutputS3URI() string {
	return fmt.Sprintf("s3://%s/%s", a.S3.Bucket, a.S3.OutputPrefix)
}

// DatasetConfig controls the synthetic dataset generator.
type DatasetConfig struct {
	CustomerCount       int `mapstructure:"customer_count"`
	RecommendationCount int `mapstructure:"recommendation_count"`
}

// InferenceConfig holds the model id and the generation parameters stamped
// into every batch record.
type InferenceConfig struct {
	ModelID          string  `mapstructure:"model_id"`
	AnthropicVersion string  `mapstructure:"anthropic_version"`
	MaxTokens        int     `mapstructure:"max_tokens"`
	Temperature      float64 `mapstructure:"temperature"`
	TopP             float64 `mapstructure:"top_p"`
	TopK             int     `mapstructure:"top_k"`
}

// BatchConfig holds the local batch-file settings.
type BatchConfig struct {
	InputFile     string `mapstructure:"input_file"`
	JobNamePrefix string `mapstructure:"job_name_prefix"`
}

// RegistryConfig points at the local job registry file.
type RegistryConfig struct {
	Path    string `mapstructure:"path"`
	Enabled bool   `mapstructure:"enabled"`
}

// StageConfig holds the core settings applicable to every pipeline stage.
type StageConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Timeout int  `mapstructure:"timeout"` // milliseconds
}

// NotificationConfig holds settings for the notify-status stage.
type NotificationConfig struct {
	Email struct {
		Enabled   bool     `mapstructure:"enabled"`
		FromEmail string   `mapstructure:"from_email"`
		To        []string `mapstructure:"to"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicArn string `mapstructure:"topic_arn"`
	} `mapstructure:"sms"`
}

// MetricsConfig controls the optional metrics/health endpoint of long
// running commands.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
