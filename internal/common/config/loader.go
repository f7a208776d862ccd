// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	// Load .env from multiple possible locations
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like AWS_REGION
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// 1. LOAD BASE CONFIG
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// 2. LOAD ENV CONFIG
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	// 3. EXPAND ENV PLACEHOLDERS
	expandEnvVars(viper.GetViper())

	// 4. Unmarshal final config
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	// 5. DIRECT OVERRIDE IF STILL EMPTY
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from multiple possible locations.
func loadEnvFile() {
	// Try multiple paths (for running from different directories)
	possiblePaths := []string{
		".env",          // Current directory
		"../.env",       // Parent directory
		"../../.env",    // Two levels up (for tests in test/e2e/)
		"../../../.env", // Three levels up
	}

	// Also try to find project root by looking for go.mod
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				fmt.Printf("✅ Loaded .env from: %s\n", path)
				return
			}
		}
	}

	fmt.Printf("⚠️  .env file not found in any location, using system environment variables\n")
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Walk up directories looking for go.mod
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}

// Improved environment variable expansion
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		// Only process string values
		if strVal, ok := val.(string); ok {
			// Check if it contains environment variable pattern
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	// AWS core
	if cfg.AWS.Region == "" {
		if val := os.Getenv("AWS_REGION"); val != "" {
			cfg.AWS.Region = val
		}
	}
	if cfg.AWS.S3.Bucket == "" {
		if val := os.Getenv("BATCH_S3_BUCKET"); val != "" {
			cfg.AWS.S3.Bucket = val
		}
	}
	if cfg.AWS.Bedrock.RoleArn == "" {
		if val := os.Getenv("BEDROCK_ROLE_ARN"); val != "" {
			cfg.AWS.Bedrock.RoleArn = val
		}
	}

	// Inference
	if cfg.Inference.ModelID == "" {
		if val := os.Getenv("BEDROCK_MODEL_ID"); val != "" {
			cfg.Inference.ModelID = val
		}
	}

	// Notifications
	if cfg.Notifications.Email.FromEmail == "" {
		if val := os.Getenv("SES_FROM_EMAIL"); val != "" {
			cfg.Notifications.Email.FromEmail = val
		}
	}
	if cfg.Notifications.SMS.TopicArn == "" {
		if val := os.Getenv("SNS_TOPIC_ARN"); val != "" {
			cfg.Notifications.SMS.TopicArn = val
		}
	}
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile() // Load env file first

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Expand environment variables before unmarshal
	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	// AWS defaults
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.AWS.S3.InputPrefix == "" {
		cfg.AWS.S3.InputPrefix = "batch-input/"
	}
	if cfg.AWS.S3.OutputPrefix == "" {
		cfg.AWS.S3.OutputPrefix = "batch-output/"
	}
	if cfg.AWS.Bedrock.TimeoutHours == 0 {
		cfg.AWS.Bedrock.TimeoutHours = 24
	}

	// Dataset defaults
	if cfg.Dataset.CustomerCount == 0 {
		cfg.Dataset.CustomerCount = 10
	}
	if cfg.Dataset.RecommendationCount == 0 {
		cfg.Dataset.RecommendationCount = 3
	}

	// Inference defaults
	if cfg.Inference.AnthropicVersion == "" {
		cfg.Inference.AnthropicVersion = "bedrock-2023-05-31"
	}
	if cfg.Inference.MaxTokens == 0 {
		cfg.Inference.MaxTokens = 1024
	}
	if cfg.Inference.Temperature == 0 {
		cfg.Inference.Temperature = 0.5
	}
	if cfg.Inference.TopP == 0 {
		cfg.Inference.TopP = 0.9
	}
	if cfg.Inference.TopK == 0 {
		cfg.Inference.TopK = 250
	}

	// Batch defaults
	if cfg.Batch.InputFile == "" {
		cfg.Batch.InputFile = "data/batch-input.jsonl"
	}
	if cfg.Batch.JobNamePrefix == "" {
		cfg.Batch.JobNamePrefix = "batch-inference"
	}

	// Registry defaults
	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "data/job-registry.json"
		cfg.Registry.Enabled = true
	}

	// Metrics defaults
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":8081"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// Stage defaults
	for key, stage := range cfg.Pipeline {
		if stage.Timeout == 0 {
			stage.Timeout = 60000
		}
		cfg.Pipeline[key] = stage
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Dataset.CustomerCount < 1 {
		return fmt.Errorf("dataset.customer_count must be positive")
	}
	if cfg.Dataset.RecommendationCount < 1 {
		return fmt.Errorf("dataset.recommendation_count must be positive")
	}

	if cfg.Inference.MaxTokens < 1 {
		return fmt.Errorf("inference.max_tokens must be positive")
	}
	if cfg.Inference.Temperature < 0 || cfg.Inference.Temperature > 1 {
		return fmt.Errorf("inference.temperature must be within [0, 1]")
	}
	if cfg.Inference.TopP <= 0 || cfg.Inference.TopP > 1 {
		return fmt.Errorf("inference.top_p must be within (0, 1]")
	}
	if cfg.Inference.TopK < 0 {
		return fmt.Errorf("inference.top_k must not be negative")
	}

	if cfg.AWS.Bedrock.TimeoutHours < 0 {
		return fmt.Errorf("aws.bedrock.timeout_hours must not be negative")
	}

	// Bucket, model id and role ARN are checked by the stages that call AWS,
	// so purely local commands run without them.
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetStageConfig retrieves stage-specific configuration with fallback to defaults
func GetStageConfig(cfg *Config, stageName string) StageConfig {
	if stage, exists := cfg.Pipeline[stageName]; exists {
		return stage
	}

	// Return default stage config if not found
	return StageConfig{
		Enabled: true,
		Timeout: 60000,
	}
}

// IsStageEnabled checks if a specific pipeline stage is enabled
func IsStageEnabled(cfg *Config, stageName string) bool {
	if stage, exists := cfg.Pipeline[stageName]; exists {
		return stage.Enabled
	}
	return true
}
