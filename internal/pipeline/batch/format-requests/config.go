// internal/pipeline/batch/format-requests/config.go
package formatrequests

type Config struct {
	AnthropicVersion string
	MaxTokens        int
	Temperature      float64
	TopP             float64
	TopK             int
}

func LoadConfig() *Config {
	return &Config{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        1024,
		Temperature:      0.5,
		TopP:             0.9,
		TopK:             250,
	}
}
