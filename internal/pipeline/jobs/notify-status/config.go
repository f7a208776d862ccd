// internal/pipeline/jobs/notify-status/config.go
package notifystatus

type Config struct {
	EmailEnabled bool
	FromEmail    string
	ToEmails     []string
	SMSEnabled   bool
	TopicArn     string
	AWSRegion    string
}

func LoadConfig() *Config {
	return &Config{
		AWSRegion: "us-east-1",
	}
}
