package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	SQLServer           string `mapstructure:"AZURE_SQL_SERVER"`
	SQLPort             int    `mapstructure:"AZURE_SQL_PORT"`
	SQLDatabase         string `mapstructure:"AZURE_SQL_DATABASE"`
	SQLUser             string `mapstructure:"AZURE_SQL_USER"`
	SQLPassword         string `mapstructure:"AZURE_SQL_PASSWORD"`
	SQLConnectionString string `mapstructure:"AZURE_SQL_CONNECTION_STRING"`
	DBSSLMode           string `mapstructure:"DB_SSL_MODE"`
	DBMaxConns          int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32  `mapstructure:"DB_MIN_CONNS"`

	StorageConnectionString string `mapstructure:"AZURE_STORAGE_CONNECTION_STRING"`
	BlobContainer           string `mapstructure:"AZURE_BLOB_CONTAINER_NAME"`
	DoctorsBlobName         string `mapstructure:"DOCTORS_BLOB_NAME"`
	DoctorsPublicURL        string `mapstructure:"DOCTORS_PUBLIC_URL"`
	LabUploadMaxBytes       int64  `mapstructure:"LAB_UPLOAD_MAX_BYTES"`

	SessionSigningKey string        `mapstructure:"SESSION_SIGNING_KEY"`
	AppealServiceURL  string        `mapstructure:"APPEAL_SERVICE_URL"`
	AppealTimeout     time.Duration `mapstructure:"APPEAL_TIMEOUT"`

	EventsBackend string   `mapstructure:"EVENTS_BACKEND"`
	KafkaBrokers  []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic    string   `mapstructure:"KAFKA_TOPIC"`
	SQSQueueURL   string   `mapstructure:"SQS_QUEUE_URL"`
	AWSRegion     string   `mapstructure:"AWS_REGION"`

	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`
}

var envKeys = []string{
	"PORT", "ENV",
	"AZURE_SQL_SERVER", "AZURE_SQL_PORT", "AZURE_SQL_DATABASE", "AZURE_SQL_USER",
	"AZURE_SQL_PASSWORD", "AZURE_SQL_CONNECTION_STRING", "DB_SSL_MODE",
	"DB_MAX_CONNS", "DB_MIN_CONNS",
	"AZURE_STORAGE_CONNECTION_STRING", "AZURE_BLOB_CONTAINER_NAME",
	"DOCTORS_BLOB_NAME", "DOCTORS_PUBLIC_URL", "LAB_UPLOAD_MAX_BYTES",
	"SESSION_SIGNING_KEY", "APPEAL_SERVICE_URL", "APPEAL_TIMEOUT",
	"EVENTS_BACKEND", "KAFKA_BROKERS", "KAFKA_TOPIC", "SQS_QUEUE_URL", "AWS_REGION",
	"CORS_ORIGINS",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("AZURE_SQL_PORT", 5432)
	v.SetDefault("DB_SSL_MODE", "require")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 0)
	v.SetDefault("AZURE_BLOB_CONTAINER_NAME", "carepilot")
	v.SetDefault("DOCTORS_BLOB_NAME", "doctors.json")
	v.SetDefault("DOCTORS_PUBLIC_URL", "https://carepilotstorage.blob.core.windows.net/carepilot/doctors.json")
	v.SetDefault("LAB_UPLOAD_MAX_BYTES", 10*1024*1024)
	v.SetDefault("APPEAL_TIMEOUT", "30s")
	v.SetDefault("EVENTS_BACKEND", "none")
	v.SetDefault("KAFKA_TOPIC", "carepilot-documents")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))

	if cfg.IsDev() {
		log.Println("WARNING: server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active and unauthenticated requests act as a doctor.")
	}

	return cfg, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks cross-field rules. Database credentials are not checked here;
// the connection manager reports them on first use.
func (c *Config) Validate() error {
	if c.IsProduction() && c.SessionSigningKey == "" {
		return fmt.Errorf("SESSION_SIGNING_KEY is required in production")
	}
	if c.SessionSigningKey != "" && len(c.SessionSigningKey) < 32 {
		return fmt.Errorf("SESSION_SIGNING_KEY must be at least 32 characters, got %d", len(c.SessionSigningKey))
	}

	switch c.EventsBackend {
	case "", "none":
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_BACKEND is \"kafka\"")
		}
		if c.KafkaTopic == "" {
			return fmt.Errorf("KAFKA_TOPIC is required when EVENTS_BACKEND is \"kafka\"")
		}
	case "sqs":
		if c.SQSQueueURL == "" {
			return fmt.Errorf("SQS_QUEUE_URL is required when EVENTS_BACKEND is \"sqs\"")
		}
	default:
		return fmt.Errorf("EVENTS_BACKEND must be \"none\", \"kafka\", or \"sqs\", got %q", c.EventsBackend)
	}

	if c.LabUploadMaxBytes <= 0 {
		return fmt.Errorf("LAB_UPLOAD_MAX_BYTES must be positive, got %d", c.LabUploadMaxBytes)
	}
	return nil
}
