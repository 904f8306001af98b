package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("DB_MAX_CONNS", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.DoctorsBlobName != "doctors.json" {
		t.Errorf("expected doctors.json, got %s", cfg.DoctorsBlobName)
	}
	if cfg.LabUploadMaxBytes != 10*1024*1024 {
		t.Errorf("expected 10MB upload cap, got %d", cfg.LabUploadMaxBytes)
	}
	if cfg.AppealTimeout != 30*time.Second {
		t.Errorf("expected 30s appeal timeout, got %s", cfg.AppealTimeout)
	}
	if cfg.SQLPort != 5432 {
		t.Errorf("expected default sql port 5432, got %d", cfg.SQLPort)
	}
}

func TestLoad_MissingCredentialsIsNotAConfigError(t *testing.T) {
	t.Setenv("AZURE_SQL_USER", "")
	t.Setenv("AZURE_SQL_PASSWORD", "")
	t.Setenv("AZURE_SQL_CONNECTION_STRING", "")

	if _, err := Load(); err != nil {
		t.Fatalf("expected Load to succeed without credentials, got %v", err)
	}
}

func TestLoad_SplitsLists(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("unexpected origins: %v", cfg.CORSOrigins)
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
	if !c.IsProduction() {
		t.Error("expected IsProduction() to return true for production")
	}
}

func validConfig() *Config {
	return &Config{Env: "development", EventsBackend: "none", LabUploadMaxBytes: 1024}
}

func TestValidate_ProductionRequiresSigningKey(t *testing.T) {
	c := validConfig()
	c.Env = "production"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error without SESSION_SIGNING_KEY in production")
	}

	c.SessionSigningKey = "0123456789abcdef0123456789abcdef"
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_ShortSigningKey(t *testing.T) {
	c := validConfig()
	c.SessionSigningKey = "short"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for short signing key")
	}
}

func TestValidate_EventsBackend(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"none", func(c *Config) {}, false},
		{"kafka without brokers", func(c *Config) { c.EventsBackend = "kafka"; c.KafkaTopic = "t" }, true},
		{"kafka complete", func(c *Config) {
			c.EventsBackend = "kafka"
			c.KafkaTopic = "t"
			c.KafkaBrokers = []string{"localhost:9092"}
		}, false},
		{"sqs without queue", func(c *Config) { c.EventsBackend = "sqs" }, true},
		{"sqs complete", func(c *Config) { c.EventsBackend = "sqs"; c.SQSQueueURL = "http://localhost:4566/000000000000/q" }, false},
		{"unknown", func(c *Config) { c.EventsBackend = "rabbit" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
