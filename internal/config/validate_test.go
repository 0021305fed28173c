package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		DB: DBConfig{
			Host: "localhost", Port: 5432, User: "mealtrack",
			Password: "secret", Name: "mealtrack", SSLMode: "disable", MaxConns: 25,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		JWT: JWTConfig{
			AccessSecret:  "access-secret-that-is-at-least-32-chars!",
			RefreshSecret: "refresh-secret-that-is-at-least-32-chr!",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
		},
		Quota: QuotaConfig{MaxPerDay: 5, MaxPerMinute: 5},
		VLM: VLMConfig{
			BaseURL: "https://vlm.example.com/v1", APIKey: "some-key",
			Model: "Qwen2.5-VL-72B-Instruct", MaxTokens: 2048, Timeout: 60 * time.Second,
		},
		Whisper: WhisperConfig{URL: "https://stt.example.com/transcribe", APIKey: "k", Language: "en", Timeout: 30 * time.Second},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_JWTAccessSecretTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.AccessSecret = "short"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "JWT_ACCESS_SECRET") {
		t.Fatalf("expected JWT_ACCESS_SECRET error, got: %v", err)
	}
}

func TestValidate_JWTSecretsMustDiffer(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.AccessSecret = "the-same-secret-that-is-at-least-32-chars!"
	cfg.JWT.RefreshSecret = "the-same-secret-that-is-at-least-32-chars!"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "must differ") {
		t.Fatalf("expected 'must differ' error, got: %v", err)
	}
}

func TestValidate_MissingDBPassword(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_PASSWORD") {
		t.Fatalf("expected DB_PASSWORD error, got: %v", err)
	}
}

func TestValidate_MissingVLMCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.VLM.BaseURL = ""
	cfg.VLM.APIKey = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "VLM_BASE_URL") || !strings.Contains(err.Error(), "VLM_API_KEY") {
		t.Fatalf("expected VLM credential errors, got: %v", err)
	}
}

func TestValidate_MissingWhisperIsNotFatal(t *testing.T) {
	cfg := validConfig()
	cfg.Whisper.URL = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("whisper should be optional, got: %v", err)
	}
}

func TestValidate_QuotaCapsMustBePositive(t *testing.T) {
	cfg := validConfig()
	cfg.Quota.MaxPerDay = 0
	cfg.Quota.MaxPerMinute = -1
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "QUOTA_MAX_PER_DAY") || !strings.Contains(err.Error(), "QUOTA_MAX_PER_MINUTE") {
		t.Fatalf("expected quota cap errors, got: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.AccessSecret = ""
	cfg.DB.Password = ""
	cfg.Server.Port = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"JWT_ACCESS_SECRET", "DB_PASSWORD", "SERVER_PORT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got: %v", want, err)
		}
	}
}
