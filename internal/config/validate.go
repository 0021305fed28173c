package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// JWT secrets
	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 characters")
	}
	if len(c.JWT.RefreshSecret) < 32 {
		errs = append(errs, "JWT_REFRESH_SECRET must be at least 32 characters")
	}
	if c.JWT.AccessSecret != "" && c.JWT.RefreshSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, "JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Collaborator endpoints: the VLM is mandatory for meal analysis
	if c.VLM.BaseURL == "" {
		errs = append(errs, "VLM_BASE_URL is required")
	}
	if c.VLM.APIKey == "" {
		errs = append(errs, "VLM_API_KEY is required")
	}

	// Whisper is optional (analysis proceeds without a transcript): warn only
	if c.Whisper.URL == "" {
		slog.Warn("WHISPER_API_URL is empty — audio transcription disabled")
	}

	// Quota caps
	if c.Quota.MaxPerDay < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_MAX_PER_DAY must be positive, got %d", c.Quota.MaxPerDay))
	}
	if c.Quota.MaxPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_MAX_PER_MINUTE must be positive, got %d", c.Quota.MaxPerMinute))
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
