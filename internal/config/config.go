// Package config defines the application configuration structures and the
// logic for loading them from the environment and optional config files.
package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue"    validate:"required"`
	Email    EmailConfig    `mapstructure:"email"    validate:"required"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// FrontendURL is the base URL of the web client, used to build links
	// embedded in outgoing emails.
	FrontendURL string `mapstructure:"frontend_url" validate:"required,url"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	BcryptCost           int    `mapstructure:"bcrypt_cost"            validate:"omitempty,gte=4,lte=31"`
}

// LLMConfig contains all settings for the Gemini integration.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`
}

// QueueConfig contains the background job system settings.
//
// Backend selects the queue implementation: "memory" for the in-process
// queue or "redis" for the Redis-backed one.
type QueueConfig struct {
	Backend                string `mapstructure:"backend"                  validate:"required,oneof=memory redis"`
	RedisURL               string `mapstructure:"redis_url"                validate:"required_if=Backend redis"`
	AnalysisConcurrency    int    `mapstructure:"analysis_concurrency"     validate:"required,gt=0"`
	EmailConcurrency       int    `mapstructure:"email_concurrency"        validate:"required,gt=0"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"required,gt=0"`
}

// EmailConfig contains the outgoing email settings.
//
// Provider selects the sender implementation: "ses" for AWS SES or "log"
// for a development sender that only writes messages to the log.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"     validate:"required,oneof=ses log"`
	FromAddress string `mapstructure:"from_address" validate:"required,email"`
	AWSRegion   string `mapstructure:"aws_region"   validate:"required_if=Provider ses"`
}
