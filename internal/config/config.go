package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// OTP login configuration
	OTP OTPConfig

	// Mail gateway configuration
	Mail MailConfig

	// Workflow policy configuration
	Workflow WorkflowConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// OTPConfig holds OTP login configuration
type OTPConfig struct {
	Length            int
	ExpiryMinutes     int
	MaxAttempts       int
	RateLimit         int
	RateWindowMinutes int
}

// MailConfig holds OTP mail delivery configuration
type MailConfig struct {
	Mode     string // "dev" returns the OTP in the response, "production" sends actual mail
	SMTPHost string
	SMTPPort int
	Username string
	Password string
	From     string
}

// WorkflowConfig holds the visit workflow policy knobs. The designated
// approvers are configuration rather than hard-coded employee records so the
// chain builder survives org changes without a deploy.
type WorkflowConfig struct {
	PlantApproverID        string
	PlantApproverEmail     string
	CellLineApproverID     string
	CellLineApproverEmail  string
	DwellMinutes           int  // minimum minutes between guest check-in and check-out
	AllowEditAfterDecision bool // permit editing requests that are already approved/declined
	AllowZeroApprovers     bool // permit requests whose chain comes out empty
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		OTP: OTPConfig{
			Length:            getEnvAsInt("OTP_LENGTH", 6),
			ExpiryMinutes:     getEnvAsInt("OTP_EXPIRY_MINUTES", 10),
			MaxAttempts:       getEnvAsInt("OTP_MAX_ATTEMPTS", 3),
			RateLimit:         getEnvAsInt("OTP_RATE_LIMIT", 3),
			RateWindowMinutes: getEnvAsInt("OTP_RATE_WINDOW_MINUTES", 10),
		},
		Mail: MailConfig{
			Mode:     getEnv("MAIL_MODE", "dev"), // "dev" or "production"
			SMTPHost: getEnv("MAIL_SMTP_HOST", ""),
			SMTPPort: getEnvAsInt("MAIL_SMTP_PORT", 587),
			Username: getEnv("MAIL_USERNAME", ""),
			Password: getEnv("MAIL_PASSWORD", ""),
			From:     getEnv("MAIL_FROM", "wave@example.com"),
		},
		Workflow: WorkflowConfig{
			PlantApproverID:        getEnv("WORKFLOW_PLANT_APPROVER_ID", ""),
			PlantApproverEmail:     getEnv("WORKFLOW_PLANT_APPROVER_EMAIL", ""),
			CellLineApproverID:     getEnv("WORKFLOW_CELL_LINE_APPROVER_ID", ""),
			CellLineApproverEmail:  getEnv("WORKFLOW_CELL_LINE_APPROVER_EMAIL", ""),
			DwellMinutes:           getEnvAsInt("WORKFLOW_DWELL_MINUTES", 15),
			AllowEditAfterDecision: getEnvAsBool("WORKFLOW_ALLOW_EDIT_AFTER_DECISION", true),
			AllowZeroApprovers:     getEnvAsBool("WORKFLOW_ALLOW_ZERO_APPROVERS", true),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	if c.Workflow.PlantApproverEmail == "" {
		return fmt.Errorf("WORKFLOW_PLANT_APPROVER_EMAIL is required")
	}

	if c.Workflow.CellLineApproverEmail == "" {
		return fmt.Errorf("WORKFLOW_CELL_LINE_APPROVER_EMAIL is required")
	}

	if c.Workflow.DwellMinutes < 0 {
		return fmt.Errorf("WORKFLOW_DWELL_MINUTES must not be negative")
	}

	// Validate mail configuration only in production mode
	if c.Mail.Mode == "production" {
		if c.Mail.SMTPHost == "" {
			return fmt.Errorf("MAIL_SMTP_HOST is required in production mail mode")
		}

		if c.Mail.Username == "" {
			return fmt.Errorf("MAIL_USERNAME is required in production mail mode")
		}

		if c.Mail.Password == "" {
			return fmt.Errorf("MAIL_PASSWORD is required in production mail mode")
		}
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	// Split by comma
	var result []string
	for _, v := range splitString(valueStr, ",") {
		trimmed := trimString(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// Helper to split strings
func splitString(s, sep string) []string {
	var result []string
	current := ""
	for _, char := range s {
		if string(char) == sep {
			result = append(result, current)
			current = ""
		} else {
			current += string(char)
		}
	}
	if current != "" {
		result = append(result, current)
	}
	return result
}

// Helper to trim strings
func trimString(s string) string {
	start := 0
	end := len(s)

	// Trim leading spaces
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}

	// Trim trailing spaces
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}

	return s[start:end]
}
