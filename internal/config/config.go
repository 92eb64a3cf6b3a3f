package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool

	// HubSpot form capture
	HubSpotPortalID      string
	HubSpotFormID        string
	HubSpotMeetingFormID string
	HubSpotDemoFormID    string
	HubSpotContactFormID string
	HubSpotBaseURL       string
	HubSpotTimeout       time.Duration

	// Microsoft Graph (OAuth client credentials) mail channel
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
	GraphSenderEmail  string
	GraphBaseURL      string

	// SMTP mail channel
	SMTPEnabled   bool
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	SMTPFromEmail string

	// SendGrid Email Configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// AWS SES mail channel
	SESEnabled          bool
	SESFromEmail        string
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Notification routing
	NotifyToEmail  string
	NotifyFromName string
	NotifyTimeout  time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),

		HubSpotPortalID:      getEnv("HUBSPOT_PORTAL_ID", ""),
		HubSpotFormID:        getEnv("HUBSPOT_FORM_ID", ""),
		HubSpotMeetingFormID: getEnv("HUBSPOT_MEETING_FORM_ID", ""),
		HubSpotDemoFormID:    getEnv("HUBSPOT_DEMO_FORM_ID", ""),
		HubSpotContactFormID: getEnv("HUBSPOT_CONTACT_FORM_ID", ""),
		HubSpotBaseURL:       getEnv("HUBSPOT_BASE_URL", ""),
		HubSpotTimeout:       getEnvAsDuration("HUBSPOT_TIMEOUT", 10*time.Second),

		AzureTenantID:     getEnv("AZURE_TENANT_ID", ""),
		AzureClientID:     getEnv("AZURE_CLIENT_ID", ""),
		AzureClientSecret: getEnv("AZURE_CLIENT_SECRET", ""),
		GraphSenderEmail:  getEnv("GRAPH_SENDER_EMAIL", ""),
		GraphBaseURL:      getEnv("GRAPH_BASE_URL", ""),

		SMTPEnabled:   getEnvAsBool("SMTP_ENABLED", false),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnvAsInt("SMTP_PORT", 0),
		SMTPUser:      getEnv("SMTP_USER", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SMTPFromEmail: getEnv("SMTP_FROM_EMAIL", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", ""),

		SESEnabled:          getEnvAsBool("SES_ENABLED", false),
		SESFromEmail:        getEnv("SES_FROM_EMAIL", ""),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		NotifyToEmail:  getEnv("NOTIFY_TO_EMAIL", "hello@recognize.example"),
		NotifyFromName: getEnv("NOTIFY_FROM_NAME", "Lead Relay"),
		NotifyTimeout:  getEnvAsDuration("NOTIFY_TIMEOUT", 20*time.Second),
	}
}

// HubSpotFormIDs returns per-form overrides keyed by form name.
func (c *Config) HubSpotFormIDs() map[string]string {
	ids := map[string]string{}
	for name, id := range map[string]string{
		"meeting": c.HubSpotMeetingFormID,
		"demo":    c.HubSpotDemoFormID,
		"contact": c.HubSpotContactFormID,
	} {
		if strings.TrimSpace(id) != "" {
			ids[name] = id
		}
	}
	return ids
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
