package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	// DefaultVoice is the realtime voice used for every call.
	DefaultVoice = "alloy"

	// DefaultAudioCodec is the codec Twilio media streams carry in both directions.
	DefaultAudioCodec = "g711_ulaw"

	// DefaultTemperature is the sampling temperature for realtime responses.
	DefaultTemperature = 0.8

	// DefaultTranscriptionModel transcribes caller audio for the session transcript.
	DefaultTranscriptionModel = "whisper-1"

	// DefaultWebhookTimeout bounds each automation webhook call.
	DefaultWebhookTimeout = 15 * time.Second

	// DefaultConnectionTimeout bounds the realtime connection handshake.
	DefaultConnectionTimeout = 30 * time.Second
)

// GatewayConfig holds the cold-call gateway configuration.
type GatewayConfig struct {
	Port       string
	PublicHost string // hostname Twilio uses to reach the media-stream endpoint

	// Automation webhook (single fixed endpoint, routes "1"-"4")
	AutomationWebhookURL string
	// Status relay webhook for Twilio call-status callbacks
	StatusWebhookURL string

	// OpenAI realtime configuration
	OpenAIAPIKey      string
	OpenAIRealtimeURL string
	OpenAIModel       string
	Voice             string

	// Twilio configuration (outbound dialing)
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioFromNumber  string
	DialsPerMinute    int
	StatusCallbackURL string

	// Instance identifier for multi-pod session presence
	InstanceID string

	EnableCORS bool
}

// LoadGatewayConfig loads gateway configuration from environment variables.
// .env loading for local development happens in main via godotenv.
func LoadGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		Port:       getEnv("PORT", "5050"),
		PublicHost: getEnv("PUBLIC_HOST", "localhost:5050"),

		AutomationWebhookURL: getEnv("AUTOMATION_WEBHOOK_URL", ""),
		StatusWebhookURL:     getEnv("STATUS_WEBHOOK_URL", ""),

		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIRealtimeURL: getEnv("OPENAI_REALTIME_URL", "wss://api.openai.com/v1/realtime"),
		OpenAIModel:       getEnv("OPENAI_REALTIME_MODEL", "gpt-4o-realtime-preview-2024-10-01"),
		Voice:             getEnv("OPENAI_VOICE", DefaultVoice),

		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:  getEnv("TWILIO_PHONE_NUMBER", ""),
		DialsPerMinute:    getEnvAsInt("DIALS_PER_MINUTE", 10),
		StatusCallbackURL: getEnv("STATUS_CALLBACK_URL", ""),

		InstanceID: getInstanceID(),

		EnableCORS: getEnvAsBool("ENABLE_CORS", true),
	}
}

// getInstanceID generates a unique identifier for this service instance.
// It uses the system hostname (pod name in K8s) and falls back to a
// timestamp-based ID.
func getInstanceID() string {
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return fmt.Sprintf("coldcall-gateway-%d", time.Now().UnixNano())
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean with a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
