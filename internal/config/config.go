package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string
	// PublicHost is the externally reachable host Twilio calls back into.
	PublicHost string

	AssemblyAIKey   string
	CerebrasKey     string
	CerebrasModelID string
	DeepgramKey     string
	DeepgramVoice   string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	SupabaseURL            string
	SupabaseServiceRoleKey string
	SupabaseBucket         string
	// RecordsDir is the local fallback when Supabase is not configured.
	RecordsDir string

	ValidationRulesPath string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	NotifyEmail  string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}
	publicHost := os.Getenv("PUBLIC_HOST")
	if publicHost == "" {
		log.Println("Warning: PUBLIC_HOST not set - Twilio webhooks and media streams will not reach this server")
	}

	assemblyAIKey := os.Getenv("ASSEMBLYAI_API_KEY")
	if assemblyAIKey == "" {
		log.Println("Warning: ASSEMBLYAI_API_KEY not set - transcription will not work")
	}

	cerebrasKey := os.Getenv("CEREBRAS_API_KEY")
	cerebrasModel := os.Getenv("CEREBRAS_MODEL_ID")
	if cerebrasModel == "" {
		cerebrasModel = "gpt-oss-120b"
	}
	if cerebrasKey == "" {
		log.Println("Warning: CEREBRAS_API_KEY not set - generation and extraction will fall back to patterns only")
	}

	deepgramKey := os.Getenv("DEEPGRAM_API_KEY")
	if deepgramKey == "" {
		log.Println("Warning: DEEPGRAM_API_KEY not set - synthesis will not work")
	}
	deepgramVoice := os.Getenv("DEEPGRAM_VOICE")
	if deepgramVoice == "" {
		deepgramVoice = "aura-2-thalia-en"
	}

	twilioSID := os.Getenv("TWILIO_ACCOUNT_SID")
	twilioToken := os.Getenv("TWILIO_AUTH_TOKEN")
	twilioFrom := os.Getenv("TWILIO_FROM_NUMBER")
	if twilioSID == "" || twilioToken == "" {
		log.Println("Warning: Twilio credentials not set - outbound dialing disabled")
	}

	recordsDir := os.Getenv("RECORDS_DIR")
	if recordsDir == "" {
		recordsDir = "call_records"
	}

	smtpPort := 587
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			smtpPort = n
		}
	}

	log.Printf("config: HTTP_ADDRESS=%s PUBLIC_HOST=%s", addr, publicHost)
	return Config{
		HTTPAddress:            addr,
		PublicHost:             publicHost,
		AssemblyAIKey:          assemblyAIKey,
		CerebrasKey:            cerebrasKey,
		CerebrasModelID:        cerebrasModel,
		DeepgramKey:            deepgramKey,
		DeepgramVoice:          deepgramVoice,
		TwilioAccountSID:       twilioSID,
		TwilioAuthToken:        twilioToken,
		TwilioFromNumber:       twilioFrom,
		SupabaseURL:            os.Getenv("SUPABASE_URL"),
		SupabaseServiceRoleKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:         getEnv("SUPABASE_BUCKET", "call-records"),
		RecordsDir:             recordsDir,
		ValidationRulesPath:    os.Getenv("VALIDATION_RULES_PATH"),
		SMTPHost:               os.Getenv("SMTP_SERVER"),
		SMTPPort:               smtpPort,
		SMTPUsername:           os.Getenv("SMTP_USERNAME"),
		SMTPPassword:           os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:               getEnv("FROM_EMAIL", "noreply@priorauth.local"),
		NotifyEmail:            os.Getenv("NOTIFY_EMAIL"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
