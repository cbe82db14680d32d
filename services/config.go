package services

import (
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	AI        AIConfig
	Speech    SpeechConfig
	JWT       JWTConfig
	WebSocket WebSocketConfig
	Artifacts ArtifactConfig
	Storage   StorageConfig
	Interview InterviewConfig
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level string
}

type DatabaseConfig struct {
	URL          string
	Seed         bool
	LogLevel     string
	MaxIdleConns int
	MaxOpenConns int
}

// AIConfig selects the text generation backend. Provider is "gemini" or "openai".
type AIConfig struct {
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
}

// SpeechConfig covers both directions of the voice channel. TTSProvider is
// "elevenlabs" or "openai"; transcription always uses Whisper.
type SpeechConfig struct {
	TTSProvider        string
	ElevenLabsKey      string
	ElevenLabsModel    string
	VoiceGender        string
	CacheDir           string
	TranscriptionModel string
	Language           string
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	SecureCookies bool
}

type WebSocketConfig struct {
	AllowedOrigins string
	ReadLimit      int64
	AnswerTimeout  time.Duration
}

type ArtifactConfig struct {
	Dir           string
	GracePeriod   time.Duration
	SweepSchedule string
}

// StorageConfig points at the S3 compatible bucket for interview recordings.
// Recording upload is disabled when Endpoint is empty.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

type InterviewConfig struct {
	MaxQuestions      int
	MaxTelemetryBytes int64
}

// LoadConfig loads configuration from environment variables and config files
func LoadConfig() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.shutdown_timeout", "15s")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("websocket.allowed_origins", "")
	viper.SetDefault("websocket.read_limit", 10*1024*1024)
	viper.SetDefault("websocket.answer_timeout", "3m")
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("gemini.model", "gemini-2.5-flash")
	viper.SetDefault("openai.api_key", "")
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("speech.tts_provider", "elevenlabs")
	viper.SetDefault("elevenlabs.api_key", "")
	viper.SetDefault("elevenlabs.model", "eleven_turbo_v2")
	viper.SetDefault("speech.voice_gender", "")
	viper.SetDefault("speech.cache_dir", "./data/tts-cache")
	viper.SetDefault("speech.transcription_model", "whisper-1")
	viper.SetDefault("speech.language", "")
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("jwt.access_expiry", "2h")
	viper.SetDefault("jwt.secure_cookies", "false")
	viper.SetDefault("database.url", "")
	viper.SetDefault("database.seed", "false")
	viper.SetDefault("database.log_level", "silent")
	viper.SetDefault("database.max_idle_conns", "10")
	viper.SetDefault("database.max_open_conns", "100")
	viper.SetDefault("artifacts.dir", "./data/answers")
	viper.SetDefault("artifacts.grace_period", "5m")
	viper.SetDefault("artifacts.sweep_schedule", "@every 10m")
	viper.SetDefault("storage.endpoint", "")
	viper.SetDefault("storage.bucket", "interview-recordings")
	viper.SetDefault("storage.use_ssl", "true")
	viper.SetDefault("interview.max_questions", "5")
	viper.SetDefault("interview.max_telemetry_bytes", "67108864")

	// Map environment variables to config keys
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.shutdown_timeout", "SERVER_SHUTDOWN_TIMEOUT")
	viper.BindEnv("log.level", "LOG_LEVEL")
	viper.BindEnv("websocket.allowed_origins", "WEBSOCKET_ALLOWED_ORIGINS")
	viper.BindEnv("websocket.read_limit", "WEBSOCKET_READ_LIMIT")
	viper.BindEnv("websocket.answer_timeout", "WEBSOCKET_ANSWER_TIMEOUT")
	viper.BindEnv("ai.provider", "AI_PROVIDER")
	viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	viper.BindEnv("gemini.model", "GEMINI_MODEL")
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("openai.model", "OPENAI_MODEL")
	viper.BindEnv("speech.tts_provider", "TTS_PROVIDER")
	viper.BindEnv("elevenlabs.api_key", "ELEVENLABS_API_KEY")
	viper.BindEnv("elevenlabs.model", "ELEVENLABS_MODEL")
	viper.BindEnv("speech.voice_gender", "VOICE_GENDER")
	viper.BindEnv("speech.cache_dir", "TTS_CACHE_DIR")
	viper.BindEnv("speech.transcription_model", "TRANSCRIPTION_MODEL")
	viper.BindEnv("speech.language", "TRANSCRIPTION_LANGUAGE")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("jwt.access_expiry", "JWT_ACCESS_EXPIRY")
	viper.BindEnv("jwt.secure_cookies", "JWT_SECURE_COOKIES")
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("database.seed", "DATABASE_SEED")
	viper.BindEnv("database.log_level", "DATABASE_LOG_LEVEL")
	viper.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")
	viper.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")
	viper.BindEnv("artifacts.dir", "ARTIFACTS_DIR")
	viper.BindEnv("artifacts.grace_period", "ARTIFACTS_GRACE_PERIOD")
	viper.BindEnv("artifacts.sweep_schedule", "ARTIFACTS_SWEEP_SCHEDULE")
	viper.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	viper.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	viper.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	viper.BindEnv("storage.bucket", "STORAGE_BUCKET")
	viper.BindEnv("storage.use_ssl", "STORAGE_USE_SSL")
	viper.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	viper.BindEnv("interview.max_questions", "INTERVIEW_MAX_QUESTIONS")
	viper.BindEnv("interview.max_telemetry_bytes", "INTERVIEW_MAX_TELEMETRY_BYTES")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("Config file not found, using defaults and environment variables")
		} else {
			slog.Error("Error reading config file", "error", err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:            viper.GetString("server.port"),
			ShutdownTimeout: viper.GetDuration("server.shutdown_timeout"),
		},
		Log: LogConfig{
			Level: viper.GetString("log.level"),
		},
		Database: DatabaseConfig{
			URL:          viper.GetString("database.url"),
			Seed:         viper.GetBool("database.seed"),
			LogLevel:     viper.GetString("database.log_level"),
			MaxIdleConns: viper.GetInt("database.max_idle_conns"),
			MaxOpenConns: viper.GetInt("database.max_open_conns"),
		},
		AI: AIConfig{
			Provider:     viper.GetString("ai.provider"),
			GeminiAPIKey: viper.GetString("gemini.api_key"),
			GeminiModel:  viper.GetString("gemini.model"),
			OpenAIAPIKey: viper.GetString("openai.api_key"),
			OpenAIModel:  viper.GetString("openai.model"),
		},
		Speech: SpeechConfig{
			TTSProvider:        viper.GetString("speech.tts_provider"),
			ElevenLabsKey:      viper.GetString("elevenlabs.api_key"),
			ElevenLabsModel:    viper.GetString("elevenlabs.model"),
			VoiceGender:        viper.GetString("speech.voice_gender"),
			CacheDir:           viper.GetString("speech.cache_dir"),
			TranscriptionModel: viper.GetString("speech.transcription_model"),
			Language:           viper.GetString("speech.language"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("jwt.secret"),
			AccessExpiry:  viper.GetDuration("jwt.access_expiry"),
			SecureCookies: viper.GetBool("jwt.secure_cookies"),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins: viper.GetString("websocket.allowed_origins"),
			ReadLimit:      viper.GetInt64("websocket.read_limit"),
			AnswerTimeout:  viper.GetDuration("websocket.answer_timeout"),
		},
		Artifacts: ArtifactConfig{
			Dir:           viper.GetString("artifacts.dir"),
			GracePeriod:   viper.GetDuration("artifacts.grace_period"),
			SweepSchedule: viper.GetString("artifacts.sweep_schedule"),
		},
		Storage: StorageConfig{
			Endpoint:  viper.GetString("storage.endpoint"),
			AccessKey: viper.GetString("storage.access_key"),
			SecretKey: viper.GetString("storage.secret_key"),
			Bucket:    viper.GetString("storage.bucket"),
			UseSSL:    viper.GetBool("storage.use_ssl"),
			PublicURL: viper.GetString("storage.public_url"),
		},
		Interview: InterviewConfig{
			MaxQuestions:      viper.GetInt("interview.max_questions"),
			MaxTelemetryBytes: viper.GetInt64("interview.max_telemetry_bytes"),
		},
	}
}

// ParseLogLevel maps the configured level onto slog, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
