package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	AWS       AWSConfig
	OpenAI    OpenAIConfig
	Recording RecordingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// RedisConfig holds Redis connection settings. Redis backs the meeting
// store, the pipeline job queue and the progress pub/sub channel.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AWSConfig holds AWS credentials and the S3 bucket for uploaded audio.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	AudioBucket          string
	PresignExpireMinutes int
}

// OpenAIConfig holds the OpenAI API settings for transcription, analysis,
// question answering and quiz generation.
type OpenAIConfig struct {
	APIKey          string
	BaseURL         string // empty = https://api.openai.com
	ChatModel       string
	TranscribeModel string
	Language        string // transcription language hint
}

// RecordingConfig holds ffmpeg capture settings for server-side recording.
type RecordingConfig struct {
	OutputDir    string // directory for temp capture files; empty = os.TempDir()
	InputFormat  string // ffmpeg input format, e.g. avfoundation, alsa, pulse
	MicDevice    string // mic input device for the chosen format
	SystemDevice string // system-audio loopback device; empty disables mixing
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "60"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "120"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			AudioBucket:          getEnv("AWS_S3_AUDIO_BUCKET", "meetscribe-audio"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		OpenAI: OpenAIConfig{
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			BaseURL:         getEnv("OPENAI_BASE_URL", ""),
			ChatModel:       getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			TranscribeModel: getEnv("OPENAI_TRANSCRIBE_MODEL", "whisper-1"),
			Language:        getEnv("TRANSCRIBE_LANGUAGE", "en"),
		},
		Recording: RecordingConfig{
			OutputDir:    getEnv("RECORDING_OUTPUT_DIR", ""),
			InputFormat:  getEnv("RECORDING_INPUT_FORMAT", defaultInputFormat()),
			MicDevice:    getEnv("RECORDING_MIC_DEVICE", defaultMicDevice()),
			SystemDevice: getEnv("RECORDING_SYSTEM_DEVICE", ""),
		},
	}
	return cfg, nil
}

func defaultInputFormat() string {
	if fileExists("/proc/asound") {
		return "pulse"
	}
	return "avfoundation"
}

func defaultMicDevice() string {
	if fileExists("/proc/asound") {
		return "default"
	}
	return ":default"
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
