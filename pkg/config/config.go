package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	GigaChat GigaChatConfig
	Speech   SpeechConfig
	Dropbox  DropboxConfig
	Access   AccessConfig
	Upload   UploadConfig
	Logger   LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	InsecureSkipVerify bool
	// ExtractTimeout bounds plain-text extraction calls; VisionTimeout the
	// heavier file upload and vision calls.
	ExtractTimeout time.Duration
	VisionTimeout  time.Duration
}

type SpeechConfig struct {
	APIKey   string
	Endpoint string
	Language string
	Timeout  time.Duration
}

type DropboxConfig struct {
	AppKey       string
	AppSecret    string
	RefreshToken string
	// AccessToken is the legacy static token, honored only when no refresh
	// token is configured.
	AccessToken string

	// Base URLs are overridable so tests can point the archiver at a local
	// server.
	APIBaseURL     string
	ContentBaseURL string
	TokenURL       string

	UploadTimeout time.Duration
}

type AccessConfig struct {
	// AdminChatIDs may always manage the allow-list. AllowedChatIDs, when
	// non-empty, restricts the bot to exactly those chat users.
	AdminChatIDs   []int64
	AllowedChatIDs []int64
}

type UploadConfig struct {
	Dir string
}

func Load() (*Config, error) {
	// Try to load .env file from current directory or project root
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	extractTimeout, _ := strconv.Atoi(getEnv("GIGACHAT_EXTRACT_TIMEOUT", "30"))
	visionTimeout, _ := strconv.Atoi(getEnv("GIGACHAT_VISION_TIMEOUT", "60"))
	speechTimeout, _ := strconv.Atoi(getEnv("SPEECH_TIMEOUT", "60"))
	uploadTimeout, _ := strconv.Atoi(getEnv("DROPBOX_UPLOAD_TIMEOUT", "120"))
	insecureSkipVerify := getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "false") == "true"

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "payme"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			InsecureSkipVerify: insecureSkipVerify,
			ExtractTimeout:     time.Duration(extractTimeout) * time.Second,
			VisionTimeout:      time.Duration(visionTimeout) * time.Second,
		},
		Speech: SpeechConfig{
			APIKey:   getEnv("SPEECH_API_KEY", ""),
			Endpoint: getEnv("SPEECH_ENDPOINT", "https://api.openai.com/v1/audio/transcriptions"),
			Language: getEnv("SPEECH_LANGUAGE", "ru"),
			Timeout:  time.Duration(speechTimeout) * time.Second,
		},
		Dropbox: DropboxConfig{
			AppKey:         getEnv("DROPBOX_APP_KEY", ""),
			AppSecret:      getEnv("DROPBOX_APP_SECRET", ""),
			RefreshToken:   getEnv("DROPBOX_REFRESH_TOKEN", ""),
			AccessToken:    getEnv("DROPBOX_ACCESS_TOKEN", ""),
			APIBaseURL:     getEnv("DROPBOX_API_BASE_URL", "https://api.dropboxapi.com"),
			ContentBaseURL: getEnv("DROPBOX_CONTENT_BASE_URL", "https://content.dropboxapi.com"),
			TokenURL:       getEnv("DROPBOX_TOKEN_URL", "https://api.dropboxapi.com/oauth2/token"),
			UploadTimeout:  time.Duration(uploadTimeout) * time.Second,
		},
		Access: AccessConfig{
			AdminChatIDs:   parseChatIDs(getEnv("ADMIN_CHAT_IDS", "")),
			AllowedChatIDs: parseChatIDs(getEnv("ALLOWED_CHAT_IDS", "")),
		},
		Upload: UploadConfig{
			Dir: getEnv("UPLOAD_DIR", "uploads"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseChatIDs(raw string) []int64 {
	if raw == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
