package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string
	DBPath     string

	AssetBackend   string
	AssetLocalPath string
	AssetPublicURL string
	S3             S3Config

	SessionSecret string
	SessionTTL    time.Duration

	LogLevel  string
	LogFile   string
	LogFormat string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// Load reads the environment, after filling in unset keys from a .env file
// in the working directory when one exists.
func Load() *Config {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. Variables already present in
// the environment win over the file.
func LoadFile(path string) *Config {
	_ = godotenv.Load(path)

	return &Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		DBPath:         getEnv("DB_PATH", "/data/homealarm.db"),
		AssetBackend:   getEnv("ASSET_BACKEND", "local"),
		AssetLocalPath: getEnv("ASSET_LOCAL_PATH", "/data/assets"),
		AssetPublicURL: getEnv("ASSET_PUBLIC_URL", ""),
		S3: S3Config{
			Bucket:          getEnv("ASSET_S3_BUCKET", ""),
			Region:          getEnv("ASSET_S3_REGION", "us-east-1"),
			Endpoint:        getEnv("ASSET_S3_ENDPOINT", ""),
			PathStyle:       getBool("ASSET_S3_PATH_STYLE", false),
			AccessKeyID:     getEnv("ASSET_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("ASSET_S3_SECRET_ACCESS_KEY", ""),
		},
		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    getDuration("SESSION_TTL", 24*time.Hour),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return v
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
