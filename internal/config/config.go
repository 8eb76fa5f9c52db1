package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	RedisURL    string
	FrontendURL string

	GeminiAPIKey             string
	GeminiConcurrentRequests int

	VideoAPIKey             string
	VideoAPIBaseURL         string
	VideoModel              string
	VideoFramesModel        string
	VideoPollIntervalSecs   int
	VideoMaxWaitSecs        int
	HTTPTimeoutSecs         int

	GoogleTTSAPIKey string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	StoragePath     string
	MaxUploadSizeMB int

	FFmpegPath  string
	FFprobePath string

	WorkerCount int

	GenerationRateLimit      int
	GenerationRateWindowSecs int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENV", "development"),
		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),

		GeminiConcurrentRequests: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 3),

		VideoAPIBaseURL:       getEnvOrDefault("VIDEO_API_BASE_URL", "https://api.qingyuntop.top"),
		VideoModel:            getEnvOrDefault("VIDEO_MODEL", "veo3-fast"),
		VideoFramesModel:      getEnvOrDefault("VIDEO_FRAMES_MODEL", "veo3-fast-frames"),
		VideoPollIntervalSecs: getEnvAsIntOrDefault("VIDEO_POLL_INTERVAL_SECONDS", 5),
		VideoMaxWaitSecs:      getEnvAsIntOrDefault("VIDEO_MAX_WAIT_SECONDS", 900),
		HTTPTimeoutSecs:       getEnvAsIntOrDefault("HTTP_TIMEOUT_SECONDS", 30),

		MinioEndpoint:  getEnvOrDefault("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnvOrDefault("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnvOrDefault("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getEnvOrDefault("MINIO_BUCKET", "reelgen-media"),
		MinioUseSSL:    getEnvAsBoolOrDefault("MINIO_USE_SSL", false),

		StoragePath:     getEnvOrDefault("STORAGE_PATH", "./temp"),
		MaxUploadSizeMB: getEnvAsIntOrDefault("MAX_UPLOAD_SIZE_MB", 50),

		FFmpegPath:  getEnvOrDefault("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnvOrDefault("FFPROBE_PATH", "ffprobe"),

		WorkerCount: getEnvAsIntOrDefault("WORKER_COUNT", 5),

		GenerationRateLimit:      getEnvAsIntOrDefault("GENERATION_RATE_LIMIT", 30),
		GenerationRateWindowSecs: getEnvAsIntOrDefault("GENERATION_RATE_WINDOW_SECONDS", 60),
	}

	var err error
	if cfg.DatabaseURL, err = mustGetEnv("DATABASE_URL"); err != nil {
		return nil, err
	}
	if cfg.RedisURL, err = mustGetEnv("REDIS_URL"); err != nil {
		return nil, err
	}
	if cfg.GeminiAPIKey, err = mustGetEnv("GEMINI_API_KEY"); err != nil {
		return nil, err
	}
	if cfg.VideoAPIKey, err = mustGetEnv("VIDEO_API_KEY"); err != nil {
		return nil, err
	}

	// TTS is optional; audio synthesis endpoints report an error when unset.
	cfg.GoogleTTSAPIKey = os.Getenv("GOOGLE_TTS_API_KEY")

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func mustGetEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return value, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("invalid value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return parsed
}
