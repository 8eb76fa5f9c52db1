package config

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/reelgen")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("VIDEO_API_KEY", "video-key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.VideoModel != "veo3-fast" || cfg.VideoFramesModel != "veo3-fast-frames" {
		t.Errorf("video models = %q / %q", cfg.VideoModel, cfg.VideoFramesModel)
	}
	if cfg.VideoPollIntervalSecs != 5 || cfg.VideoMaxWaitSecs != 900 {
		t.Errorf("poll timings = %d / %d", cfg.VideoPollIntervalSecs, cfg.VideoMaxWaitSecs)
	}
	if cfg.MaxUploadSizeMB != 50 {
		t.Errorf("MaxUploadSizeMB = %d", cfg.MaxUploadSizeMB)
	}
	if cfg.WorkerCount != 5 {
		t.Errorf("WorkerCount = %d", cfg.WorkerCount)
	}
	if cfg.GenerationRateLimit != 30 || cfg.GenerationRateWindowSecs != 60 {
		t.Errorf("generation rate limit = %d / %d", cfg.GenerationRateLimit, cfg.GenerationRateWindowSecs)
	}
	if cfg.GoogleTTSAPIKey != "" {
		t.Errorf("TTS key should default to empty, got %q", cfg.GoogleTTSAPIKey)
	}
	if cfg.IsProduction() {
		t.Error("default env must not be production")
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("ENV", "production")
	t.Setenv("VIDEO_MAX_WAIT_SECONDS", "120")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9999" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Error("ENV=production not honored")
	}
	if cfg.VideoMaxWaitSecs != 120 {
		t.Errorf("VideoMaxWaitSecs = %d", cfg.VideoMaxWaitSecs)
	}
	if !cfg.MinioUseSSL {
		t.Error("MINIO_USE_SSL=true not honored")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("VIDEO_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Error("Load must fail when a required variable is unset")
	}
}

func TestGetEnvAsIntOrDefault_InvalidValue(t *testing.T) {
	t.Setenv("SOME_COUNT", "not-a-number")
	if got := getEnvAsIntOrDefault("SOME_COUNT", 7); got != 7 {
		t.Errorf("got %d, want the default on a parse failure", got)
	}
}
