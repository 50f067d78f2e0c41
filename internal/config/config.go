package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Pipeline PipelineConfig
	Poll     PollConfig
	Cache    CacheConfig
	Data     DataConfig
	R2       R2Config
}

type ServerConfig struct {
	Port        string
	Env         string
	LogLevel    string
	LogEncoding string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

// PipelineConfig targets the upstream generation backend.
type PipelineConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// PollConfig holds every polling knob. The upstream imposes no bounds,
// so the failure cap and overall timeout live here.
type PollConfig struct {
	AudioIntervalSeconds   int
	RenderIntervalSeconds  int
	SettleDelaySeconds     int
	MaxConsecutiveFailures int
	TimeoutMinutes         int
}

type CacheConfig struct {
	Capacity int
	Dir      string
}

// DataConfig selects the durable slot backend when Redis is absent.
type DataConfig struct {
	Dir string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("PIPELINE_API_KEY")
	readSecret("JWT_SECRET")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.log_encoding", "LOG_ENCODING")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("pipeline.base_url", "PIPELINE_BASE_URL")
	_ = viper.BindEnv("pipeline.api_key", "PIPELINE_API_KEY")
	_ = viper.BindEnv("pipeline.timeout", "PIPELINE_TIMEOUT")
	_ = viper.BindEnv("poll.audio_interval", "POLL_AUDIO_INTERVAL")
	_ = viper.BindEnv("poll.render_interval", "POLL_RENDER_INTERVAL")
	_ = viper.BindEnv("poll.settle_delay", "POLL_SETTLE_DELAY")
	_ = viper.BindEnv("poll.max_consecutive_failures", "POLL_MAX_CONSECUTIVE_FAILURES")
	_ = viper.BindEnv("poll.timeout_minutes", "POLL_TIMEOUT_MINUTES")
	_ = viper.BindEnv("cache.capacity", "AUDIO_CACHE_CAPACITY")
	_ = viper.BindEnv("cache.dir", "AUDIO_CACHE_DIR")
	_ = viper.BindEnv("data.dir", "DATA_DIR")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("server.log_encoding", "console")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)

	// Pipeline defaults
	viper.SetDefault("pipeline.base_url", "")
	viper.SetDefault("pipeline.timeout", 120)

	// Polling defaults: audio jobs every 5s, render progress every 3s,
	// 3s settle after 100%, 3 tolerated transport failures, 10m cap.
	viper.SetDefault("poll.audio_interval", 5)
	viper.SetDefault("poll.render_interval", 3)
	viper.SetDefault("poll.settle_delay", 3)
	viper.SetDefault("poll.max_consecutive_failures", 3)
	viper.SetDefault("poll.timeout_minutes", 10)

	viper.SetDefault("cache.capacity", 64)
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("data.dir", "./data")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:        viper.GetString("server.port"),
			Env:         viper.GetString("server.env"),
			LogLevel:    viper.GetString("server.log_level"),
			LogEncoding: viper.GetString("server.log_encoding"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		Pipeline: PipelineConfig{
			BaseURL:        viper.GetString("pipeline.base_url"),
			APIKey:         viper.GetString("pipeline.api_key"),
			TimeoutSeconds: viper.GetInt("pipeline.timeout"),
		},
		Poll: PollConfig{
			AudioIntervalSeconds:   viper.GetInt("poll.audio_interval"),
			RenderIntervalSeconds:  viper.GetInt("poll.render_interval"),
			SettleDelaySeconds:     viper.GetInt("poll.settle_delay"),
			MaxConsecutiveFailures: viper.GetInt("poll.max_consecutive_failures"),
			TimeoutMinutes:         viper.GetInt("poll.timeout_minutes"),
		},
		Cache: CacheConfig{
			Capacity: viper.GetInt("cache.capacity"),
			Dir:      viper.GetString("cache.dir"),
		},
		Data: DataConfig{
			Dir: viper.GetString("data.dir"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
	}

	return cfg, nil
}
