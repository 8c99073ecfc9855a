package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is applied to every environment variable the service reads.
const EnvPrefix = "captionly"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Quota         QuotaConfig
	Completion    CompletionConfig
	Mailer        MailerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CAPTIONLY_APP_ENV" required:"true"`
	Port         string `envconfig:"CAPTIONLY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CAPTIONLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CAPTIONLY_LOG_WARN_STACK" default:"false"`
	BaseURL      string `envconfig:"CAPTIONLY_APP_BASE_URL" default:"http://localhost:8080"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN             string        `envconfig:"CAPTIONLY_DB_DSN" required:"true"`
	MaxOpenConns    int           `envconfig:"CAPTIONLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CAPTIONLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CAPTIONLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CAPTIONLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CAPTIONLY_REDIS_URL"`
	Address      string        `envconfig:"CAPTIONLY_REDIS_ADDR"`
	Password     string        `envconfig:"CAPTIONLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"CAPTIONLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CAPTIONLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CAPTIONLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CAPTIONLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CAPTIONLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CAPTIONLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CAPTIONLY_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CAPTIONLY_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CAPTIONLY_JWT_EXPIRATION_MINUTES" default:"30"`
	RefreshTokenTTLMinutes int    `envconfig:"CAPTIONLY_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CAPTIONLY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CAPTIONLY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CAPTIONLY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CAPTIONLY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CAPTIONLY_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"CAPTIONLY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"CAPTIONLY_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"CAPTIONLY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"CAPTIONLY_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"CAPTIONLY_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"CAPTIONLY_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CAPTIONLY_AUTO_MIGRATE" default:"false"`
}

// QuotaConfig drives the daily generation cap.
type QuotaConfig struct {
	DailyCap      int `envconfig:"CAPTIONLY_QUOTA_DAILY_CAP" default:"5"`
	RetentionDays int `envconfig:"CAPTIONLY_QUOTA_RETENTION_DAYS" default:"45"`
}

// CompletionConfig points at the chat-completion provider.
type CompletionConfig struct {
	APIKey  string        `envconfig:"CAPTIONLY_COMPLETION_API_KEY"`
	BaseURL string        `envconfig:"CAPTIONLY_COMPLETION_BASE_URL" default:"https://api.openai.com/v1"`
	Model   string        `envconfig:"CAPTIONLY_COMPLETION_MODEL" default:"gpt-4o"`
	Timeout time.Duration `envconfig:"CAPTIONLY_COMPLETION_TIMEOUT" default:"60s"`
}

type MailerConfig struct {
	Region      string `envconfig:"CAPTIONLY_SES_REGION" default:"us-east-1"`
	FromAddress string `envconfig:"CAPTIONLY_MAIL_FROM" default:"no-reply@captionly.app"`
	Disabled    bool   `envconfig:"CAPTIONLY_MAIL_DISABLED" default:"false"`
}
