package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	NATS     NATSConfig
	MinIO    MinIOConfig
	SMTP     SMTPConfig
	Workflow WorkflowConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	Schema       string
	QueryTimeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int

	RateLimitRequests int
	RateLimitWindow   time.Duration
	ViewDedupTTL      time.Duration
}

type JWTConfig struct {
	Secret       string
	AccessExpiry int // in minutes
}

type NATSConfig struct {
	URL            string // empty disables event publishing
	SubjectPrefix  string
	ConnectTimeout time.Duration
}

type MinIOConfig struct {
	Endpoint  string // empty disables image uploads
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type SMTPConfig struct {
	Host     string // empty logs OTP mails instead of sending them
	Port     int
	Username string
	Password string
	From     string
}

// WorkflowConfig tunes the lifecycle and notification workflow
type WorkflowConfig struct {
	AllowProductReReview   bool
	RequireApprovedProduct bool
	FanOutParallelism      int
	FanOutWait             time.Duration
	DispatchTimeout        time.Duration
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_QUERY_TIMEOUT", 5*time.Second)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 120)
	viper.SetDefault("RATE_LIMIT_WINDOW", time.Minute)
	viper.SetDefault("VIEW_DEDUP_TTL", 10*time.Minute)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 2*24*60)
	viper.SetDefault("NATS_SUBJECT_PREFIX", "zoombid")
	viper.SetDefault("NATS_CONNECT_TIMEOUT", 5*time.Second)
	viper.SetDefault("MINIO_BUCKET", "zoombid")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_FROM", "ZoomBid Support <no-reply@zoombid.local>")
	viper.SetDefault("PRODUCT_ALLOW_REREVIEW", false)
	viper.SetDefault("BID_REQUIRE_APPROVED_PRODUCT", true)
	viper.SetDefault("NOTIFY_FANOUT_PARALLELISM", 8)
	viper.SetDefault("NOTIFY_FANOUT_WAIT", 2*time.Second)
	viper.SetDefault("NOTIFY_DISPATCH_TIMEOUT", 30*time.Second)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			AllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:         viper.GetString("DB_HOST"),
			Port:         viper.GetString("DB_PORT"),
			User:         viper.GetString("DB_USER"),
			Password:     viper.GetString("DB_PASSWORD"),
			Database:     viper.GetString("DB_DATABASE"),
			Schema:       viper.GetString("DB_SCHEMA"),
			QueryTimeout: viper.GetDuration("DB_QUERY_TIMEOUT"),
		},
		Redis: RedisConfig{
			Host:              viper.GetString("REDIS_HOST"),
			Port:              viper.GetString("REDIS_PORT"),
			Password:          viper.GetString("REDIS_PASSWORD"),
			DB:                viper.GetInt("REDIS_DB"),
			RateLimitRequests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			RateLimitWindow:   viper.GetDuration("RATE_LIMIT_WINDOW"),
			ViewDedupTTL:      viper.GetDuration("VIEW_DEDUP_TTL"),
		},
		JWT: JWTConfig{
			Secret:       viper.GetString("JWT_SECRET"),
			AccessExpiry: viper.GetInt("JWT_ACCESS_EXPIRY"),
		},
		NATS: NATSConfig{
			URL:            viper.GetString("NATS_URL"),
			SubjectPrefix:  viper.GetString("NATS_SUBJECT_PREFIX"),
			ConnectTimeout: viper.GetDuration("NATS_CONNECT_TIMEOUT"),
		},
		MinIO: MinIOConfig{
			Endpoint:  viper.GetString("MINIO_ENDPOINT"),
			AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey: viper.GetString("MINIO_SECRET_KEY"),
			Bucket:    viper.GetString("MINIO_BUCKET"),
			UseSSL:    viper.GetBool("MINIO_USE_SSL"),
		},
		SMTP: SMTPConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			Username: viper.GetString("SMTP_USERNAME"),
			Password: viper.GetString("SMTP_PASSWORD"),
			From:     viper.GetString("SMTP_FROM"),
		},
		Workflow: WorkflowConfig{
			AllowProductReReview:   viper.GetBool("PRODUCT_ALLOW_REREVIEW"),
			RequireApprovedProduct: viper.GetBool("BID_REQUIRE_APPROVED_PRODUCT"),
			FanOutParallelism:      viper.GetInt("NOTIFY_FANOUT_PARALLELISM"),
			FanOutWait:             viper.GetDuration("NOTIFY_FANOUT_WAIT"),
			DispatchTimeout:        viper.GetDuration("NOTIFY_DISPATCH_TIMEOUT"),
		},
	}
}

// IsDevelopment reports whether the server runs in the development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}
