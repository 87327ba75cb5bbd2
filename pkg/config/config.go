package config

import (
	"fmt"
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"5000"`
	Env      string `env:"ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"postgresql:///warbler"`

	SecretKey     string `env:"SECRET_KEY" envDefault:"it's a secret"`
	JWTSecret     string `env:"JWT_SECRET" envDefault:"supersecretjwtkey"`
	CSRFEnabled   bool   `env:"CSRF_ENABLED" envDefault:"true"`
	SecureCookies bool   `env:"SECURE_COOKIES" envDefault:"false"`

	StaticDir      string `env:"STATIC_DIR" envDefault:"./static"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`

	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"warbler"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	FirebaseCredentialsPath string `env:"FIREBASE_CREDENTIALS_PATH"`

	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET" envDefault:"warbler"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
	MinioPublicURL string `env:"MINIO_PUBLIC_URL"`
}

// Load reads .env (if any) and then the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) MongoEnabled() bool    { return c.MongoURI != "" }
func (c *Config) RedisEnabled() bool    { return c.RedisAddr != "" }
func (c *Config) FirebaseEnabled() bool { return c.FirebaseCredentialsPath != "" }
func (c *Config) MinioEnabled() bool    { return c.MinioEndpoint != "" }
