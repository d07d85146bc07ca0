package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	MongoURI        string
	MongoDatabase   string
	PostgresConnStr string
	RedisAddr       string
	RedisPassword   string

	NatsURL      string
	NatsEmbedded bool
	NatsStoreDir string

	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	MailFrom string

	ClientURL               string
	FirebaseCredentialsPath string
}

// Load reads the configuration from the environment, after applying any
// .env file in the working directory.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		MongoURI:                getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:           getEnv("MONGO_DATABASE", "gitdev"),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		NatsURL:                 getEnv("NATS_URL", ""),
		NatsEmbedded:            getEnvBool("NATS_EMBEDDED", true),
		NatsStoreDir:            getEnv("NATS_STORE_DIR", "./data/jetstream"),
		JWTAccessSecret:         getEnv("JWT_ACCESS_SECRET", "supersecretjwtkey"),
		JWTRefreshSecret:        getEnv("JWT_REFRESH_SECRET", "supersecretrefreshkey"),
		AccessTokenTTL:          getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:         getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		SMTPHost:                getEnv("SMTP_HOST", "localhost"),
		SMTPPort:                getEnv("SMTP_PORT", "1025"),
		SMTPUser:                getEnv("SMTP_USER", ""),
		SMTPPass:                getEnv("SMTP_PASS", ""),
		MailFrom:                getEnv("MAIL_FROM", "no-reply@gitdev.app"),
		ClientURL:               getEnv("CLIENT_URL", "http://localhost:3000"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
	}
}

// IsProduction reports whether stack traces should be stripped from error bodies.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
