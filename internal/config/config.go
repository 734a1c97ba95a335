package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Skotchmaster/session_guard/internal/models"
	pkgdb "github.com/Skotchmaster/session_guard/pkg/db"
)

type Config struct {
	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	KAFKA_ADDRESS string

	JWT_SECRET         string
	REFRESH_SECRET     string
	FINGERPRINT_SECRET string

	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RotationGrace time.Duration

	LOG_LEVEL string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		DB_HOST:            os.Getenv("DB_HOST"),
		DB_PORT:            os.Getenv("DB_PORT"),
		DB_USER:            os.Getenv("DB_USER"),
		DB_PASSWORD:        os.Getenv("DB_PASSWORD"),
		DB_NAME:            os.Getenv("DB_NAME"),
		ES_URL:             os.Getenv("ES_URL"),
		ES_USER:            os.Getenv("ES_USER"),
		ES_PASSWORD:        os.Getenv("ES_PASSWORD"),
		KAFKA_ADDRESS:      os.Getenv("KAFKA_ADDRESS"),
		JWT_SECRET:         os.Getenv("JWT_SECRET"),
		REFRESH_SECRET:     os.Getenv("REFRESH_SECRET"),
		FINGERPRINT_SECRET: os.Getenv("FINGERPRINT_SECRET"),
		AccessTTL:          envDuration("ACCESS_TTL", 5*time.Minute),
		RefreshTTL:         envDuration("REFRESH_TTL", 15*24*time.Hour),
		RotationGrace:      envDuration("ROTATION_GRACE", 10*time.Second),
		LOG_LEVEL:          os.Getenv("LOG_LEVEL"),
	}

	// protocol ordering: grace << access lifetime << refresh lifetime
	if config.RotationGrace >= config.AccessTTL || config.AccessTTL >= config.RefreshTTL {
		return nil, fmt.Errorf("lifetime ordering violated: grace=%s access=%s refresh=%s",
			config.RotationGrace, config.AccessTTL, config.RefreshTTL)
	}

	return config, nil
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Notice: invalid %s=%q, using default %s", key, v, def)
		return def
	}
	return d
}

func InitDB(ctx context.Context) (*gorm.DB, error) {
	configuration, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		configuration.DB_USER, configuration.DB_PASSWORD,
		configuration.DB_HOST, configuration.DB_PORT, configuration.DB_NAME,
	)
	db, err := pkgdb.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to DB: %w", err)
	}
	if err := db.AutoMigrate(
		&models.Principal{},
		&models.RefreshToken{},
		&models.DeviceTrust{},
		&models.SecurityAlert{},
		&models.LoginEvent{},
	); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}
