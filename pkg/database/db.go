package database

import (
	"fmt"

	"anoa.com/shuttleapi/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Config struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
	// URL, when set, is used verbatim instead of the discrete fields.
	URL   string
	Debug bool
}

func (c Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, sslMode,
	)
}

// Connect opens a PostgreSQL connection pool.
func Connect(cfg Config) (*gorm.DB, error) {
	level := gormlogger.Warn
	if cfg.Debug {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         newGormLogger(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	logger.Info().Str("host", cfg.Host).Str("database", cfg.Name).Msg("connected to postgres")
	return db, nil
}
