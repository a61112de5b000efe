package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"ecrwatch/internal/audit"
	"ecrwatch/internal/config"
	"ecrwatch/internal/logger"
)

type DatabaseConnector struct {
	Config *config.Config
	Logger logger.Logger
}

func NewDatabaseConnector(cfg *config.Config, log logger.Logger) *DatabaseConnector {
	return &DatabaseConnector{
		Config: cfg,
		Logger: log,
	}
}

// InitRedis connects to Redis. It returns nil when no host is configured.
func (dc *DatabaseConnector) InitRedis(ctx context.Context) (*redis.Client, error) {
	if dc.Config.Database.Redis.Host == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", dc.Config.Database.Redis.Host, dc.Config.Database.Redis.Port),
		Password: dc.Config.Database.Redis.Password,
		DB:       dc.Config.Database.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	dc.Logger.Info("Redis connected successfully")
	return rdb, nil
}

// InitPostgreSQL connects to Postgres and applies the audit migrations when
// database.run_migrations is set. It returns nil when no host is configured.
func (dc *DatabaseConnector) InitPostgreSQL(ctx context.Context) (*sql.DB, error) {
	if dc.Config.Database.Postgres.Host == "" {
		return nil, nil
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		dc.Config.Database.Postgres.User,
		dc.Config.Database.Postgres.Password,
		dc.Config.Database.Postgres.Host,
		dc.Config.Database.Postgres.Port,
		dc.Config.Database.Postgres.DBName,
		dc.Config.Database.Postgres.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dc.Config.Database.RunMigrations {
		if err := audit.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
		dc.Logger.Info("PostgreSQL migrations applied")
	}

	dc.Logger.Info("PostgreSQL connected successfully")
	return db, nil
}

func (dc *DatabaseConnector) ShutdownDatabases(redis *redis.Client, postgres *sql.DB) []error {
	var errs []error

	if redis != nil {
		if err := redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}

	if postgres != nil {
		if err := postgres.Close(); err != nil {
			errs = append(errs, fmt.Errorf("postgres close error: %w", err))
		}
	}

	return errs
}
