package config

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/warbler/pkg/zapadapter"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DB holds the database connections. Mongo and Redis are nil unless configured.
type DB struct {
	SQL   *gorm.DB
	Mongo *mongo.Client
	Redis *redis.Client

	logger *zap.SugaredLogger
}

// InitDB opens the relational database and every optional store enabled in cfg
func InitDB(cfg *Config, logger *zap.Logger) (*DB, error) {
	sugar := logger.Sugar()

	sqlDB, err := OpenGorm(cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.DatabaseDriver, err)
	}
	db := &DB{SQL: sqlDB, logger: sugar}
	sugar.Infof("Successfully connected to %s!", cfg.DatabaseDriver)

	if cfg.MongoEnabled() {
		mongoClient, err := initMongo(cfg.MongoURI)
		if err != nil {
			db.CloseDB()
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		db.Mongo = mongoClient
		sugar.Info("Successfully connected to MongoDB!")
	}

	if cfg.RedisEnabled() {
		rdb, err := initRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			db.CloseDB()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		db.Redis = rdb
		sugar.Info("Successfully connected to Redis!")
	}

	return db, nil
}

// OpenGorm opens a gorm connection for driver (postgres, mysql or sqlite) and pings it
func OpenGorm(driver, dsn string, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         zapadapter.NewGormLogger(logger),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

func initMongo(uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary to verify connection
	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

func initRedis(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// CloseDB closes the database connections
func (db *DB) CloseDB() {
	if db.SQL != nil {
		sqlDB, err := db.SQL.DB()
		if err != nil {
			db.logger.Errorf("Error getting SQL DB from GORM: %v", err)
		} else if err := sqlDB.Close(); err != nil {
			db.logger.Errorf("Error closing SQL connection: %v", err)
		} else {
			db.logger.Info("SQL connection closed.")
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			db.logger.Errorf("Error closing MongoDB connection: %v", err)
		} else {
			db.logger.Info("MongoDB connection closed.")
		}
	}

	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			db.logger.Errorf("Error closing Redis connection: %v", err)
		} else {
			db.logger.Info("Redis connection closed.")
		}
	}
}
