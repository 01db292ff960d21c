package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"revayat/internal/observability"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Entry is one stored key/value row.
type Entry struct {
	Key       string `gorm:"column:storage_key;primaryKey;size:191"`
	Value     []byte `gorm:"column:value;not null"`
	UpdatedAt time.Time
}

// TableName pins the table name regardless of gorm naming strategy.
func (Entry) TableName() string { return "kv_entries" }

// SQLStore keeps values in a single gorm-managed table.
type SQLStore struct {
	db *gorm.DB
}

// gormLogger forwards gorm diagnostics to slog. Only failed and slow
// statements are reported; missing rows are a normal Get miss.
type gormLogger struct {
	log   *slog.Logger
	level logger.LogLevel
	slow  time.Duration
}

func (l gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	l.level = level
	return l
}

func (l gormLogger) emit(ctx context.Context, min logger.LogLevel, lvl slog.Level, msg string, data []interface{}) {
	if l.level >= min {
		l.log.Log(ctx, lvl, "gorm: "+fmt.Sprintf(msg, data...))
	}
}

func (l gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, logger.Info, slog.LevelInfo, msg, data)
}

func (l gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, logger.Warn, slog.LevelWarn, msg, data)
}

func (l gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, logger.Error, slog.LevelError, msg, data)
}

func (l gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	if !failed && (l.slow == 0 || elapsed <= l.slow || l.level < logger.Warn) {
		return
	}
	stmt, rows := fc()
	attrs := []any{
		slog.String("sql", stmt),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}
	if failed {
		l.log.ErrorContext(ctx, "kv statement failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	l.log.WarnContext(ctx, "kv statement slow", attrs...)
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormLogger{log: observability.Logger, level: logger.Warn, slow: 200 * time.Millisecond},
	}
}

// OpenSQLite opens (or creates) a SQLite database file. Use ":memory:" for
// an ephemeral database.
func OpenSQLite(path string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps :memory: shared.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return NewSQLStore(db)
}

// PostgresDSN builds a libpq connection string.
func PostgresDSN(host, port, user, password, name, sslMode string) string {
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, name, sslMode,
	)
}

// OpenPostgres connects to PostgreSQL with the given DSN.
func OpenPostgres(dsn string) (*SQLStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return NewSQLStore(db)
}

// NewSQLStore migrates the entries table on db and returns the store.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate kv_entries: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry Entry
	err := s.db.WithContext(ctx).Where("storage_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry.Value, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	entry := Entry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("storage_key = ?", key).Delete(&Entry{}).Error
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
