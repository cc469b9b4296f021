package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"zion/internal/store"
	"zion/internal/store/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type SqliteJournal struct {
	db *gorm.DB
}

var _ store.Journal = (*SqliteJournal)(nil)

func NewSqliteJournal(path string) (*SqliteJournal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return NewSqliteJournalFromDB(db)
}

func NewSqliteJournalFromDB(db *gorm.DB) (*SqliteJournal, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db 不能为空")
	}
	if err := db.AutoMigrate(&model.CycleRecord{}, &model.OrderRecord{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &SqliteJournal{db: db}, nil
}

func (s *SqliteJournal) SaveCycle(ctx context.Context, rec *model.CycleRecord) error {
	if rec == nil {
		return fmt.Errorf("cycle record 不能为空")
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *SqliteJournal) SaveOrder(ctx context.Context, rec *model.OrderRecord) error {
	if rec == nil {
		return fmt.Errorf("order record 不能为空")
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *SqliteJournal) RecentCycles(ctx context.Context, limit int) ([]model.CycleRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []model.CycleRecord
	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (s *SqliteJournal) CycleByID(ctx context.Context, cycleID string) (*model.CycleRecord, error) {
	var rec model.CycleRecord
	err := s.db.WithContext(ctx).Where("cycle_id = ?", cycleID).First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (s *SqliteJournal) OrdersByCycle(ctx context.Context, cycleID string) ([]model.OrderRecord, error) {
	var out []model.OrderRecord
	err := s.db.WithContext(ctx).
		Where("cycle_id = ?", cycleID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (s *SqliteJournal) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
