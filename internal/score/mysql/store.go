package mysql

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/victornm/tables/internal/domain"
)

// Username uses a binary collation: the default one of MySQL 8 ignores case.
type scoreRow struct {
	ID         uint      `gorm:"primaryKey"`
	Username   string    `gorm:"type:varchar(100) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin;not null;index"`
	TableLabel string    `gorm:"size:32;not null"`
	DurationMs int64     `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (scoreRow) TableName() string { return "scores" }

// Store keeps score records in MySQL through gorm.
type Store struct {
	db *gorm.DB
}

// Open connects to dsn and migrates the scores table.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}

	if err := db.AutoMigrate(&scoreRow{}); err != nil {
		return nil, fmt.Errorf("mysql: migrate: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func (s *Store) LoadAll(ctx context.Context) ([]domain.ScoreRecord, error) {
	var rows []scoreRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	return toRecords(rows), nil
}

func (s *Store) LoadForUser(ctx context.Context, username string) ([]domain.ScoreRecord, error) {
	var rows []scoreRow
	if err := s.db.WithContext(ctx).Where("username = ?", username).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	return toRecords(rows), nil
}

func (s *Store) Append(ctx context.Context, r domain.ScoreRecord) error {
	return s.db.WithContext(ctx).Create(&scoreRow{
		Username:   r.Username,
		TableLabel: r.TableLabel,
		DurationMs: r.DurationMs,
		CreatedAt:  r.Timestamp,
	}).Error
}

func (s *Store) Clear(ctx context.Context, username string) error {
	db := s.db.WithContext(ctx)
	if username == "" {
		return db.Where("1 = 1").Delete(&scoreRow{}).Error
	}

	return db.Where("username = ?", username).Delete(&scoreRow{}).Error
}

func toRecords(rows []scoreRow) []domain.ScoreRecord {
	rs := make([]domain.ScoreRecord, 0, len(rows))
	for _, row := range rows {
		rs = append(rs, domain.ScoreRecord{
			Username:   row.Username,
			TableLabel: row.TableLabel,
			DurationMs: row.DurationMs,
			Timestamp:  row.CreatedAt,
		})
	}
	return rs
}
