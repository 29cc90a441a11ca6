package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlitedriver "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/kirillkom/farmsure/internal/core/domain"
)

type claimRow struct {
	ID        string    `gorm:"primaryKey;type:text"`
	Data      string    `gorm:"type:text;not null"`
	PDFPath   string    `gorm:"column:pdf_path;not null"`
	PDFHash   string    `gorm:"column:pdf_hash;not null"`
	CreatedAt time.Time `gorm:"index;not null"`
}

func (claimRow) TableName() string { return "claims" }

type ClaimRepository struct {
	db *gorm.DB
}

// Open opens (or creates) the database file and migrates the claims table.
func Open(path string) (*gorm.DB, error) {
	if path == "" {
		path = "claims.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlitedriver.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&claimRow{}); err != nil {
		return nil, fmt.Errorf("automigrate claims: %w", err)
	}
	return db, nil
}

func NewClaimRepository(db *gorm.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// Create upserts the record. A second write for the same id replaces the payload
// and keeps the original created_at.
func (r *ClaimRepository) Create(ctx context.Context, rec *domain.ClaimRecord) error {
	row := claimRow{
		ID:        rec.ID,
		Data:      string(rec.Data),
		PDFPath:   rec.DocumentPath,
		PDFHash:   rec.DocumentHash,
		CreatedAt: rec.CreatedAt.UTC(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "pdf_path", "pdf_hash"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert claim: %w", err)
	}
	return nil
}

func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*domain.ClaimRecord, error) {
	var row claimRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.WrapError(domain.ErrClaimNotFound, "get claim", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("select claim: %w", err)
	}
	rec := toRecord(row)
	return &rec, nil
}

func (r *ClaimRepository) GetDocumentPath(ctx context.Context, id string) (string, error) {
	rec, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return rec.DocumentPath, nil
}

func (r *ClaimRepository) List(ctx context.Context, limit int) ([]domain.ClaimRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []claimRow
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	out := make([]domain.ClaimRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRecord(row))
	}
	return out, nil
}

func (r *ClaimRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "ping sqlite", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return domain.WrapError(domain.ErrTemporary, "ping sqlite", err)
	}
	return nil
}

func (r *ClaimRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(row claimRow) domain.ClaimRecord {
	return domain.ClaimRecord{
		ID:           row.ID,
		Data:         []byte(row.Data),
		DocumentPath: row.PDFPath,
		DocumentHash: row.PDFHash,
		CreatedAt:    row.CreatedAt.UTC(),
	}
}
