package repository

import (
	"fmt"

	"gorm.io/gorm"

	"cogniva-docs/internal/model"
)

const maxQARecordLimit = 100

type QARecordRepository struct {
	db *gorm.DB
}

func NewQARecordRepository(db *gorm.DB) *QARecordRepository {
	return &QARecordRepository{db: db}
}

func (r *QARecordRepository) Create(record *model.QARecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("create qa record failed: %w", err)
	}
	return nil
}

// ListRecent returns the newest records first.
func (r *QARecordRepository) ListRecent(limit int) ([]model.QARecord, error) {
	if limit <= 0 || limit > maxQARecordLimit {
		limit = maxQARecordLimit
	}

	var records []model.QARecord
	if err := r.db.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list qa records failed: %w", err)
	}
	return records, nil
}
