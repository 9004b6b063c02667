package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"cogniva-docs/internal/model"
)

type IngestRecordRepository struct {
	db *gorm.DB
}

func NewIngestRecordRepository(db *gorm.DB) *IngestRecordRepository {
	return &IngestRecordRepository{db: db}
}

func (r *IngestRecordRepository) Create(record *model.IngestRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("create ingest record failed: %w", err)
	}
	return nil
}

// Latest returns the most recent ingest, or nil when none was recorded.
func (r *IngestRecordRepository) Latest() (*model.IngestRecord, error) {
	var record model.IngestRecord
	err := r.db.Order("created_at DESC").Order("id DESC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest ingest record failed: %w", err)
	}
	return &record, nil
}
