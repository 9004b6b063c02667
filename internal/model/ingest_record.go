package model

import (
	"strings"
	"time"
)

type IngestRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BuildID    string    `gorm:"size:36;not null;uniqueIndex" json:"build_id"`
	FileNames  string    `gorm:"type:text;not null" json:"-"` // newline separated
	FileCount  int       `gorm:"not null" json:"file_count"`
	PageCount  int       `gorm:"not null" json:"page_count"`
	ChunkCount int       `gorm:"not null" json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r *IngestRecord) SetFileNames(names []string) {
	r.FileNames = strings.Join(names, "\n")
	r.FileCount = len(names)
}

func (r *IngestRecord) FileNameList() []string {
	if r.FileNames == "" {
		return nil
	}
	return strings.Split(r.FileNames, "\n")
}
