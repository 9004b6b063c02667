package model

import "time"

// QARecord is one answered question, kept for the history endpoint.
type QARecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BuildID   string    `gorm:"size:36;not null;index" json:"build_id"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
