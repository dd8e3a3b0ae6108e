// Package domain holds the manifest upload audit trail.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Upload records one ingested manifest file and its processing outcome.
type Upload struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	FileName  string            `gorm:"type:text;not null" json:"file_name"`
	Period    string            `gorm:"type:text;not null;index" json:"period"`
	Processed int               `gorm:"not null" json:"processed"`
	Errors    int               `gorm:"not null" json:"errors"`
	Result    datatypes.JSONMap `json:"result,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Upload) TableName() string { return "manifest_uploads" }
