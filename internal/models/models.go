package models

import (
	"time"
)

// Project is a tracked software project. LatestVersion/LatestUpdateTime cache the most
// recent Version and are updated opportunistically by ingestion runs.
type Project struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Icon             string     `gorm:"type:varchar(32);not null;default:''" json:"icon"`
	Name             string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_project_name" json:"name"`
	Slug             string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_project_slug" json:"slug"`
	LatestVersion    string     `gorm:"type:varchar(100);not null;default:''" json:"latest_version"`
	LatestUpdateTime *time.Time `gorm:"type:date" json:"latest_update_time"`
	Describe         string     `gorm:"type:text" json:"describe,omitempty"`
	Summar           string     `gorm:"type:text" json:"summar,omitempty"`
	Author           string     `gorm:"type:varchar(255)" json:"author,omitempty"`
	Type             string     `gorm:"type:varchar(64)" json:"type,omitempty"`
	CreatedAt        time.Time  `json:"-"`
	UpdatedAt        time.Time  `json:"-"`
	Versions         []Version  `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"versions,omitempty"` // Has many relationship
}

// Version is one published release of a project. (ProjectID, Version) is the dedup key.
type Version struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProjectID   uint      `gorm:"not null;uniqueIndex:idx_project_version" json:"project_id"`                    // Foreign key
	Version     string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_project_version" json:"version"` // Canonical "v"-prefixed string
	UpdateTime  time.Time `gorm:"type:date;not null" json:"update_time"`
	Content     string    `gorm:"type:text" json:"content"`
	DownloadURL string    `gorm:"type:text" json:"download_url"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}
