package model

import (
	"time"
)

// Job represents one batch of files under test. Jobs are never deleted,
// only archived.
type Job struct {
	ID             string    `json:"ID" gorm:"primaryKey;size:64"`
	CollectionRef  string    `json:"CollectionRef"`
	Status         JobStatus `json:"Status" gorm:"size:20;default:'pending'"`
	TotalFiles     int       `json:"TotalFiles"`
	ProcessedFiles int       `json:"ProcessedFiles"`
	Archived       bool      `json:"Archived"`
	CreatedAt      time.Time `json:"CreatedAt" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"UpdatedAt" gorm:"autoUpdateTime"`
	Files          []File    `json:"Files" gorm:"foreignKey:JobID"`
}

// File is one input artifact under test. A File belongs to exactly one
// Job and is immutable once recorded; re-submitting the same physical
// file in another Job produces a distinct row. Hash is kept for dedup
// detection only.
type File struct {
	ID        uint      `json:"ID" gorm:"primaryKey;autoIncrement"`
	JobID     string    `json:"JobID" gorm:"size:64;not null;index"`
	Name      string    `json:"Name" gorm:"not null"`
	Hash      string    `json:"Hash" gorm:"size:64;index"`
	Size      int64     `json:"Size"`
	Type      string    `json:"Type" gorm:"size:100"`
	CreatedAt time.Time `json:"CreatedAt" gorm:"autoCreateTime"`
}
