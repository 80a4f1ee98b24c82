package model

import "time"

// File is the stored upload a share link points at. Content holds the base64 payload.
type File struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `json:"userId" gorm:"index;not null"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	Type      string    `json:"type" gorm:"size:128"`
	Size      int64     `json:"size" gorm:"not null;default:0"`
	Content   string    `json:"content" gorm:"type:text"`
	IsShared  bool      `json:"isShared" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

func (File) TableName() string {
	return "files"
}
