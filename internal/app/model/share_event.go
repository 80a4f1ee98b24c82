package model

import "time"

// ShareEventType enumerates the lifecycle events emitted for share links.
type ShareEventType string

// Accessed is recorded when the shared file is viewed (JSON or page),
// Downloaded when its bytes are fetched.
const (
	ShareEventIssued     ShareEventType = "issued"
	ShareEventAccessed   ShareEventType = "accessed"
	ShareEventDownloaded ShareEventType = "downloaded"
	ShareEventRevoked    ShareEventType = "revoked"
)

// ShareEvent is an audit record of something that happened to a share link.
type ShareEvent struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	Type      ShareEventType `json:"type" gorm:"size:16;not null;index"`
	LinkID    uint64         `json:"link_id" gorm:"index"`
	FileID    uint64         `json:"file_id" gorm:"index"`
	UserID    uint64         `json:"user_id"`
	IP        string         `json:"ip" gorm:"size:64"`
	UserAgent string         `json:"user_agent" gorm:"type:text"`
	Timestamp time.Time      `json:"timestamp" gorm:"not null"`
}

func (ShareEvent) TableName() string {
	return "share_events"
}

const (
	ShareStreamName     = "SHARES"
	ShareStreamSubject  = "shares.events"
	ShareConsumerName   = "share-event-logger"
	ShareStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
