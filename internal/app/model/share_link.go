package model

import "time"

// ShareLink is a tokenized, optionally expiring grant of read access to a file.
// Records are immutable after creation; revocation deletes them.
type ShareLink struct {
	ID         uint64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Token      string     `json:"token" gorm:"size:64;uniqueIndex;not null"`
	FileID     uint64     `json:"fileId" gorm:"index;not null"`
	UserID     uint64     `json:"userId" gorm:"not null"`
	CreatedAt  time.Time  `json:"createdAt" gorm:"not null"`
	ExpiryDate *time.Time `json:"expiryDate"`
}

// TableName pins the table name used by GORM.
func (ShareLink) TableName() string {
	return "share_links"
}

// ExpiredAt reports whether the link is past its expiry at the given instant.
// Links without an expiry date never expire.
func (l *ShareLink) ExpiredAt(now time.Time) bool {
	return l.ExpiryDate != nil && now.After(*l.ExpiryDate)
}
