package model

import "time"

// Store is a registered merchant store together with the credential its
// soundbox presents when polling.
type Store struct {
	ID          int64     `gorm:"primaryKey"`
	StoreID     string    `gorm:"uniqueIndex;size:64;not null"`
	Name        string    `gorm:"size:256"`
	DeviceToken string    `gorm:"size:128;not null"`
	Enabled     bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time
}
