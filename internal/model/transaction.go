package model

import "time"

// Transaction is one payment confirmation queued for playback. The
// autoincrement ID defines per-store queue order; TransactionID is the
// opaque identifier handed back to the cashier integration. Played is a
// one-way flag: once a device claims the row it never goes back.
type Transaction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	TransactionID string    `gorm:"uniqueIndex;size:64;not null"`
	StoreID       string    `gorm:"size:64;not null;index:idx_transactions_store_played"`
	Amount        int64     `gorm:"not null"`
	Played        bool      `gorm:"not null;default:false;index:idx_transactions_store_played"`
	CreatedAt     time.Time `gorm:"not null"`
}
