package store

import (
	"errors"
	"time"
)

// Request-visible failure taxonomy. Handlers map these onto HTTP statuses
// with errors.Is; anything else is a backend failure.
var (
	ErrStoreUnavailable = errors.New("store unknown or disabled")
	ErrUnauthorized     = errors.New("device credential mismatch")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
)

// ClaimResult is a successfully claimed transaction, ready for playback.
type ClaimResult struct {
	TransactionID string
	Amount        int64
	StoreID       string
}

// Heartbeat carries what a polling device reported about itself.
type Heartbeat struct {
	StoreID         string
	DeviceToken     string
	IPAddress       string
	FirmwareVersion string
	SeenAt          time.Time
}

// OfflineDevice is a store whose soundbox was recently online but has now
// gone quiet.
type OfflineDevice struct {
	StoreName string
	LastSeen  time.Time
}

// DeviceStatus is one row of the admin device listing. The liveness fields
// are nil when the heartbeat schema exposes no usable column for them.
type DeviceStatus struct {
	StoreID         string     `json:"store_id"`
	Name            string     `json:"name"`
	Enabled         bool       `json:"enabled"`
	LastSeen        *time.Time `json:"last_seen"`
	IPAddress       *string    `json:"ip_address"`
	FirmwareVersion *string    `json:"firmware_version"`
}
