package model

import "time"

// DeviceHeartbeat is the full liveness schema. The table is shared with
// older deployments that may carry only a subset of these columns (or a
// differently named identity column), so nothing in the dispatch path may
// assume this exact shape; internal/schema discovers what actually exists
// at runtime.
type DeviceHeartbeat struct {
	DeviceToken     string `gorm:"primaryKey;size:128"`
	StoreID         string `gorm:"size:64"`
	LastSeen        *time.Time
	IPAddress       string `gorm:"size:64"`
	FirmwareVersion string `gorm:"size:64"`
}

// TableName pins the table the schema adapter inspects.
func (DeviceHeartbeat) TableName() string { return "device_heartbeats" }
