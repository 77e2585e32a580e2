package schema

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestResolvePreferenceOrder(t *testing.T) {
	testCases := []struct {
		name    string
		columns []string
		wantKey KeyColumn
	}{
		{
			name:    "full schema prefers device_token",
			columns: []string{"device_token", "device_id", "token", "store_id", "last_seen"},
			wantKey: KeyDeviceToken,
		},
		{
			name:    "device_id wins over token and store_id",
			columns: []string{"device_id", "token", "store_id"},
			wantKey: KeyDeviceID,
		},
		{
			name:    "generic token column",
			columns: []string{"token", "store_id"},
			wantKey: KeyToken,
		},
		{
			name:    "store identity fallback",
			columns: []string{"store_id", "last_seen"},
			wantKey: KeyStoreID,
		},
		{
			name:    "no candidate columns",
			columns: []string{"firmware_version", "note"},
			wantKey: KeyNone,
		},
		{
			name:    "empty table",
			columns: nil,
			wantKey: KeyNone,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			present := make(map[string]bool, len(tc.columns))
			for _, col := range tc.columns {
				present[col] = true
			}
			caps := resolve(present)
			assert.Equal(t, tc.wantKey, caps.Key)
		})
	}
}

func TestResolveCapabilityFlags(t *testing.T) {
	caps := resolve(map[string]bool{
		"device_token": true,
		"last_seen":    true,
		"ip_address":   true,
	})
	assert.True(t, caps.HasLastSeen)
	assert.True(t, caps.HasIPAddress)
	assert.False(t, caps.HasFirmware)
	assert.False(t, caps.HasStoreID)
}

func TestJoinClause(t *testing.T) {
	assert.Equal(t,
		"device_heartbeats.device_token = stores.device_token",
		Capabilities{Key: KeyDeviceToken}.JoinClause())
	assert.Equal(t,
		"device_heartbeats.store_id = stores.store_id",
		Capabilities{Key: KeyStoreID}.JoinClause())
	assert.Equal(t, "", Capabilities{}.JoinClause())
	assert.False(t, Capabilities{}.JoinAvailable())
}

func TestKeyValue(t *testing.T) {
	assert.Equal(t, "tok123", Capabilities{Key: KeyDeviceToken}.KeyValue("S1", "tok123"))
	assert.Equal(t, "S1", Capabilities{Key: KeyStoreID}.KeyValue("S1", "tok123"))
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestResolverInspectsLiveTable(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Exec(
		`CREATE TABLE device_heartbeats (device_token TEXT PRIMARY KEY, last_seen DATETIME, ip_address TEXT)`,
	).Error)

	caps := NewResolver(db).Capabilities()
	assert.Equal(t, KeyDeviceToken, caps.Key)
	assert.True(t, caps.HasLastSeen)
	assert.True(t, caps.HasIPAddress)
	assert.False(t, caps.HasFirmware)
}

func TestResolverLegacyStoreKeyedTable(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Exec(
		`CREATE TABLE device_heartbeats (store_id TEXT PRIMARY KEY, last_seen DATETIME)`,
	).Error)

	caps := NewResolver(db).Capabilities()
	assert.Equal(t, KeyStoreID, caps.Key)
	assert.Equal(t, "device_heartbeats.store_id = stores.store_id", caps.JoinClause())
}

func TestResolverMissingTableDegrades(t *testing.T) {
	db := openTestDB(t)

	caps := NewResolver(db).Capabilities()
	assert.Equal(t, KeyNone, caps.Key)
	assert.False(t, caps.JoinAvailable())
}

func TestResolverCachesFirstResult(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Exec(`CREATE TABLE device_heartbeats (device_token TEXT PRIMARY KEY)`).Error)

	r := NewResolver(db)
	assert.Equal(t, KeyDeviceToken, r.Capabilities().Key)

	// Schema changes after first use are invisible until the next process.
	require.NoError(t, db.Exec(`DROP TABLE device_heartbeats`).Error)
	assert.Equal(t, KeyDeviceToken, r.Capabilities().Key)
}
