package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dewasatria11/Device-Qris-Admin-CRUD/internal/model"
	"github.com/dewasatria11/Device-Qris-Admin-CRUD/internal/schema"
)

// storeIDPattern restricts store identifiers at registration time.
var storeIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	// Dispatch core.
	CreateTransaction(ctx context.Context, storeID string, amount int64) (string, error)
	ResolveDevice(ctx context.Context, storeID, deviceToken string) (*model.Store, error)
	ClaimNext(ctx context.Context, storeID string) (*ClaimResult, error)
	RecordHeartbeat(ctx context.Context, hb Heartbeat) error
	StaleHeartbeats(ctx context.Context, now time.Time, stale, ceiling time.Duration) ([]OfflineDevice, error)

	// Store registry.
	GetStore(ctx context.Context, storeID string) (*model.Store, error)
	RegisterStore(ctx context.Context, storeID, name, deviceToken string) error
	SetStoreEnabled(ctx context.Context, storeID string, enabled bool) error
	DeleteStore(ctx context.Context, storeID string) error
	ListStores(ctx context.Context) ([]model.Store, error)

	// Operator reads.
	ListTransactions(ctx context.Context, storeID string) ([]model.Transaction, error)
	ClearPlayed(ctx context.Context, storeID string) (int64, error)
	ListDevices(ctx context.Context) ([]DeviceStatus, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db            *gorm.DB
	schema        *schema.Resolver
	claimAttempts int
}

// NewGormStore creates a new GORM-backed store. claimAttempts bounds the
// optimistic claim retry loop; values below 1 are clamped to 1.
func NewGormStore(db *gorm.DB, resolver *schema.Resolver, claimAttempts int) Store {
	if claimAttempts < 1 {
		claimAttempts = 1
	}
	return &gormStore{db: db, schema: resolver, claimAttempts: claimAttempts}
}

func (s *gormStore) DB() *gorm.DB { return s.db }

// lookupStore resolves a store by its external identifier. Unknown and
// disabled stores are indistinguishable to callers.
func (s *gormStore) lookupStore(ctx context.Context, storeID string) (*model.Store, error) {
	var st model.Store
	err := s.db.WithContext(ctx).First(&st, "store_id = ?", storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("store %q: %w", storeID, ErrStoreUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup store %q: %w", storeID, err)
	}
	if !st.Enabled {
		return nil, fmt.Errorf("store %q disabled: %w", storeID, ErrStoreUnavailable)
	}
	return &st, nil
}

// CreateTransaction queues a payment confirmation for the store's soundbox
// and returns the opaque transaction identifier.
func (s *gormStore) CreateTransaction(ctx context.Context, storeID string, amount int64) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("amount must be a positive integer: %w", ErrInvalidInput)
	}

	st, err := s.lookupStore(ctx, storeID)
	if err != nil {
		return "", err
	}

	txn := model.Transaction{
		TransactionID: uuid.NewString(),
		StoreID:       st.StoreID,
		Amount:        amount,
	}
	if err := s.db.WithContext(ctx).Create(&txn).Error; err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	return txn.TransactionID, nil
}

// ResolveDevice authenticates a polling device against its store's
// registered credential. Comparison is exact after trimming whitespace.
func (s *gormStore) ResolveDevice(ctx context.Context, storeID, deviceToken string) (*model.Store, error) {
	st, err := s.lookupStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(deviceToken) != st.DeviceToken {
		return nil, fmt.Errorf("store %q: %w", storeID, ErrUnauthorized)
	}
	return st, nil
}

// ClaimNext atomically claims the oldest pending transaction for a store.
// A nil result with a nil error means the queue is empty.
//
// Concurrent polls may race for the same row, so the claim is a
// read-then-conditional-write: the UPDATE only fires while played is still
// false, and affecting zero rows means another poll won. At most one caller
// ever sees a given transaction. The retry budget keeps worst-case latency
// bounded; exhausting it reads as an empty queue, which a device resolves by
// polling again.
func (s *gormStore) ClaimNext(ctx context.Context, storeID string) (*ClaimResult, error) {
	for attempt := 0; attempt < s.claimAttempts; attempt++ {
		var txn model.Transaction
		err := s.db.WithContext(ctx).
			Where("store_id = ? AND played = ?", storeID, false).
			Order("id ASC").
			First(&txn).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read pending transaction: %w", err)
		}

		res := s.db.WithContext(ctx).
			Model(&model.Transaction{}).
			Where("id = ? AND played = ?", txn.ID, false).
			Update("played", true)
		if res.Error != nil {
			return nil, fmt.Errorf("claim transaction %d: %w", txn.ID, res.Error)
		}
		if res.RowsAffected == 1 {
			return &ClaimResult{
				TransactionID: txn.TransactionID,
				Amount:        txn.Amount,
				StoreID:       txn.StoreID,
			}, nil
		}
		// Lost the race; re-read the new oldest pending row.
	}
	return nil, nil
}

// RecordHeartbeat upserts the device's liveness row, writing only the
// columns the deployed schema actually has. When no identity column could be
// resolved this is a silent no-op. Callers treat any error as best-effort:
// log it and move on.
func (s *gormStore) RecordHeartbeat(ctx context.Context, hb Heartbeat) error {
	caps := s.schema.Capabilities()
	if caps.Key == schema.KeyNone {
		return nil
	}

	keyCol := caps.Key.Column()
	row := map[string]interface{}{keyCol: caps.KeyValue(hb.StoreID, hb.DeviceToken)}

	var updates []string
	if caps.HasLastSeen {
		row["last_seen"] = hb.SeenAt
		updates = append(updates, "last_seen")
	}
	if caps.HasIPAddress && hb.IPAddress != "" {
		row["ip_address"] = hb.IPAddress
		updates = append(updates, "ip_address")
	}
	if caps.HasFirmware && hb.FirmwareVersion != "" {
		row["firmware_version"] = hb.FirmwareVersion
		updates = append(updates, "firmware_version")
	}
	if caps.HasStoreID && caps.Key != schema.KeyStoreID {
		row["store_id"] = hb.StoreID
		updates = append(updates, "store_id")
	}
	if len(updates) == 0 {
		// Only the identity column exists; keep the conflict path valid.
		updates = []string{keyCol}
	}

	err := s.db.WithContext(ctx).
		Table(model.DeviceHeartbeat{}.TableName()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: keyCol}},
			DoUpdates: clause.AssignmentColumns(updates),
		}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("upsert heartbeat for store %q: %w", hb.StoreID, err)
	}
	return nil
}

// StaleHeartbeats returns enabled stores whose device was last seen more
// than `stale` but less than `ceiling` ago. Devices beyond the ceiling are
// presumed already known-dead and excluded until they report in again.
// Returns no rows when the schema exposes no join or no last_seen column.
func (s *gormStore) StaleHeartbeats(ctx context.Context, now time.Time, stale, ceiling time.Duration) ([]OfflineDevice, error) {
	caps := s.schema.Capabilities()
	if !caps.JoinAvailable() || !caps.HasLastSeen {
		return nil, nil
	}

	hbTable := model.DeviceHeartbeat{}.TableName()
	var devices []OfflineDevice
	err := s.db.WithContext(ctx).
		Table("stores").
		Select("stores.name AS store_name, "+hbTable+".last_seen AS last_seen").
		Joins("JOIN "+hbTable+" ON "+caps.JoinClause()).
		Where("stores.enabled = ?", true).
		Where(hbTable+".last_seen < ?", now.Add(-stale)).
		Where(hbTable+".last_seen > ?", now.Add(-ceiling)).
		Scan(&devices).Error
	if err != nil {
		return nil, fmt.Errorf("scan stale heartbeats: %w", err)
	}
	return devices, nil
}

// GetStore returns a store row regardless of its enabled flag.
func (s *gormStore) GetStore(ctx context.Context, storeID string) (*model.Store, error) {
	var st model.Store
	err := s.db.WithContext(ctx).First(&st, "store_id = ?", storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("store %q: %w", storeID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get store %q: %w", storeID, err)
	}
	return &st, nil
}

// RegisterStore creates a store or rotates its name and device credential.
func (s *gormStore) RegisterStore(ctx context.Context, storeID, name, deviceToken string) error {
	if !storeIDPattern.MatchString(storeID) {
		return fmt.Errorf("store_id %q must match %s: %w", storeID, storeIDPattern, ErrInvalidInput)
	}
	if deviceToken == "" {
		return fmt.Errorf("device_token is required: %w", ErrInvalidInput)
	}

	st := model.Store{
		StoreID:     storeID,
		Name:        name,
		DeviceToken: deviceToken,
		Enabled:     true,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "device_token", "updated_at"}),
	}).Create(&st).Error
	if err != nil {
		return fmt.Errorf("upsert store %q: %w", storeID, err)
	}
	return nil
}

// SetStoreEnabled flips the enabled gate for a store.
func (s *gormStore) SetStoreEnabled(ctx context.Context, storeID string, enabled bool) error {
	res := s.db.WithContext(ctx).
		Model(&model.Store{}).
		Where("store_id = ?", storeID).
		Update("enabled", enabled)
	if res.Error != nil {
		return fmt.Errorf("update store %q: %w", storeID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("store %q: %w", storeID, ErrNotFound)
	}
	return nil
}

// DeleteStore removes a store registration.
func (s *gormStore) DeleteStore(ctx context.Context, storeID string) error {
	res := s.db.WithContext(ctx).Where("store_id = ?", storeID).Delete(&model.Store{})
	if res.Error != nil {
		return fmt.Errorf("delete store %q: %w", storeID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("store %q: %w", storeID, ErrNotFound)
	}
	return nil
}

// ListStores returns all registered stores.
func (s *gormStore) ListStores(ctx context.Context) ([]model.Store, error) {
	var stores []model.Store
	if err := s.db.WithContext(ctx).Order("store_id").Find(&stores).Error; err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return stores, nil
}

// ListTransactions returns a store's transactions in queue order.
func (s *gormStore) ListTransactions(ctx context.Context, storeID string) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := s.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("id ASC").
		Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("list transactions for %q: %w", storeID, err)
	}
	return txns, nil
}

// ClearPlayed deletes a store's already-played transactions and reports how
// many rows went away. Pending rows are never touched.
func (s *gormStore) ClearPlayed(ctx context.Context, storeID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("store_id = ? AND played = ?", storeID, true).
		Delete(&model.Transaction{})
	if res.Error != nil {
		return 0, fmt.Errorf("clear played transactions for %q: %w", storeID, res.Error)
	}
	return res.RowsAffected, nil
}

// ListDevices returns every store with whatever liveness data the schema
// supports. With no usable join column the listing still succeeds, liveness
// fields just stay nil.
func (s *gormStore) ListDevices(ctx context.Context) ([]DeviceStatus, error) {
	caps := s.schema.Capabilities()

	if !caps.JoinAvailable() {
		stores, err := s.ListStores(ctx)
		if err != nil {
			return nil, err
		}
		devices := make([]DeviceStatus, 0, len(stores))
		for _, st := range stores {
			devices = append(devices, DeviceStatus{StoreID: st.StoreID, Name: st.Name, Enabled: st.Enabled})
		}
		return devices, nil
	}

	hbTable := model.DeviceHeartbeat{}.TableName()
	selects := []string{"stores.store_id AS store_id", "stores.name AS name", "stores.enabled AS enabled"}
	if caps.HasLastSeen {
		selects = append(selects, hbTable+".last_seen AS last_seen")
	}
	if caps.HasIPAddress {
		selects = append(selects, hbTable+".ip_address AS ip_address")
	}
	if caps.HasFirmware {
		selects = append(selects, hbTable+".firmware_version AS firmware_version")
	}

	var devices []DeviceStatus
	err := s.db.WithContext(ctx).
		Table("stores").
		Select(strings.Join(selects, ", ")).
		Joins("LEFT JOIN " + hbTable + " ON " + caps.JoinClause()).
		Order("stores.store_id").
		Scan(&devices).Error
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}
