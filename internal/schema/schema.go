// Package schema discovers the actual shape of the device heartbeat table.
//
// The liveness columns were added to the product after the dispatch core, and
// not every deployment has run the same migrations. Rather than assuming the
// table layout, the resolver inspects it once per process and reports which
// columns can be used. Everything that depends on liveness data degrades
// gracefully when the columns are missing.
package schema

import (
	"log"
	"strings"
	"sync"

	"gorm.io/gorm"
)

const heartbeatTable = "device_heartbeats"

// KeyColumn identifies which column of the heartbeat table links a row to a
// device. Candidates are tried in declaration order; KeyNone means no usable
// identity column exists and liveness features are off for this process.
type KeyColumn int

const (
	KeyNone KeyColumn = iota
	KeyDeviceToken
	KeyDeviceID
	KeyToken
	KeyStoreID
)

// keyCandidates is the preference order for resolving the identity column.
var keyCandidates = []KeyColumn{KeyDeviceToken, KeyDeviceID, KeyToken, KeyStoreID}

// Column returns the database column name for the key variant.
func (k KeyColumn) Column() string {
	switch k {
	case KeyDeviceToken:
		return "device_token"
	case KeyDeviceID:
		return "device_id"
	case KeyToken:
		return "token"
	case KeyStoreID:
		return "store_id"
	default:
		return ""
	}
}

func (k KeyColumn) String() string {
	if k == KeyNone {
		return "none"
	}
	return k.Column()
}

// Capabilities describes what the heartbeat table supports.
type Capabilities struct {
	Key          KeyColumn
	HasLastSeen  bool
	HasIPAddress bool
	HasFirmware  bool
	HasStoreID   bool
}

// JoinAvailable reports whether heartbeat rows can be correlated with stores
// at all.
func (c Capabilities) JoinAvailable() bool { return c.Key != KeyNone }

// JoinClause returns the SQL predicate linking the stores table to the
// heartbeat table, or "" when no join is possible.
func (c Capabilities) JoinClause() string {
	switch c.Key {
	case KeyDeviceToken, KeyDeviceID, KeyToken:
		return heartbeatTable + "." + c.Key.Column() + " = stores.device_token"
	case KeyStoreID:
		return heartbeatTable + ".store_id = stores.store_id"
	default:
		return ""
	}
}

// KeyValue returns the value written into the key column for a device: the
// store identity when joining on store_id, the device credential otherwise.
func (c Capabilities) KeyValue(storeID, deviceToken string) string {
	if c.Key == KeyStoreID {
		return storeID
	}
	return deviceToken
}

// Resolver owns the process-lifetime capability cache. The column set is
// inspected on first use and never again; a schema upgrade takes effect on
// the next process start.
type Resolver struct {
	db   *gorm.DB
	once sync.Once
	caps Capabilities
}

// NewResolver creates a resolver bound to a database connection.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Capabilities returns the resolved capability set, inspecting the table on
// the first call. Inspection failure is treated as "no usable columns", not
// an error: dispatch must keep working against a database that predates the
// liveness table entirely.
func (r *Resolver) Capabilities() Capabilities {
	r.once.Do(func() {
		cols, err := r.db.Migrator().ColumnTypes(heartbeatTable)
		if err != nil {
			log.Printf("heartbeat table inspection failed, liveness features disabled: %v", err)
			return
		}
		present := make(map[string]bool, len(cols))
		for _, col := range cols {
			present[strings.ToLower(col.Name())] = true
		}
		r.caps = resolve(present)
		log.Printf("heartbeat schema resolved: key=%s last_seen=%t ip=%t firmware=%t",
			r.caps.Key, r.caps.HasLastSeen, r.caps.HasIPAddress, r.caps.HasFirmware)
	})
	return r.caps
}

// resolve derives capabilities from a set of lower-cased column names.
func resolve(present map[string]bool) Capabilities {
	caps := Capabilities{
		HasLastSeen:  present["last_seen"],
		HasIPAddress: present["ip_address"],
		HasFirmware:  present["firmware_version"],
		HasStoreID:   present["store_id"],
	}
	for _, k := range keyCandidates {
		if present[k.Column()] {
			caps.Key = k
			break
		}
	}
	return caps
}
