package internal

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dewasatria11/Device-Qris-Admin-CRUD/config"
	"github.com/dewasatria11/Device-Qris-Admin-CRUD/internal/api"
	"github.com/dewasatria11/Device-Qris-Admin-CRUD/internal/model"
	"github.com/dewasatria11/Device-Qris-Admin-CRUD/internal/mw"
	"github.com/dewasatria11/Device-Qris-Admin-CRUD/internal/schema"
	"github.com/dewasatria11/Device-Qris-Admin-CRUD/internal/store"
)

// TestDispatchLifecycle walks the whole flow: a store is registered through
// the admin API, the cashier integration reports a payment, and the store's
// soundbox polls it out of the queue exactly once.
func TestDispatchLifecycle(t *testing.T) {
	testDB, err := gorm.Open(sqlite.Open("file:dispatch_lifecycle?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	require.NoError(t, testDB.AutoMigrate(
		&model.Store{}, &model.Transaction{}, &model.PushSubscription{}, &model.DeviceHeartbeat{},
	))

	cfg := &config.Config{}
	cfg.Auth.APIKey = "integration-key"
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Dispatch.ClaimAttempts = 3

	appStore := store.NewGormStore(testDB, schema.NewResolver(testDB), cfg.Dispatch.ClaimAttempts)
	router := api.NewRouter(appStore, cfg, nil)

	adminReq := func(method, path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		var buf *bytes.Buffer
		if body != "" {
			buf = bytes.NewBufferString(body)
		} else {
			buf = bytes.NewBuffer(nil)
		}
		req, _ := http.NewRequest(method, path, buf)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(mw.APIKeyHeader, "integration-key")
		router.ServeHTTP(w, req)
		return w
	}
	poll := func(storeID, token string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/next-transaction?store_id="+storeID, nil)
		req.Header.Set("X-Device-Token", token)
		router.ServeHTTP(w, req)
		return w
	}

	// Register store S1 with credential tok123.
	w := adminReq("POST", "/api/stores", `{"store_id":"S1","name":"Toko Jaya","device_token":"tok123"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	// Cashier reports a confirmed payment of 15000.
	w = adminReq("POST", "/qris", `{"store_id":"S1","amount":15000}`)
	require.Equal(t, http.StatusOK, w.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	txID := created["transaction_id"]
	require.NotEmpty(t, txID)

	// The soundbox polls and claims it.
	w = poll("S1", "tok123")
	require.Equal(t, http.StatusOK, w.Code)
	var claim map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &claim))
	assert.Equal(t, true, claim["available"])
	assert.Equal(t, txID, claim["transaction_id"])
	assert.Equal(t, float64(15000), claim["amount"])

	// An immediate second poll finds an empty queue.
	w = poll("S1", "tok123")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &claim))
	assert.Equal(t, false, claim["available"])

	// The polls left a liveness trail.
	w = adminReq("GET", "/api/devices", "")
	require.Equal(t, http.StatusOK, w.Code)
	var devices []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &devices))
	require.Len(t, devices, 1)
	assert.Equal(t, "S1", devices[0]["store_id"])
	assert.NotNil(t, devices[0]["last_seen"])

	// Disable the store: both creation and polling shut off.
	w = adminReq("PATCH", "/api/stores/S1/enabled", `{"enabled":false}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = adminReq("POST", "/qris", `{"store_id":"S1","amount":500}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = poll("S1", "tok123")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Re-enable, queue one more, play it, then clear the played rows.
	w = adminReq("PATCH", "/api/stores/S1/enabled", `{"enabled":true}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = adminReq("POST", "/qris", `{"store_id":"S1","amount":700}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = poll("S1", "tok123")
	require.Equal(t, http.StatusOK, w.Code)

	w = adminReq("DELETE", "/api/transactions?store_id=S1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var cleared map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cleared))
	assert.Equal(t, int64(2), cleared["deleted"])

	w = adminReq("GET", "/api/transactions?store_id=S1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var txns []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &txns))
	assert.Empty(t, txns)
}
