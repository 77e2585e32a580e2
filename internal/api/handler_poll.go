package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dewasatria11/Device-Qris-Admin-CRUD/internal/store"
)

// deviceTokenHeader carries the per-store credential a soundbox presents.
const deviceTokenHeader = "X-Device-Token"

// NextTransaction handles GET /next-transaction: a soundbox polls for the
// oldest payment it has not yet played.
func (h *Handler) NextTransaction(c *gin.Context) {
	storeID := c.Query("store_id")
	if storeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "store_id is required"})
		return
	}

	st, err := h.store.ResolveDevice(c.Request.Context(), storeID, c.GetHeader(deviceTokenHeader))
	if err != nil {
		writeStoreError(c, err)
		return
	}

	// Liveness is best-effort: a failing heartbeat write must never cost the
	// device its transaction.
	hb := store.Heartbeat{
		StoreID:         st.StoreID,
		DeviceToken:     st.DeviceToken,
		IPAddress:       c.ClientIP(),
		FirmwareVersion: c.GetHeader("X-Firmware-Version"),
		SeenAt:          time.Now().UTC(),
	}
	if err := h.store.RecordHeartbeat(c.Request.Context(), hb); err != nil {
		log.Printf("heartbeat for store %s not recorded: %v", st.StoreID, err)
	}

	claim, err := h.store.ClaimNext(c.Request.Context(), st.StoreID)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	if claim == nil {
		c.JSON(http.StatusOK, gin.H{"available": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"available":      true,
		"transaction_id": claim.TransactionID,
		"amount":         claim.Amount,
		"store_id":       claim.StoreID,
	})
}
