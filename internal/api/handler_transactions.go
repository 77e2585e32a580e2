package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type transactionResponse struct {
	TransactionID string    `json:"transaction_id"`
	StoreID       string    `json:"store_id"`
	Amount        int64     `json:"amount"`
	Played        bool      `json:"played"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListTransactions handles GET /api/transactions?store_id= for operators.
func (h *Handler) ListTransactions(c *gin.Context) {
	storeID := c.Query("store_id")
	if storeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "store_id is required"})
		return
	}

	txns, err := h.store.ListTransactions(c.Request.Context(), storeID)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	out := make([]transactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, transactionResponse{
			TransactionID: t.TransactionID,
			StoreID:       t.StoreID,
			Amount:        t.Amount,
			Played:        t.Played,
			CreatedAt:     t.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// ClearTransactions handles DELETE /api/transactions?store_id=, removing a
// store's already-played rows. Pending transactions stay queued.
func (h *Handler) ClearTransactions(c *gin.Context) {
	storeID := c.Query("store_id")
	if storeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "store_id is required"})
		return
	}

	deleted, err := h.store.ClearPlayed(c.Request.Context(), storeID)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// ListDevices handles GET /api/devices: every store with whatever liveness
// data the heartbeat schema supports.
func (h *Handler) ListDevices(c *gin.Context) {
	devices, err := h.store.ListDevices(c.Request.Context())
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, devices)
}
