package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createTransactionRequest struct {
	StoreID string `json:"store_id" binding:"required"`
	Amount  int64  `json:"amount" binding:"required"`
}

// CreateTransaction handles POST /qris: the cashier integration reports a
// confirmed payment and gets back the queued transaction's identifier.
func (h *Handler) CreateTransaction(c *gin.Context) {
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txID, err := h.store.CreateTransaction(c.Request.Context(), req.StoreID, req.Amount)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction_id": txID})
}
