package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type registerStoreRequest struct {
	StoreID     string `json:"store_id" binding:"required"`
	Name        string `json:"name"`
	DeviceToken string `json:"device_token" binding:"required"`
}

// RegisterStore handles POST /api/stores. Registering an existing store_id
// rotates its name and device token.
func (h *Handler) RegisterStore(c *gin.Context) {
	var req registerStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.RegisterStore(c.Request.Context(), req.StoreID, req.Name, req.DeviceToken); err != nil {
		writeStoreError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetStoreEnabled handles PATCH /api/stores/:store_id/enabled.
func (h *Handler) SetStoreEnabled(c *gin.Context) {
	var req setEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.SetStoreEnabled(c.Request.Context(), c.Param("store_id"), *req.Enabled); err != nil {
		writeStoreError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteStore handles DELETE /api/stores/:store_id.
func (h *Handler) DeleteStore(c *gin.Context) {
	if err := h.store.DeleteStore(c.Request.Context(), c.Param("store_id")); err != nil {
		writeStoreError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListStores handles GET /api/stores.
func (h *Handler) ListStores(c *gin.Context) {
	stores, err := h.store.ListStores(c.Request.Context())
	if err != nil {
		writeStoreError(c, err)
		return
	}

	type storeResponse struct {
		StoreID string `json:"store_id"`
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
	}
	out := make([]storeResponse, 0, len(stores))
	for _, st := range stores {
		out = append(out, storeResponse{StoreID: st.StoreID, Name: st.Name, Enabled: st.Enabled})
	}
	c.JSON(http.StatusOK, out)
}
