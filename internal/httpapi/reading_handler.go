package httpapi

import (
	"net/http"

	"ecodetect-alert/internal/repository"

	"go.uber.org/zap"
)

// ReadingHandler 实时数据查询 Handler
type ReadingHandler struct {
	cache  *repository.ReadingCache
	logger *zap.Logger
}

// NewReadingHandler 创建实时数据 Handler
func NewReadingHandler(cache *repository.ReadingCache, logger *zap.Logger) *ReadingHandler {
	return &ReadingHandler{
		cache:  cache,
		logger: logger,
	}
}

// GetLatestReading 返回指定设备的最新读数
func (h *ReadingHandler) GetLatestReading(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("device_id is required"))
		return
	}

	reading, err := h.cache.GetLatestReading(r.Context(), deviceID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, Fail("no recent reading for device"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(reading))
}
