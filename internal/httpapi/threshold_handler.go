package httpapi

import (
	"net/http"

	"ecodetect-alert/internal/models"
	"ecodetect-alert/internal/repository"

	"go.uber.org/zap"
)

// ThresholdHandler 阈值配置管理 Handler
type ThresholdHandler struct {
	thresholds *repository.ThresholdRepository
	logger     *zap.Logger
}

// NewThresholdHandler 创建阈值 Handler
func NewThresholdHandler(thresholds *repository.ThresholdRepository, logger *zap.Logger) *ThresholdHandler {
	return &ThresholdHandler{
		thresholds: thresholds,
		logger:     logger,
	}
}

// GetThresholds 返回当前生效的阈值配置
// 存储不可用时返回的是默认值，这对调用方是透明的
func (h *ThresholdHandler) GetThresholds(w http.ResponseWriter, r *http.Request) {
	cfg := h.thresholds.GetActive(r.Context())
	writeJSON(w, http.StatusOK, Ok(cfg))
}

// PutThresholds 整体替换阈值配置
func (h *ThresholdHandler) PutThresholds(w http.ResponseWriter, r *http.Request) {
	var cfg models.ThresholdConfig
	if err := readBodyJSON(r, 1<<20, &cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	if err := cfg.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	if err := h.thresholds.Replace(r.Context(), &cfg); err != nil {
		h.logger.Error("Failed to replace thresholds", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to store thresholds"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(&cfg))
}
