package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"ecodetect-alert/internal/models"
	"ecodetect-alert/internal/repository"

	"go.uber.org/zap"
)

// AlertHandler 报警历史查询 Handler
type AlertHandler struct {
	alerts *repository.AlertRepository
	logger *zap.Logger
}

// NewAlertHandler 创建报警历史 Handler
func NewAlertHandler(alerts *repository.AlertRepository, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{
		alerts: alerts,
		logger: logger,
	}
}

// parseFilters 从查询参数解析过滤条件
// severity 只接受 critical / warning，since 为 RFC3339
func parseFilters(r *http.Request) (repository.AlertFilters, error) {
	filters := repository.AlertFilters{
		Limit: parseInt(r.URL.Query().Get("limit"), 50),
	}

	if severity := r.URL.Query().Get("severity"); severity != "" {
		if severity != models.SeverityCritical && severity != models.SeverityWarning {
			return filters, fmt.Errorf("invalid severity: %s", severity)
		}
		filters.Severity = severity
	}

	if since := r.URL.Query().Get("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return filters, fmt.Errorf("invalid since timestamp: %s", since)
		}
		filters.Since = &ts
	}

	return filters, nil
}

// ListAlerts 查询报警历史列表
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	alerts, err := h.alerts.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("Failed to list alerts", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to query alerts"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(alerts))
}

// ExportAlerts 导出报警历史为 Excel 文件
func (h *AlertHandler) ExportAlerts(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	alerts, err := h.alerts.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("Failed to list alerts for export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to query alerts"))
		return
	}

	data, err := GenerateAlertExport(alerts)
	if err != nil {
		h.logger.Error("Failed to generate alert export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate export"))
		return
	}

	filename := fmt.Sprintf("alerts_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
