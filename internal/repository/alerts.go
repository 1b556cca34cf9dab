package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ecodetect-alert/internal/config"
	"ecodetect-alert/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertRepository 报警历史仓库（持久化存储，追加写入，记录创建后不修改）
type AlertRepository struct {
	db     *sql.DB
	config *config.Config
	logger *zap.Logger
}

// NewAlertRepository 创建报警历史仓库
func NewAlertRepository(db *sql.DB, cfg *config.Config, logger *zap.Logger) *AlertRepository {
	return &AlertRepository{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// AlertFilters 报警历史查询条件
type AlertFilters struct {
	Severity string     // 按级别过滤（critical / warning），为空不过滤
	Since    *time.Time // 只取该时间之后的记录
	Limit    int        // 返回条数上限，默认 50
}

// NewAlertID 生成唯一报警ID
func NewAlertID() string {
	return fmt.Sprintf("alert-%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}

// Create 写入一条报警记录
//
// 传感器快照按十进制编码存储：历史表后端不接受二进制浮点，
// 所有数值递归转为精确的十进制字符串表示
func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert is required")
	}
	if alert.ID == "" {
		return fmt.Errorf("alert id is required")
	}

	sensorData, err := encodeSnapshot(&alert.SensorData)
	if err != nil {
		return fmt.Errorf("failed to encode sensor snapshot: %w", err)
	}

	exceeded, err := json.Marshal(models.ConditionStrings(alert.ExceededThresholds))
	if err != nil {
		return fmt.Errorf("failed to marshal exceeded thresholds: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			id,
			device_id,
			timestamp,
			sensor_data,
			exceeded_thresholds,
			severity,
			processed,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP
		)
	`, r.config.Alert.AlertTable)

	_, err = r.db.ExecContext(ctx, query,
		alert.ID,
		alert.DeviceID,
		alert.Timestamp,
		sensorData,
		exceeded,
		alert.Severity,
		alert.Processed,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// List 按级别和时间查询报警历史，按创建时间倒序
func (r *AlertRepository) List(ctx context.Context, filters AlertFilters) ([]*models.Alert, error) {
	where := []string{}
	args := []interface{}{}
	argN := 1

	if filters.Severity != "" {
		where = append(where, fmt.Sprintf("severity = $%d", argN))
		args = append(args, filters.Severity)
		argN++
	}
	if filters.Since != nil {
		where = append(where, fmt.Sprintf("created_at >= $%d", argN))
		args = append(args, *filters.Since)
		argN++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT
			id,
			device_id,
			timestamp,
			sensor_data,
			exceeded_thresholds,
			severity,
			processed,
			created_at
		FROM %s
		%s
		ORDER BY created_at DESC
		LIMIT $%d
	`, r.config.Alert.AlertTable, whereClause, argN)

	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*models.Alert{}
	for rows.Next() {
		var alert models.Alert
		var sensorData, exceeded []byte

		err := rows.Scan(
			&alert.ID,
			&alert.DeviceID,
			&alert.Timestamp,
			&sensorData,
			&exceeded,
			&alert.Severity,
			&alert.Processed,
			&alert.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}

		if err := decodeSnapshot(sensorData, &alert.SensorData); err != nil {
			r.logger.Warn("Failed to decode sensor snapshot",
				zap.String("alert_id", alert.ID),
				zap.Error(err),
			)
		}

		var tags []string
		if len(exceeded) > 0 {
			if err := json.Unmarshal(exceeded, &tags); err != nil {
				return nil, fmt.Errorf("failed to unmarshal exceeded thresholds: %w", err)
			}
		}
		for _, tag := range tags {
			alert.ExceededThresholds = append(alert.ExceededThresholds, models.Condition(tag))
		}

		alerts = append(alerts, &alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, nil
}

// encodeSnapshot 将读数快照编码为十进制安全的 JSON 文档
// 浮点数递归转为十进制字符串，时间戳保持 ISO-8601，文档ID类字段丢弃
func encodeSnapshot(reading *models.Reading) ([]byte, error) {
	raw, err := json.Marshal(reading)
	if err != nil {
		return nil, err
	}

	var doc map[string]interface{}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}

	// 不可序列化的文档ID字段不进快照
	delete(doc, "_id")

	return json.Marshal(convertFloatsToDecimal(doc))
}

// 快照里按十进制字符串存储的测量字段
var measurementKeys = []string{"temperature", "humidity", "pressure", "flow_rate"}

// decodeSnapshot 从存储的快照还原读数
func decodeSnapshot(raw []byte, reading *models.Reading) error {
	if len(raw) == 0 {
		return nil
	}

	// 存储里的测量值是十进制字符串，先还原为数值再解到结构体
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for _, key := range measurementKeys {
		if s, ok := doc[key].(string); ok {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				doc[key] = f
			}
		}
	}

	buf, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, reading)
}

// convertFloatsToDecimal 递归将数值转为十进制字符串表示
func convertFloatsToDecimal(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = convertFloatsToDecimal(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = convertFloatsToDecimal(item)
		}
		return out
	default:
		return v
	}
}

