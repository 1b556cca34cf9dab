package models

import (
	"sort"
	"strings"
	"time"
)

// Condition 阈值越界标签，取值固定
type Condition string

const (
	ConditionTemperatureHigh Condition = "temperature_high"
	ConditionTemperatureLow  Condition = "temperature_low"
	ConditionHumidityHigh    Condition = "humidity_high"
	ConditionHumidityLow     Condition = "humidity_low"
	ConditionWaterUsageHigh  Condition = "water_usage_high"
)

// 报警级别
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// IsCritical 温湿度越界算 critical，水流量越界只算 warning
// 原系统即使水流量极端超标也不升级，这是产品决定，不是缺陷
func (c Condition) IsCritical() bool {
	switch c {
	case ConditionTemperatureHigh, ConditionTemperatureLow,
		ConditionHumidityHigh, ConditionHumidityLow:
		return true
	}
	return false
}

// DeriveSeverity 按越界条件推导报警级别
func DeriveSeverity(conditions []Condition) string {
	for _, c := range conditions {
		if c.IsCritical() {
			return SeverityCritical
		}
	}
	return SeverityWarning
}

// HasCritical 是否包含 critical 级别条件
func HasCritical(conditions []Condition) bool {
	for _, c := range conditions {
		if c.IsCritical() {
			return true
		}
	}
	return false
}

// ConditionStrings 转换为字符串列表（保持顺序）
func ConditionStrings(conditions []Condition) []string {
	out := make([]string, len(conditions))
	for i, c := range conditions {
		out[i] = string(c)
	}
	return out
}

// SuppressionKey 去重缓存键：设备ID + 排序后的条件列表
// 条件先排序，评估器将来调整输出顺序也不会打散键空间
func SuppressionKey(deviceID string, conditions []Condition) string {
	tags := ConditionStrings(conditions)
	sort.Strings(tags)
	return deviceID + "_" + strings.Join(tags, ",")
}

// Alert 一次触发评估的持久化记录，创建后不再修改
type Alert struct {
	ID                 string      `json:"id"`
	DeviceID           string      `json:"device_id"`
	Timestamp          string      `json:"timestamp"` // ISO-8601
	SensorData         Reading     `json:"sensor_data"`
	ExceededThresholds []Condition `json:"exceeded_thresholds"`
	Severity           string      `json:"severity"`
	Processed          bool        `json:"processed"`
	CreatedAt          time.Time   `json:"created_at,omitempty"`
}
