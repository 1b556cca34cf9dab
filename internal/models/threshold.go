package models

import "fmt"

// DefaultUserID 未指定用户时使用的通知偏好键
const DefaultUserID = "default_user"

// NotificationPreferences 单个用户的通知偏好
type NotificationPreferences struct {
	SMSEnabled   bool `json:"sms_enabled"`
	EmailEnabled bool `json:"email_enabled"`
	CriticalOnly bool `json:"critical_only"` // 只对 critical 级别报警发通知
}

// ThresholdConfig 当前生效的阈值策略
// 管理接口整体替换，不做字段级合并，读取方总是看到一份完整一致的配置
type ThresholdConfig struct {
	TemperatureRange  [2]float64 `json:"temperature_range"` // [low, high]
	HumidityRange     [2]float64 `json:"humidity_range"`    // [low, high]
	FlowRateThreshold float64    `json:"flow_rate_threshold"`

	// 通知偏好，按用户ID索引，默认 "default_user"
	NotificationPreferences map[string]NotificationPreferences `json:"notification_preferences,omitempty"`
}

// DefaultThresholds 两个存储都不可用时的硬编码兜底配置
func DefaultThresholds() *ThresholdConfig {
	return &ThresholdConfig{
		TemperatureRange:  [2]float64{20, 25},
		HumidityRange:     [2]float64{30, 60},
		FlowRateThreshold: 10,
	}
}

// PreferencesFor 解析某个用户的通知偏好
// 找不到指定用户时退回 default_user，再找不到则默认两个渠道都开
func (c *ThresholdConfig) PreferencesFor(userID string) NotificationPreferences {
	if c.NotificationPreferences != nil {
		if prefs, ok := c.NotificationPreferences[userID]; ok {
			return prefs
		}
		if prefs, ok := c.NotificationPreferences[DefaultUserID]; ok {
			return prefs
		}
	}
	return NotificationPreferences{SMSEnabled: true, EmailEnabled: true}
}

// Validate 校验阈值配置
// 每个范围必须 low < high，非法配置直接拒绝，不做静默修正
func (c *ThresholdConfig) Validate() error {
	if c.TemperatureRange[0] >= c.TemperatureRange[1] {
		return fmt.Errorf("invalid temperature_range: low (%v) must be less than high (%v)",
			c.TemperatureRange[0], c.TemperatureRange[1])
	}
	if c.HumidityRange[0] >= c.HumidityRange[1] {
		return fmt.Errorf("invalid humidity_range: low (%v) must be less than high (%v)",
			c.HumidityRange[0], c.HumidityRange[1])
	}
	return nil
}
