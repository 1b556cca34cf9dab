package models

import "fmt"

// Reading 规范化后的传感器读数
// 测量字段使用指针：原始数据中缺失的字段保持 nil，零值是合法读数，不能当缺失处理
type Reading struct {
	DeviceID  string `json:"device_id"`
	Location  string `json:"location,omitempty"`
	Timestamp string `json:"timestamp,omitempty"` // ISO-8601 字符串

	Temperature *float64 `json:"temperature,omitempty"` // 摄氏度
	Humidity    *float64 `json:"humidity,omitempty"`    // 百分比
	Pressure    *float64 `json:"pressure,omitempty"`    // 毫巴
	FlowRate    *float64 `json:"flow_rate,omitempty"`   // 水流量
	Unit        string   `json:"unit,omitempty"`        // 水流量单位，如 "L/min"
}

// HasMeasurement 是否至少包含一个测量字段
func (r *Reading) HasMeasurement() bool {
	return r.Temperature != nil || r.Humidity != nil || r.Pressure != nil || r.FlowRate != nil
}

// DefaultLocation 根据设备ID生成默认位置标签
func DefaultLocation(deviceID string) string {
	return fmt.Sprintf("Device %s", deviceID)
}

// Float64Ptr 构造测量字段指针（测试和规范化使用）
func Float64Ptr(v float64) *float64 {
	return &v
}
