// Package normalizer 将异构的原始传感器负载转换为统一的 Reading
//
// 支持两种来源：
//   - 文档流导出的带类型属性封装（map 套 map，值包在 S/N 类型标签里）
//   - 直接的扁平 JSON
//
// 转换从不失败：无法识别的形状退化为"未提取到任何测量字段"，不中断管道
package normalizer

import (
	"encoding/json"
	"strconv"
	"strings"

	"ecodetect-alert/internal/models"
)

// 水流量传感器的设备ID标记
const waterSensorMarker = "WaterSensor"

// 水流量默认单位
const defaultFlowUnit = "L/min"

// attrValue 带类型属性值（文档流导出格式的一个属性）
// S: 字符串值, N: 数值（以字符串编码）, M: 嵌套文档
type attrValue struct {
	S *string              `json:"S,omitempty"`
	N *string              `json:"N,omitempty"`
	M map[string]attrValue `json:"M,omitempty"`
}

// envelope 文档流导出的外层封装
type envelope struct {
	Payload struct {
		M map[string]attrValue `json:"M"`
	} `json:"payload"`
}

// Normalize 将原始负载转换为规范化读数，从不返回错误
// 形状检测只做一次：先试带类型封装，再按扁平 JSON 处理
func Normalize(raw []byte) models.Reading {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Payload.M) > 0 {
		return fromEnvelope(env.Payload.M)
	}

	return fromFlat(raw)
}

// fromEnvelope 解开带类型属性封装
func fromEnvelope(payload map[string]attrValue) models.Reading {
	reading := models.Reading{
		DeviceID:  stringAttr(payload, "device_id"),
		Timestamp: stringAttr(payload, "timestamp"),
	}
	reading.Location = models.DefaultLocation(reading.DeviceID)

	if strings.Contains(reading.DeviceID, waterSensorMarker) {
		extractWaterFields(payload, &reading)
	} else {
		extractClimateFields(payload, &reading)
	}

	return reading
}

// extractWaterFields 提取水流量传感器字段
func extractWaterFields(payload map[string]attrValue, reading *models.Reading) {
	if v := numberAttr(payload, "flow_rate"); v != nil {
		reading.FlowRate = v
		reading.Unit = stringAttr(payload, "unit")
		if reading.Unit == "" {
			reading.Unit = defaultFlowUnit
		}
	}
}

// extractClimateFields 提取温湿度气压字段
func extractClimateFields(payload map[string]attrValue, reading *models.Reading) {
	if v := numberAttr(payload, "temperature"); v != nil {
		reading.Temperature = v
	}
	if v := numberAttr(payload, "humidity"); v != nil {
		reading.Humidity = v
	}
	if v := numberAttr(payload, "pressure"); v != nil {
		reading.Pressure = v
	}
}

// fromFlat 扁平 JSON 直接映射为 Reading
func fromFlat(raw []byte) models.Reading {
	var reading models.Reading
	if err := json.Unmarshal(raw, &reading); err != nil {
		// 无法识别的负载：返回空读数，不报错
		return models.Reading{}
	}

	if reading.Location == "" && reading.DeviceID != "" {
		reading.Location = models.DefaultLocation(reading.DeviceID)
	}

	return reading
}

// stringAttr 取字符串属性，缺失返回空串
func stringAttr(payload map[string]attrValue, key string) string {
	if attr, ok := payload[key]; ok && attr.S != nil {
		return *attr.S
	}
	return ""
}

// numberAttr 取数值属性并转为 float，转换失败视为缺失
func numberAttr(payload map[string]attrValue, key string) *float64 {
	attr, ok := payload[key]
	if !ok || attr.N == nil {
		return nil
	}
	v, err := strconv.ParseFloat(*attr.N, 64)
	if err != nil {
		return nil
	}
	return &v
}
