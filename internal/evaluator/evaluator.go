// Package evaluator 纯函数阈值评估
package evaluator

import (
	"ecodetect-alert/internal/models"
)

// Evaluate 对读数做独立的逐字段范围检查，返回越界条件列表
//
// 固定按 温度 → 湿度 → 水流量 的顺序检查，输出顺序稳定。
// 范围为闭区间：等于 low 或 high 不算越界。
// 低于 low 和高于 high 互斥，同一字段最多产生一个条件。
// 读数或阈值缺失的字段直接跳过，不算错误。
func Evaluate(reading *models.Reading, thresholds *models.ThresholdConfig) []models.Condition {
	var exceeded []models.Condition
	if reading == nil || thresholds == nil {
		return exceeded
	}

	if reading.Temperature != nil {
		temp := *reading.Temperature
		if temp < thresholds.TemperatureRange[0] {
			exceeded = append(exceeded, models.ConditionTemperatureLow)
		} else if temp > thresholds.TemperatureRange[1] {
			exceeded = append(exceeded, models.ConditionTemperatureHigh)
		}
	}

	if reading.Humidity != nil {
		humidity := *reading.Humidity
		if humidity < thresholds.HumidityRange[0] {
			exceeded = append(exceeded, models.ConditionHumidityLow)
		} else if humidity > thresholds.HumidityRange[1] {
			exceeded = append(exceeded, models.ConditionHumidityHigh)
		}
	}

	if reading.FlowRate != nil {
		// 水流量只有上限，没有"过低"的概念
		if *reading.FlowRate > thresholds.FlowRateThreshold {
			exceeded = append(exceeded, models.ConditionWaterUsageHigh)
		}
	}

	return exceeded
}
