// Package notifier 报警消息拼装与多渠道分发
package notifier

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ecodetect-alert/internal/models"
)

// EmailSubject 邮件主题固定不变
const EmailSubject = "Environmental Alert: Threshold Exceeded"

// SMSSubject 短信主题
const SMSSubject = "Environmental Alert"

// conditionDetail 单个越界条件的展示内容：测量值、阈值、建议动作
type conditionDetail struct {
	Headline string // 如 "Temperature is too high: 30 C (Threshold: 25)"
	Action   string // 固定的建议动作文案，每个条件一条
}

// detailFor 按条件生成展示内容，文案固定
func detailFor(cond models.Condition, reading *models.Reading, thresholds *models.ThresholdConfig) conditionDetail {
	switch cond {
	case models.ConditionTemperatureHigh:
		return conditionDetail{
			Headline: fmt.Sprintf("Temperature is too high: %s C (Threshold: %s)",
				formatMeasurement(reading.Temperature), formatFloat(thresholds.TemperatureRange[1])),
			Action: "Increase ventilation or activate the cooling system, or decrease heating of the house.",
		}
	case models.ConditionTemperatureLow:
		return conditionDetail{
			Headline: fmt.Sprintf("Temperature is too low: %s C (Threshold: %s)",
				formatMeasurement(reading.Temperature), formatFloat(thresholds.TemperatureRange[0])),
			Action: "Check the heating system or increase the temperature setting.",
		}
	case models.ConditionHumidityHigh:
		return conditionDetail{
			Headline: fmt.Sprintf("Humidity is too high: %s%% (Threshold: %s)",
				formatMeasurement(reading.Humidity), formatFloat(thresholds.HumidityRange[1])),
			Action: "Use a dehumidifier or increase ventilation.",
		}
	case models.ConditionHumidityLow:
		return conditionDetail{
			Headline: fmt.Sprintf("Humidity is too low: %s%% (Threshold: %s)",
				formatMeasurement(reading.Humidity), formatFloat(thresholds.HumidityRange[0])),
			Action: "Use a humidifier to increase moisture in the air.",
		}
	case models.ConditionWaterUsageHigh:
		return conditionDetail{
			Headline: fmt.Sprintf("Water usage is too high: %s L/min (Threshold: %s L/min)",
				formatMeasurement(reading.FlowRate), formatFloat(thresholds.FlowRateThreshold)),
			Action: "Check for leaks or reduce water consumption.",
		}
	}
	return conditionDetail{}
}

// ComposeText 生成纯文本报警消息
// 头部是位置和时间，随后按评估顺序每个条件一段，结尾提示登录控制台
func ComposeText(reading *models.Reading, exceeded []models.Condition, thresholds *models.ThresholdConfig) string {
	location := reading.Location
	if location == "" {
		location = "unknown location"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Alert: environmental conditions exceeded at %s (%s)\n\n",
		location, formatTimestamp(reading.Timestamp))

	for _, cond := range exceeded {
		detail := detailFor(cond, reading, thresholds)
		if detail.Headline == "" {
			continue
		}
		b.WriteString(detail.Headline)
		b.WriteString("\n")
		b.WriteString("Recommended action: " + detail.Action)
		b.WriteString("\n\n")
	}

	b.WriteString("Log in to the dashboard for more details and historical data")
	return b.String()
}

// formatTimestamp 将 ISO-8601 时间戳转为展示格式，解析失败用当前时间
func formatTimestamp(ts string) string {
	const layout = "2006-01-02 15:04:05"
	if ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			return parsed.Format(layout)
		}
	}
	return time.Now().Format(layout)
}

// formatFloat 阈值数字展示，去掉多余小数位
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatMeasurement 测量值展示，nil 显示为 N/A
func formatMeasurement(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return formatFloat(*v)
}
