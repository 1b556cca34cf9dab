package httpapi

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"ecodetect-alert/internal/models"

	"github.com/xuri/excelize/v2"
)

// AlertExportHeader 报警历史导出表头
var AlertExportHeader = []string{
	"Alert ID",
	"Device ID",
	"Timestamp",
	"Severity",
	"Exceeded Thresholds",
	"Temperature (C)",
	"Humidity (%)",
	"Pressure (mbar)",
	"Flow Rate",
	"Created At",
}

// GenerateAlertExport 生成报警历史 Excel 文件
// alerts 为空时只生成表头
func GenerateAlertExport(alerts []*models.Alert) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	sheetName := "Alerts"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	// 表头样式
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range AlertExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	columnWidths := []float64{
		30, // Alert ID
		20, // Device ID
		22, // Timestamp
		12, // Severity
		35, // Exceeded Thresholds
		15, // Temperature
		15, // Humidity
		15, // Pressure
		12, // Flow Rate
		22, // Created At
	}
	for col, width := range columnWidths {
		colName, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, colName, colName, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	// 写入数据行
	for rowIdx, alert := range alerts {
		values := []any{
			alert.ID,
			alert.DeviceID,
			alert.Timestamp,
			alert.Severity,
			strings.Join(models.ConditionStrings(alert.ExceededThresholds), ", "),
			measurementCell(alert.SensorData.Temperature),
			measurementCell(alert.SensorData.Humidity),
			measurementCell(alert.SensorData.Pressure),
			measurementCell(alert.SensorData.FlowRate),
			alert.CreatedAt.Format("2006-01-02 15:04:05"),
		}

		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close excel file: %w", err)
	}

	return buf.Bytes(), nil
}

// measurementCell 缺失的测量字段导出为空单元格
func measurementCell(v *float64) any {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
