package notifier

import (
	"html/template"
	"strings"

	"ecodetect-alert/internal/models"
)

// emailTemplate HTML 邮件模板：头部区块 + 每个越界条件一张卡片 + 控制台链接尾部
var emailTemplate = template.Must(template.New("alert-email").Parse(`<html>
<head>
<style>
    body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #333; }
    .container { max-width: 600px; margin: 0 auto; }
    .header { background-color: #4a90e2; color: white; padding: 15px; border-radius: 5px 5px 0 0; }
    .content { background-color: #f9f9f9; padding: 20px; border-radius: 0 0 5px 5px; }
    .alert { color: #D8000C; background-color: #FFBABA; padding: 10px; border-radius: 5px; margin-bottom: 15px; }
    .reading { margin: 15px 0; padding-bottom: 10px; border-bottom: 1px solid #eee; }
    .threshold { font-weight: bold; }
    .action { margin-top: 5px; font-style: italic; color: #666; }
    .footer { margin-top: 20px; font-size: 0.9em; color: #666; text-align: center; }
</style>
</head>
<body>
<div class="container">
    <div class="header">
        <h2>Environmental Alert Notification</h2>
    </div>
    <div class="content">
        <p>The following thresholds have been exceeded at <strong>{{.Location}}</strong> at {{.Timestamp}}:</p>
        <div class="alert">
{{- range .Details}}
            <div class="reading">
                <p class="threshold">{{.Headline}}</p>
                <p class="action">Recommended action: {{.Action}}</p>
            </div>
{{- end}}
        </div>
        <p>For more detailed information and historical data, please <a href="{{.DashboardURL}}">log in to your dashboard</a></p>
    </div>
    <div class="footer">
        <p>This is an automated message from your EcoDetect Monitoring System.</p>
    </div>
</div>
</body>
</html>`))

// emailData HTML 模板数据
type emailData struct {
	Location     string
	Timestamp    string
	Details      []conditionDetail
	DashboardURL string
}

// ComposeHTML 生成 HTML 报警邮件正文，语义内容与纯文本版一致
func ComposeHTML(reading *models.Reading, exceeded []models.Condition, thresholds *models.ThresholdConfig, dashboardURL string) string {
	location := reading.Location
	if location == "" {
		location = "unknown location"
	}
	if dashboardURL == "" {
		dashboardURL = "https://localhost:3000"
	}

	data := emailData{
		Location:     location,
		Timestamp:    formatTimestamp(reading.Timestamp),
		DashboardURL: dashboardURL,
	}
	for _, cond := range exceeded {
		detail := detailFor(cond, reading, thresholds)
		if detail.Headline != "" {
			data.Details = append(data.Details, detail)
		}
	}

	var b strings.Builder
	if err := emailTemplate.Execute(&b, data); err != nil {
		// 模板和数据都是本包固定的，执行失败退回纯文本
		return ComposeText(reading, exceeded, thresholds)
	}
	return b.String()
}
