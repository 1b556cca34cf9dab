package notifier

import (
	"context"

	"ecodetect-alert/internal/config"
	"ecodetect-alert/internal/models"

	"go.uber.org/zap"
)

// DispatchResult 一次分发的结果
// 渠道互相隔离：一个渠道失败不影响另一个渠道的尝试，错误收集起来由上层统一记日志
type DispatchResult struct {
	SMSSent   bool
	EmailSent bool
	Errors    []error
}

// Dispatcher 通知分发器：拼消息、查偏好、扇出到短信和邮件渠道
type Dispatcher struct {
	sms    SMSSender
	mail   MailSender
	notify *config.Config
	logger *zap.Logger
}

// NewDispatcher 创建分发器
// sms/mail 允许为 nil，对应渠道视为未配置
func NewDispatcher(cfg *config.Config, sms SMSSender, mail MailSender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sms:    sms,
		mail:   mail,
		notify: cfg,
		logger: logger,
	}
}

// Dispatch 对一组越界条件发出通知，从不返回错误
//
// critical_only 偏好在任何渠道调用之前短路：条件全是 warning 级别时两个渠道都不发。
// 这是策略拦截，不是对条件列表的过滤。
func (d *Dispatcher) Dispatch(ctx context.Context, reading *models.Reading, exceeded []models.Condition, thresholds *models.ThresholdConfig) DispatchResult {
	result := DispatchResult{}
	if len(exceeded) == 0 {
		return result
	}

	prefs := thresholds.PreferencesFor(models.DefaultUserID)

	if prefs.CriticalOnly && !models.HasCritical(exceeded) {
		d.logger.Info("Skipping notification: critical_only is set and no critical conditions",
			zap.String("device_id", reading.DeviceID),
			zap.Strings("exceeded", models.ConditionStrings(exceeded)),
		)
		return result
	}

	textBody := ComposeText(reading, exceeded, thresholds)

	if prefs.SMSEnabled {
		result.SMSSent = d.sendSMS(ctx, reading, textBody, &result)
	}

	if prefs.EmailEnabled {
		htmlBody := ComposeHTML(reading, exceeded, thresholds, d.notify.Alert.Notify.DashboardURL)
		result.EmailSent = d.sendEmail(ctx, reading, htmlBody, textBody, &result)
	}

	return result
}

// sendSMS 尝试短信渠道，失败记入 result.Errors 但不中断
func (d *Dispatcher) sendSMS(ctx context.Context, reading *models.Reading, message string, result *DispatchResult) bool {
	topic := d.notify.Alert.Notify.SMSTopic
	if d.sms == nil || topic == "" {
		d.logger.Warn("SMS topic not configured, skipping SMS alert",
			zap.String("device_id", reading.DeviceID),
		)
		return false
	}

	messageID, err := d.sms.Publish(ctx, topic, message, SMSSubject)
	if err != nil {
		d.logger.Error("Failed to send SMS alert",
			zap.String("device_id", reading.DeviceID),
			zap.Error(err),
		)
		result.Errors = append(result.Errors, err)
		return false
	}

	d.logger.Info("SMS alert sent successfully",
		zap.String("device_id", reading.DeviceID),
		zap.String("message_id", messageID),
	)
	return true
}

// sendEmail 尝试邮件渠道，失败记入 result.Errors 但不中断
func (d *Dispatcher) sendEmail(ctx context.Context, reading *models.Reading, htmlBody, textBody string, result *DispatchResult) bool {
	sender := d.notify.Alert.Notify.EmailSender
	recipient := d.notify.Alert.Notify.EmailRecipient
	if d.mail == nil || sender == "" || recipient == "" {
		d.logger.Warn("Email configuration incomplete, skipping email alert",
			zap.String("device_id", reading.DeviceID),
		)
		return false
	}

	messageID, err := d.mail.Send(ctx, sender, recipient, EmailSubject, htmlBody, textBody)
	if err != nil {
		d.logger.Error("Failed to send email alert",
			zap.String("device_id", reading.DeviceID),
			zap.Error(err),
		)
		result.Errors = append(result.Errors, err)
		return false
	}

	d.logger.Info("Email alert sent successfully",
		zap.String("device_id", reading.DeviceID),
		zap.String("message_id", messageID),
	)
	return true
}
