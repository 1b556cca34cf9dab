package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// SMSSender 短信渠道：发布一条消息到主题，返回消息ID
type SMSSender interface {
	Publish(ctx context.Context, topic, message, subject string) (string, error)
}

// smsPublishRequest 短信网关发布请求
type smsPublishRequest struct {
	Topic   string `json:"topic"`
	Message string `json:"message"`
	Subject string `json:"subject,omitempty"`
}

// smsPublishResponse 短信网关发布响应
type smsPublishResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

// SMSClient 短信主题网关客户端
type SMSClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewSMSClient 创建短信网关客户端
func NewSMSClient(baseURL string, logger *zap.Logger) *SMSClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &SMSClient{
		httpClient: client,
		logger:     logger,
	}
}

// Publish 发布短信到主题
func (c *SMSClient) Publish(ctx context.Context, topic, message, subject string) (string, error) {
	request := smsPublishRequest{
		Topic:   topic,
		Message: message,
		Subject: subject,
	}

	var response smsPublishResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/publish")

	if err != nil {
		return "", fmt.Errorf("failed to call SMS gateway: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("SMS gateway returned status %d: %s", resp.StatusCode(), resp.String())
	}
	if response.Error != "" {
		return "", fmt.Errorf("SMS gateway error: %s", response.Error)
	}

	return response.MessageID, nil
}
