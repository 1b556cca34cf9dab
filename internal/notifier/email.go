package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// MailSender 邮件渠道：HTML 正文加纯文本备选，返回消息ID
type MailSender interface {
	Send(ctx context.Context, sender, recipient, subject, htmlBody, textBody string) (string, error)
}

// mailSendRequest 邮件网关发送请求
type mailSendRequest struct {
	Sender   string `json:"sender"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	TextBody string `json:"text_body"`
}

// mailSendResponse 邮件网关发送响应
type mailSendResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

// MailClient 邮件网关客户端
type MailClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewMailClient 创建邮件网关客户端
func NewMailClient(baseURL string, logger *zap.Logger) *MailClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &MailClient{
		httpClient: client,
		logger:     logger,
	}
}

// Send 发送一封报警邮件
func (c *MailClient) Send(ctx context.Context, sender, recipient, subject, htmlBody, textBody string) (string, error) {
	request := mailSendRequest{
		Sender:   sender,
		To:       recipient,
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	}

	var response mailSendResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/send")

	if err != nil {
		return "", fmt.Errorf("failed to call mail gateway: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("mail gateway returned status %d: %s", resp.StatusCode(), resp.String())
	}
	if response.Error != "" {
		return "", fmt.Errorf("mail gateway error: %s", response.Error)
	}

	return response.MessageID, nil
}
