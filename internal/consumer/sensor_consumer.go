// Package consumer 传感器数据接入：订阅 MQTT 主题，把每条读数送进评估管道
package consumer

import (
	"context"
	"fmt"

	commonmqtt "ecodetect-alert/common/mqtt"
	"ecodetect-alert/internal/config"
	"ecodetect-alert/internal/models"
	"ecodetect-alert/internal/normalizer"
	"ecodetect-alert/internal/repository"

	"go.uber.org/zap"
)

// ThresholdChecker 阈值检查入口（由 service 层实现）
type ThresholdChecker interface {
	CheckThresholds(ctx context.Context, raw []byte) []models.Condition
}

// SensorConsumer 传感器数据消费者
type SensorConsumer struct {
	config     *config.Config
	mqttClient *commonmqtt.Client
	cache      *repository.ReadingCache
	checker    ThresholdChecker
	logger     *zap.Logger
}

// NewSensorConsumer 创建传感器数据消费者
func NewSensorConsumer(
	cfg *config.Config,
	mqttClient *commonmqtt.Client,
	cache *repository.ReadingCache,
	logger *zap.Logger,
) *SensorConsumer {
	return &SensorConsumer{
		config:     cfg,
		mqttClient: mqttClient,
		cache:      cache,
		logger:     logger,
	}
}

// Start 订阅传感器数据主题
// 单条消息的处理失败只记日志，不向 broker 返回错误
func (c *SensorConsumer) Start(ctx context.Context, checker ThresholdChecker) error {
	c.checker = checker
	topic := c.config.Ingest.Topic

	err := c.mqttClient.Subscribe(topic, c.config.MQTT.QoS, func(topic string, payload []byte) error {
		c.handleMessage(ctx, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to sensor topic: %w", err)
	}

	c.logger.Info("Sensor consumer started",
		zap.String("topic", topic),
	)
	return nil
}

// handleMessage 处理一条传感器消息：缓存最新读数 + 跑阈值检查
func (c *SensorConsumer) handleMessage(ctx context.Context, payload []byte) {
	reading := normalizer.Normalize(payload)
	if reading.DeviceID != "" && c.cache != nil {
		if err := c.cache.SetLatestReading(ctx, &reading); err != nil {
			c.logger.Warn("Failed to cache latest reading",
				zap.String("device_id", reading.DeviceID),
				zap.Error(err),
			)
		}
	}

	if c.checker == nil {
		return
	}

	exceeded := c.checker.CheckThresholds(ctx, payload)
	if len(exceeded) > 0 {
		c.logger.Info("Thresholds exceeded for reading",
			zap.String("device_id", reading.DeviceID),
			zap.Strings("exceeded", models.ConditionStrings(exceeded)),
		)
	}
}

// Stop 取消订阅并断开连接
func (c *SensorConsumer) Stop() {
	if c.mqttClient == nil {
		return
	}
	if err := c.mqttClient.Unsubscribe(c.config.Ingest.Topic); err != nil {
		c.logger.Warn("Failed to unsubscribe from sensor topic",
			zap.Error(err),
		)
	}
	c.mqttClient.Disconnect()
}
