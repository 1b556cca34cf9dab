package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ecodetect-alert/internal/config"
	"ecodetect-alert/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ReadingCache Redis 实时缓存：每台设备的最新读数和最近报警
type ReadingCache struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewReadingCache 创建实时缓存
func NewReadingCache(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) *ReadingCache {
	return &ReadingCache{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// readingKey 最新读数缓存键
func (c *ReadingCache) readingKey(deviceID string) string {
	return fmt.Sprintf("%s%s%s",
		c.config.Alert.Cache.ReadingKeyPrefix,
		deviceID,
		c.config.Alert.Cache.ReadingSuffix,
	)
}

// alertKey 最近报警缓存键
func (c *ReadingCache) alertKey(deviceID string) string {
	return fmt.Sprintf("%s%s%s",
		c.config.Alert.Cache.AlertKeyPrefix,
		deviceID,
		c.config.Alert.Cache.AlertSuffix,
	)
}

func (c *ReadingCache) ttl() time.Duration {
	return time.Duration(c.config.Alert.Cache.TTLSeconds) * time.Second
}

// SetLatestReading 缓存设备的最新读数
func (c *ReadingCache) SetLatestReading(ctx context.Context, reading *models.Reading) error {
	if reading.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}

	jsonData, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	if err := c.redisClient.Set(ctx, c.readingKey(reading.DeviceID), jsonData, c.ttl()).Err(); err != nil {
		return fmt.Errorf("failed to set reading cache: %w", err)
	}

	return nil
}

// GetLatestReading 读取设备的最新读数
func (c *ReadingCache) GetLatestReading(ctx context.Context, deviceID string) (*models.Reading, error) {
	val, err := c.redisClient.Get(ctx, c.readingKey(deviceID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("latest reading not found for device: %s", deviceID)
		}
		return nil, fmt.Errorf("failed to get reading cache: %w", err)
	}

	var reading models.Reading
	if err := json.Unmarshal([]byte(val), &reading); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reading: %w", err)
	}

	return &reading, nil
}

// UpdateAlertCache 更新设备的最近报警缓存
func (c *ReadingCache) UpdateAlertCache(ctx context.Context, deviceID string, alerts []models.Alert) error {
	jsonData, err := json.Marshal(alerts)
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}

	if err := c.redisClient.Set(ctx, c.alertKey(deviceID), jsonData, c.ttl()).Err(); err != nil {
		return fmt.Errorf("failed to set alert cache: %w", err)
	}

	return nil
}

// GetRecentAlerts 读取设备的最近报警缓存
func (c *ReadingCache) GetRecentAlerts(ctx context.Context, deviceID string) ([]models.Alert, error) {
	val, err := c.redisClient.Get(ctx, c.alertKey(deviceID)).Result()
	if err != nil {
		if err == redis.Nil {
			return []models.Alert{}, nil
		}
		return nil, fmt.Errorf("failed to get alert cache: %w", err)
	}

	var alerts []models.Alert
	if err := json.Unmarshal([]byte(val), &alerts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alerts: %w", err)
	}

	return alerts, nil
}
