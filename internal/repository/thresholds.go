// Package repository 阈值与报警历史的存储访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"ecodetect-alert/internal/config"
	"ecodetect-alert/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ThresholdRepository 阈值配置仓库
//
// 两个冗余后端，读取优先级固定：
//  1. Redis 阈值文档（主存储，存在即原样使用，不与默认值合并）
//  2. PostgreSQL 阈值表（备用，取最新一条）
//  3. 硬编码默认值（兜底）
//
// 任一后端的失败按"空"处理并记日志，从不向上传播
type ThresholdRepository struct {
	db          *sql.DB
	redisClient *redis.Client
	config      *config.Config
	logger      *zap.Logger
}

// NewThresholdRepository 创建阈值仓库
func NewThresholdRepository(db *sql.DB, redisClient *redis.Client, cfg *config.Config, logger *zap.Logger) *ThresholdRepository {
	return &ThresholdRepository{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
		logger:      logger,
	}
}

// GetActive 获取当前生效的阈值配置
func (r *ThresholdRepository) GetActive(ctx context.Context) *models.ThresholdConfig {
	if cfg := r.getFromRedis(ctx); cfg != nil {
		return cfg
	}

	if cfg := r.getFromPostgres(ctx); cfg != nil {
		return cfg
	}

	return models.DefaultThresholds()
}

// getFromRedis 从主存储读阈值文档
func (r *ThresholdRepository) getFromRedis(ctx context.Context) *models.ThresholdConfig {
	if r.redisClient == nil {
		return nil
	}

	val, err := r.redisClient.Get(ctx, r.config.Alert.Thresholds.RedisKey).Result()
	if err != nil {
		if err != redis.Nil {
			r.logger.Error("Failed to read thresholds from redis",
				zap.String("key", r.config.Alert.Thresholds.RedisKey),
				zap.Error(err),
			)
		}
		return nil
	}

	var cfg models.ThresholdConfig
	if err := json.Unmarshal([]byte(val), &cfg); err != nil {
		r.logger.Error("Failed to unmarshal threshold document",
			zap.String("key", r.config.Alert.Thresholds.RedisKey),
			zap.Error(err),
		)
		return nil
	}

	return &cfg
}

// getFromPostgres 从备用表读阈值，取最新一条
func (r *ThresholdRepository) getFromPostgres(ctx context.Context) *models.ThresholdConfig {
	if r.db == nil {
		return nil
	}

	query := fmt.Sprintf(`
		SELECT config
		FROM %s
		ORDER BY updated_at DESC
		LIMIT 1
	`, r.config.Alert.Thresholds.Table)

	var raw []byte
	err := r.db.QueryRowContext(ctx, query).Scan(&raw)
	if err != nil {
		if err != sql.ErrNoRows {
			r.logger.Error("Failed to read thresholds from postgres",
				zap.String("table", r.config.Alert.Thresholds.Table),
				zap.Error(err),
			)
		}
		return nil
	}

	var cfg models.ThresholdConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		r.logger.Error("Failed to unmarshal threshold row",
			zap.Error(err),
		)
		return nil
	}

	return &cfg
}

// Replace 整体替换阈值配置
// 先校验（low < high），然后同时写两个后端，写失败汇总返回
// 不做字段级合并：读取方看到的永远是一份完整文档
func (r *ThresholdRepository) Replace(ctx context.Context, cfg *models.ThresholdConfig) error {
	if cfg == nil {
		return fmt.Errorf("threshold config is required")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid threshold config: %w", err)
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal threshold config: %w", err)
	}

	var errs []error

	if r.redisClient != nil {
		if err := r.redisClient.Set(ctx, r.config.Alert.Thresholds.RedisKey, raw, 0).Err(); err != nil {
			r.logger.Error("Failed to write thresholds to redis", zap.Error(err))
			errs = append(errs, fmt.Errorf("redis write: %w", err))
		}
	}

	if r.db != nil {
		query := fmt.Sprintf(`
			INSERT INTO %s (config, updated_at)
			VALUES ($1, CURRENT_TIMESTAMP)
		`, r.config.Alert.Thresholds.Table)

		if _, err := r.db.ExecContext(ctx, query, raw); err != nil {
			r.logger.Error("Failed to write thresholds to postgres", zap.Error(err))
			errs = append(errs, fmt.Errorf("postgres write: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("threshold replace partially failed: %v", errs)
	}

	r.logger.Info("Thresholds replaced",
		zap.Float64s("temperature_range", cfg.TemperatureRange[:]),
		zap.Float64s("humidity_range", cfg.HumidityRange[:]),
		zap.Float64("flow_rate_threshold", cfg.FlowRateThreshold),
	)
	return nil
}
