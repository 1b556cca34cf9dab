package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	commondb "ecodetect-alert/common/database"
	commonmqtt "ecodetect-alert/common/mqtt"
	commonredis "ecodetect-alert/common/redis"
	"ecodetect-alert/internal/config"
	"ecodetect-alert/internal/consumer"
	"ecodetect-alert/internal/evaluator"
	"ecodetect-alert/internal/models"
	"ecodetect-alert/internal/normalizer"
	"ecodetect-alert/internal/notifier"
	"ecodetect-alert/internal/repository"
	"ecodetect-alert/internal/suppressor"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// AlertService 报警服务（整合各层）
//
// 评估管道：Normalize → GetActive → Evaluate → (去重门) → Dispatch + Record
// 通知和落库是两次独立的尽力而为写入：至少一次通知、至少一次落库，
// 两个系统之间没有原子性，部分成功是设计内的结果
type AlertService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger

	// 各层组件
	thresholdRepo  *repository.ThresholdRepository
	alertRepo      *repository.AlertRepository
	readingCache   *repository.ReadingCache
	suppressor     *suppressor.Suppressor // nil 表示去重关闭
	dispatcher     *notifier.Dispatcher
	sensorConsumer *consumer.SensorConsumer
}

// NewAlertService 创建报警服务
func NewAlertService(cfg *config.Config, logger *zap.Logger) (*AlertService, error) {
	// 1. 连接数据库
	db, err := commondb.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 2. 连接 Redis
	redisClient := commonredis.NewRedisClient(&cfg.Redis)
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. 连接 MQTT
	mqttClient, err := commonmqtt.NewClient(&cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	// 4. 创建 Repository 层
	thresholdRepo := repository.NewThresholdRepository(db, redisClient, cfg, logger)
	alertRepo := repository.NewAlertRepository(db, cfg, logger)
	readingCache := repository.NewReadingCache(cfg, redisClient, logger)

	// 5. 创建去重缓存（可配置开关）
	var sup *suppressor.Suppressor
	if cfg.Alert.Suppression.Enabled {
		sup = suppressor.New(
			time.Duration(cfg.Alert.Suppression.TTLMinutes)*time.Minute,
			cfg.Alert.Suppression.MaxEntries,
		)
	}

	// 6. 创建通知渠道和分发器
	var sms notifier.SMSSender
	if cfg.Alert.Notify.SMSGatewayURL != "" {
		sms = notifier.NewSMSClient(cfg.Alert.Notify.SMSGatewayURL, logger)
	}
	var mail notifier.MailSender
	if cfg.Alert.Notify.MailGatewayURL != "" {
		mail = notifier.NewMailClient(cfg.Alert.Notify.MailGatewayURL, logger)
	}
	dispatcher := notifier.NewDispatcher(cfg, sms, mail, logger)

	// 7. 创建传感器数据消费者
	sensorConsumer := consumer.NewSensorConsumer(cfg, mqttClient, readingCache, logger)

	return &AlertService{
		config:         cfg,
		db:             db,
		redisClient:    redisClient,
		logger:         logger,
		thresholdRepo:  thresholdRepo,
		alertRepo:      alertRepo,
		readingCache:   readingCache,
		suppressor:     sup,
		dispatcher:     dispatcher,
		sensorConsumer: sensorConsumer,
	}, nil
}

// Start 启动服务
func (s *AlertService) Start(ctx context.Context) error {
	s.logger.Info("Starting alert service",
		zap.String("sensor_topic", s.config.Ingest.Topic),
		zap.Bool("suppression_enabled", s.suppressor != nil),
	)

	if err := s.sensorConsumer.Start(ctx, s); err != nil {
		return fmt.Errorf("failed to start sensor consumer: %w", err)
	}

	return nil
}

// Stop 停止服务
func (s *AlertService) Stop() error {
	s.logger.Info("Stopping alert service")

	if s.sensorConsumer != nil {
		s.sensorConsumer.Stop()
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database",
				zap.Error(err),
			)
		}
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close redis",
				zap.Error(err),
			)
		}
	}

	return nil
}

// CheckThresholds 对一条原始读数跑完整的评估管道，返回越界条件列表
//
// 这是唯一的评估入口。任何意外错误都在这里兜住并转成空列表：
// 报警子系统的故障不能级联成数据接入的故障，调用方永远拿到一个列表
func (s *AlertService) CheckThresholds(ctx context.Context, raw []byte) (exceeded []models.Condition) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic while checking thresholds",
				zap.Any("panic", r),
				zap.ByteString("raw", raw),
			)
			exceeded = nil
		}
	}()

	reading := normalizer.Normalize(raw)
	thresholds := s.thresholdRepo.GetActive(ctx)

	exceeded = evaluator.Evaluate(&reading, thresholds)
	if len(exceeded) == 0 {
		return exceeded
	}

	// 去重只拦通知，评估和落库照常进行
	notify := true
	if s.suppressor != nil {
		key := models.SuppressionKey(reading.DeviceID, exceeded)
		if s.suppressor.ShouldSuppress(key) {
			s.logger.Info("Duplicate alert suppressed",
				zap.String("device_id", reading.DeviceID),
				zap.Strings("exceeded", models.ConditionStrings(exceeded)),
			)
			notify = false
		}
	}

	if notify {
		result := s.dispatcher.Dispatch(ctx, &reading, exceeded, thresholds)
		if s.suppressor != nil {
			s.suppressor.RecordFired(models.SuppressionKey(reading.DeviceID, exceeded))
		}
		if len(result.Errors) > 0 {
			s.logger.Warn("Notification dispatch completed with errors",
				zap.String("device_id", reading.DeviceID),
				zap.Bool("sms_sent", result.SMSSent),
				zap.Bool("email_sent", result.EmailSent),
				zap.Errors("errors", result.Errors),
			)
		}
	}

	// 落库独立于通知结果：通知失败也要落库，通知成功也要落库
	s.recordAlert(ctx, &reading, exceeded)

	return exceeded
}

// recordAlert 持久化报警记录，失败只记日志
func (s *AlertService) recordAlert(ctx context.Context, reading *models.Reading, exceeded []models.Condition) {
	timestamp := reading.Timestamp
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	alert := &models.Alert{
		ID:                 repository.NewAlertID(),
		DeviceID:           deviceIDOrUnknown(reading.DeviceID),
		Timestamp:          timestamp,
		SensorData:         *reading,
		ExceededThresholds: exceeded,
		Severity:           models.DeriveSeverity(exceeded),
		Processed:          true,
	}

	if err := s.alertRepo.Create(ctx, alert); err != nil {
		s.logger.Error("Failed to store alert history",
			zap.String("alert_id", alert.ID),
			zap.String("device_id", alert.DeviceID),
			zap.Error(err),
		)
	} else {
		s.logger.Info("Alert history stored",
			zap.String("alert_id", alert.ID),
			zap.String("device_id", alert.DeviceID),
			zap.String("severity", alert.Severity),
			zap.Strings("exceeded", models.ConditionStrings(exceeded)),
		)
	}

	// 最近报警缓存是展示用的尽力而为写入，设备ID缺失的记录不进缓存
	if s.readingCache != nil && reading.DeviceID != "" {
		if err := s.readingCache.UpdateAlertCache(ctx, alert.DeviceID, []models.Alert{*alert}); err != nil {
			s.logger.Warn("Failed to update alert cache",
				zap.String("device_id", alert.DeviceID),
				zap.Error(err),
			)
		}
	}
}

// deviceIDOrUnknown 设备ID缺失时的占位值
func deviceIDOrUnknown(deviceID string) string {
	if deviceID == "" {
		return "unknown_device"
	}
	return deviceID
}

// ThresholdRepo 暴露阈值仓库（HTTP 管理接口使用）
func (s *AlertService) ThresholdRepo() *repository.ThresholdRepository {
	return s.thresholdRepo
}

// AlertRepo 暴露报警历史仓库（HTTP 查询接口使用）
func (s *AlertService) AlertRepo() *repository.AlertRepository {
	return s.alertRepo
}

// ReadingCache 暴露实时缓存（HTTP 查询接口使用）
func (s *AlertService) ReadingCache() *repository.ReadingCache {
	return s.readingCache
}
