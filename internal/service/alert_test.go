package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"ecodetect-alert/internal/config"
	"ecodetect-alert/internal/models"
	"ecodetect-alert/internal/notifier"
	"ecodetect-alert/internal/repository"
	"ecodetect-alert/internal/suppressor"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSMS struct {
	calls []string
	err   error
}

func (f *fakeSMS) Publish(ctx context.Context, topic, message, subject string) (string, error) {
	f.calls = append(f.calls, message)
	if f.err != nil {
		return "", f.err
	}
	return "sms-msg-1", nil
}

type fakeMail struct {
	calls []string
	err   error
}

func (f *fakeMail) Send(ctx context.Context, sender, recipient, subject, htmlBody, textBody string) (string, error) {
	f.calls = append(f.calls, textBody)
	if f.err != nil {
		return "", f.err
	}
	return "mail-msg-1", nil
}

func testServiceConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Alert.Thresholds.RedisKey = "ecodetect:thresholds"
	cfg.Alert.Thresholds.Table = "thresholds"
	cfg.Alert.AlertTable = "alerts"
	cfg.Alert.Suppression.TTLMinutes = 15
	cfg.Alert.Suppression.MaxEntries = 100
	cfg.Alert.Cache.ReadingKeyPrefix = "ecodetect:device:"
	cfg.Alert.Cache.ReadingSuffix = ":latest"
	cfg.Alert.Cache.AlertKeyPrefix = "ecodetect:device:"
	cfg.Alert.Cache.AlertSuffix = ":alerts"
	cfg.Alert.Cache.TTLSeconds = 300
	cfg.Alert.Notify.SMSTopic = "env-alerts"
	cfg.Alert.Notify.EmailSender = "alerts@ecodetect.io"
	cfg.Alert.Notify.EmailRecipient = "ops@ecodetect.io"
	cfg.Alert.Notify.DashboardURL = "https://localhost:3000"
	return cfg
}

type serviceFixture struct {
	service *AlertService
	mock    sqlmock.Sqlmock
	redis   *miniredis.Miniredis
	sms     *fakeSMS
	mail    *fakeMail
}

func newTestService(t *testing.T) *serviceFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	cfg := testServiceConfig()
	logger := zap.NewNop()

	sms := &fakeSMS{}
	mail := &fakeMail{}

	svc := &AlertService{
		config:        cfg,
		db:            db,
		redisClient:   redisClient,
		logger:        logger,
		thresholdRepo: repository.NewThresholdRepository(db, redisClient, cfg, logger),
		alertRepo:     repository.NewAlertRepository(db, cfg, logger),
		readingCache:  repository.NewReadingCache(cfg, redisClient, logger),
		suppressor:    suppressor.New(suppressor.DefaultTTL, suppressor.DefaultMaxEntries),
		dispatcher:    notifier.NewDispatcher(cfg, sms, mail, logger),
	}

	return &serviceFixture{service: svc, mock: mock, redis: mr, sms: sms, mail: mail}
}

// 阈值查 Redis 不命中后落到 PostgreSQL，这里让两级都为空，走硬编码默认值
func expectDefaultThresholds(f *serviceFixture) {
	f.mock.ExpectQuery("SELECT config FROM thresholds").
		WillReturnError(sql.ErrNoRows)
}

func expectAlertInsert(f *serviceFixture) {
	f.mock.ExpectExec("INSERT INTO alerts").
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func TestCheckThresholdsEndToEnd(t *testing.T) {
	f := newTestService(t)
	expectDefaultThresholds(f)
	expectAlertInsert(f)

	raw := []byte(`{"device_id":"rpi-greenhouse-1","temperature":30.5,"humidity":25,"timestamp":"2026-08-30T10:15:00Z"}`)

	exceeded := f.service.CheckThresholds(context.Background(), raw)

	assert.Equal(t, []models.Condition{models.ConditionTemperatureHigh, models.ConditionHumidityLow}, exceeded)

	// 两个渠道各发一次
	require.Len(t, f.sms.calls, 1)
	require.Len(t, f.mail.calls, 1)
	assert.Contains(t, f.sms.calls[0], "Temperature is too high")
	assert.Contains(t, f.mail.calls[0], "Humidity is too low")

	// 报警记录已写库（sqlmock 校验），最近报警缓存已更新
	assert.NoError(t, f.mock.ExpectationsWereMet())
	cached, err := f.service.readingCache.GetRecentAlerts(context.Background(), "rpi-greenhouse-1")
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "critical", cached[0].Severity)
	assert.Equal(t, "rpi-greenhouse-1", cached[0].DeviceID)
}

func TestCheckThresholdsWithinRange(t *testing.T) {
	f := newTestService(t)
	expectDefaultThresholds(f)

	raw := []byte(`{"device_id":"rpi-greenhouse-1","temperature":22,"humidity":45,"flow_rate":5}`)

	exceeded := f.service.CheckThresholds(context.Background(), raw)

	assert.Empty(t, exceeded)
	assert.Empty(t, f.sms.calls)
	assert.Empty(t, f.mail.calls)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCheckThresholdsSuppressionGatesNotificationOnly(t *testing.T) {
	f := newTestService(t)

	raw := []byte(`{"device_id":"rpi-greenhouse-1","temperature":30.5}`)

	expectDefaultThresholds(f)
	expectAlertInsert(f)
	first := f.service.CheckThresholds(context.Background(), raw)
	require.Equal(t, []models.Condition{models.ConditionTemperatureHigh}, first)

	// 窗口内重复：不再通知，但评估结果和落库照常
	expectDefaultThresholds(f)
	expectAlertInsert(f)
	second := f.service.CheckThresholds(context.Background(), raw)
	assert.Equal(t, first, second)

	assert.Len(t, f.sms.calls, 1)
	assert.Len(t, f.mail.calls, 1)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCheckThresholdsSuppressionDisabled(t *testing.T) {
	f := newTestService(t)
	f.service.suppressor = nil

	raw := []byte(`{"device_id":"rpi-greenhouse-1","temperature":30.5}`)

	expectDefaultThresholds(f)
	expectAlertInsert(f)
	f.service.CheckThresholds(context.Background(), raw)

	expectDefaultThresholds(f)
	expectAlertInsert(f)
	f.service.CheckThresholds(context.Background(), raw)

	assert.Len(t, f.sms.calls, 2)
	assert.Len(t, f.mail.calls, 2)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCheckThresholdsNotifyFailureStillRecords(t *testing.T) {
	f := newTestService(t)
	f.sms.err = fmt.Errorf("sms gateway unreachable")
	f.mail.err = fmt.Errorf("mail gateway unreachable")

	expectDefaultThresholds(f)
	expectAlertInsert(f)

	raw := []byte(`{"device_id":"rpi-greenhouse-1","temperature":30.5}`)
	exceeded := f.service.CheckThresholds(context.Background(), raw)

	assert.Equal(t, []models.Condition{models.ConditionTemperatureHigh}, exceeded)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCheckThresholdsRecordFailureStillReturnsConditions(t *testing.T) {
	f := newTestService(t)

	expectDefaultThresholds(f)
	f.mock.ExpectExec("INSERT INTO alerts").
		WillReturnError(fmt.Errorf("history backend down"))

	raw := []byte(`{"device_id":"rpi-greenhouse-1","temperature":30.5}`)
	exceeded := f.service.CheckThresholds(context.Background(), raw)

	// 落库失败不影响评估结果，通知也已经发出
	assert.Equal(t, []models.Condition{models.ConditionTemperatureHigh}, exceeded)
	assert.Len(t, f.sms.calls, 1)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCheckThresholdsPanicReturnsEmpty(t *testing.T) {
	f := newTestService(t)
	f.service.thresholdRepo = nil // 评估路径上的任何崩溃都要兜住

	raw := []byte(`{"device_id":"rpi-greenhouse-1","temperature":30.5}`)

	var exceeded []models.Condition
	require.NotPanics(t, func() {
		exceeded = f.service.CheckThresholds(context.Background(), raw)
	})
	assert.Empty(t, exceeded)
	assert.Empty(t, f.sms.calls)
}

func TestCheckThresholdsMalformedPayload(t *testing.T) {
	f := newTestService(t)
	expectDefaultThresholds(f)

	exceeded := f.service.CheckThresholds(context.Background(), []byte(`not json at all`))

	assert.Empty(t, exceeded)
	assert.Empty(t, f.sms.calls)
}

func TestCheckThresholdsMissingDeviceID(t *testing.T) {
	f := newTestService(t)
	expectDefaultThresholds(f)
	expectAlertInsert(f)

	// 设备ID缺失的读数仍然评估和落库，记录里用占位设备ID
	raw := []byte(`{"temperature":35}`)
	exceeded := f.service.CheckThresholds(context.Background(), raw)

	assert.Equal(t, []models.Condition{models.ConditionTemperatureHigh}, exceeded)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
