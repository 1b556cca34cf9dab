package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"ecodetect-alert/internal/config"
	"ecodetect-alert/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRepoConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Alert.Thresholds.RedisKey = "ecodetect:thresholds"
	cfg.Alert.Thresholds.Table = "thresholds"
	cfg.Alert.AlertTable = "alerts"
	cfg.Alert.Cache.ReadingKeyPrefix = "ecodetect:device:"
	cfg.Alert.Cache.ReadingSuffix = ":latest"
	cfg.Alert.Cache.AlertKeyPrefix = "ecodetect:device:"
	cfg.Alert.Cache.AlertSuffix = ":alerts"
	cfg.Alert.Cache.TTLSeconds = 300
	return cfg
}

func setupThresholdRepo(t *testing.T) (*miniredis.Miniredis, *redis.Client, sqlmock.Sqlmock, *sql.DB, *ThresholdRepository) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewThresholdRepository(db, redisClient, testRepoConfig(), zap.NewNop())
	return mr, redisClient, mock, db, repo
}

func TestGetActive_RedisPrimary(t *testing.T) {
	mr, _, _, db, repo := setupThresholdRepo(t)
	defer db.Close()

	stored := &models.ThresholdConfig{
		TemperatureRange:  [2]float64{18, 28},
		HumidityRange:     [2]float64{35, 65},
		FlowRateThreshold: 12,
	}
	raw, err := json.Marshal(stored)
	require.NoError(t, err)
	require.NoError(t, mr.Set("ecodetect:thresholds", string(raw)))

	cfg := repo.GetActive(context.Background())

	// 主存储命中时原样使用，不与默认值合并
	assert.Equal(t, [2]float64{18, 28}, cfg.TemperatureRange)
	assert.Equal(t, [2]float64{35, 65}, cfg.HumidityRange)
	assert.Equal(t, 12.0, cfg.FlowRateThreshold)
}

func TestGetActive_PostgresSecondary(t *testing.T) {
	_, _, mock, db, repo := setupThresholdRepo(t)
	defer db.Close()

	// redis 为空，落到 postgres
	raw := `{"temperature_range":[15,30],"humidity_range":[20,70],"flow_rate_threshold":8}`
	mock.ExpectQuery(`SELECT`).
		WillReturnRows(sqlmock.NewRows([]string{"config"}).AddRow([]byte(raw)))

	cfg := repo.GetActive(context.Background())

	assert.Equal(t, [2]float64{15, 30}, cfg.TemperatureRange)
	assert.Equal(t, 8.0, cfg.FlowRateThreshold)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActive_DefaultFallback(t *testing.T) {
	_, _, mock, db, repo := setupThresholdRepo(t)
	defer db.Close()

	// 两个存储都空：返回硬编码默认值
	mock.ExpectQuery(`SELECT`).WillReturnError(sql.ErrNoRows)

	cfg := repo.GetActive(context.Background())

	assert.Equal(t, [2]float64{20, 25}, cfg.TemperatureRange)
	assert.Equal(t, [2]float64{30, 60}, cfg.HumidityRange)
	assert.Equal(t, 10.0, cfg.FlowRateThreshold)
}

func TestGetActive_StoreFailuresTreatedAsEmpty(t *testing.T) {
	mr, _, mock, db, repo := setupThresholdRepo(t)
	defer db.Close()

	// redis 挂掉 + postgres 报错，仍然拿到默认值，不向上传播
	mr.Close()
	mock.ExpectQuery(`SELECT`).WillReturnError(assert.AnError)

	cfg := repo.GetActive(context.Background())

	assert.Equal(t, [2]float64{20, 25}, cfg.TemperatureRange)
}

func TestGetActive_CorruptRedisDocumentSkipped(t *testing.T) {
	mr, _, mock, db, repo := setupThresholdRepo(t)
	defer db.Close()

	require.NoError(t, mr.Set("ecodetect:thresholds", "{not json"))
	mock.ExpectQuery(`SELECT`).WillReturnError(sql.ErrNoRows)

	cfg := repo.GetActive(context.Background())

	assert.Equal(t, [2]float64{20, 25}, cfg.TemperatureRange)
}

func TestReplace_WritesBothBackends(t *testing.T) {
	mr, _, mock, db, repo := setupThresholdRepo(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO thresholds`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	newCfg := &models.ThresholdConfig{
		TemperatureRange:  [2]float64{16, 27},
		HumidityRange:     [2]float64{25, 75},
		FlowRateThreshold: 20,
	}

	err := repo.Replace(context.Background(), newCfg)
	require.NoError(t, err)

	// redis 文档被整体替换
	val, err := mr.Get("ecodetect:thresholds")
	require.NoError(t, err)
	var stored models.ThresholdConfig
	require.NoError(t, json.Unmarshal([]byte(val), &stored))
	assert.Equal(t, [2]float64{16, 27}, stored.TemperatureRange)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplace_RejectsInvertedRange(t *testing.T) {
	_, _, _, db, repo := setupThresholdRepo(t)
	defer db.Close()

	bad := &models.ThresholdConfig{
		TemperatureRange:  [2]float64{25, 20}, // low > high
		HumidityRange:     [2]float64{30, 60},
		FlowRateThreshold: 10,
	}

	err := repo.Replace(context.Background(), bad)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "temperature_range")
}

func TestReplace_PartialBackendFailure(t *testing.T) {
	_, _, mock, db, repo := setupThresholdRepo(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO thresholds`).WillReturnError(assert.AnError)

	err := repo.Replace(context.Background(), models.DefaultThresholds())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "partially failed")
}
