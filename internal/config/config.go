package config

import (
	"os"
	"strconv"

	"ecodetect-alert/common/config"
)

// Config 环境监测报警服务配置
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	HTTP struct {
		Addr string
	}

	// 报警服务特定配置
	Alert struct {
		// 阈值存储配置
		Thresholds struct {
			RedisKey string // 主存储：Redis 阈值文档键，如 "ecodetect:thresholds"
			Table    string // 备用存储：PostgreSQL 阈值表名
		}

		// 报警历史存储配置
		AlertTable string // 报警历史表名

		// 去重配置
		Suppression struct {
			Enabled    bool // 是否启用去重（原系统中此路径时开时关，这里做成开关）
			TTLMinutes int  // 去重窗口（分钟），默认 15
			MaxEntries int  // 缓存容量上限，超过后清理过期条目，默认 100
		}

		// 实时数据缓存配置
		Cache struct {
			ReadingKeyPrefix string // 最新读数缓存键前缀，如 "ecodetect:device:"
			ReadingSuffix    string // 最新读数缓存键后缀，如 ":latest"
			AlertKeyPrefix   string // 最近报警缓存键前缀
			AlertSuffix      string // 最近报警缓存键后缀
			TTLSeconds       int    // 缓存 TTL（秒），默认 300
		}

		// 通知渠道配置（缺失表示该渠道关闭，不是错误）
		Notify struct {
			SMSGatewayURL  string // SMS 网关地址（SNS 风格的 topic 发布接口）
			SMSTopic       string // SMS 主题标识，为空则跳过短信
			MailGatewayURL string // 邮件网关地址（SES 风格的发送接口）
			EmailSender    string // 发件地址，为空则跳过邮件
			EmailRecipient string // 收件地址，为空则跳过邮件
			DashboardURL   string // 邮件底部的控制台链接
		}
	}

	// 数据接入配置
	Ingest struct {
		Topic string // 传感器数据 MQTT 主题
	}

	// API 访问令牌（为空表示不校验）
	APIToken string

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = 5432
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "ecodetect")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "ecodetect-alert")
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// 阈值存储
	cfg.Alert.Thresholds.RedisKey = getEnv("THRESHOLD_REDIS_KEY", "ecodetect:thresholds")
	cfg.Alert.Thresholds.Table = getEnv("THRESHOLD_TABLE", "thresholds")
	cfg.Alert.AlertTable = getEnv("ALERT_TABLE", "alerts")

	// 去重
	cfg.Alert.Suppression.Enabled = getEnvBool("SUPPRESSION_ENABLED", true)
	cfg.Alert.Suppression.TTLMinutes = getEnvInt("SUPPRESSION_TTL_MINUTES", 15)
	cfg.Alert.Suppression.MaxEntries = getEnvInt("SUPPRESSION_MAX_ENTRIES", 100)

	// 实时缓存
	cfg.Alert.Cache.ReadingKeyPrefix = getEnv("CACHE_READING_PREFIX", "ecodetect:device:")
	cfg.Alert.Cache.ReadingSuffix = ":latest"
	cfg.Alert.Cache.AlertKeyPrefix = getEnv("CACHE_ALERT_PREFIX", "ecodetect:device:")
	cfg.Alert.Cache.AlertSuffix = ":alerts"
	cfg.Alert.Cache.TTLSeconds = getEnvInt("CACHE_TTL_SECONDS", 300)

	// 通知渠道
	cfg.Alert.Notify.SMSGatewayURL = getEnv("SMS_GATEWAY_URL", "")
	cfg.Alert.Notify.SMSTopic = getEnv("SMS_TOPIC", "")
	cfg.Alert.Notify.MailGatewayURL = getEnv("MAIL_GATEWAY_URL", "")
	cfg.Alert.Notify.EmailSender = getEnv("EMAIL_SENDER", "")
	cfg.Alert.Notify.EmailRecipient = getEnv("EMAIL_RECIPIENT", "")
	cfg.Alert.Notify.DashboardURL = getEnv("DASHBOARD_URL", "https://localhost:3000")

	cfg.Ingest.Topic = getEnv("SENSOR_TOPIC", "sensor/data")

	cfg.APIToken = getEnv("API_TOKEN", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
