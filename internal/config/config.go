package config

import (
	"os"
	"strconv"
	"time"
)

// Config evv-engine（EVV 合规引擎）配置
type Config struct {
	// 租户ID（每个实例服务一个机构，与 HTTP 层的 X-Tenant-Id 对应）
	TenantID string

	HTTP struct {
		Addr string
	}

	DBEnabled bool
	Database  DatabaseConfig
	Redis     RedisConfig
	MQTT      MQTTConfig

	// 违规检测配置
	Detector struct {
		ToleranceIn   time.Duration // 打卡上班容差（默认 15 分钟）
		ToleranceOut  time.Duration // 打卡下班容差（默认 15 分钟）
		SweepInterval time.Duration // 扫描间隔（默认 60 秒）
		LookbackDays  int           // 扫描回溯天数（默认 2：今天 + 昨天）
		BatchSize     int           // 批量评估访视数量（默认 50）
	}

	// 外呼（SMS/语音）配置
	Outreach struct {
		ProviderBaseURL string // SMS/语音厂家网关地址
		APIKey          string // 厂家 API Key
		DispatchEnabled bool   // 是否启用主动外呼（默认 false，便于本地联测）
		DeliveryStream  string // 投递回执 Redis Stream
		ConsumerGroup   string // 回执消费者组
	}

	// 看板视图缓存配置
	Cache struct {
		KeyPrefix string // 缓存键前缀，如 "evv:"
		ViewTTL   int    // 视图缓存 TTL（秒），默认 30秒
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() *Config {
	cfg := &Config{}

	cfg.TenantID = getEnv("TENANT_ID", "")
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true for local dev: if DB is unavailable the engine
	// falls back to in-memory repositories (see engine.NewEngine).
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "carehub")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	// MQTT 配置（现场设备打卡事件接入，默认禁用）
	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "evv-engine")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "evv/+/clock")
	cfg.MQTT.QoS = 1

	// 违规检测配置
	cfg.Detector.ToleranceIn = time.Duration(parseInt(getEnv("DETECTOR_TOLERANCE_IN_MIN", "15"), 15)) * time.Minute
	cfg.Detector.ToleranceOut = time.Duration(parseInt(getEnv("DETECTOR_TOLERANCE_OUT_MIN", "15"), 15)) * time.Minute
	cfg.Detector.SweepInterval = time.Duration(parseInt(getEnv("DETECTOR_SWEEP_INTERVAL_SEC", "60"), 60)) * time.Second
	cfg.Detector.LookbackDays = parseInt(getEnv("DETECTOR_LOOKBACK_DAYS", "2"), 2)
	cfg.Detector.BatchSize = parseInt(getEnv("DETECTOR_BATCH_SIZE", "50"), 50)

	// 外呼配置
	cfg.Outreach.ProviderBaseURL = getEnv("OUTREACH_PROVIDER_URL", "http://localhost:9090")
	cfg.Outreach.APIKey = getEnv("OUTREACH_API_KEY", "")
	cfg.Outreach.DispatchEnabled = getEnv("OUTREACH_DISPATCH_ENABLED", "false") == "true"
	cfg.Outreach.DeliveryStream = getEnv("OUTREACH_DELIVERY_STREAM", "evv:outreach:delivery")
	cfg.Outreach.ConsumerGroup = getEnv("OUTREACH_CONSUMER_GROUP", "evv-engine")

	// 缓存配置
	cfg.Cache.KeyPrefix = getEnv("CACHE_KEY_PREFIX", "evv:")
	cfg.Cache.ViewTTL = parseInt(getEnv("CACHE_VIEW_TTL_SEC", "30"), 30) // 30秒

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, defaultValue int) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return defaultValue
}
