package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Gamification GamificationConfig
	LLM          LLMConfig
	WebSocket    WebSocketConfig
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port           string
	Mode           string   // development | production
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig содержит настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: "single", "sentinel", "cluster". По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: список адресов Redis (хост:порт).
	Addrs []string `mapstructure:"addrs"`

	// Addr: адрес для режима 'single', если Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: имя мастер-сервера (только для "sentinel")
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"` // мс
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"` // мс
}

// JWTConfig содержит настройки проверки JWT.
// Токены выпускает внешний identity-провайдер, сервис их только проверяет.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// XPRewards - начисления XP за события прогресса
type XPRewards struct {
	ActivityCompleted  int `mapstructure:"activity_completed"`
	WeekCompleted      int `mapstructure:"week_completed"`
	VideoWatched       int `mapstructure:"video_watched"`
	StudyPlanCompleted int `mapstructure:"study_plan_completed"`
	DailyLogin         int `mapstructure:"daily_login"`
}

// GamificationConfig содержит настройки движка геймификации
type GamificationConfig struct {
	// Timezone определяет календарный день для серий (IANA, например "Asia/Almaty")
	Timezone      string        `mapstructure:"timezone"`
	XPRewards     XPRewards     `mapstructure:"xp_rewards"`
	StatsCacheTTL time.Duration `mapstructure:"stats_cache_ttl"`
}

// LLMConfig содержит настройки генерации квизов через LLM
type LLMConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Models  []string      `mapstructure:"models"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WebSocketConfig содержит настройки push-уведомлений
type WebSocketConfig struct {
	ClientSendBuffer int `mapstructure:"client_send_buffer"`
	Cluster          ClusterConfig
}

// ClusterConfig содержит настройки рассылки между инстансами через Redis Pub/Sub
type ClusterConfig struct {
	Enabled bool
	Channel string
}

// RateLimitConfig содержит лимиты для дорогих эндпоинтов
type RateLimitConfig struct {
	QuizGenerationPerMinute int `mapstructure:"quiz_generation_per_minute"`
	SubmitPerMinute         int `mapstructure:"submit_per_minute"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Location возвращает часовой пояс для расчета календарных дней
func (g *GamificationConfig) Location() (*time.Location, error) {
	if g.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(g.Timezone)
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.mode", "development")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 60)
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("gamification.timezone", "UTC")
	vip.SetDefault("gamification.xp_rewards.activity_completed", 10)
	vip.SetDefault("gamification.xp_rewards.week_completed", 50)
	vip.SetDefault("gamification.xp_rewards.video_watched", 5)
	vip.SetDefault("gamification.xp_rewards.study_plan_completed", 500)
	vip.SetDefault("gamification.xp_rewards.daily_login", 5)
	vip.SetDefault("gamification.stats_cache_ttl", 5*time.Minute)
	vip.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta")
	vip.SetDefault("llm.models", []string{"gemini-flash-latest", "gemini-2.5-flash", "gemini-2.0-flash", "gemini-pro-latest"})
	vip.SetDefault("llm.timeout", 90*time.Second)
	vip.SetDefault("websocket.client_send_buffer", 64)
	vip.SetDefault("websocket.cluster.channel", "studyquest:notifications")
	vip.SetDefault("rate_limit.quiz_generation_per_minute", 3)
	vip.SetDefault("rate_limit.submit_per_minute", 30)
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Новый экземпляр Viper, без глобального состояния

	setDefaults(vip)

	// Привязываем переменные окружения ЯВНО
	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("server.mode", "SERVER_MODE")

	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.issuer", "JWT_ISSUER")

	vip.BindEnv("gamification.timezone", "GAMIFICATION_TIMEZONE")

	vip.BindEnv("llm.api_key", "GEMINI_API_KEY")
	vip.BindEnv("llm.base_url", "GEMINI_BASE_URL")

	vip.BindEnv("websocket.cluster.enabled", "WEBSOCKET_CLUSTER_ENABLED")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Файла может не быть: значения придут из env/умолчаний
		if err := vip.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required (check JWT_SECRET env var)")
	}
	if _, err := c.Gamification.Location(); err != nil {
		return fmt.Errorf("invalid gamification timezone %q: %w", c.Gamification.Timezone, err)
	}
	if c.Server.Mode == "production" && c.Database.Password == "" {
		return fmt.Errorf("database password is required in production mode (check DATABASE_PASSWORD env var)")
	}
	rewards := c.Gamification.XPRewards
	for name, v := range map[string]int{
		"activity_completed":   rewards.ActivityCompleted,
		"week_completed":       rewards.WeekCompleted,
		"video_watched":        rewards.VideoWatched,
		"study_plan_completed": rewards.StudyPlanCompleted,
		"daily_login":          rewards.DailyLogin,
	} {
		if v < 0 {
			return fmt.Errorf("gamification.xp_rewards.%s must be non-negative, got %d", name, v)
		}
	}
	return nil
}
