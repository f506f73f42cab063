package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Identity  IdentityConfig
	Admin     AdminConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	WebSocket WebSocketConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port           string
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string `mapstructure:"migrations_path"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт).
	Addrs []string `mapstructure:"addrs"`

	// Addr: Адрес для режима 'single', используется если Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"` // мс
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"` // мс
}

// IdentityConfig содержит настройки клиента EVE API
type IdentityConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AdminConfig содержит настройки административного доступа
type AdminConfig struct {
	// JWTSecret: HMAC-секрет для проверки административных токенов (HS256)
	JWTSecret string `mapstructure:"jwt_secret"`
}

// CacheConfig содержит время жизни кешированных выборок
type CacheConfig struct {
	CountTTL time.Duration `mapstructure:"count_ttl"`
	TopTTL   time.Duration `mapstructure:"top_ttl"`
}

// RateLimitConfig содержит лимиты для голосования и регистрации
type RateLimitConfig struct {
	Enabled           bool
	VotesPerMinute    int `mapstructure:"votes_per_minute"`
	RegisterPerMinute int `mapstructure:"register_per_minute"`
}

// WebSocketConfig содержит настройки WebSocket-подсистемы
type WebSocketConfig struct {
	Cluster ClusterConfig
	Limits  LimitsConfig
}

// ClusterConfig содержит настройки кластеризации счетчика онлайна
type ClusterConfig struct {
	Enabled         bool
	InstanceID      string `mapstructure:"instance_id"`
	PresenceChannel string `mapstructure:"presence_channel"`
}

// LimitsConfig содержит настройки ограничений соединений
type LimitsConfig struct {
	MaxMessageSize   int `mapstructure:"max_message_size"`
	WriteWait        int `mapstructure:"write_wait"`
	PongWait         int `mapstructure:"pong_wait"`
	ClientSendBuffer int `mapstructure:"client_send_buffer"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// PostgresURL формирует URL подключения (для pgx и migrate).
// Логин и пароль экранируются: символы @ / ? : в пароле не должны менять хост.
func (d *DatabaseConfig) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// setDefaults задает значения по умолчанию
func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "3000")
	vip.SetDefault("server.read_timeout", 10)
	vip.SetDefault("server.write_timeout", 10)
	vip.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.migrations_path", "migrations")

	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.addr", "localhost:6379")

	vip.SetDefault("identity.base_url", "https://api.eveonline.com")
	vip.SetDefault("identity.timeout", 10*time.Second)

	vip.SetDefault("cache.count_ttl", time.Minute)
	vip.SetDefault("cache.top_ttl", 30*time.Second)

	vip.SetDefault("rate_limit.enabled", true)
	vip.SetDefault("rate_limit.votes_per_minute", 60)
	vip.SetDefault("rate_limit.register_per_minute", 5)

	vip.SetDefault("websocket.cluster.presence_channel", "newedenfaces:presence")
	vip.SetDefault("websocket.limits.max_message_size", 512)
	vip.SetDefault("websocket.limits.write_wait", 10)
	vip.SetDefault("websocket.limits.pong_wait", 60)
	vip.SetDefault("websocket.limits.client_send_buffer", 16)
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Новый экземпляр Viper, без глобального состояния

	// 1. Значения по умолчанию
	setDefaults(vip)

	// 2. Привязываем переменные окружения ЯВНО
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

	vip.BindEnv("server.port", "PORT") // как в исходном express-приложении
	vip.BindEnv("identity.base_url", "IDENTITY_BASE_URL")
	vip.BindEnv("identity.timeout", "IDENTITY_TIMEOUT")
	vip.BindEnv("admin.jwt_secret", "ADMIN_JWT_SECRET")
	vip.BindEnv("websocket.cluster.enabled", "WEBSOCKET_CLUSTER_ENABLED")
	vip.BindEnv("websocket.cluster.instance_id", "WEBSOCKET_INSTANCE_ID")

	// 3. Файл конфигурации (не страшно, если его нет, т.к. есть BindEnv и умолчания)
	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 4. Анмаршалим (Viper объединит значения из файла, env и умолчаний)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Mode: %s, Addr: %s", cfg.Redis.Mode, cfg.Redis.Addr)
		log.Printf("Identity Base URL: %s (timeout %s)", cfg.Identity.BaseURL, cfg.Identity.Timeout)
		log.Printf("Admin JWT Secret Set: %t", cfg.Admin.JWTSecret != "")
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("Websocket Cluster Enabled: %t", cfg.WebSocket.Cluster.Enabled)
		log.Printf("-----------------------------------------")
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
	if c.Identity.BaseURL == "" {
		return fmt.Errorf("identity base url is required (check IDENTITY_BASE_URL env var)")
	}
	if c.Identity.Timeout <= 0 {
		return fmt.Errorf("identity timeout must be positive, got %s", c.Identity.Timeout)
	}
	if c.Admin.JWTSecret == "" {
		log.Println("Warning: ADMIN_JWT_SECRET is not set, admin endpoints are disabled.")
	}
	return nil
}
