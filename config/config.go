package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Temutjin2k/taxi-dispatch/pkg/configparser"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
)

// EnvPrefix is the prefix of environment overrides, e.g. TAXI_DATABASE__HOST.
const EnvPrefix = "TAXI"

// Config contains all configuration variables of the application
type (
	Config struct {
		ServiceName string `koanf:"service_name"`

		Log         LogConfig         `koanf:"log"`
		Server      ServerConfig      `koanf:"server"`
		Database    DatabaseConfig    `koanf:"database"`
		Redis       RedisConfig       `koanf:"redis"`
		RabbitMQ    RabbitMQConfig    `koanf:"rabbitmq"`
		WebSocket   WebSocketConfig   `koanf:"websocket"`
		Dispatch    DispatchConfig    `koanf:"dispatch"`
		Auth        AuthConfig        `koanf:"auth"`
		ExternalAPI ExternalAPIConfig `koanf:"external_api"`
	}

	LogConfig struct {
		Level string `koanf:"level"`
	}

	ServerConfig struct {
		Host              string        `koanf:"host"`
		Port              string        `koanf:"port"`
		ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
		ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	}

	DatabaseConfig struct {
		Host     string `koanf:"host"`
		Port     string `koanf:"port"`
		User     string `koanf:"user"`
		Password string `koanf:"password"`
		Database string `koanf:"database"`
		SSLMode  string `koanf:"sslmode"`

		AutoMigrate bool `koanf:"auto_migrate"`

		MaxConns        int32         `koanf:"max_conns"`          // максимум открытых соединений
		MinConns        int32         `koanf:"min_conns"`          // минимум соединений в пуле
		MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`  // макс. "время жизни" соединения
		MaxConnIdleTime time.Duration `koanf:"max_conn_idle_time"` // макс. "время простоя" соединения
	}

	RedisConfig struct {
		Enabled  bool          `koanf:"enabled"`
		Addr     string        `koanf:"addr"`
		Password string        `koanf:"password"`
		DB       int           `koanf:"db"`
		FixTTL   time.Duration `koanf:"fix_ttl"`
	}

	RabbitMQConfig struct {
		Enabled  bool   `koanf:"enabled"`
		Host     string `koanf:"host"`
		Port     string `koanf:"port"`
		User     string `koanf:"user"`
		Password string `koanf:"password"`
		Exchange string `koanf:"exchange"`
	}

	WebSocketConfig struct {
		WriteWait       time.Duration `koanf:"write_wait"`
		PongWait        time.Duration `koanf:"pong_wait"`
		PingPeriod      time.Duration `koanf:"ping_period"`
		ReadBufferSize  int           `koanf:"read_buffer_size"`
		WriteBufferSize int           `koanf:"write_buffer_size"`
		AllowedOrigins  []string      `koanf:"allowed_origins"`
	}

	DispatchConfig struct {
		FreshnessWindow time.Duration `koanf:"freshness_window"`
		BaseFare        float64       `koanf:"base_fare"`
		PerKmRate       float64       `koanf:"per_km_rate"`
	}

	AuthConfig struct {
		JWTSecret string `koanf:"jwt_secret"`
	}

	ExternalAPIConfig struct {
		LocationIQAPIKey  string        `koanf:"locationiq_api_key"`
		LocationIQBaseURL string        `koanf:"locationiq_base_url"`
		Timeout           time.Duration `koanf:"timeout"`
	}
)

func (c *LogConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = logger.LevelInfo
	}
}

func (c LogConfig) Validate() error {
	if !logger.ValidateLogLevel(c.Level) {
		return fmt.Errorf("log.level: unknown level %q", c.Level)
	}
	return nil
}

func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = 5 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func (c *DatabaseConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == "" {
		c.Port = "5432"
	}
	if c.User == "" {
		c.User = "taxi_user"
	}
	if c.Database == "" {
		c.Database = "taxi_db"
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxConns == 0 {
		c.MaxConns = 20
	}
	if c.MinConns == 0 {
		c.MinConns = 2
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = 30 * time.Minute
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = 5 * time.Minute
	}
}

func (c DatabaseConfig) Validate() error {
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("database: min_conns (%d) exceeds max_conns (%d)", c.MinConns, c.MaxConns)
	}
	return nil
}

// GetDSN returns a pgx connection string including pool settings.
func (c DatabaseConfig) GetDSN() string {
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	q.Set("pool_max_conns", fmt.Sprint(c.MaxConns))
	q.Set("pool_min_conns", fmt.Sprint(c.MinConns))
	q.Set("pool_max_conn_lifetime", c.MaxConnLifetime.String())
	q.Set("pool_max_conn_idle_time", c.MaxConnIdleTime.String())

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%s", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// MigrateDSN returns a connection string without the pgx pool parameters.
func (c DatabaseConfig) MigrateDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%s", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

func (c *RedisConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.FixTTL == 0 {
		c.FixTTL = 10 * time.Minute
	}
}

func (c *RabbitMQConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == "" {
		c.Port = "5672"
	}
	if c.User == "" {
		c.User = "guest"
	}
	if c.Password == "" {
		c.Password = "guest"
	}
	if c.Exchange == "" {
		c.Exchange = "taxi_events"
	}
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func (c *WebSocketConfig) SetDefaults() {
	if c.WriteWait == 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.PongWait == 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingPeriod == 0 {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = 1024
	}
	if c.WriteBufferSize == 0 {
		c.WriteBufferSize = 1024
	}
}

func (c WebSocketConfig) Validate() error {
	if c.PingPeriod >= c.PongWait {
		return errors.New("websocket: ping_period must be shorter than pong_wait")
	}
	return nil
}

func (c *DispatchConfig) SetDefaults() {
	if c.FreshnessWindow == 0 {
		c.FreshnessWindow = 60 * time.Second
	}
	if c.BaseFare == 0 {
		c.BaseFare = 2.00
	}
	if c.PerKmRate == 0 {
		c.PerKmRate = 1.50
	}
}

func (c DispatchConfig) Validate() error {
	if c.FreshnessWindow < 0 {
		return errors.New("dispatch: freshness_window must not be negative")
	}
	if c.BaseFare < 0 || c.PerKmRate < 0 {
		return errors.New("dispatch: fares must not be negative")
	}
	return nil
}

func (c *AuthConfig) SetDefaults() {
	if c.JWTSecret == "" {
		c.JWTSecret = "supersecretkey"
	}
}

func (c AuthConfig) Validate() error {
	if len(c.JWTSecret) < 8 {
		return errors.New("auth: jwt_secret must be at least 8 characters")
	}
	return nil
}

func (c *ExternalAPIConfig) SetDefaults() {
	if c.LocationIQBaseURL == "" {
		c.LocationIQBaseURL = "https://us1.locationiq.com"
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
}

// NewConfig loads the YAML file at path, applies TAXI_* environment overrides,
// fills defaults and validates every section.
func NewConfig(path string) (*Config, error) {
	cfg := &Config{}

	if err := configparser.Load(path, EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "taxi-dispatch"
	}
	c.Log.SetDefaults()
	c.Server.SetDefaults()
	c.Database.SetDefaults()
	c.Redis.SetDefaults()
	c.RabbitMQ.SetDefaults()
	c.WebSocket.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Auth.SetDefaults()
	c.ExternalAPI.SetDefaults()
}

func (c *Config) Validate() error {
	return errors.Join(
		c.Log.Validate(),
		c.Database.Validate(),
		c.WebSocket.Validate(),
		c.Dispatch.Validate(),
		c.Auth.Validate(),
	)
}

// String renders the configuration with secrets masked.
func (c Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "service: %s (log level %s)\n", c.ServiceName, c.Log.Level)
	fmt.Fprintf(&b, "http: %s\n", c.Server.Addr())
	fmt.Fprintf(&b, "postgres: %s@%s:%s/%s\n", c.Database.User, c.Database.Host, c.Database.Port, c.Database.Database)
	fmt.Fprintf(&b, "redis: enabled=%t addr=%s\n", c.Redis.Enabled, c.Redis.Addr)
	fmt.Fprintf(&b, "rabbitmq: enabled=%t %s:%s exchange=%s\n", c.RabbitMQ.Enabled, c.RabbitMQ.Host, c.RabbitMQ.Port, c.RabbitMQ.Exchange)
	fmt.Fprintf(&b, "dispatch: freshness=%s base=%.2f per_km=%.2f\n", c.Dispatch.FreshnessWindow, c.Dispatch.BaseFare, c.Dispatch.PerKmRate)
	fmt.Fprintf(&b, "locationiq: enabled=%t\n", c.ExternalAPI.LocationIQAPIKey != "")
	return b.String()
}
