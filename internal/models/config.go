package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Payments PaymentsConfig
	Formance FormanceConfig
	Redis    RedisConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path             string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	CreateDummyUsers bool
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr            string
	JWTSecret       string
	TokenTTL        time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	WritesPerMinute int
}

const (
	RailSQLite   = "sqlite"
	RailFormance = "formance"
)

// PaymentsConfig selects the value-transfer mechanism used by purchases
type PaymentsConfig struct {
	Rail         string
	AccountsFile string
}

// FormanceConfig holds Formance Stack credentials
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
	Asset        string
}

// RedisConfig holds notification fan-out settings
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Channel  string
	Backlog  int64
}
