// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Security   SecurityConfig   `mapstructure:"security"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Controller ControllerConfig `mapstructure:"controller"`
	App        AppConfig        `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	TLS          TLSConfig     `mapstructure:"tls"`
}

// TLSConfig represents TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// DatabaseConfig configures the optional PostgreSQL operation journal.
// When disabled, operations are kept in memory.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxLifetime     time.Duration `mapstructure:"max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
	RetentionPeriod time.Duration `mapstructure:"retention_period"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins    []string `mapstructure:"allowed_origins"`
	RateLimitEnabled  bool     `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int      `mapstructure:"rate_limit_requests"`
	RateLimitBurst    int      `mapstructure:"rate_limit_burst"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig represents Prometheus exposition configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ControllerConfig describes how to reach the servo controller board
type ControllerConfig struct {
	Transport      string           `mapstructure:"transport"`
	ConnectOnStart bool             `mapstructure:"connect_on_start"`
	ReadTimeout    time.Duration    `mapstructure:"read_timeout"`
	ReportSize     int              `mapstructure:"report_size"`
	PollInterval   time.Duration    `mapstructure:"poll_interval"`
	WatchTimeout   time.Duration    `mapstructure:"watch_timeout"`
	USB            USBPortConfig    `mapstructure:"usb"`
	Serial         SerialPortConfig `mapstructure:"serial"`
	TCP            TCPPortConfig    `mapstructure:"tcp"`
}

// USBPortConfig represents the HID endpoint of the board
type USBPortConfig struct {
	VendorID    string `mapstructure:"vendor_id"`
	ProductID   string `mapstructure:"product_id"`
	Config      int    `mapstructure:"config"`
	Interface   int    `mapstructure:"interface"`
	AltSetting  int    `mapstructure:"alt_setting"`
	InEndpoint  int    `mapstructure:"in_endpoint"`
	OutEndpoint int    `mapstructure:"out_endpoint"`
}

// SerialPortConfig represents the UART link of the board
type SerialPortConfig struct {
	Port     string `mapstructure:"port"`
	BaudRate int    `mapstructure:"baud_rate"`
	DataBits int    `mapstructure:"data_bits"`
	StopBits int    `mapstructure:"stop_bits"`
	Parity   string `mapstructure:"parity"`
}

// TCPPortConfig represents a serial-over-TCP bridge
type TCPPortConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	KeepAlive      bool          `mapstructure:"keep_alive"`
}

// IDs parses VendorID and ProductID, written as "0x0483" or "0483"
func (u USBPortConfig) IDs() (vendorID, productID uint16, err error) {
	vendorID, err = parseUSBID(u.VendorID)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid vendor_id %q: %w", u.VendorID, err)
	}
	productID, err = parseUSBID(u.ProductID)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid product_id %q: %w", u.ProductID, err)
	}
	return vendorID, productID, nil
}

func parseUSBID(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	id, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(id), nil
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// Transport names accepted in controller.transport
const (
	TransportUSB    = "usb"
	TransportSerial = "serial"
	TransportTCP    = "tcp"
)

// Load loads configuration from file and environment variables.
// An empty path searches the working directory and ./config for config.yaml.
// A missing file is not an error; defaults and SERVO_SERVICE_* variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("../../internal/config")
	}

	// Environment variable support
	v.SetEnvPrefix("SERVO_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8086")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.tls.enabled", false)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "servo_service")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_lifetime", "5m")
	v.SetDefault("database.migrations_path", "migrations")
	v.SetDefault("database.retention_period", "168h")
	v.SetDefault("database.cleanup_interval", "1h")

	// Security defaults
	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.rate_limit_enabled", true)
	v.SetDefault("security.rate_limit_requests", 20)
	v.SetDefault("security.rate_limit_burst", 40)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Controller defaults
	v.SetDefault("controller.transport", TransportUSB)
	v.SetDefault("controller.connect_on_start", true)
	v.SetDefault("controller.read_timeout", "500ms")
	v.SetDefault("controller.report_size", 64)
	v.SetDefault("controller.poll_interval", "100ms")
	v.SetDefault("controller.watch_timeout", "10m")

	v.SetDefault("controller.usb.vendor_id", "0x0483")
	v.SetDefault("controller.usb.product_id", "0x5750")
	v.SetDefault("controller.usb.config", 1)
	v.SetDefault("controller.usb.interface", 0)
	v.SetDefault("controller.usb.alt_setting", 0)
	v.SetDefault("controller.usb.in_endpoint", 1)
	v.SetDefault("controller.usb.out_endpoint", 1)

	v.SetDefault("controller.serial.port", "/dev/ttyUSB0")
	v.SetDefault("controller.serial.baud_rate", 9600)
	v.SetDefault("controller.serial.data_bits", 8)
	v.SetDefault("controller.serial.stop_bits", 1)
	v.SetDefault("controller.serial.parity", "none")

	v.SetDefault("controller.tcp.port", 4001)
	v.SetDefault("controller.tcp.connect_timeout", "5s")
	v.SetDefault("controller.tcp.write_timeout", "2s")
	v.SetDefault("controller.tcp.keep_alive", true)

	// App defaults
	v.SetDefault("app.name", "servo-service")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if config.Database.Enabled && config.Database.Host == "" {
		return fmt.Errorf("database.host is required when the database is enabled")
	}

	validEnvs := []string{"development", "staging", "production", "test"}
	if !contains(validEnvs, config.App.Environment) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	c := config.Controller
	switch c.Transport {
	case TransportUSB:
		if c.USB.VendorID == "" || c.USB.ProductID == "" {
			return fmt.Errorf("controller.usb.vendor_id and product_id are required")
		}
	case TransportSerial:
		if c.Serial.Port == "" {
			return fmt.Errorf("controller.serial.port is required")
		}
	case TransportTCP:
		if c.TCP.Host == "" {
			return fmt.Errorf("controller.tcp.host is required")
		}
		if c.TCP.Port < 1 || c.TCP.Port > 65535 {
			return fmt.Errorf("invalid controller.tcp.port: %d", c.TCP.Port)
		}
	default:
		return fmt.Errorf("controller.transport must be one of: %v",
			[]string{TransportUSB, TransportSerial, TransportTCP})
	}

	if c.ReadTimeout <= 0 {
		return fmt.Errorf("controller.read_timeout must be positive")
	}
	if c.ReportSize < 4 {
		return fmt.Errorf("controller.report_size must be at least 4")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("controller.poll_interval must be positive")
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.DBName, c.Database.SSLMode)
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.App.Environment == "development"
}
