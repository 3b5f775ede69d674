package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	App      AppConfig      `mapstructure:"app"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Queue    QueueConfig    `mapstructure:"queue"`
	AcoustID AcoustIDConfig `mapstructure:"acoustid"`
	Features FeaturesConfig `mapstructure:"features"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	BodyLimit    int           `mapstructure:"body_limit"`
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig only holds pool tuning. Connection settings live in the
// runtime configuration under database.connections.<backend> because the
// installer rewrites them while the process is running.
type DatabaseConfig struct {
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

type PathsConfig struct {
	EnvFile     string `mapstructure:"env_file"`
	ConfigCache string `mapstructure:"config_cache"`
	Storage     string `mapstructure:"storage"`
}

type StorageConfig struct {
	Driver string     `mapstructure:"driver"`
	Root   string     `mapstructure:"root"`
	SFTP   SFTPConfig `mapstructure:"sftp"`
}

type SFTPConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	Root           string        `mapstructure:"root"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type QueueConfig struct {
	Workers int `mapstructure:"workers"`
	Buffer  int `mapstructure:"buffer"`
}

type AcoustIDConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	RateLimit  float64       `mapstructure:"rate_limit"`
	FpcalcPath string        `mapstructure:"fpcalc_path"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type LoggerConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

type FeaturesConfig struct {
	RequestIDHeader      string `mapstructure:"request_id_header"`
	EnableRequestLogging bool   `mapstructure:"enable_request_logging"`
}

type AuthConfig struct {
	AdminAPIKey    string   `mapstructure:"admin_api_key"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.body_limit", 64*1024*1024)
	v.SetDefault("app.name", "Shoutzor")
	v.SetDefault("app.env", "production")
	v.SetDefault("paths.env_file", ".env")
	v.SetDefault("paths.config_cache", "bootstrap/cache/config.json")
	v.SetDefault("paths.storage", "storage")
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.root", "storage/app")
	v.SetDefault("queue.workers", 2)
	v.SetDefault("queue.buffer", 64)
	v.SetDefault("acoustid.base_url", "https://api.acoustid.org/v2")
	v.SetDefault("acoustid.rate_limit", 3)
	v.SetDefault("acoustid.fpcalc_path", "fpcalc")
	v.SetDefault("acoustid.timeout", "10s")
	v.SetDefault("database.default", "pgsql")
	v.SetDefault("database.connect_timeout", "5s")
	v.SetDefault("shoutzor.installed", false)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "console")
	v.SetDefault("logger.output_paths", []string{"stdout"})
	v.SetDefault("logger.error_output_paths", []string{"stderr"})
}

func Load(path string) (*Config, error) {
	setDefaults(viper.GetViper())
	viper.SetConfigFile(path)
	viper.SetEnvPrefix("SHOUTZOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
