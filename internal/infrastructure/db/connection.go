package db

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/shoutzor/backend/internal/config"
	"github.com/shoutzor/backend/internal/core/ports"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ConnectionSettings describes one database connection as stored under
// database.connections.<backend> in the runtime configuration.
type ConnectionSettings struct {
	Backend  string
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

// SettingsFromRuntime resolves the default connection from the live config.
func SettingsFromRuntime(rt ports.RuntimeConfig) (ConnectionSettings, error) {
	backend := rt.GetString("database.default")
	if backend == "" {
		return ConnectionSettings{}, fmt.Errorf("database.default is not configured")
	}
	prefix := "database.connections." + backend + "."

	port, err := strconv.Atoi(rt.GetString(prefix + "port"))
	if err != nil {
		return ConnectionSettings{}, fmt.Errorf("invalid port for %s connection: %w", backend, err)
	}
	return ConnectionSettings{
		Backend:  backend,
		Host:     rt.GetString(prefix + "host"),
		Port:     port,
		Database: rt.GetString(prefix + "database"),
		Username: rt.GetString(prefix + "username"),
		Password: rt.GetString(prefix + "password"),
	}, nil
}

// DSN renders the driver connection string for the backend. Credentials are
// escaped by the URL or driver encoder, so any character is allowed.
func (s ConnectionSettings) DSN(timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))

	switch s.Backend {
	case "pgsql":
		q := url.Values{}
		q.Set("sslmode", "disable")
		q.Set("connect_timeout", strconv.Itoa(int(timeout.Seconds())))
		u := &url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(s.Username, s.Password),
			Host:     addr,
			Path:     "/" + s.Database,
			RawQuery: q.Encode(),
		}
		return u.String(), nil
	case "mysql":
		cfg := mysqldriver.NewConfig()
		cfg.User = s.Username
		cfg.Passwd = s.Password
		cfg.Net = "tcp"
		cfg.Addr = addr
		cfg.DBName = s.Database
		cfg.ParseTime = true
		cfg.Loc = time.Local
		cfg.Timeout = timeout
		cfg.Params = map[string]string{"charset": "utf8mb4"}
		return cfg.FormatDSN(), nil
	case "sqlsrv":
		q := url.Values{}
		q.Set("database", s.Database)
		q.Set("dial timeout", strconv.Itoa(int(timeout.Seconds())))
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(s.Username, s.Password),
			Host:     addr,
			RawQuery: q.Encode(),
		}
		return u.String(), nil
	}
	return "", fmt.Errorf("unsupported database backend %q", s.Backend)
}

func (s ConnectionSettings) Dialector(timeout time.Duration) (gorm.Dialector, error) {
	dsn, err := s.DSN(timeout)
	if err != nil {
		return nil, err
	}
	switch s.Backend {
	case "pgsql":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	default:
		return sqlserver.Open(dsn), nil
	}
}

// Opener opens a gorm connection for the runtime's default connection.
type Opener func(ctx context.Context, rt ports.RuntimeConfig) (*gorm.DB, error)

// NewOpener returns an Opener that applies the pool settings from cfg.
func NewOpener(cfg config.DatabaseConfig) Opener {
	return func(ctx context.Context, rt ports.RuntimeConfig) (*gorm.DB, error) {
		settings, err := SettingsFromRuntime(rt)
		if err != nil {
			return nil, err
		}
		dialector, err := settings.Dialector(cfg.ConnectTimeout)
		if err != nil {
			return nil, err
		}

		database, err := gorm.Open(dialector, &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, err
		}

		sqlDB, err := database.DB()
		if err != nil {
			return nil, err
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}

		if err := sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close()
			return nil, err
		}
		return database, nil
	}
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ConnectionTester proves a runtime configuration by opening and immediately
// closing a connection.
type ConnectionTester struct {
	open Opener
}

func NewConnectionTester(open Opener) *ConnectionTester {
	return &ConnectionTester{open: open}
}

func (t *ConnectionTester) Test(ctx context.Context, rt ports.RuntimeConfig) error {
	database, err := t.open(ctx, rt)
	if err != nil {
		return err
	}
	return Close(database)
}
