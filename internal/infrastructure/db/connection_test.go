package db

import (
	"net/url"
	"testing"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

var awkwardPasswords = []string{
	"secret",
	"my secret 'x'",
	"p/a@ss:word",
	`back\slash"quote`,
	"hash#?and&amp=",
}

func settingsFor(backend, password string) ConnectionSettings {
	return ConnectionSettings{
		Backend:  backend,
		Host:     "db.internal",
		Port:     5432,
		Database: "shoutzor",
		Username: "shout zor",
		Password: password,
	}
}

func TestDSN(t *testing.T) {
	t.Run("pgsql", func(t *testing.T) {
		for _, password := range awkwardPasswords {
			dsn, err := settingsFor("pgsql", password).DSN(3 * time.Second)
			if err != nil {
				t.Fatal(err)
			}
			cfg, err := pgconn.ParseConfig(dsn)
			if err != nil {
				t.Fatalf("%q: parse %s: %v", password, dsn, err)
			}
			if cfg.Password != password || cfg.User != "shout zor" {
				t.Errorf("credentials = %q/%q, want shout zor/%q", cfg.User, cfg.Password, password)
			}
			if cfg.Host != "db.internal" || cfg.Port != 5432 || cfg.Database != "shoutzor" {
				t.Errorf("target = %s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
			}
			if cfg.ConnectTimeout != 3*time.Second {
				t.Errorf("connect timeout = %v", cfg.ConnectTimeout)
			}
		}
	})

	t.Run("mysql", func(t *testing.T) {
		for _, password := range awkwardPasswords {
			dsn, err := settingsFor("mysql", password).DSN(3 * time.Second)
			if err != nil {
				t.Fatal(err)
			}
			cfg, err := mysqldriver.ParseDSN(dsn)
			if err != nil {
				t.Fatalf("%q: parse %s: %v", password, dsn, err)
			}
			if cfg.Passwd != password || cfg.User != "shout zor" {
				t.Errorf("credentials = %q/%q, want shout zor/%q", cfg.User, cfg.Passwd, password)
			}
			if cfg.Addr != "db.internal:5432" || cfg.DBName != "shoutzor" {
				t.Errorf("target = %s/%s", cfg.Addr, cfg.DBName)
			}
			if !cfg.ParseTime || cfg.Timeout != 3*time.Second || cfg.Params["charset"] != "utf8mb4" {
				t.Errorf("options = parseTime:%v timeout:%v params:%v", cfg.ParseTime, cfg.Timeout, cfg.Params)
			}
		}
	})

	t.Run("sqlsrv", func(t *testing.T) {
		for _, password := range awkwardPasswords {
			dsn, err := settingsFor("sqlsrv", password).DSN(3 * time.Second)
			if err != nil {
				t.Fatal(err)
			}
			u, err := url.Parse(dsn)
			if err != nil {
				t.Fatalf("%q: parse %s: %v", password, dsn, err)
			}
			got, _ := u.User.Password()
			if got != password || u.User.Username() != "shout zor" {
				t.Errorf("credentials = %q/%q, want shout zor/%q", u.User.Username(), got, password)
			}
			if u.Query().Get("database") != "shoutzor" || u.Query().Get("dial timeout") != "3" {
				t.Errorf("query = %v", u.Query())
			}
		}
	})

	t.Run("default timeout", func(t *testing.T) {
		dsn, err := settingsFor("pgsql", "secret").DSN(0)
		if err != nil {
			t.Fatal(err)
		}
		cfg, err := pgconn.ParseConfig(dsn)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.ConnectTimeout != 5*time.Second {
			t.Errorf("connect timeout = %v", cfg.ConnectTimeout)
		}
	})

	t.Run("unsupported backend", func(t *testing.T) {
		if _, err := settingsFor("oracle", "secret").DSN(time.Second); err == nil {
			t.Error("expected error")
		}
		if _, err := settingsFor("oracle", "secret").Dialector(time.Second); err == nil {
			t.Error("expected error from Dialector")
		}
	})
}
