package services

import (
	"fmt"
	"sort"

	"github.com/shoutzor/backend/internal/domain"
)

// dbFieldOrder is the field set every backend defines, in form order.
var dbFieldOrder = []string{"host", "port", "database", "username", "password"}

var dbDefaultPorts = map[domain.DatabaseBackend]string{
	domain.BackendMySQL:     "3306",
	domain.BackendPostgres:  "5432",
	domain.BackendSQLServer: "1433",
}

func newDBFields() map[domain.DatabaseBackend]map[string]domain.DatabaseFieldSpec {
	table := make(map[domain.DatabaseBackend]map[string]domain.DatabaseFieldSpec, len(dbDefaultPorts))
	for backend, port := range dbDefaultPorts {
		field := func(name, rule, envKey string, typ domain.InputType, def string) domain.DatabaseFieldSpec {
			return domain.DatabaseFieldSpec{
				Name:       name,
				Rule:       rule,
				ConfigPath: fmt.Sprintf("database.connections.%s.%s", backend, name),
				EnvKey:     envKey,
				Type:       typ,
				Default:    def,
			}
		}
		table[backend] = map[string]domain.DatabaseFieldSpec{
			"host":     field("host", "required", "DB_HOST", domain.InputText, "localhost"),
			"port":     field("port", "required,numeric,number", "DB_PORT", domain.InputText, port),
			"database": field("database", "required", "DB_DATABASE", domain.InputText, "shoutzor"),
			"username": field("username", "required", "DB_USERNAME", domain.InputText, "shoutzor"),
			"password": field("password", "required", "DB_PASSWORD", domain.InputPassword, ""),
		}
	}
	return table
}

func supportedBackends(table map[domain.DatabaseBackend]map[string]domain.DatabaseFieldSpec) []string {
	out := make([]string, 0, len(table))
	for b := range table {
		out = append(out, string(b))
	}
	sort.Strings(out)
	return out
}
