package dto

import (
	"github.com/shoutzor/backend/internal/core/services"
	"github.com/shoutzor/backend/internal/domain"
)

// ConfigureSQLRequest is the installer's database form. Field rules are
// enforced by the install workflow so errors come back per field.
type ConfigureSQLRequest struct {
	DBType   string `json:"dbtype" form:"dbtype"`
	Host     string `json:"host" form:"host"`
	Port     string `json:"port" form:"port"`
	Database string `json:"database" form:"database"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (r ConfigureSQLRequest) ToSettings() services.SQLSettings {
	return services.SQLSettings{
		Backend:  r.DBType,
		Host:     r.Host,
		Port:     r.Port,
		Database: r.Database,
		Username: r.Username,
		Password: r.Password,
	}
}

type StepsResponse struct {
	Installed bool                 `json:"installed"`
	Steps     []domain.InstallStep `json:"steps"`
}

type DBFieldsResponse struct {
	Fields map[domain.DatabaseBackend]map[string]domain.DatabaseFieldSpec `json:"fields"`
}
