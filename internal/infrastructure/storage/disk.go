package storage

import (
	"fmt"

	"github.com/shoutzor/backend/internal/config"
	"github.com/shoutzor/backend/internal/core/ports"
)

// New builds the disk selected by storage.driver.
func New(cfg config.StorageConfig) (ports.Disk, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalDisk(cfg.Root)
	case "sftp":
		return NewSFTPDisk(SFTPConfig{
			Host:           cfg.SFTP.Host,
			Port:           cfg.SFTP.Port,
			User:           cfg.SFTP.User,
			Password:       cfg.SFTP.Password,
			PrivateKeyPath: cfg.SFTP.PrivateKeyPath,
			Root:           cfg.SFTP.Root,
			Timeout:        cfg.SFTP.Timeout,
		}), nil
	}
	return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
}
