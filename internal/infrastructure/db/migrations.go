package db

import (
	"fmt"
	"io"

	"github.com/shoutzor/backend/internal/domain"
	"gorm.io/gorm"
)

// RunMigrations creates or updates every table. Progress lines go to out,
// which may be nil.
func RunMigrations(db *gorm.DB, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	for _, model := range domain.AllModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return fmt.Errorf("failed to parse model %T: %w", model, err)
		}
		table := stmt.Schema.Table

		fmt.Fprintf(out, "Migrating: %s\n", table)
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", table, err)
		}
		fmt.Fprintf(out, "Migrated:  %s\n", table)
	}

	return nil
}
