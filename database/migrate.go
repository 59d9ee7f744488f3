package database

import (
	"fmt"

	"gorm.io/gorm"

	"yellowpages-backend/models"
)

// Migrate applies idempotent schema migrations:
// - AutoMigrate (tables/columns/unique indexes from model tags)
// - Unique indexes on vendors.vendor_name and vendors.phone_number
// - Postgres only: CHECK constraints on phone format and blank names
func Migrate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&models.Vendor{},
			&models.StatusCheck{},
			&models.IdempotencyKey{},
		); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}

		// Uniqueness is enforced here, not by read-then-write checks.
		indexes := []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_vendors_vendor_name ON vendors (vendor_name)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_vendors_phone_number ON vendors (phone_number)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		if tx.Dialector.Name() != "postgres" {
			return nil
		}

		checks := []string{
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'vendors'::regclass
					  AND conname  = 'chk_vendors_phone_number_digits'
				) THEN
					ALTER TABLE vendors
					ADD CONSTRAINT chk_vendors_phone_number_digits
					CHECK (phone_number ~ '^[0-9]{10,15}$');
				END IF;
			END $$;`,
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'vendors'::regclass
					  AND conname  = 'chk_vendors_names_not_blank'
				) THEN
					ALTER TABLE vendors
					ADD CONSTRAINT chk_vendors_names_not_blank
					CHECK (length(btrim(vendor_name)) > 0 AND length(btrim(service_provider_name)) > 0);
				END IF;
			END $$;`,
		}
		for _, stmt := range checks {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed: %w", err)
			}
		}
		return nil
	})
}
