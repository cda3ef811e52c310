package db

import (
	"gorm.io/gorm"
)

// CreateAuthProviderEnum создает тип ENUM auth_provider, если он не существует.
// На SQLite (тесты) объявление типа игнорируется, поэтому выполняем
// только на Postgres.
func CreateAuthProviderEnum(database *gorm.DB) error {
	if database.Dialector.Name() != "postgres" {
		return nil
	}
	createEnumSQL := `
	DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'auth_provider') THEN
			CREATE TYPE auth_provider AS ENUM ('google', 'kakao');
		END IF;
	END
	$$;
	`
	return database.Exec(createEnumSQL).Error
}
