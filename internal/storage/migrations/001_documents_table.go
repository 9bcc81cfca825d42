package migrations

import "gorm.io/gorm"

// migration001Up creates the documents table using GORM AutoMigrate
func migration001Up(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

// migration001Down drops the documents table
func migration001Down(db *gorm.DB) error {
	return db.Exec("DROP TABLE IF EXISTS documents CASCADE").Error
}
