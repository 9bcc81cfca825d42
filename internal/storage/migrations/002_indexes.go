package migrations

import "gorm.io/gorm"

// migration002Up creates the lookup indexes used by collection queries
func migration002Up(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING GIN (data jsonb_path_ops)",
		"CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents(updated_at DESC)",

		"CREATE INDEX IF NOT EXISTS idx_documents_candidates_category ON documents((data->>'categoryId')) WHERE collection = 'candidates'",
		"CREATE INDEX IF NOT EXISTS idx_documents_categories_order ON documents(((data->>'order')::int)) WHERE collection = 'categories'",
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			return err
		}
	}

	return nil
}

// migration002Down drops the lookup indexes
func migration002Down(db *gorm.DB) error {
	indexes := []string{
		"idx_documents_data",
		"idx_documents_updated_at",
		"idx_documents_candidates_category",
		"idx_documents_categories_order",
	}

	for _, index := range indexes {
		if err := db.Exec("DROP INDEX IF EXISTS " + index).Error; err != nil {
			return err
		}
	}

	return nil
}
