package migrations

import "gorm.io/gorm"

// migration003Up adds shape constraints and the version bump trigger
func migration003Up(db *gorm.DB) error {
	statements := []string{
		`ALTER TABLE documents
            ADD CONSTRAINT chk_documents_data_object CHECK (jsonb_typeof(data) = 'object')`,

		`ALTER TABLE documents
            ADD CONSTRAINT chk_documents_version_positive CHECK (version > 0)`,

		`ALTER TABLE documents
            ADD CONSTRAINT chk_documents_id_segment CHECK (id <> '' AND position('/' in id) = 0)`,

		`CREATE OR REPLACE FUNCTION bump_document_version()
        RETURNS TRIGGER AS $$
        BEGIN
            IF NEW.data IS DISTINCT FROM OLD.data THEN
                NEW.version := OLD.version + 1;
                NEW.updated_at := CURRENT_TIMESTAMP;
            END IF;
            RETURN NEW;
        END;
        $$ LANGUAGE plpgsql`,

		`CREATE TRIGGER trg_documents_bump_version
            BEFORE UPDATE ON documents
            FOR EACH ROW EXECUTE FUNCTION bump_document_version()`,
	}

	for _, statement := range statements {
		if err := db.Exec(statement).Error; err != nil {
			return err
		}
	}

	return nil
}

// migration003Down drops the trigger and constraints
func migration003Down(db *gorm.DB) error {
	statements := []string{
		"DROP TRIGGER IF EXISTS trg_documents_bump_version ON documents",
		"DROP FUNCTION IF EXISTS bump_document_version()",
		"ALTER TABLE documents DROP CONSTRAINT IF EXISTS chk_documents_id_segment",
		"ALTER TABLE documents DROP CONSTRAINT IF EXISTS chk_documents_version_positive",
		"ALTER TABLE documents DROP CONSTRAINT IF EXISTS chk_documents_data_object",
	}

	for _, statement := range statements {
		if err := db.Exec(statement).Error; err != nil {
			return err
		}
	}

	return nil
}
