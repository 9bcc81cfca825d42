package migrations

import "gorm.io/gorm"

// migration004Up creates reporting views over the vote documents
func migration004Up(db *gorm.DB) error {
	views := []string{
		`CREATE OR REPLACE VIEW category_tallies AS
        SELECT
            s.id AS category_id,
            c.data->>'name' AS category_name,
            COALESCE((s.data->>'totalVoters')::bigint, 0) AS total_voters,
            s.updated_at AS last_updated
        FROM documents s
        LEFT JOIN documents c ON c.collection = 'categories' AND c.id = s.id
        WHERE s.collection = 'voteSummary'`,

		`CREATE OR REPLACE VIEW voter_progress AS
        SELECT
            split_part(collection, '/', 2) AS user_id,
            COALESCE((data->>'totalVotes')::int, 0) AS total_votes,
            COALESCE((data->>'isComplete')::boolean, false) AS is_complete,
            updated_at
        FROM documents
        WHERE collection LIKE 'users/%/voting' AND id = 'progress'`,
	}

	for _, viewSQL := range views {
		if err := db.Exec(viewSQL).Error; err != nil {
			return err
		}
	}

	return nil
}

// migration004Down drops the reporting views
func migration004Down(db *gorm.DB) error {
	views := []string{"voter_progress", "category_tallies"}

	for _, view := range views {
		if err := db.Exec("DROP VIEW IF EXISTS " + view).Error; err != nil {
			return err
		}
	}

	return nil
}
