package migrations

import "gorm.io/gorm"

// migration005Up seeds the closed voting settings document
func migration005Up(db *gorm.DB) error {
	return db.Exec(`
        INSERT INTO documents (collection, id, data) VALUES
            ('settings', 'voting', jsonb_build_object(
                'isOpen', false,
                'closedMessage', 'Voting is currently closed. Please check back later.',
                'announcementMessage', '',
                'updatedAt', to_char(now() AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
            ))
        ON CONFLICT (collection, id) DO NOTHING
    `).Error
}

// migration005Down removes the seeded settings document
func migration005Down(db *gorm.DB) error {
	return db.Exec("DELETE FROM documents WHERE collection = 'settings' AND id = 'voting'").Error
}
