package database

// SQL query constants for database operations.

const (
	InsertDomain = `
		INSERT INTO domains (domain_id, domain_name, source_file, highest_usn, last_processed_usn)
		VALUES ($1, $2, $3, $4, 0)
		ON CONFLICT (domain_id)
		DO UPDATE SET
			source_file = EXCLUDED.source_file,
			highest_usn = GREATEST(domains.highest_usn, EXCLUDED.highest_usn)`

	UpdateDomainLastProcessedUSN = `
		UPDATE domains
		SET last_processed_usn = $2
		WHERE domain_id = $1`

	// Returns last_processed_usn (NULL for new objects).
	UpsertObject = `
		INSERT INTO objects (object_id, object_type, distinguished_name, domain_id, is_deleted)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (object_id)
		DO UPDATE SET
			updated_at = NOW(),
			distinguished_name = EXCLUDED.distinguished_name,
			object_type = EXCLUDED.object_type,
			is_deleted = EXCLUDED.is_deleted
		RETURNING last_processed_usn`

	InsertVersion = `
		INSERT INTO object_versions (object_id, usn_changed, timestamp, attributes_snapshot, modified_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (object_id, usn_changed) DO NOTHING`

	UpdateLastProcessedUSN = `
		UPDATE objects
		SET last_processed_usn = $1
		WHERE object_id = $2`

	GetPreviousSnapshot = `
		SELECT attributes_snapshot
		FROM object_versions
		WHERE object_id = $1 AND usn_changed = $2`

	InsertAttributeChange = `
		INSERT INTO attribute_changes (
			object_id,
			usn_changed,
			attribute_name,
			old_value,
			new_value,
			timestamp
		)
		VALUES ($1, $2, $3, $4, $5, $6)`
)
