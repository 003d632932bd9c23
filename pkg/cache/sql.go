package cache

import (
	"database/sql"
)

func buildCreateCacheTable() string {
	return `CREATE TABLE IF NOT EXISTS provider_cache (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		created INTEGER NOT NULL);`
}

func buildSelectEntryCommand() (string, func(*sql.Rows) (string, bool, error)) {
	return `SELECT payload FROM provider_cache WHERE key = ?`, processSelectEntryRows
}

func processSelectEntryRows(rows *sql.Rows) (string, bool, error) {
	defer rows.Close()

	// only can be one row
	if rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return "", false, err
		}
		return payload, true, nil
	}
	return "", false, rows.Err()
}

func buildUpsertEntryCommand() string {
	return `INSERT OR REPLACE INTO provider_cache (key, payload, created) VALUES (?, ?, ?)`
}

func buildCountEntriesCommand() string {
	return `SELECT COUNT(*) FROM provider_cache`
}

func buildDeleteOlderThanCommand() string {
	return `DELETE FROM provider_cache WHERE created < ?`
}
