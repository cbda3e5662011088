package sqlite

import (
	"database/sql"

	// Import the SQLite driver.
	_ "github.com/mattn/go-sqlite3"
)

// InitDB opens the ledger database and creates the asset_downloads table
// if it doesn't exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS asset_downloads (
		id INTEGER PRIMARY KEY,
		team TEXT NOT NULL,
		asset_type TEXT NOT NULL,
		file_path TEXT,
		downloaded_at DATETIME,
		status TEXT DEFAULT 'failed',
		UNIQUE(team, asset_type)
	)`)

	if err != nil {
		db.Close()

		return nil, err
	}

	return db, nil
}
