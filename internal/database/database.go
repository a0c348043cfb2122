package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Initialize opens the database at the default location (~/.timebill/db),
// creating the directory and schema as needed.
func Initialize() (*sql.DB, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	dbPath := filepath.Join(homeDir, ".timebill", "db")
	dbDir := filepath.Dir(dbPath)

	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	return Open(dbPath)
}

// Open opens a database at the given path and runs schema setup and
// migrations. Pass ":memory:" for an ephemeral database in tests.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps the in-memory database coherent and
	// serializes statement execution under the engine mutex.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		email TEXT,
		address TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		archived INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (client_id) REFERENCES clients(id)
	);

	CREATE TABLE IF NOT EXISTS time_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL,
		task_id INTEGER,
		description TEXT NOT NULL DEFAULT '',
		start_time TEXT NOT NULL,
		end_time TEXT,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		hourly_rate REAL NOT NULL DEFAULT 0,
		total_cost REAL NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 0,
		invoice_id INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (invoice_id) REFERENCES invoices(id)
	);

	CREATE TABLE IF NOT EXISTS invoices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		invoice_number TEXT NOT NULL UNIQUE,
		project_id INTEGER NOT NULL,
		client_id INTEGER NOT NULL,
		amount REAL NOT NULL,
		tax_amount REAL NOT NULL DEFAULT 0,
		total_amount REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		issue_date DATE NOT NULL,
		due_date DATE NOT NULL,
		pdf_path TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (client_id) REFERENCES clients(id)
	);

	CREATE TABLE IF NOT EXISTS billing_settings (
		id INTEGER PRIMARY KEY,
		default_hourly_rate REAL NOT NULL DEFAULT 85.0,
		tax_rate REAL NOT NULL DEFAULT 0.0,
		auto_billing_threshold REAL NOT NULL DEFAULT 500.0,
		invoice_terms_days INTEGER NOT NULL DEFAULT 30,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO billing_settings (id) VALUES (1);

	CREATE INDEX IF NOT EXISTS idx_time_entries_project ON time_entries(project_id);
	CREATE INDEX IF NOT EXISTS idx_time_entries_active ON time_entries(is_active);
	CREATE INDEX IF NOT EXISTS idx_time_entries_invoice ON time_entries(invoice_id);
	CREATE INDEX IF NOT EXISTS idx_invoices_project ON invoices(project_id);
	CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(status);
	CREATE INDEX IF NOT EXISTS idx_projects_client ON projects(client_id);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func runMigrations(db *sql.DB) error {
	// Create migrations table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations := []migration{
		{
			name: "add_task_id_to_time_entries",
			apply: func(db *sql.DB) error {
				return addColumnIfNotExists(db, "time_entries", "task_id", "INTEGER")
			},
		},
		{
			name: "add_pdf_path_to_invoices",
			apply: func(db *sql.DB) error {
				return addColumnIfNotExists(db, "invoices", "pdf_path", "TEXT")
			},
		},
	}

	for _, migration := range migrations {
		// Check if migration has already been applied
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM migrations WHERE name = ?", migration.name).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to check migration %s: %w", migration.name, err)
		}

		if count > 0 {
			// Migration already applied
			continue
		}

		// Apply migration
		err = migration.apply(db)
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.name, err)
		}

		// Record migration as applied
		_, err = db.Exec("INSERT INTO migrations (name) VALUES (?)", migration.name)
		if err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.name, err)
		}
	}

	return nil
}

type migration struct {
	name  string
	apply func(*sql.DB) error
}

func addColumnIfNotExists(db *sql.DB, tableName, columnName, columnType string) error {
	// Check if column already exists
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return fmt.Errorf("failed to get table info for %s: %w", tableName, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull, primaryKey int
		var defaultValue *string
		err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &primaryKey)
		if err != nil {
			return fmt.Errorf("failed to scan column info: %w", err)
		}

		if name == columnName {
			// Column already exists
			return nil
		}
	}

	// Column doesn't exist, add it
	sql := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", tableName, columnName, columnType)
	_, err = db.Exec(sql)
	if err != nil {
		return fmt.Errorf("failed to add column %s to %s: %w", columnName, tableName, err)
	}

	return nil
}
