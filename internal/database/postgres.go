package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/themizzi/storecheck/internal/config"
)

var DB *sql.DB

// Connect establishes a connection to the PostgreSQL results database
func Connect(pgConfig *config.PostgresConfig) error {
	db, err := Open(pgConfig.ConnectionString())
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open opens and pings a PostgreSQL connection pool
func Open(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
