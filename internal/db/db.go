package db

import (
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/markbot/orchestrator/internal/config"
)

// Open connects to Postgres and verifies the connection. The pool is
// returned to the caller; nothing here holds package-level state.
func Open(cfg config.Database) (*sql.DB, error) {
	conn, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
