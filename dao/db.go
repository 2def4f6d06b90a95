package dao

import "database/sql"

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repositories are built over a DBTX so the orchestrator can rebind them
// to one transaction per inbound message.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}
