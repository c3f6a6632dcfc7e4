package storage

import (
	"strconv"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

const (
	// DriverPostgres selects PostgreSQL through pgx.
	DriverPostgres = "postgres"
	// DriverSQLite selects the embedded SQLite engine.
	DriverSQLite = "sqlite"
)

// dialect captures the SQL differences between the supported engines.
type dialect struct {
	name          string
	sqlDriver     string
	surrogateKey  string
	columnsQuery  string
	nowDefault    bool
	dropIfExists  bool
	numberedBinds bool
}

var dialects = map[string]dialect{
	DriverPostgres: {
		name:          DriverPostgres,
		sqlDriver:     "pgx",
		surrogateKey:  "id SERIAL PRIMARY KEY",
		columnsQuery:  "SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1",
		nowDefault:    true,
		dropIfExists:  true,
		numberedBinds: true,
	},
	DriverSQLite: {
		name:         DriverSQLite,
		sqlDriver:    "sqlite",
		surrogateKey: "id INTEGER PRIMARY KEY AUTOINCREMENT",
		columnsQuery: "SELECT name FROM pragma_table_info(?)",
	},
}

// bind returns the placeholder for the 1-based parameter n.
func (d dialect) bind(n int) string {
	if d.numberedBinds {
		return "$" + strconv.Itoa(n)
	}

	return "?"
}
