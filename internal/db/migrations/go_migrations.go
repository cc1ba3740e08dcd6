// Package migrations holds the schema as goose Go migrations, so each table
// can use the column types native to the configured driver.
package migrations

// dialect is set by the parent db package before migrations are applied.
var dialect string

// SetDialect configures the SQL dialect for the migrations.
// Must be called before goose.Up. Valid values: "sqlite3", "postgres", "mysql".
// Anything else is treated as sqlite3.
func SetDialect(d string) {
	dialect = d
}
