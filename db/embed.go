package db

import "embed"

// MigrationsFS holds the correlation store schema migrations embedded at
// compile time.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
