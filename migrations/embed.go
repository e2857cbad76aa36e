// Package migrations embeds the SQL schema migrations for the storefront
// service. Files are applied in filename order by database.RunMigrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
