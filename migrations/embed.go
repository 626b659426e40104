// Package migrations embeds the SQL schema migrations for every supported
// database driver. Each driver has its own subdirectory in golang-migrate
// naming format ({version}_{name}.{up|down}.sql).
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
