package tenant

import "embed"

// Migrations holds the control database tables the worker owns.
//
//go:embed migrations/*.sql
var Migrations embed.FS
