// Package migrations embeds the PostgreSQL schema shared by the auth and bookings services.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
