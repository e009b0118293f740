package migrations

import "embed"

// FS contains the PostgreSQL schema for user_events.
//
//go:embed *.sql
var FS embed.FS
