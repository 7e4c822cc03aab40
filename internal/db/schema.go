package db

import "gorm.io/gorm"

// EnsureSchema creates the named Postgres schema if missing. Each domain
// package calls this from Init before auto-migrating its tables, so kb_auth
// and kb_content exist on a fresh database without manual setup.
func EnsureSchema(d *gorm.DB, schema string) error {
	return d.Exec(`CREATE SCHEMA IF NOT EXISTS "` + schema + `"`).Error
}
