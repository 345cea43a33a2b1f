// Package credentials is the Postgres-backed lookup of username to password
// hash used by login. It owns the users table schema through embedded goose
// migrations.
//
// Plaintext passwords and the pepper never reach this package; it stores
// and returns encoded hashes only.
package credentials
