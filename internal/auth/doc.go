// Package auth issues and verifies HS256 bearer tokens and keeps the list of
// revoked token ids, either in process or in Redis.
package auth
