// Package auth issues and verifies the bearer tokens that guard the
// REST API.
//
// Three roles build on each other: viewer reads lock state, operator also
// sends commands, admin also reads the audit log. Tokens are HS256 JWTs
// signed with security.jwt.secret; there is no user database.
package auth
