// Package accounts implements the user account service: registration, credential
// and third-party login, session resolution and role-gated administration.
//
// # Sessions
//
// A successful login stores a snapshot of the account, without its password
// verifier, under the session attribute "user_login". Later calls trust that
// snapshot instead of re-reading the store, so a role change or ban only takes
// effect on the next login. RefreshSession re-reads the account on demand.
//
// # Identifier uniqueness
//
// Registration and first-time third-party login each take a per-identifier lock
// from a keylock.Table before checking for an existing account and inserting.
// The lock only serialises callers inside one process. The store's unique indexes
// are what keep identifiers unique across instances; a lost race surfaces from the
// store as storage.ErrDuplicate and is reported as Conflict for registration or
// resolved by re-reading the winning account for third-party login.
//
// # Errors
//
// Every method returns *auth.Error values. Use auth.KindOf to classify them and
// auth.MessageOf for the caller-safe message. Store and provider failures are
// reported as KindSystem with a fixed message; the cause is logged.
//
// # Bans
//
// Third-party login rejects banned accounts with Forbidden. Credential login does
// not check the ban.
package accounts
