// Package auth holds the account model and the rules shared by every layer:
// password encoding, role checks, view projections, typed errors and the
// security audit log.
//
// # Accounts and roles
//
// An Account has one of three roles: user, admin or ban. New accounts get
// DefaultRole. CheckRole admits a caller only when it holds exactly the
// required role:
//
//	if err := auth.CheckRole(caller, auth.RoleAdmin); err != nil {
//		return err // KindForbidden
//	}
//
// # Passwords
//
// Codec encodes a password as the hex MD5 digest of a fixed salt followed by the
// password. The encoding is deterministic so credential login can look an account
// up by identifier and verifier together.
//
// # Views
//
// ToSelfView is shown to the account owner and keeps the external identifiers.
// ToPublicView is shown to everyone else and keeps only profile fields. Neither
// carries the password verifier.
//
// # Errors
//
// Error carries an ErrorKind and a caller-safe message. Compare kinds with
// errors.Is against the sentinels:
//
//	if errors.Is(err, auth.ErrConflict) {
//		// identifier taken
//	}
//
// Errors that are not *Error classify as KindSystem.
package auth
