package auth

// CheckRole allows the caller only if it holds exactly the required role.
// A nil caller is denied with Forbidden; callers that need to distinguish
// "nobody logged in" must check for nil first and report NotAuthenticated.
func CheckRole(caller *Account, required Role) error {
	if caller == nil {
		return NewError(KindForbidden, "no permission")
	}
	if caller.UserRole != required {
		return NewError(KindForbidden, "no permission")
	}
	return nil
}
