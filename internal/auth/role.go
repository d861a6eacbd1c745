package auth

import "github.com/weatherlogger/apiserver/types"

// Satisfies reports whether a token carrying role may call an operation
// that requires the given role. Admins satisfy every requirement; any
// role satisfies a viewer requirement.
func Satisfies(role, required types.Role) bool {
	switch required {
	case types.RoleAdmin:
		return role == types.RoleAdmin
	case types.RoleViewer, "":
		return true
	default:
		return false
	}
}
