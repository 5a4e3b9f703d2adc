package nav

// HasAccess decides whether oracle may see route. Routes that do not
// require authentication are always granted; their permissions and roles
// are ignored. Otherwise the caller must be authenticated, hold every
// required permission, and hold one of the required roles when any are
// listed.
func HasAccess(route *Route, oracle AuthOracle) bool {
	if route == nil || !route.config.RequiresAuth {
		return true
	}
	if oracle == nil || !oracle.IsAuthenticated() {
		return false
	}

	for _, p := range route.config.RequiredPermissions {
		if !oracle.HasPermission(p) {
			return false
		}
	}

	if len(route.config.RequiredRoles) == 0 {
		return true
	}
	for _, r := range route.config.RequiredRoles {
		if oracle.HasRole(r) {
			return true
		}
	}
	return false
}
