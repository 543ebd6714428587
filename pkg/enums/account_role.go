package enums

import "fmt"

// AccountRole maps to the account_role enum in Postgres. Roles gate who can
// list services (providers) and who can request them (requesters); "both" is
// the common case on a time-bank.
type AccountRole string

const (
	AccountRoleRequester AccountRole = "requester"
	AccountRoleProvider  AccountRole = "provider"
	AccountRoleBoth      AccountRole = "both"
	AccountRoleAdmin     AccountRole = "admin"
)

var validAccountRoles = []AccountRole{
	AccountRoleRequester,
	AccountRoleProvider,
	AccountRoleBoth,
	AccountRoleAdmin,
}

// IsValid reports whether the value matches the canonical account_role enum.
func (r AccountRole) IsValid() bool {
	for _, candidate := range validAccountRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanProvide reports whether accounts with this role may own service listings.
func (r AccountRole) CanProvide() bool {
	return r == AccountRoleProvider || r == AccountRoleBoth || r == AccountRoleAdmin
}

// CanRequest reports whether accounts with this role may open transactions.
func (r AccountRole) CanRequest() bool {
	return r == AccountRoleRequester || r == AccountRoleBoth || r == AccountRoleAdmin
}

// ParseAccountRole converts raw input into AccountRole.
func ParseAccountRole(value string) (AccountRole, error) {
	for _, candidate := range validAccountRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account role %q", value)
}
