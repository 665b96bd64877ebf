package domain

// Role is the dashboard role of an acting user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
	RoleDriver  Role = "driver"
)

// ActingUser is the authenticated staff member a request acts for.
// It is passed explicitly into every workflow operation.
// CompanyID is 0 for admins, who are not bound to a company.
type ActingUser struct {
	ID        int64 `json:"id"`
	CompanyID int64 `json:"company_id"`
	Role      Role  `json:"role"`
}

// CanSell reports whether the user may run counter sales.
func (u ActingUser) CanSell() bool {
	switch u.Role {
	case RoleAdmin, RoleManager, RoleStaff:
		return true
	}
	return false
}

// ResolveCompany returns the company a search runs against. Non-admins are
// always scoped to their own company; admins use the requested one.
// It returns 0 when no company can be resolved.
func (u ActingUser) ResolveCompany(requested int64) int64 {
	if u.Role == RoleAdmin {
		if requested > 0 {
			return requested
		}
		return u.CompanyID
	}
	return u.CompanyID
}
