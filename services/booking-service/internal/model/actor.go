package model

type Role string

const (
	RoleClient Role = "client"
	RoleOwner  Role = "owner"
	RoleStaff  Role = "staff"
	RoleSystem Role = "system"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleClient, RoleOwner, RoleStaff, RoleSystem:
		return r, nil
	}
	return "", Validation("unknown role %q", s)
}

// Actor is whoever performs an operation. BusinessID is set for owners and staff.
type Actor struct {
	UserID     int64
	BusinessID int64
	Role       Role
}

// SystemActor is used by background processes such as the lifecycle sweeper.
var SystemActor = Actor{Role: RoleSystem}

// ActsFor reports whether the actor manages businessID.
func (a Actor) ActsFor(businessID int64) bool {
	switch a.Role {
	case RoleSystem:
		return true
	case RoleOwner, RoleStaff:
		return a.BusinessID == businessID
	}
	return false
}

// CanAccess reports whether the actor may see or act on the appointment.
func (a Actor) CanAccess(appt Appointment) bool {
	if a.Role == RoleClient {
		return a.UserID == appt.ClientID
	}
	return a.ActsFor(appt.BusinessID)
}
