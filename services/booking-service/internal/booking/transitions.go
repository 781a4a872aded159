package booking

import (
	"slices"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
)

// LateChangeWindow is how close to the start a cancel or reschedule counts as late.
const LateChangeWindow = 24 * time.Hour

type edge struct {
	from, to model.Status
}

type rule struct {
	roles []model.Role
	// ready reports whether the appointment may take this edge at now.
	ready func(a model.Appointment, now time.Time) error
}

func always(model.Appointment, time.Time) error { return nil }

var transitions = map[edge]rule{
	{model.StatusPending, model.StatusConfirmed}: {
		roles: []model.Role{model.RoleOwner, model.RoleStaff},
		ready: always,
	},
	{model.StatusPending, model.StatusCancelled}: {
		roles: []model.Role{model.RoleClient, model.RoleOwner},
		ready: always,
	},
	{model.StatusConfirmed, model.StatusCancelled}: {
		roles: []model.Role{model.RoleClient, model.RoleOwner},
		ready: always,
	},
	{model.StatusConfirmed, model.StatusCompleted}: {
		roles: []model.Role{model.RoleOwner, model.RoleStaff, model.RoleSystem},
		ready: func(a model.Appointment, now time.Time) error {
			if now.Before(a.EndTime()) {
				return model.InvalidTransition("appointment %d has not ended yet", a.ID)
			}
			return nil
		},
	},
	{model.StatusConfirmed, model.StatusNoShow}: {
		roles: []model.Role{model.RoleOwner, model.RoleStaff},
		ready: func(a model.Appointment, now time.Time) error {
			if now.Before(a.StartTime) {
				return model.InvalidTransition("appointment %d has not started yet", a.ID)
			}
			return nil
		},
	},
}

// CheckTransition validates moving a from its current status to target for
// role at now. It does not cover the cancel reason or ownership.
func CheckTransition(a model.Appointment, target model.Status, role model.Role, now time.Time) error {
	r, ok := transitions[edge{a.Status, target}]
	if !ok {
		return model.InvalidTransition("cannot move appointment from %s to %s", a.Status, target)
	}
	if !slices.Contains(r.roles, role) {
		return model.InvalidTransition("%s may not move appointment from %s to %s", role, a.Status, target)
	}
	return r.ready(a, now)
}

// IsLateChange reports whether a change made at now falls inside the late window before start.
func IsLateChange(start, now time.Time) bool {
	return start.Sub(now) < LateChangeWindow
}
