package catalog

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store/memory"
)

var owner = model.Actor{UserID: 1, Role: model.RoleOwner}

func newCatalog(t *testing.T) (*Service, model.Business) {
	t.Helper()
	c := New(memory.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	biz, err := c.CreateBusiness(context.Background(), owner, BusinessInput{Name: " Oak Spa ", Timezone: "Europe/Berlin"})
	require.NoError(t, err)
	return c, biz
}

func TestCreateBusiness(t *testing.T) {
	c, biz := newCatalog(t)
	assert.Equal(t, "Oak Spa", biz.Name)
	assert.Equal(t, int64(1), biz.OwnerID)

	_, err := c.CreateBusiness(context.Background(), owner, BusinessInput{Name: "Second"})
	assert.Equal(t, model.KindAlreadyExists, model.KindOf(err))

	_, err = c.CreateBusiness(context.Background(), model.Actor{UserID: 2, Role: model.RoleClient}, BusinessInput{Name: "Nope"})
	assert.Equal(t, model.KindForbidden, model.KindOf(err))

	_, err = c.CreateBusiness(context.Background(), model.Actor{UserID: 3, Role: model.RoleOwner}, BusinessInput{Name: "Bad tz", Timezone: "Mars/Olympus"})
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	mine, err := c.BusinessForOwner(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, biz.ID, mine.ID)
}

func TestUpdateBusinessKeepsOwner(t *testing.T) {
	c, biz := newCatalog(t)
	ctx := context.Background()

	_, err := c.UpdateBusiness(ctx, model.Actor{UserID: 2, Role: model.RoleOwner}, biz.ID, BusinessInput{Name: "Hijack"})
	assert.Equal(t, model.KindForbidden, model.KindOf(err))

	updated, err := c.UpdateBusiness(ctx, owner, biz.ID, BusinessInput{Name: "Oak Spa & Sauna", Phone: "555"})
	require.NoError(t, err)
	assert.Equal(t, "UTC", updated.Timezone)

	got, err := c.GetBusiness(ctx, biz.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oak Spa & Sauna", got.Name)
	assert.Equal(t, int64(1), got.OwnerID)

	_, err = c.UpdateBusiness(ctx, owner, 999, BusinessInput{Name: "x"})
	assert.Equal(t, model.KindNotFound, model.KindOf(err))
}

func TestServices(t *testing.T) {
	c, biz := newCatalog(t)
	ctx := context.Background()

	_, err := c.CreateService(ctx, owner, biz.ID, ServiceInput{Name: "Massage", DurationMinutes: 0, PriceCents: 100})
	assert.Equal(t, model.KindValidation, model.KindOf(err))
	_, err = c.CreateService(ctx, owner, biz.ID, ServiceInput{Name: "Massage", DurationMinutes: 60, PriceCents: -1})
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	massage, err := c.CreateService(ctx, owner, biz.ID, ServiceInput{Name: "Massage", DurationMinutes: 60, PriceCents: 6000})
	require.NoError(t, err)
	assert.True(t, massage.Active)
	_, err = c.CreateService(ctx, owner, biz.ID, ServiceInput{Name: "Facial", DurationMinutes: 45})
	require.NoError(t, err)

	off := false
	_, err = c.UpdateService(ctx, owner, massage.ID, ServiceInput{Name: "Massage", DurationMinutes: 90, PriceCents: 8000, Active: &off})
	require.NoError(t, err)

	public, err := c.ListServices(ctx, biz.ID, true)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "Facial", public[0].Name)

	all, err := c.ListServices(ctx, biz.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = c.UpdateService(ctx, model.Actor{UserID: 5, Role: model.RoleStaff, BusinessID: biz.ID}, massage.ID, ServiceInput{Name: "x", DurationMinutes: 5})
	assert.Equal(t, model.KindForbidden, model.KindOf(err))
}

func TestStaffSeedsDefaultHours(t *testing.T) {
	c, biz := newCatalog(t)
	ctx := context.Background()

	_, err := c.CreateStaff(ctx, owner, biz.ID, StaffInput{Name: " "})
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	lee, err := c.CreateStaff(ctx, owner, biz.ID, StaffInput{Name: "Lee", Specialization: "Sports"})
	require.NoError(t, err)
	assert.True(t, lee.Active)

	hours, err := c.ListWorkingHours(ctx, lee.ID)
	require.NoError(t, err)
	require.Len(t, hours, 7)
	assert.True(t, hours[time.Monday].IsWorking)
	assert.False(t, hours[time.Sunday].IsWorking)

	updated, err := c.SetWorkingHours(ctx, owner, lee.ID, []model.WorkingHours{
		{Weekday: time.Saturday, IsWorking: true, StartMinute: 600, EndMinute: 840},
		{Weekday: time.Monday, IsWorking: false},
	})
	require.NoError(t, err)
	assert.True(t, updated[time.Saturday].IsWorking)
	assert.Equal(t, 600, updated[time.Saturday].StartMinute)
	assert.False(t, updated[time.Monday].IsWorking)
	assert.True(t, updated[time.Tuesday].IsWorking)

	_, err = c.SetWorkingHours(ctx, owner, lee.ID, []model.WorkingHours{{Weekday: time.Friday, IsWorking: true, StartMinute: 900, EndMinute: 600}})
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	_, err = c.SetWorkingHours(ctx, owner, lee.ID, []model.WorkingHours{
		{Weekday: time.Friday}, {Weekday: time.Friday},
	})
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	staff, err := c.ListStaff(ctx, biz.ID)
	require.NoError(t, err)
	assert.Len(t, staff, 1)
}
