package services

import (
	"context"
	"testing"
	"time"

	"kalam-backend/internal/models"
	"kalam-backend/internal/permissions"
	"kalam-backend/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	mustreq "github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestAdminService_AdminRoleInvariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := permissions.NewContext(f.superadmin(t))
	cse := f.department(t, "CSE")

	_, err := f.admin.CreateAdmin(ctx, root, AdminInput{Name: "X", Email: "x@k.test", Password: "pw123456", Role: "super_admin"})
	assert.Equal(t, CodeValidation, ErrorCode(err))

	_, err = f.admin.CreateAdmin(ctx, root, AdminInput{Name: "X", Email: "x@k.test", Password: "pw123456", Role: models.AdminRoleDepartmentManager})
	assert.Equal(t, CodeValidation, ErrorCode(err), "department is required")

	missing := uuid.New()
	_, err = f.admin.CreateAdmin(ctx, root, AdminInput{Name: "X", Email: "x@k.test", Password: "pw123456", Role: models.AdminRoleDepartmentManager, DepartmentID: &missing})
	assert.Equal(t, CodeValidation, ErrorCode(err))

	manager, err := f.admin.CreateAdmin(ctx, root, AdminInput{Name: "X", Email: "X@k.test", Password: "pw123456", Role: models.AdminRoleDepartmentManager, DepartmentID: &cse.ID})
	mustreq.NoError(t, err)
	assert.Equal(t, "x@k.test", manager.Email)

	_, err = f.admin.CreateAdmin(ctx, root, AdminInput{Name: "Y", Email: "y@k.test", Password: "pw123456", Role: models.AdminRoleDepartmentManager, DepartmentID: &cse.ID})
	assert.Equal(t, CodeConflict, ErrorCode(err), "one manager per department")

	promoted, err := f.admin.UpdateAdmin(ctx, root, manager.ID, AdminPatch{Role: strPtr(models.AdminRoleSuperadmin)})
	mustreq.NoError(t, err)
	assert.Nil(t, promoted.DepartmentID)

	err = f.admin.DeleteAdmin(ctx, root, root.AdminID)
	assert.Equal(t, CodeValidation, ErrorCode(err))
	mustreq.NoError(t, f.admin.DeleteAdmin(ctx, root, manager.ID))
}

func strPtr(v string) *string { return &v }

func TestAdminService_EventScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cse := f.department(t, "CSE")
	ece := f.department(t, "ECE")
	mine := f.event(t, "Hackathon", 300, inDepartment(cse.ID))
	theirs := f.event(t, "Circuits", 100, inDepartment(ece.ID))

	deptPC := permissions.NewContext(f.adminWithRole(t, models.AdminRoleDepartmentManager, &cse.ID, nil))
	eventPC := permissions.NewContext(f.adminWithRole(t, models.AdminRoleEventManager, &ece.ID, []uuid.UUID{mine.ID}))

	events, total, err := f.admin.ListEvents(ctx, deptPC, AdminEventQuery{}, repoPage())
	mustreq.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, mine.ID, events[0].ID)

	_, err = f.admin.GetEvent(ctx, deptPC, theirs.ID)
	assert.Equal(t, CodeForbidden, ErrorCode(err))

	_, err = f.admin.GetEvent(ctx, eventPC, mine.ID)
	assert.NoError(t, err)
	_, err = f.admin.GetEvent(ctx, eventPC, theirs.ID)
	assert.Equal(t, CodeForbidden, ErrorCode(err), "assignment wins over department for event managers")

	fee := int64(400)
	updated, err := f.admin.UpdateEvent(ctx, eventPC, mine.ID, EventPatch{Fee: &fee})
	mustreq.NoError(t, err)
	assert.EqualValues(t, 400, updated.Fee)

	err = f.admin.DeleteEvent(ctx, eventPC, mine.ID)
	assert.Equal(t, CodeForbidden, ErrorCode(err))
}

func TestAdminService_CreateEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cse := f.department(t, "CSE")
	ece := f.department(t, "ECE")
	cat := f.category(t)
	deptPC := permissions.NewContext(f.adminWithRole(t, models.AdminRoleDepartmentManager, &cse.ID, nil))
	start := time.Now().Add(24 * time.Hour)

	in := EventInput{
		Name:         "Paper Presentation",
		Slug:         "Paper-Pres",
		CategoryID:   cat.ID,
		DepartmentID: &ece.ID,
		StartsAt:     start,
		EndsAt:       start.Add(2 * time.Hour),
		Fee:          150,
	}
	event, err := f.admin.CreateEvent(ctx, deptPC, in)
	mustreq.NoError(t, err)
	assert.Equal(t, "paper-pres", event.Slug)
	assert.Equal(t, cse.ID, *event.DepartmentID, "managers create in their own department")

	_, err = f.admin.CreateEvent(ctx, deptPC, in)
	assert.Equal(t, CodeConflict, ErrorCode(err))

	bad := in
	bad.Slug = "team-bad"
	bad.RequiresTeam = true
	bad.MinTeamSize = intPtr(4)
	bad.MaxTeamSize = intPtr(2)
	_, err = f.admin.CreateEvent(ctx, deptPC, bad)
	assert.Equal(t, CodeValidation, ErrorCode(err))

	backwards := in
	backwards.Slug = "backwards"
	backwards.EndsAt = start.Add(-time.Hour)
	_, err = f.admin.CreateEvent(ctx, deptPC, backwards)
	assert.Equal(t, CodeValidation, ErrorCode(err))

	// New events appear in the public catalog straight away.
	_, err = f.events.GetEvent(ctx, "paper-pres")
	assert.NoError(t, err)
}

func TestAdminService_Announcements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cse := f.department(t, "CSE")
	hack := f.event(t, "Hackathon", 300, inDepartment(cse.ID))
	root := permissions.NewContext(f.superadmin(t))
	deptPC := permissions.NewContext(f.adminWithRole(t, models.AdminRoleDepartmentManager, &cse.ID, nil))
	eventPC := permissions.NewContext(f.adminWithRole(t, models.AdminRoleEventManager, &cse.ID, []uuid.UUID{hack.ID}))

	_, err := f.admin.CreateAnnouncement(ctx, deptPC, AnnouncementInput{Title: "Site", Body: "b"})
	assert.Equal(t, CodeForbidden, ErrorCode(err), "site-wide is superadmin only")

	_, err = f.admin.CreateAnnouncement(ctx, root, AnnouncementInput{Title: "Site", Body: "b", IsPublished: true})
	mustreq.NoError(t, err)

	a, err := f.admin.CreateAnnouncement(ctx, deptPC, AnnouncementInput{Title: "Venue", Body: "b", EventID: &hack.ID})
	mustreq.NoError(t, err)
	assert.Equal(t, deptPC.AdminID, a.AuthorID)

	_, err = f.admin.CreateAnnouncement(ctx, eventPC, AnnouncementInput{Title: "No", Body: "b", EventID: &hack.ID})
	assert.Equal(t, CodeForbidden, ErrorCode(err))

	published := true
	a, err = f.admin.UpdateAnnouncement(ctx, deptPC, a.ID, AnnouncementPatch{IsPublished: &published})
	mustreq.NoError(t, err)
	assert.True(t, a.IsPublished)

	_, total, err := f.events.ListAnnouncements(ctx, &hack.ID, repoPage())
	mustreq.NoError(t, err)
	assert.EqualValues(t, 1, total)

	mustreq.NoError(t, f.admin.DeleteAnnouncement(ctx, deptPC, a.ID))
}

func TestAdminService_RegistrationsAreScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cse := f.department(t, "CSE")
	ece := f.department(t, "ECE")
	mine := f.event(t, "Hackathon", 300, inDepartment(cse.ID))
	theirs := f.event(t, "Circuits", 100, inDepartment(ece.ID))
	user := f.user(t, "a@x.com")

	root := permissions.NewContext(f.superadmin(t))
	deptPC := permissions.NewContext(f.adminWithRole(t, models.AdminRoleDepartmentManager, &cse.ID, nil))

	r1, err := f.admin.CreateRegistration(ctx, root, RegistrationInput{UserID: user.ID, EventID: mine.ID})
	mustreq.NoError(t, err)
	assert.Equal(t, models.RegistrationPending, r1.Status)
	assert.Empty(t, r1.QRPath)

	r2, err := f.admin.CreateRegistration(ctx, root, RegistrationInput{UserID: user.ID, EventID: theirs.ID, Status: models.RegistrationConfirmed})
	mustreq.NoError(t, err)
	assert.NotEmpty(t, r2.QRPath)

	_, err = f.admin.CreateRegistration(ctx, root, RegistrationInput{UserID: user.ID, EventID: mine.ID})
	assert.Equal(t, CodeAlreadyRegistered, ErrorCode(err))

	_, err = f.admin.CreateRegistration(ctx, deptPC, RegistrationInput{UserID: user.ID, EventID: mine.ID})
	assert.Equal(t, CodeForbidden, ErrorCode(err))

	regs, total, err := f.admin.ListRegistrations(ctx, deptPC, repositories.RegistrationFilters{}, repoPage())
	mustreq.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, r1.ID, regs[0].ID)

	_, err = f.admin.GetRegistration(ctx, deptPC, r2.ID)
	assert.Equal(t, CodeForbidden, ErrorCode(err))

	confirmed := models.RegistrationConfirmed
	updated, err := f.admin.UpdateRegistration(ctx, deptPC, r1.ID, RegistrationPatch{Status: &confirmed})
	mustreq.NoError(t, err)
	assert.Equal(t, models.RegistrationConfirmed, updated.Status)
	assert.NotEmpty(t, updated.QRPath)

	err = f.admin.DeleteRegistration(ctx, deptPC, r1.ID)
	assert.Equal(t, CodeForbidden, ErrorCode(err), "department managers cannot delete")
	mustreq.NoError(t, f.admin.DeleteRegistration(ctx, root, r1.ID))
}

func TestAdminService_OrderStatusAndRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := permissions.NewContext(f.superadmin(t))
	cse := f.department(t, "CSE")
	deptPC := permissions.NewContext(f.adminWithRole(t, models.AdminRoleDepartmentManager, &cse.ID, nil))
	user, event, payment := initiated(t, f, 500)

	_, err := f.admin.UpdateOrderStatus(ctx, deptPC, payment.OrderID, models.OrderCancelled)
	assert.Equal(t, CodeForbidden, ErrorCode(err))

	_, err = f.admin.UpdateOrderStatus(ctx, root, payment.OrderID, models.OrderPaid)
	assert.Equal(t, CodeInvalidTransition, ErrorCode(err), "payment has not succeeded")

	_, err = f.payments.ProcessCallback(ctx, paidCallback(payment, "success"))
	mustreq.NoError(t, err)

	_, err = f.admin.UpdateOrderStatus(ctx, root, payment.OrderID, models.OrderCancelled)
	assert.Equal(t, CodeInvalidTransition, ErrorCode(err))

	orders, total, err := f.admin.ListOrders(ctx, deptPC, repositories.OrderFilters{Status: string(models.OrderPaid)}, repoPage())
	mustreq.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, user.ID, orders[0].UserID)

	_, err = f.admin.RefundPayment(ctx, deptPC, payment.ID)
	assert.Equal(t, CodeForbidden, ErrorCode(err))

	refunded, err := f.admin.RefundPayment(ctx, root, payment.ID)
	mustreq.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, refunded.Status)

	reg, err := f.repo.RegistrationRepo.GetRegistration(ctx, user.ID, event.ID)
	mustreq.NoError(t, err)
	assert.Equal(t, models.RegistrationCancelled, reg.Status)
}

func TestAdminService_ManualOrderTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := permissions.NewContext(f.superadmin(t))
	user := f.user(t, "a@x.com")
	e1 := f.event(t, "E1", 500)

	order, err := f.orders.CreateOrderForEvent(ctx, user.ID, e1.ID, nil)
	mustreq.NoError(t, err)
	failed, err := f.admin.UpdateOrderStatus(ctx, root, order.ID, models.OrderFailed)
	mustreq.NoError(t, err)
	assert.Equal(t, models.OrderFailed, failed.Status)

	order, err = f.orders.CreateOrderForEvent(ctx, user.ID, e1.ID, nil)
	mustreq.NoError(t, err)
	cancelled, err := f.admin.UpdateOrderStatus(ctx, root, order.ID, models.OrderCancelled)
	mustreq.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
}

func TestAdminService_PaymentDeliveries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := permissions.NewContext(f.superadmin(t))
	_, _, payment := initiated(t, f, 500)

	_, err := f.payments.HandleCallback(ctx, paidCallback(payment, "success"), nil, "10.0.0.1")
	mustreq.NoError(t, err)
	_, err = f.payments.HandleCallback(ctx, paidCallback(payment, "success"), nil, "10.0.0.1")
	mustreq.NoError(t, err)

	entries, err := f.admin.PaymentDeliveries(ctx, root, payment.ID)
	mustreq.NoError(t, err)
	mustreq.Len(t, entries, 2)
	assert.Equal(t, "duplicate", entries[0].Result)
	assert.Equal(t, "applied", entries[1].Result)
}

func TestAdminService_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := permissions.NewContext(f.superadmin(t))
	cse := f.department(t, "CSE")
	deptPC := permissions.NewContext(f.adminWithRole(t, models.AdminRoleDepartmentManager, &cse.ID, nil))

	_, _, payment := initiated(t, f, 500)
	_, err := f.payments.ProcessCallback(ctx, paidCallback(payment, "success"))
	mustreq.NoError(t, err)

	stats, err := f.admin.Stats(ctx, root)
	mustreq.NoError(t, err)
	assert.EqualValues(t, 1, stats.Totals.Events)
	mustreq.Len(t, stats.Events, 1)
	assert.EqualValues(t, 1, stats.Events[0].Confirmed)
	mustreq.NotEmpty(t, stats.Revenue)
	var revenue int64
	for _, day := range stats.Revenue {
		revenue += day.Amount
	}
	assert.EqualValues(t, 500+testEntryFee, revenue)

	scoped, err := f.admin.Stats(ctx, deptPC)
	mustreq.NoError(t, err)
	assert.Zero(t, scoped.Totals.Events)
	assert.Empty(t, scoped.Events)
	assert.Empty(t, scoped.Revenue, "revenue is hidden outside the full scope")
}

func TestAdminService_UsersRequireCapability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cse := f.department(t, "CSE")
	root := permissions.NewContext(f.superadmin(t))
	eventPC := permissions.NewContext(f.adminWithRole(t, models.AdminRoleEventManager, &cse.ID, nil))

	_, err := f.admin.CreateUser(ctx, eventPC, UserInput{Name: "N", Email: "n@x.com", Password: "pw12345678"})
	assert.Equal(t, CodeForbidden, ErrorCode(err))

	user, err := f.admin.CreateUser(ctx, root, UserInput{Name: "N", Email: "n@x.com", Password: "pw12345678"})
	mustreq.NoError(t, err)

	_, total, err := f.admin.ListUsers(ctx, eventPC, repoPage())
	mustreq.NoError(t, err)
	assert.EqualValues(t, 1, total)

	paid := true
	updated, err := f.admin.UpdateUser(ctx, root, user.ID, UserPatch{EntryFeePaid: &paid})
	mustreq.NoError(t, err)
	assert.True(t, updated.EntryFeePaid)

	err = f.admin.DeleteUser(ctx, eventPC, user.ID)
	assert.Equal(t, CodeForbidden, ErrorCode(err))
	mustreq.NoError(t, f.admin.DeleteUser(ctx, root, user.ID))
}
