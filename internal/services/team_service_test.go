package services

import (
	"context"
	"testing"

	"kalam-backend/internal/models"

	"github.com/stretchr/testify/assert"
	mustreq "github.com/stretchr/testify/require"
)

func TestTeamService_CreateTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	leader := f.user(t, "lead@x.com")
	hack := f.event(t, "Hackathon", 300, withTeam(2, 3))
	solo := f.event(t, "Quiz", 50)

	_, err := f.teams.CreateTeam(ctx, leader.ID, CreateTeamInput{EventID: solo.ID, Name: "T"})
	assert.Equal(t, CodeValidation, ErrorCode(err))

	_, err = f.teams.CreateTeam(ctx, leader.ID, CreateTeamInput{EventID: hack.ID, Name: "Alone"})
	assert.Equal(t, CodeValidation, ErrorCode(err), "leader alone is below the minimum")

	_, err = f.teams.CreateTeam(ctx, leader.ID, CreateTeamInput{
		EventID: hack.ID,
		Name:    "Too many",
		Members: []models.TeamMember{{Email: "b@x.com"}, {Email: "c@x.com"}, {Email: "d@x.com"}},
	})
	assert.Equal(t, CodeValidation, ErrorCode(err))

	_, err = f.teams.CreateTeam(ctx, leader.ID, CreateTeamInput{
		EventID: hack.ID,
		Name:    "Dupes",
		Members: []models.TeamMember{{Email: "LEAD@x.com"}},
	})
	assert.Equal(t, CodeValidation, ErrorCode(err), "leader cannot be listed as a member")

	team, err := f.teams.CreateTeam(ctx, leader.ID, CreateTeamInput{
		EventID: hack.ID,
		Name:    " Null Pointers ",
		Members: []models.TeamMember{{Name: "B", Email: "B@x.com"}},
	})
	mustreq.NoError(t, err)
	assert.Equal(t, "Null Pointers", team.Name)
	assert.Equal(t, 2, team.Size())
	assert.Equal(t, "b@x.com", team.Members[0].Email)

	_, err = f.teams.CreateTeam(ctx, leader.ID, CreateTeamInput{
		EventID: hack.ID,
		Name:    "Second",
		Members: []models.TeamMember{{Email: "c@x.com"}},
	})
	assert.Equal(t, CodeConflict, ErrorCode(err))

	teams, err := f.teams.ListMyTeams(ctx, leader.ID)
	mustreq.NoError(t, err)
	assert.Len(t, teams, 1)
}

func TestTeamOrder_ConfirmsWithTeamName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	leader := f.user(t, "lead@x.com")
	hack := f.event(t, "Hackathon", 300, withTeam(2, 3))

	team, err := f.teams.CreateTeam(ctx, leader.ID, CreateTeamInput{
		EventID: hack.ID,
		Name:    "Null Pointers",
		Members: []models.TeamMember{{Email: "b@x.com"}},
	})
	mustreq.NoError(t, err)

	res, err := f.payments.Initiate(ctx, leader.ID, InitiateInput{EventID: &hack.ID, TeamID: &team.ID})
	mustreq.NoError(t, err)
	payment, err := f.repo.PaymentRepo.GetPaymentByID(ctx, res.PaymentID)
	mustreq.NoError(t, err)

	_, err = f.payments.ProcessCallback(ctx, paidCallback(payment, "success"))
	mustreq.NoError(t, err)

	reg, err := f.repo.RegistrationRepo.GetRegistration(ctx, leader.ID, hack.ID)
	mustreq.NoError(t, err)
	assert.Equal(t, team.ID, *reg.TeamID)
	assert.Equal(t, "Null Pointers", reg.TeamName)
}

func TestRegistrationService_Tickets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, event, payment := initiated(t, f, 500)
	other := f.user(t, "other@x.com")

	pending := &models.Registration{UserID: other.ID, EventID: event.ID, Status: models.RegistrationPending}
	mustreq.NoError(t, f.repo.RegistrationRepo.CreateRegistration(ctx, pending))
	_, err := f.regs.GetTicket(ctx, other.ID, pending.ID)
	assert.Equal(t, CodeNotFound, ErrorCode(err))

	_, err = f.payments.ProcessCallback(ctx, paidCallback(payment, "success"))
	mustreq.NoError(t, err)

	regs, total, err := f.regs.ListMyRegistrations(ctx, user.ID, repoPage())
	mustreq.NoError(t, err)
	mustreq.EqualValues(t, 1, total)

	ticket, err := f.regs.GetTicket(ctx, user.ID, regs[0].ID)
	mustreq.NoError(t, err)
	assert.Equal(t, QRRoute+"/"+regs[0].ID.String()+".png", ticket.QRPath)

	_, err = f.regs.GetTicket(ctx, other.ID, regs[0].ID)
	assert.Equal(t, CodeNotFound, ErrorCode(err))
}
