package services

import (
	"context"
	"errors"
	"time"

	"kalam-backend/internal/audit"
	"kalam-backend/internal/metrics"
	"kalam-backend/internal/models"
	"kalam-backend/internal/permissions"
	"kalam-backend/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const revenueWindowDays = 14

// Orders

func (s *AdminService) ListOrders(ctx context.Context, pc *permissions.Context, filters repositories.OrderFilters, params repositories.ListParams) ([]models.Order, int64, error) {
	if err := require(pc, permissions.Orders, permissions.Read); err != nil {
		return nil, 0, err
	}
	orders, total, err := s.repo.OrderRepo.ListOrders(ctx, filters, params)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return orders, total, nil
}

func (s *AdminService) GetOrder(ctx context.Context, pc *permissions.Context, id uuid.UUID) (*models.Order, error) {
	if err := require(pc, permissions.Orders, permissions.Read); err != nil {
		return nil, err
	}
	order, err := s.repo.OrderRepo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "Order")
	}
	return order, nil
}

// UpdateOrderStatus moves a CREATED order by hand. PAID needs a successful
// payment on record and runs the normal confirmation.
func (s *AdminService) UpdateOrderStatus(ctx context.Context, pc *permissions.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	if err := require(pc, permissions.Orders, permissions.Update); err != nil {
		return nil, err
	}
	order, err := s.repo.OrderRepo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "Order")
	}
	if !order.Status.CanTransition(status) {
		return nil, newError(CodeInvalidTransition, "Order cannot move from "+string(order.Status)+" to "+string(status))
	}

	switch status {
	case models.OrderPaid:
		payment, err := s.repo.PaymentRepo.GetPaymentByOrderID(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, newError(CodeInvalidTransition, "Order has no payment")
			}
			return nil, internalError(err)
		}
		order, err = s.orders.ConfirmOrder(ctx, id, payment.ID)
		if err != nil {
			return nil, err
		}
	case models.OrderFailed:
		if order, err = s.orders.FailOrder(ctx, id); err != nil {
			return nil, err
		}
	case models.OrderCancelled:
		ok, err := s.repo.OrderRepo.TransitionOrder(ctx, id, models.OrderCreated, models.OrderCancelled, nil)
		if err != nil {
			return nil, internalError(err)
		}
		if !ok {
			return nil, newError(CodeInvalidTransition, "Order is no longer CREATED")
		}
		order.Status = models.OrderCancelled
		metrics.OrderTransitions.WithLabelValues(string(models.OrderCancelled)).Inc()
	}

	logrus.WithFields(logrus.Fields{"admin_id": pc.AdminID, "order_id": id, "status": status}).Info("order status changed by admin")
	return order, nil
}

// Payments

func (s *AdminService) ListPayments(ctx context.Context, pc *permissions.Context, filters repositories.PaymentFilters, params repositories.ListParams) ([]models.Payment, int64, error) {
	if err := require(pc, permissions.Payments, permissions.Read); err != nil {
		return nil, 0, err
	}
	payments, total, err := s.repo.PaymentRepo.ListPayments(ctx, filters, params)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return payments, total, nil
}

func (s *AdminService) GetPayment(ctx context.Context, pc *permissions.Context, id uuid.UUID) (*models.Payment, error) {
	if err := require(pc, permissions.Payments, permissions.Read); err != nil {
		return nil, err
	}
	payment, err := s.repo.PaymentRepo.GetPaymentByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "Payment")
	}
	return payment, nil
}

func (s *AdminService) RefundPayment(ctx context.Context, pc *permissions.Context, id uuid.UUID) (*models.Payment, error) {
	if err := require(pc, permissions.Payments, permissions.Update); err != nil {
		return nil, err
	}
	payment, err := s.payments.Refund(ctx, id)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"admin_id": pc.AdminID, "payment_id": id}).Info("refund recorded")
	return payment, nil
}

// PaymentDeliveries lists the audited gateway deliveries for a payment,
// newest first.
func (s *AdminService) PaymentDeliveries(ctx context.Context, pc *permissions.Context, id uuid.UUID) ([]audit.Entry, error) {
	payment, err := s.GetPayment(ctx, pc, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.audit.ListByTxn(ctx, payment.ProviderOrderID, 50)
	if err != nil {
		return nil, internalError(err)
	}
	return entries, nil
}

// Registrations

type RegistrationInput struct {
	UserID  uuid.UUID
	EventID uuid.UUID
	Status  models.RegistrationStatus
	TeamID  *uuid.UUID
}

type RegistrationPatch struct {
	Status *models.RegistrationStatus
	TeamID *uuid.UUID
}

func (s *AdminService) ListRegistrations(ctx context.Context, pc *permissions.Context, filters repositories.RegistrationFilters, params repositories.ListParams) ([]models.Registration, int64, error) {
	if err := require(pc, permissions.Registrations, permissions.Read); err != nil {
		return nil, 0, err
	}
	filters.Scope = pc.Scope()
	regs, total, err := s.repo.RegistrationRepo.ListRegistrations(ctx, filters, params)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return regs, total, nil
}

func (s *AdminService) GetRegistration(ctx context.Context, pc *permissions.Context, id uuid.UUID) (*models.Registration, error) {
	reg, _, err := s.scopedRegistration(ctx, pc, id, permissions.Read)
	return reg, err
}

func (s *AdminService) scopedRegistration(ctx context.Context, pc *permissions.Context, id uuid.UUID, action permissions.Action) (*models.Registration, *models.Event, error) {
	if err := require(pc, permissions.Registrations, action); err != nil {
		return nil, nil, err
	}
	reg, err := s.repo.RegistrationRepo.GetRegistrationByID(ctx, id)
	if err != nil {
		return nil, nil, fromRepo(err, "Registration")
	}
	event, err := s.repo.EventRepo.GetEventByID(ctx, reg.EventID)
	if err != nil {
		return nil, nil, fromRepo(err, "Event")
	}
	if err := requireEvent(pc, permissions.Registrations, action, event); err != nil {
		return nil, nil, err
	}
	return reg, event, nil
}

// CreateRegistration records a manual (offline) registration.
func (s *AdminService) CreateRegistration(ctx context.Context, pc *permissions.Context, in RegistrationInput) (*models.Registration, error) {
	event, err := s.repo.EventRepo.GetEventByID(ctx, in.EventID)
	if err != nil {
		return nil, fromRepo(err, "Event")
	}
	if err := requireEvent(pc, permissions.Registrations, permissions.Create, event); err != nil {
		return nil, err
	}
	if _, err := s.repo.UserRepo.GetUserByID(ctx, in.UserID); err != nil {
		return nil, fromRepo(err, "User")
	}

	status := in.Status
	if status == "" {
		status = models.RegistrationPending
	}
	if !models.IsValidRegistrationStatus(string(status)) {
		return nil, validationError("status", "status must be one of: pending confirmed cancelled")
	}

	reg := &models.Registration{
		ID:      uuid.New(),
		UserID:  in.UserID,
		EventID: in.EventID,
		Status:  status,
	}
	if err := s.applyTeam(ctx, reg, in.TeamID); err != nil {
		return nil, err
	}
	if status == models.RegistrationConfirmed {
		reg.QRPath = issueTicket(s.cfg.QRDir, reg)
	}

	if err := s.repo.RegistrationRepo.CreateRegistration(ctx, reg); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, newError(CodeAlreadyRegistered, "User is already registered for this event")
		}
		return nil, internalError(err)
	}

	logrus.WithFields(logrus.Fields{"admin_id": pc.AdminID, "registration_id": reg.ID}).Info("registration created by admin")
	return reg, nil
}

func (s *AdminService) UpdateRegistration(ctx context.Context, pc *permissions.Context, id uuid.UUID, patch RegistrationPatch) (*models.Registration, error) {
	reg, _, err := s.scopedRegistration(ctx, pc, id, permissions.Update)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil {
		if !models.IsValidRegistrationStatus(string(*patch.Status)) {
			return nil, validationError("status", "status must be one of: pending confirmed cancelled")
		}
		reg.Status = *patch.Status
	}
	if patch.TeamID != nil {
		if err := s.applyTeam(ctx, reg, patch.TeamID); err != nil {
			return nil, err
		}
	}
	if reg.Status == models.RegistrationConfirmed && reg.QRPath == "" {
		reg.QRPath = issueTicket(s.cfg.QRDir, reg)
	}

	reg.Event = nil
	reg.User = nil
	if err := s.repo.RegistrationRepo.UpdateRegistration(ctx, reg); err != nil {
		return nil, fromRepo(err, "Registration")
	}
	return reg, nil
}

func (s *AdminService) applyTeam(ctx context.Context, reg *models.Registration, teamID *uuid.UUID) error {
	if teamID == nil {
		return nil
	}
	team, err := s.repo.TeamRepo.GetTeamByID(ctx, *teamID)
	if err != nil {
		return fromRepo(err, "Team")
	}
	if team.EventID != reg.EventID {
		return validationError("teamId", "team belongs to a different event")
	}
	reg.TeamID = &team.ID
	reg.TeamName = team.Name
	return nil
}

func (s *AdminService) DeleteRegistration(ctx context.Context, pc *permissions.Context, id uuid.UUID) error {
	if _, _, err := s.scopedRegistration(ctx, pc, id, permissions.Delete); err != nil {
		return err
	}
	if err := s.repo.RegistrationRepo.DeleteRegistration(ctx, id); err != nil {
		return fromRepo(err, "Registration")
	}
	logrus.WithFields(logrus.Fields{"admin_id": pc.AdminID, "registration_id": id}).Info("registration deleted")
	return nil
}

// Teams

func (s *AdminService) ListTeams(ctx context.Context, pc *permissions.Context, eventID *uuid.UUID, params repositories.ListParams) ([]models.Team, int64, error) {
	if err := require(pc, permissions.Teams, permissions.Read); err != nil {
		return nil, 0, err
	}
	teams, total, err := s.repo.TeamRepo.ListTeams(ctx, repositories.TeamFilters{Scope: pc.Scope(), EventID: eventID}, params)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return teams, total, nil
}

func (s *AdminService) GetTeam(ctx context.Context, pc *permissions.Context, id uuid.UUID) (*models.Team, error) {
	if err := require(pc, permissions.Teams, permissions.Read); err != nil {
		return nil, err
	}
	team, err := s.repo.TeamRepo.GetTeamByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "Team")
	}
	event, err := s.repo.EventRepo.GetEventByID(ctx, team.EventID)
	if err != nil {
		return nil, fromRepo(err, "Event")
	}
	if err := requireEvent(pc, permissions.Teams, permissions.Read, event); err != nil {
		return nil, err
	}
	return team, nil
}

// Stats

type DashboardStats struct {
	Totals  *repositories.StatsTotals             `json:"totals"`
	Events  []repositories.EventRegistrationCount `json:"events"`
	Revenue []repositories.DailyRevenue           `json:"revenue"`
}

// Stats builds the dashboard for the caller's scope. Revenue is only
// reported to admins who see every event.
func (s *AdminService) Stats(ctx context.Context, pc *permissions.Context) (*DashboardStats, error) {
	if err := require(pc, permissions.Stats, permissions.Read); err != nil {
		return nil, err
	}
	scope := pc.Scope()

	totals, err := s.repo.StatsRepo.Totals(ctx, scope)
	if err != nil {
		return nil, internalError(err)
	}
	perEvent, err := s.repo.StatsRepo.RegistrationsPerEvent(ctx, scope)
	if err != nil {
		return nil, internalError(err)
	}

	revenue := []repositories.DailyRevenue{}
	if scope.All {
		now := s.now().UTC()
		today := now.Truncate(24 * time.Hour)
		since := today.AddDate(0, 0, -(revenueWindowDays - 1))
		if revenue, err = s.repo.StatsRepo.DailyRevenue(ctx, since); err != nil {
			return nil, internalError(err)
		}
	}

	return &DashboardStats{Totals: totals, Events: perEvent, Revenue: revenue}, nil
}
