package handlers

import (
	"strings"

	"kalam-backend/internal/middleware"
	"kalam-backend/internal/models"
	"kalam-backend/internal/repositories"
	"kalam-backend/internal/services"
	"kalam-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AdminOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=CREATED PAID FAILED CANCELLED"`
}

type AdminRegistrationRequest struct {
	UserID  string `json:"userId" validate:"required,uuid"`
	EventID string `json:"eventId" validate:"required,uuid"`
	Status  string `json:"status" validate:"omitempty,oneof=pending confirmed cancelled"`
	TeamID  string `json:"teamId" validate:"omitempty,uuid"`
}

type AdminRegistrationPatchRequest struct {
	Status *string `json:"status" validate:"omitempty,oneof=pending confirmed cancelled"`
	TeamID *string `json:"teamId" validate:"omitempty,uuid"`
}

// Orders

// @Summary List orders (admin)
// @Tags Admin Orders
// @Param status query string false "Order status"
// @Param userId query string false "Owner filter"
// @Router /admin/orders [get]
func (h *Handler) AdminListOrders(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	userID, err := queryUUID(c, "userId")
	if err != nil {
		return err
	}

	params := utils.ListQuery(c)
	orders, total, err := h.adminSvc.ListOrders(c.UserContext(), pc, repositories.OrderFilters{
		UserID: userID,
		Status: strings.ToUpper(c.Query("status")),
	}, params)
	if err != nil {
		return err
	}
	return paged(c, orders, total, params, "Orders retrieved")
}

func (h *Handler) AdminGetOrder(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.adminSvc.GetOrder(c.UserContext(), pc, id)
	if err != nil {
		return err
	}
	return utils.Success(c, order, "Order retrieved")
}

func (h *Handler) AdminUpdateOrder(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req AdminOrderStatusRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	order, err := h.adminSvc.UpdateOrderStatus(c.UserContext(), pc, id, models.OrderStatus(req.Status))
	if err != nil {
		return err
	}
	return utils.Success(c, order, "Order updated")
}

// Payments

func (h *Handler) AdminListPayments(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	userID, err := queryUUID(c, "userId")
	if err != nil {
		return err
	}

	params := utils.ListQuery(c)
	payments, total, err := h.adminSvc.ListPayments(c.UserContext(), pc, repositories.PaymentFilters{
		Status: strings.ToUpper(c.Query("status")),
		UserID: userID,
	}, params)
	if err != nil {
		return err
	}
	return paged(c, payments, total, params, "Payments retrieved")
}

func (h *Handler) AdminGetPayment(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	payment, err := h.adminSvc.GetPayment(c.UserContext(), pc, id)
	if err != nil {
		return err
	}
	return utils.Success(c, payment, "Payment retrieved")
}

// @Summary Refund payment
// @Tags Admin Payments
// @Router /admin/payments/{id}/refund [post]
func (h *Handler) AdminRefundPayment(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	payment, err := h.adminSvc.RefundPayment(c.UserContext(), pc, id)
	if err != nil {
		return err
	}
	return utils.Success(c, payment, "Payment refunded")
}

// AdminPaymentDeliveries lists the recorded gateway deliveries for a payment,
// newest first.
// @Summary Payment callback log
// @Tags Admin Payments
// @Router /admin/payments/{id}/deliveries [get]
func (h *Handler) AdminPaymentDeliveries(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	entries, err := h.adminSvc.PaymentDeliveries(c.UserContext(), pc, id)
	if err != nil {
		return err
	}
	return utils.Success(c, entries, "Deliveries retrieved")
}

// Registrations

func (h *Handler) AdminListRegistrations(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	eventID, err := queryUUID(c, "eventId")
	if err != nil {
		return err
	}
	userID, err := queryUUID(c, "userId")
	if err != nil {
		return err
	}

	params := utils.ListQuery(c)
	regs, total, err := h.adminSvc.ListRegistrations(c.UserContext(), pc, repositories.RegistrationFilters{
		EventID: eventID,
		UserID:  userID,
		Status:  strings.ToLower(c.Query("status")),
	}, params)
	if err != nil {
		return err
	}
	return paged(c, regs, total, params, "Registrations retrieved")
}

func (h *Handler) AdminGetRegistration(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	reg, err := h.adminSvc.GetRegistration(c.UserContext(), pc, id)
	if err != nil {
		return err
	}
	return utils.Success(c, reg, "Registration retrieved")
}

func (h *Handler) AdminCreateRegistration(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}

	var req AdminRegistrationRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	reg, err := h.adminSvc.CreateRegistration(c.UserContext(), pc, services.RegistrationInput{
		UserID:  uuid.MustParse(req.UserID),
		EventID: uuid.MustParse(req.EventID),
		Status:  models.RegistrationStatus(req.Status),
		TeamID:  optionalUUID(req.TeamID),
	})
	if err != nil {
		return err
	}
	return utils.Success(c, reg, "Registration created", fiber.StatusCreated)
}

func (h *Handler) AdminUpdateRegistration(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req AdminRegistrationPatchRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	patch := services.RegistrationPatch{TeamID: patchUUID(req.TeamID)}
	if req.Status != nil {
		status := models.RegistrationStatus(*req.Status)
		patch.Status = &status
	}

	reg, err := h.adminSvc.UpdateRegistration(c.UserContext(), pc, id, patch)
	if err != nil {
		return err
	}
	return utils.Success(c, reg, "Registration updated")
}

func (h *Handler) AdminDeleteRegistration(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.adminSvc.DeleteRegistration(c.UserContext(), pc, id); err != nil {
		return err
	}
	return utils.Success(c, nil, "Registration deleted")
}

// Teams

func (h *Handler) AdminListTeams(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	eventID, err := queryUUID(c, "eventId")
	if err != nil {
		return err
	}

	params := utils.ListQuery(c)
	teams, total, err := h.adminSvc.ListTeams(c.UserContext(), pc, eventID, params)
	if err != nil {
		return err
	}
	return paged(c, teams, total, params, "Teams retrieved")
}

func (h *Handler) AdminGetTeam(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	team, err := h.adminSvc.GetTeam(c.UserContext(), pc, id)
	if err != nil {
		return err
	}
	return utils.Success(c, team, "Team retrieved")
}
