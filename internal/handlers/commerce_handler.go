package handlers

import (
	"encoding/json"
	"net/url"
	"strings"

	"kalam-backend/internal/middleware"
	"kalam-backend/internal/models"
	"kalam-backend/internal/services"
	"kalam-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AddToCartRequest struct {
	EventID string `json:"eventId" validate:"required,uuid"`
	TeamID  string `json:"teamId" validate:"omitempty,uuid"`
}

type CreateOrderRequest struct {
	EventID string `json:"eventId" validate:"omitempty,uuid"`
	TeamID  string `json:"teamId" validate:"omitempty,uuid"`
}

type UpdateOrderRequest struct {
	Status string `json:"status" validate:"required"`
}

type ConfirmOrderRequest struct {
	OrderID   string `json:"orderId" validate:"required,uuid"`
	PaymentID string `json:"paymentId" validate:"required,uuid"`
}

type InitiatePaymentRequest struct {
	OrderID string `json:"orderId" validate:"omitempty,uuid"`
	EventID string `json:"eventId" validate:"omitempty,uuid"`
	TeamID  string `json:"teamId" validate:"omitempty,uuid"`
	Amount  *int64 `json:"amount" validate:"omitempty,gte=0"`
}

// optionalUUID parses a field that has already passed the uuid validator.
func optionalUUID(raw string) *uuid.UUID {
	if raw == "" {
		return nil
	}
	id := uuid.MustParse(raw)
	return &id
}

// @Summary Get cart
// @Tags Cart
// @Security BearerAuth
// @Router /cart [get]
func (h *Handler) GetCart(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	cart, err := h.cartSvc.GetCart(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return utils.Success(c, cart, "Cart retrieved")
}

// @Summary Add event to cart
// @Tags Cart
// @Security BearerAuth
// @Router /cart [post]
func (h *Handler) AddToCart(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req AddToCartRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	cart, err := h.cartSvc.AddToCart(c.UserContext(), userID, uuid.MustParse(req.EventID), optionalUUID(req.TeamID))
	if err != nil {
		return err
	}
	return utils.Success(c, cart, "Added to cart")
}

// RemoveFromCart drops one event with ?eventId=, otherwise empties the cart.
// @Summary Remove from cart
// @Tags Cart
// @Security BearerAuth
// @Param eventId query string false "Event to remove"
// @Router /cart [delete]
func (h *Handler) RemoveFromCart(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	eventID, err := queryUUID(c, "eventId")
	if err != nil {
		return err
	}

	if eventID == nil {
		if err := h.cartSvc.ClearCart(c.UserContext(), userID); err != nil {
			return err
		}
		return utils.Success(c, nil, "Cart cleared")
	}

	cart, err := h.cartSvc.RemoveFromCart(c.UserContext(), userID, *eventID)
	if err != nil {
		return err
	}
	return utils.Success(c, cart, "Removed from cart")
}

// CreateOrder checks out the cart, or a single event when eventId is given.
// @Summary Create order
// @Tags Orders
// @Security BearerAuth
// @Router /orders [post]
func (h *Handler) CreateOrder(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req CreateOrderRequest
	if len(c.Body()) > 0 {
		if err := middleware.BindBody(c, &req); err != nil {
			return err
		}
	}

	ctx := c.UserContext()
	var order *models.Order
	if req.EventID != "" {
		order, err = h.orderSvc.CreateOrderForEvent(ctx, userID, uuid.MustParse(req.EventID), optionalUUID(req.TeamID))
	} else {
		order, err = h.orderSvc.CreateOrder(ctx, userID)
	}
	if err != nil {
		return err
	}

	return utils.Success(c, order, "Order created", fiber.StatusCreated)
}

// @Summary List my orders
// @Tags Orders
// @Security BearerAuth
// @Router /orders [get]
func (h *Handler) ListOrders(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	params := utils.ListQuery(c)
	orders, total, err := h.orderSvc.ListOrders(c.UserContext(), userID, params)
	if err != nil {
		return err
	}
	return paged(c, orders, total, params, "Orders retrieved")
}

// @Summary Get order
// @Tags Orders
// @Security BearerAuth
// @Router /orders/{id} [get]
func (h *Handler) GetOrder(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orderSvc.GetOrder(c.UserContext(), userID, id)
	if err != nil {
		return err
	}
	return utils.Success(c, order, "Order retrieved")
}

// UpdateOrder accepts only a move to CANCELLED from the owner.
// @Summary Update order
// @Tags Orders
// @Security BearerAuth
// @Router /orders/{id} [patch]
func (h *Handler) UpdateOrder(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req UpdateOrderRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	order, err := h.orderSvc.UpdateOrder(c.UserContext(), userID, id, req.Status)
	if err != nil {
		return err
	}
	return utils.Success(c, order, "Order updated")
}

// @Summary Cancel order
// @Tags Orders
// @Security BearerAuth
// @Router /orders/{id}/cancel [patch]
func (h *Handler) CancelOrder(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orderSvc.CancelOrder(c.UserContext(), userID, id)
	if err != nil {
		return err
	}
	return utils.Success(c, order, "Order cancelled")
}

// ConfirmOrder re-drives confirmation of the caller's order once its payment
// has succeeded.
// @Summary Confirm order
// @Tags Orders
// @Security BearerAuth
// @Router /orders/confirm [post]
func (h *Handler) ConfirmOrder(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req ConfirmOrderRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	orderID := uuid.MustParse(req.OrderID)
	if _, err := h.orderSvc.GetOrder(c.UserContext(), userID, orderID); err != nil {
		return err
	}

	order, err := h.orderSvc.ConfirmOrder(c.UserContext(), orderID, uuid.MustParse(req.PaymentID))
	if err != nil {
		return err
	}
	return utils.Success(c, order, "Order confirmed")
}

// @Summary Initiate payment
// @Tags Payments
// @Security BearerAuth
// @Router /payments/initiate [post]
func (h *Handler) InitiatePayment(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req InitiatePaymentRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	result, err := h.paymentSvc.Initiate(c.UserContext(), userID, services.InitiateInput{
		OrderID: optionalUUID(req.OrderID),
		EventID: optionalUUID(req.EventID),
		TeamID:  optionalUUID(req.TeamID),
		Amount:  req.Amount,
	})
	if err != nil {
		return err
	}
	return utils.Success(c, result, "Payment initiated", fiber.StatusCreated)
}

// PaymentCallback receives the gateway's server-to-server or browser return
// post. Browser posts are redirected to the frontend when one is configured.
// @Summary Gateway callback
// @Tags Payments
// @Accept x-www-form-urlencoded
// @Router /payments/callback [post]
func (h *Handler) PaymentCallback(c *fiber.Ctx) error {
	payload, err := callbackPayload(c)
	if err != nil {
		return err
	}

	headers := make(map[string]string)
	c.Request().Header.VisitAll(func(key, value []byte) {
		headers[strings.ToLower(string(key))] = string(value)
	})

	result, err := h.paymentSvc.HandleCallback(c.UserContext(), payload, headers, c.IP())
	if err != nil {
		return err
	}

	if h.cfg.FrontendURL != "" && isFormPost(c) {
		q := url.Values{}
		q.Set("orderId", result.OrderID.String())
		q.Set("paymentId", result.PaymentID.String())
		q.Set("status", string(result.Status))
		return c.Redirect(strings.TrimRight(h.cfg.FrontendURL, "/")+"/payment/result?"+q.Encode(), fiber.StatusSeeOther)
	}

	return utils.Success(c, result, "Callback processed")
}

// @Summary Payment status
// @Tags Payments
// @Security BearerAuth
// @Param id path string true "Payment ID or gateway transaction id"
// @Router /payments/status/{id} [get]
func (h *Handler) PaymentStatus(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	view, err := h.paymentSvc.CheckStatus(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return err
	}
	return utils.Success(c, view, "Payment status retrieved")
}

func isFormPost(c *fiber.Ctx) bool {
	ct := string(c.Request().Header.ContentType())
	return strings.HasPrefix(ct, fiber.MIMEApplicationForm) || strings.HasPrefix(ct, fiber.MIMEMultipartForm)
}

// callbackPayload flattens a form or JSON body into string fields.
func callbackPayload(c *fiber.Ctx) (map[string]string, error) {
	payload := make(map[string]string)

	switch {
	case strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return nil, &services.Error{Code: services.CodeInvalidCallback, Message: "Invalid payment callback", Err: err}
		}
		for k, v := range form.Value {
			if len(v) > 0 {
				payload[k] = v[0]
			}
		}
	case isFormPost(c):
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			payload[string(key)] = string(value)
		})
	default:
		// Numbers keep their literal text so 500.00 hashes as sent.
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(c.Body(), &raw); err != nil {
			return nil, &services.Error{Code: services.CodeInvalidCallback, Message: "Invalid payment callback", Err: err}
		}
		for k, v := range raw {
			if value, ok := jsonField(v); ok {
				payload[k] = value
			}
		}
	}

	if len(payload) == 0 {
		return nil, &services.Error{Code: services.CodeInvalidCallback, Message: "Empty payment callback"}
	}
	return payload, nil
}

func jsonField(raw json.RawMessage) (string, bool) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return "", false
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str, true
	}
	return text, true
}
