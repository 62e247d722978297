package services

import (
	"context"
	"errors"
	"path"
	"strconv"
	"strings"

	"kalam-backend/internal/config"
	"kalam-backend/internal/metrics"
	"kalam-backend/internal/models"
	"kalam-backend/internal/notify"
	"kalam-backend/internal/repositories"
	"kalam-backend/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// QRRoute is the public path prefix ticket images are served under.
const QRRoute = "/qrcodes"

type OrderService struct {
	repo     *repositories.Repository
	cfg      *config.Config
	notifier notify.Publisher
}

func NewOrderService(repo *repositories.Repository, cfg *config.Config, notifier notify.Publisher) *OrderService {
	return &OrderService{repo: repo, cfg: cfg, notifier: notifier}
}

// CreateOrder turns the user's cart into a CREATED order and empties the
// cart. Both writes share one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var order *models.Order

	err := s.repo.Transaction(ctx, func(tx *repositories.Repository) error {
		cart, err := loadCart(ctx, tx, userID)
		if err != nil {
			return internalError(err)
		}
		if len(cart.Items) == 0 {
			return newError(CodeEmptyCart, "Cart is empty")
		}

		items := make([]models.OrderItem, 0, len(cart.Items))
		for _, item := range cart.Items {
			if err := checkNotHeld(ctx, tx, userID, item.EventID, item.EventName); err != nil {
				return err
			}
			items = append(items, models.OrderItem(item))
		}

		if order, err = s.placeOrder(ctx, tx, userID, items); err != nil {
			return err
		}
		if err := tx.CartRepo.ClearCart(ctx, userID); err != nil {
			return internalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logCreated(order)
	return order, nil
}

// CreateOrderForEvent places a single-item order for eventID without
// touching the cart.
func (s *OrderService) CreateOrderForEvent(ctx context.Context, userID, eventID uuid.UUID, teamID *uuid.UUID) (*models.Order, error) {
	item, err := buildItem(ctx, s.repo, userID, eventID, teamID)
	if err != nil {
		return nil, err
	}

	order, err := s.placeOrder(ctx, s.repo, userID, []models.OrderItem{models.OrderItem(item)})
	if err != nil {
		return nil, err
	}

	s.logCreated(order)
	return order, nil
}

func (s *OrderService) placeOrder(ctx context.Context, repo *repositories.Repository, userID uuid.UUID, items []models.OrderItem) (*models.Order, error) {
	user, err := repo.UserRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fromRepo(err, "User")
	}

	var entryFee int64
	if !user.EntryFeePaid {
		entryFee = s.cfg.EntryFee
	}

	total := entryFee
	for _, item := range items {
		total += item.Price
	}

	order := &models.Order{
		UserID:      userID,
		Items:       datatypes.JSONSlice[models.OrderItem](items),
		EntryFee:    entryFee,
		TotalAmount: total,
		Status:      models.OrderCreated,
	}
	if err := repo.OrderRepo.CreateOrder(ctx, order); err != nil {
		return nil, internalError(err)
	}
	return order, nil
}

func (s *OrderService) logCreated(order *models.Order) {
	metrics.OrderTransitions.WithLabelValues(string(models.OrderCreated)).Inc()
	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"items":    len(order.Items),
		"total":    order.TotalAmount,
	}).Info("order created")
}

func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, params repositories.ListParams) ([]models.Order, int64, error) {
	orders, total, err := s.repo.OrderRepo.ListOrders(ctx, repositories.OrderFilters{UserID: &userID}, params)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return orders, total, nil
}

// GetOrder returns the order only when it belongs to userID.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.OrderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fromRepo(err, "Order")
	}
	if order.UserID != userID {
		return nil, newError(CodeNotFound, "Order not found")
	}
	return order, nil
}

func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := cancelBlocked(order.Status); err != nil {
		return nil, err
	}

	ok, err := s.repo.OrderRepo.TransitionOrder(ctx, orderID, models.OrderCreated, models.OrderCancelled, nil)
	if err != nil {
		return nil, internalError(err)
	}
	if !ok {
		// Lost a race with a callback or another cancel.
		current, err := s.repo.OrderRepo.GetOrderByID(ctx, orderID)
		if err != nil {
			return nil, fromRepo(err, "Order")
		}
		if err := cancelBlocked(current.Status); err != nil {
			return nil, err
		}
		return nil, newError(CodeInvalidTransition, "Order can no longer be cancelled")
	}

	order.Status = models.OrderCancelled
	metrics.OrderTransitions.WithLabelValues(string(models.OrderCancelled)).Inc()
	logrus.WithFields(logrus.Fields{"order_id": orderID, "user_id": userID}).Info("order cancelled")
	return order, nil
}

func cancelBlocked(status models.OrderStatus) error {
	switch status {
	case models.OrderCreated:
		return nil
	case models.OrderCancelled:
		return newError(CodeAlreadyCancelled, "Order is already cancelled")
	case models.OrderPaid:
		return newError(CodeCannotCancelPaid, "Paid orders cannot be cancelled")
	default:
		return newError(CodeInvalidTransition, "Order cannot be cancelled from status "+string(status))
	}
}

// UpdateOrder applies a user-requested status change. Users may only cancel.
func (s *OrderService) UpdateOrder(ctx context.Context, userID, orderID uuid.UUID, status string) (*models.Order, error) {
	if models.OrderStatus(strings.ToUpper(status)) != models.OrderCancelled {
		return nil, newError(CodeInvalidTransition, "Orders can only be moved to CANCELLED")
	}
	return s.CancelOrder(ctx, userID, orderID)
}

// ConfirmOrder marks the order PAID once paymentID has succeeded and
// confirms one registration per item. Calling it again for a PAID order
// returns the order unchanged.
func (s *OrderService) ConfirmOrder(ctx context.Context, orderID, paymentID uuid.UUID) (*models.Order, error) {
	payment, err := s.repo.PaymentRepo.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, fromRepo(err, "Payment")
	}
	if payment.OrderID != orderID {
		return nil, validationError("paymentId", "payment does not belong to this order")
	}
	if payment.Status != models.PaymentSuccess {
		return nil, newError(CodeInvalidTransition, "Payment has not succeeded")
	}

	order, err := s.repo.OrderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fromRepo(err, "Order")
	}
	if order.Status == models.OrderPaid {
		return order, nil
	}
	if !order.Status.CanTransition(models.OrderPaid) {
		return nil, newError(CodeInvalidTransition, "Order cannot be confirmed from status "+string(order.Status))
	}

	replay := false
	err = s.repo.Transaction(ctx, func(tx *repositories.Repository) error {
		ok, err := tx.OrderRepo.TransitionOrder(ctx, orderID, models.OrderCreated, models.OrderPaid, &paymentID)
		if err != nil {
			return internalError(err)
		}
		if !ok {
			current, err := tx.OrderRepo.GetOrderByID(ctx, orderID)
			if err != nil {
				return fromRepo(err, "Order")
			}
			if current.Status == models.OrderPaid {
				replay = true
				return nil
			}
			return newError(CodeInvalidTransition, "Order cannot be confirmed from status "+string(current.Status))
		}

		if order.EntryFee > 0 {
			if err := tx.UserRepo.MarkEntryFeePaid(ctx, order.UserID); err != nil {
				return internalError(err)
			}
		}

		for _, item := range order.Items {
			if err := s.confirmRegistration(ctx, tx, order, item, paymentID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = models.OrderPaid
	order.PaymentID = &paymentID
	if replay {
		return order, nil
	}

	metrics.OrderTransitions.WithLabelValues(string(models.OrderPaid)).Inc()
	logrus.WithFields(logrus.Fields{
		"order_id":   orderID,
		"payment_id": paymentID,
		"user_id":    order.UserID,
	}).Info("order paid")

	s.notifyConfirmed(ctx, order)
	return order, nil
}

// confirmRegistration creates the registration for item, or confirms the
// one that already exists for the (user, event) pair. A registration already
// confirmed by another order is left untouched.
func (s *OrderService) confirmRegistration(ctx context.Context, tx *repositories.Repository, order *models.Order, item models.OrderItem, paymentID uuid.UUID) error {
	orderID := order.ID

	var teamName string
	if item.TeamID != nil {
		if team, err := tx.TeamRepo.GetTeamByID(ctx, *item.TeamID); err == nil {
			teamName = team.Name
		}
	}

	reg, err := tx.RegistrationRepo.GetRegistration(ctx, order.UserID, item.EventID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		reg = &models.Registration{
			ID:        uuid.New(),
			UserID:    order.UserID,
			EventID:   item.EventID,
			Status:    models.RegistrationConfirmed,
			TeamID:    item.TeamID,
			TeamName:  teamName,
			OrderID:   &orderID,
			PaymentID: &paymentID,
		}
		reg.QRPath = issueTicket(s.cfg.QRDir, reg)
		if err := tx.RegistrationRepo.CreateRegistration(ctx, reg); err != nil {
			return fromRepo(err, "Registration")
		}
		return nil
	case err != nil:
		return internalError(err)
	}

	if reg.Status == models.RegistrationConfirmed && reg.OrderID != nil && *reg.OrderID != orderID {
		logrus.WithFields(logrus.Fields{
			"order_id":        orderID,
			"payment_id":      paymentID,
			"event_id":        item.EventID,
			"registration_id": reg.ID,
			"held_by_order":   *reg.OrderID,
		}).Error("duplicate purchase of a confirmed registration; refund required")
		return nil
	}

	reg.Status = models.RegistrationConfirmed
	reg.TeamID = item.TeamID
	reg.TeamName = teamName
	reg.OrderID = &orderID
	reg.PaymentID = &paymentID
	if reg.QRPath == "" {
		reg.QRPath = issueTicket(s.cfg.QRDir, reg)
	}
	if err := tx.RegistrationRepo.UpdateRegistration(ctx, reg); err != nil {
		return fromRepo(err, "Registration")
	}
	return nil
}

// issueTicket writes the QR image for reg and returns its public path. A
// failed write leaves the registration without a ticket; it is regenerated on
// the next confirmation or by an admin edit.
func issueTicket(dir string, reg *models.Registration) string {
	name, err := utils.GenerateTicketQR(reg.ID, utils.TicketContent(reg.ID, reg.EventID), dir)
	if err != nil {
		logrus.WithField("registration_id", reg.ID).WithError(err).Warn("failed to generate ticket QR")
		return ""
	}
	return path.Join(QRRoute, name)
}

func (s *OrderService) notifyConfirmed(ctx context.Context, order *models.Order) {
	user, err := s.repo.UserRepo.GetUserByID(ctx, order.UserID)
	if err != nil {
		logrus.WithField("order_id", order.ID).WithError(err).Warn("confirmation mail skipped")
		return
	}

	names := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		names = append(names, item.EventName)
	}

	publish(ctx, s.notifier, notify.Message{
		Type: notify.TypeRegistrationConfirmed,
		To:   user.Email,
		Name: user.Name,
		Data: map[string]string{
			"events":  strings.Join(names, "\n"),
			"orderId": order.ID.String(),
			"amount":  strconv.FormatInt(order.TotalAmount, 10),
		},
	})
}

// FailOrder moves a CREATED order to FAILED and puts its items back in the
// user's cart so the user can retry. Repeating it is a no-op.
func (s *OrderService) FailOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.OrderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fromRepo(err, "Order")
	}
	if order.Status == models.OrderFailed {
		return order, nil
	}

	ok, err := s.repo.OrderRepo.TransitionOrder(ctx, orderID, models.OrderCreated, models.OrderFailed, nil)
	if err != nil {
		return nil, internalError(err)
	}
	if !ok {
		current, err := s.repo.OrderRepo.GetOrderByID(ctx, orderID)
		if err != nil {
			return nil, fromRepo(err, "Order")
		}
		if current.Status == models.OrderFailed {
			return current, nil
		}
		return nil, newError(CodeInvalidTransition, "Order cannot fail from status "+string(current.Status))
	}
	order.Status = models.OrderFailed
	metrics.OrderTransitions.WithLabelValues(string(models.OrderFailed)).Inc()

	if err := s.restoreCart(ctx, order); err != nil {
		logrus.WithField("order_id", orderID).WithError(err).Warn("failed to restore cart after payment failure")
	}

	logrus.WithFields(logrus.Fields{"order_id": orderID, "user_id": order.UserID}).Info("order failed")

	if user, err := s.repo.UserRepo.GetUserByID(ctx, order.UserID); err == nil {
		publish(ctx, s.notifier, notify.Message{
			Type: notify.TypeOrderFailed,
			To:   user.Email,
			Name: user.Name,
			Data: map[string]string{"orderId": order.ID.String()},
		})
	}
	return order, nil
}

func (s *OrderService) restoreCart(ctx context.Context, order *models.Order) error {
	cart, err := loadCart(ctx, s.repo, order.UserID)
	if err != nil {
		return err
	}
	for _, item := range order.Items {
		if !cart.HasEvent(item.EventID) {
			cart.Items = append(cart.Items, models.CartItem(item))
		}
	}
	cart.Recalculate()
	return s.repo.CartRepo.SaveCart(ctx, cart)
}
