package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"kalam-backend/internal/audit"
	"kalam-backend/internal/config"
	"kalam-backend/internal/gateway"
	"kalam-backend/internal/metrics"
	"kalam-backend/internal/models"
	"kalam-backend/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// FreeGateway marks payments of zero-total orders, which never reach the
// gateway.
const FreeGateway = "free"

type PaymentService struct {
	repo     *repositories.Repository
	cfg      *config.Config
	provider gateway.Provider
	orders   *OrderService
	audit    audit.Recorder
	now      func() time.Time
}

func NewPaymentService(
	repo *repositories.Repository,
	cfg *config.Config,
	provider gateway.Provider,
	orders *OrderService,
	recorder audit.Recorder,
) *PaymentService {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &PaymentService{
		repo:     repo,
		cfg:      cfg,
		provider: provider,
		orders:   orders,
		audit:    recorder,
		now:      time.Now,
	}
}

type InitiateInput struct {
	OrderID *uuid.UUID
	EventID *uuid.UUID
	TeamID  *uuid.UUID
	Amount  *int64
}

// InitiateResult carries the signed checkout form. Free orders are settled
// on the spot and come back PAID with no form.
type InitiateResult struct {
	PaymentID      uuid.UUID          `json:"paymentId"`
	OrderID        uuid.UUID          `json:"orderId"`
	GatewayOrderID string             `json:"gatewayOrderId"`
	Amount         int64              `json:"amount"`
	OrderStatus    models.OrderStatus `json:"orderStatus"`
	RedirectURL    string             `json:"redirectUrl,omitempty"`
	Params         map[string]string  `json:"params,omitempty"`
}

type CallbackResult struct {
	PaymentID   uuid.UUID            `json:"paymentId"`
	OrderID     uuid.UUID            `json:"orderId"`
	Status      models.PaymentStatus `json:"status"`
	OrderStatus models.OrderStatus   `json:"orderStatus,omitempty"`
	Duplicate   bool                 `json:"duplicate"`
}

type PaymentStatusView struct {
	PaymentID     uuid.UUID            `json:"paymentId"`
	OrderID       uuid.UUID            `json:"orderId"`
	TransactionID string               `json:"transactionId"`
	Status        models.PaymentStatus `json:"status"`
	OrderStatus   models.OrderStatus   `json:"orderStatus"`
	Amount        int64                `json:"amount"`
	CompletedAt   *time.Time           `json:"completedAt,omitempty"`
}

type ReconcileReport struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
}

// Initiate opens (or reuses) the CREATED payment for an order and returns
// the signed checkout form. With EventID a single-event order is placed
// first.
func (s *PaymentService) Initiate(ctx context.Context, userID uuid.UUID, in InitiateInput) (*InitiateResult, error) {
	if (in.OrderID == nil) == (in.EventID == nil) {
		return nil, validationError("orderId", "exactly one of orderId or eventId is required")
	}

	var order *models.Order
	var err error
	if in.OrderID != nil {
		order, err = s.orders.GetOrder(ctx, userID, *in.OrderID)
		if err != nil {
			return nil, err
		}
		if order.Status != models.OrderCreated {
			return nil, newError(CodeInvalidTransition, "Order is "+string(order.Status)+" and cannot be paid")
		}
	} else {
		order, err = s.orders.CreateOrderForEvent(ctx, userID, *in.EventID, in.TeamID)
		if err != nil {
			return nil, err
		}
	}

	if in.Amount != nil && *in.Amount != order.TotalAmount {
		return nil, validationError("amount", "amount does not match the order total")
	}

	if order.TotalAmount == 0 {
		return s.settleFree(ctx, order)
	}

	user, err := s.repo.UserRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fromRepo(err, "User")
	}

	payment, fresh, err := s.openPayment(ctx, order)
	if err != nil {
		return nil, err
	}

	checkout, err := s.provider.Checkout(s.checkoutRequest(order, user, payment))
	if err != nil {
		return nil, internalError(err)
	}

	if fresh {
		stored, err := s.savePayment(ctx, payment)
		if err != nil {
			return nil, err
		}
		if stored.ID != payment.ID {
			// A concurrent initiate for the same order won; sign its txnid.
			payment = stored
			if checkout, err = s.provider.Checkout(s.checkoutRequest(order, user, payment)); err != nil {
				return nil, internalError(err)
			}
		}
	}

	logrus.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"order_id":   order.ID,
		"txnid":      payment.ProviderOrderID,
		"amount":     payment.Amount,
	}).Info("payment initiated")

	return &InitiateResult{
		PaymentID:      payment.ID,
		OrderID:        order.ID,
		GatewayOrderID: payment.ProviderOrderID,
		Amount:         payment.Amount,
		OrderStatus:    order.Status,
		RedirectURL:    checkout.RedirectURL,
		Params:         checkout.Params,
	}, nil
}

func (s *PaymentService) checkoutRequest(order *models.Order, user *models.User, payment *models.Payment) gateway.CheckoutRequest {
	callbackURL := strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/api/v1/payments/callback"
	req := gateway.CheckoutRequest{
		TxnID:       payment.ProviderOrderID,
		Amount:      payment.Amount,
		ProductInfo: productInfo(order),
		FirstName:   user.Name,
		Email:       user.Email,
		SuccessURL:  callbackURL,
		FailureURL:  callbackURL,
	}
	if user.Phone != nil {
		req.Phone = *user.Phone
	}
	req.UDF[0] = order.ID.String()
	req.UDF[1] = payment.ID.String()
	return req
}

// openPayment returns the order's CREATED payment, or an unsaved new one
// with fresh set. New payments are stored only after the gateway accepts
// the checkout request.
func (s *PaymentService) openPayment(ctx context.Context, order *models.Order) (payment *models.Payment, fresh bool, err error) {
	existing, err := s.repo.PaymentRepo.GetPaymentByOrderID(ctx, order.ID)
	switch {
	case err == nil:
		if existing.Status != models.PaymentCreated {
			return nil, false, newError(CodeInvalidTransition, "Order already has a "+string(existing.Status)+" payment")
		}
		return existing, false, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, false, internalError(err)
	}

	return &models.Payment{
		ID:              uuid.New(),
		OrderID:         order.ID,
		UserID:          order.UserID,
		Gateway:         s.provider.Name(),
		ProviderOrderID: newTxnID(),
		Amount:          order.TotalAmount,
		Status:          models.PaymentCreated,
		InitiatedAt:     s.now(),
	}, true, nil
}

// savePayment stores payment. When another payment for the same order got
// there first, that one is returned instead.
func (s *PaymentService) savePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	err := s.repo.PaymentRepo.CreatePayment(ctx, payment)
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, repositories.ErrDuplicate) {
		return nil, internalError(err)
	}
	existing, getErr := s.repo.PaymentRepo.GetPaymentByOrderID(ctx, payment.OrderID)
	if getErr != nil {
		// The clash was on the txnid rather than the order.
		return nil, internalError(err)
	}
	return existing, nil
}

// settleFree pays a zero-total order without the gateway: it records a
// SUCCESS payment and confirms the order directly.
func (s *PaymentService) settleFree(ctx context.Context, order *models.Order) (*InitiateResult, error) {
	now := s.now()
	payment, err := s.repo.PaymentRepo.GetPaymentByOrderID(ctx, order.ID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		payment, err = s.savePayment(ctx, &models.Payment{
			ID:              uuid.New(),
			OrderID:         order.ID,
			UserID:          order.UserID,
			Gateway:         FreeGateway,
			ProviderOrderID: newTxnID(),
			Status:          models.PaymentSuccess,
			InitiatedAt:     now,
			CompletedAt:     &now,
		})
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, internalError(err)
	}

	if payment.Status == models.PaymentCreated && payment.Amount == 0 {
		if _, err := s.repo.PaymentRepo.CompletePayment(ctx, payment.ID, repositories.PaymentCompletion{
			Status:      models.PaymentSuccess,
			CompletedAt: now,
		}); err != nil {
			return nil, internalError(err)
		}
		if payment, err = s.repo.PaymentRepo.GetPaymentByID(ctx, payment.ID); err != nil {
			return nil, fromRepo(err, "Payment")
		}
	}
	if payment.Status != models.PaymentSuccess {
		return nil, newError(CodeInvalidTransition, "Order already has a "+string(payment.Status)+" payment")
	}

	confirmed, err := s.orders.ConfirmOrder(ctx, order.ID, payment.ID)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"order_id":   order.ID,
	}).Info("free order settled")

	return &InitiateResult{
		PaymentID:      payment.ID,
		OrderID:        order.ID,
		GatewayOrderID: payment.ProviderOrderID,
		OrderStatus:    confirmed.Status,
	}, nil
}

func (s *PaymentService) VerifyCallback(payload map[string]string, headers map[string]string) bool {
	return s.provider.VerifyCallback(payload, headers)
}

// HandleCallback verifies and records a gateway delivery, then processes it.
func (s *PaymentService) HandleCallback(ctx context.Context, payload, headers map[string]string, remoteIP string) (*CallbackResult, error) {
	entry := audit.Entry{
		TxnID:      payload["txnid"],
		Source:     audit.SourceCallback,
		Status:     payload["status"],
		RemoteIP:   remoteIP,
		Payload:    payload,
		ReceivedAt: s.now(),
	}

	if !s.VerifyCallback(payload, headers) {
		entry.Result = "rejected"
		s.record(ctx, entry)
		metrics.PaymentCallbacks.WithLabelValues(audit.SourceCallback, "rejected").Inc()
		logrus.WithFields(logrus.Fields{"txnid": payload["txnid"], "remote_ip": remoteIP}).Warn("payment callback failed verification")
		return nil, newError(CodeInvalidCallback, "Invalid payment callback")
	}

	entry.Verified = true
	result, outcome, err := s.process(ctx, payload)
	entry.Result = outcome
	s.record(ctx, entry)
	metrics.PaymentCallbacks.WithLabelValues(audit.SourceCallback, outcome).Inc()
	return result, err
}

// ProcessCallback applies an already verified payload.
func (s *PaymentService) ProcessCallback(ctx context.Context, payload map[string]string) (*CallbackResult, error) {
	result, _, err := s.process(ctx, payload)
	return result, err
}

// process moves the payment out of CREATED at most once. Replays fall
// through to the order step, which is itself idempotent, so a delivery that
// crashed between the two writes is completed by the next one.
func (s *PaymentService) process(ctx context.Context, payload map[string]string) (*CallbackResult, string, error) {
	txnID := payload["txnid"]
	payment, err := s.repo.PaymentRepo.GetPaymentByProviderOrderID(ctx, txnID)
	if err != nil {
		return nil, "unknown", fromRepo(err, "Payment")
	}

	result := &CallbackResult{PaymentID: payment.ID, OrderID: payment.OrderID, Status: payment.Status}

	outcome := gateway.ParseOutcome(payload["status"])
	if outcome == gateway.OutcomePending {
		return result, "pending", nil
	}

	status := models.PaymentFailed
	if outcome == gateway.OutcomeSuccess {
		status = models.PaymentSuccess
		amount, err := gateway.ParseAmount(payload["amount"])
		if err != nil || amount != payment.Amount {
			logrus.WithFields(logrus.Fields{
				"payment_id": payment.ID,
				"expected":   payment.Amount,
				"received":   payload["amount"],
			}).Warn("payment amount mismatch")
			status = models.PaymentFailed
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, "error", internalError(err)
	}

	applied, err := s.repo.PaymentRepo.CompletePayment(ctx, payment.ID, repositories.PaymentCompletion{
		Status:            status,
		ProviderPaymentID: payload["mihpayid"],
		RawPayload:        datatypes.JSON(raw),
		CompletedAt:       s.now(),
	})
	if err != nil {
		return nil, "error", internalError(err)
	}

	label := "applied"
	if !applied {
		label = "duplicate"
		result.Duplicate = true
		if payment, err = s.repo.PaymentRepo.GetPaymentByID(ctx, payment.ID); err != nil {
			return nil, "error", fromRepo(err, "Payment")
		}
	} else {
		payment.Status = status
		logrus.WithFields(logrus.Fields{
			"payment_id": payment.ID,
			"order_id":   payment.OrderID,
			"status":     status,
		}).Info("payment completed")
	}
	result.Status = payment.Status

	order, err := s.advanceOrder(ctx, payment)
	if err != nil {
		return nil, "error", err
	}
	if order != nil {
		result.OrderStatus = order.Status
	}
	return result, label, nil
}

// advanceOrder drives the order from the payment's final status. Orders
// that have already moved elsewhere are logged and left alone.
func (s *PaymentService) advanceOrder(ctx context.Context, payment *models.Payment) (*models.Order, error) {
	var (
		order *models.Order
		err   error
	)
	switch payment.Status {
	case models.PaymentSuccess:
		order, err = s.orders.ConfirmOrder(ctx, payment.OrderID, payment.ID)
	case models.PaymentFailed:
		order, err = s.orders.FailOrder(ctx, payment.OrderID)
	default:
		return nil, nil
	}
	if err == nil {
		return order, nil
	}
	if ErrorCode(err) == CodeInternal {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"payment_id":     payment.ID,
		"order_id":       payment.OrderID,
		"payment_status": payment.Status,
	}).WithError(err).Error("payment outcome could not be applied to the order")
	return nil, nil
}

// CheckStatus reports the stored state of a payment owned by userID. id may
// be the payment id or the gateway transaction id. While the payment is
// still CREATED and live status is enabled the provider is asked as well.
func (s *PaymentService) CheckStatus(ctx context.Context, userID uuid.UUID, id string) (*PaymentStatusView, error) {
	payment, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.UserID != userID {
		return nil, newError(CodeNotFound, "Payment not found")
	}

	if payment.Status == models.PaymentCreated && s.cfg.PayULiveStatus {
		if payment, err = s.syncLive(ctx, payment); err != nil {
			return nil, err
		}
	}

	view := &PaymentStatusView{
		PaymentID:     payment.ID,
		OrderID:       payment.OrderID,
		TransactionID: payment.ProviderOrderID,
		Status:        payment.Status,
		Amount:        payment.Amount,
		CompletedAt:   payment.CompletedAt,
	}
	if order, err := s.repo.OrderRepo.GetOrderByID(ctx, payment.OrderID); err == nil {
		view.OrderStatus = order.Status
	}
	return view, nil
}

func (s *PaymentService) lookup(ctx context.Context, id string) (*models.Payment, error) {
	var (
		payment *models.Payment
		err     error
	)
	if parsed, parseErr := uuid.Parse(id); parseErr == nil {
		payment, err = s.repo.PaymentRepo.GetPaymentByID(ctx, parsed)
	} else {
		payment, err = s.repo.PaymentRepo.GetPaymentByProviderOrderID(ctx, id)
	}
	if err != nil {
		return nil, fromRepo(err, "Payment")
	}
	return payment, nil
}

// syncLive feeds the provider's live answer through the callback path.
// Provider errors are logged and the stored payment is returned unchanged.
func (s *PaymentService) syncLive(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	res, err := s.provider.QueryStatus(ctx, payment.ProviderOrderID)
	if err != nil {
		logrus.WithField("txnid", payment.ProviderOrderID).WithError(err).Warn("live payment status query failed")
		return payment, nil
	}

	payload := make(map[string]string, len(res.Raw)+4)
	for k, v := range res.Raw {
		payload[k] = v
	}
	payload["txnid"] = payment.ProviderOrderID
	payload["status"] = string(res.Outcome)
	payload["amount"] = res.Amount
	payload["mihpayid"] = res.ProviderPaymentID

	_, outcome, err := s.process(ctx, payload)
	s.record(ctx, audit.Entry{
		TxnID:      payment.ProviderOrderID,
		Source:     audit.SourceStatusQuery,
		Verified:   true,
		Status:     string(res.Outcome),
		Result:     outcome,
		Payload:    payload,
		ReceivedAt: s.now(),
	})
	metrics.PaymentCallbacks.WithLabelValues(audit.SourceStatusQuery, outcome).Inc()
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.PaymentRepo.GetPaymentByID(ctx, payment.ID)
	if err != nil {
		return nil, fromRepo(err, "Payment")
	}
	return updated, nil
}

// Reconcile asks the provider about payments left CREATED for longer than
// olderThan, oldest first, and applies whatever has settled.
func (s *PaymentService) Reconcile(ctx context.Context, olderThan time.Duration, limit int) (*ReconcileReport, error) {
	stale, err := s.repo.PaymentRepo.ListStalePayments(ctx, s.now().Add(-olderThan), limit)
	if err != nil {
		return nil, internalError(err)
	}

	report := &ReconcileReport{}
	for i := range stale {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		updated, err := s.syncLive(ctx, &stale[i])
		if err != nil {
			report.Errors++
			logrus.WithField("payment_id", stale[i].ID).WithError(err).Warn("reconcile failed for payment")
			continue
		}
		if updated.Status != models.PaymentCreated {
			report.Updated++
		}
	}

	logrus.WithFields(logrus.Fields{
		"checked": report.Checked,
		"updated": report.Updated,
		"errors":  report.Errors,
	}).Info("payment reconciliation finished")
	return report, nil
}

// Refund marks a successful payment REFUNDED and cancels the registrations
// it paid for. Settlement with the provider happens outside this system.
func (s *PaymentService) Refund(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	var payment *models.Payment

	err := s.repo.Transaction(ctx, func(tx *repositories.Repository) error {
		ok, err := tx.PaymentRepo.RefundPayment(ctx, paymentID)
		if err != nil {
			return internalError(err)
		}

		current, err := tx.PaymentRepo.GetPaymentByID(ctx, paymentID)
		if err != nil {
			return fromRepo(err, "Payment")
		}
		if !ok {
			if current.Status == models.PaymentRefunded {
				return newError(CodeInvalidTransition, "Payment is already refunded")
			}
			return newError(CodeInvalidTransition, "Only successful payments can be refunded")
		}

		cancelled, err := tx.RegistrationRepo.CancelByPayment(ctx, paymentID)
		if err != nil {
			return internalError(err)
		}

		payment = current
		logrus.WithFields(logrus.Fields{
			"payment_id":    paymentID,
			"registrations": cancelled,
		}).Info("payment refunded")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) record(ctx context.Context, entry audit.Entry) {
	if err := s.audit.Record(ctx, entry); err != nil {
		logrus.WithField("txnid", entry.TxnID).WithError(err).Warn("failed to record gateway delivery")
	}
}

// newTxnID returns a 23-character gateway transaction id carrying about 74
// random bits. Uniqueness is enforced by the index on provider_order_id; a
// clash surfaces as an INTERNAL error from Initiate (see savePayment).
func newTxnID() string {
	return "KLM" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:20]
}

func productInfo(order *models.Order) string {
	if len(order.Items) == 1 {
		return order.Items[0].EventName
	}
	return "Kalam symposium registration"
}
