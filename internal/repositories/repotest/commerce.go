package repotest

import (
	"context"
	"sort"
	"time"

	"kalam-backend/internal/models"
	"kalam-backend/internal/repositories"

	"github.com/google/uuid"
)

type cartRepo struct{ s *Store }

func (r *cartRepo) GetCartByUserID(_ context.Context, userID uuid.UUID) (*models.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.Carts[userID]
	if !ok {
		return nil, notFound("get cart")
	}
	c.Items = append([]models.CartItem(nil), c.Items...)
	return &c, nil
}

func (r *cartRepo) SaveCart(_ context.Context, cart *models.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cart.Recalculate()
	if existing, ok := r.s.Carts[cart.UserID]; ok {
		cart.ID = existing.ID
		cart.CreatedAt = existing.CreatedAt
	}
	r.s.stamp(&cart.ID, &cart.CreatedAt, &cart.UpdatedAt)
	stored := *cart
	stored.Items = append([]models.CartItem{}, cart.Items...)
	r.s.Carts[cart.UserID] = stored
	return nil
}

func (r *cartRepo) ClearCart(_ context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.Carts[userID]
	if !ok {
		return nil
	}
	c.Items = []models.CartItem{}
	c.Total = 0
	r.s.Carts[userID] = c
	return nil
}

type orderRepo struct{ s *Store }

func (r *orderRepo) CreateOrder(_ context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if order.Status == "" {
		order.Status = models.OrderCreated
	}
	r.s.stamp(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	stored := *order
	stored.Items = append([]models.OrderItem{}, order.Items...)
	r.s.Orders[order.ID] = stored
	return nil
}

func (r *orderRepo) GetOrderByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.Orders[id]
	if !ok {
		return nil, notFound("get order")
	}
	return &o, nil
}

func (r *orderRepo) FindOpenOrderForEvent(_ context.Context, userID, eventID uuid.UUID) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, o := range r.s.Orders {
		if o.UserID != userID || o.Status != models.OrderCreated {
			continue
		}
		for _, item := range o.Items {
			if item.EventID == eventID {
				return &o, nil
			}
		}
	}
	return nil, notFound("find open order")
}

func (r *orderRepo) ListOrders(_ context.Context, filters repositories.OrderFilters, params repositories.ListParams) ([]models.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Order
	for _, o := range r.s.Orders {
		if filters.UserID != nil && o.UserID != *filters.UserID {
			continue
		}
		if filters.Status != "" && string(o.Status) != filters.Status {
			continue
		}
		out = append(out, o)
	}
	page, total := paginate(out, params, func(o models.Order) time.Time { return o.CreatedAt })
	return page, total, nil
}

func (r *orderRepo) TransitionOrder(_ context.Context, id uuid.UUID, from, to models.OrderStatus, paymentID *uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.Orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if paymentID != nil {
		o.PaymentID = paymentID
	}
	o.UpdatedAt = r.s.Now()
	r.s.Orders[id] = o
	return true, nil
}

type paymentRepo struct{ s *Store }

func (r *paymentRepo) CreatePayment(_ context.Context, payment *models.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.Payments {
		if p.OrderID == payment.OrderID {
			return duplicate("payments.order_id")
		}
		if p.ProviderOrderID == payment.ProviderOrderID {
			return duplicate("payments.provider_order_id")
		}
	}
	if payment.Status == "" {
		payment.Status = models.PaymentCreated
	}
	r.s.stamp(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	r.s.Payments[payment.ID] = *payment
	return nil
}

func (r *paymentRepo) find(match func(models.Payment) bool, what string) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.Payments {
		if match(p) {
			return &p, nil
		}
	}
	return nil, notFound(what)
}

func (r *paymentRepo) GetPaymentByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.find(func(p models.Payment) bool { return p.ID == id }, "get payment")
}

func (r *paymentRepo) GetPaymentByOrderID(_ context.Context, orderID uuid.UUID) (*models.Payment, error) {
	return r.find(func(p models.Payment) bool { return p.OrderID == orderID }, "get payment by order")
}

func (r *paymentRepo) GetPaymentByProviderOrderID(_ context.Context, providerOrderID string) (*models.Payment, error) {
	return r.find(func(p models.Payment) bool { return p.ProviderOrderID == providerOrderID }, "get payment by txnid")
}

func (r *paymentRepo) CompletePayment(_ context.Context, id uuid.UUID, c repositories.PaymentCompletion) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.Payments[id]
	if !ok || p.Status != models.PaymentCreated {
		return false, nil
	}
	completedAt := c.CompletedAt
	p.Status = c.Status
	p.ProviderPaymentID = c.ProviderPaymentID
	p.RawPayload = c.RawPayload
	p.CompletedAt = &completedAt
	p.UpdatedAt = r.s.Now()
	r.s.Payments[id] = p
	return true, nil
}

func (r *paymentRepo) RefundPayment(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.Payments[id]
	if !ok || p.Status != models.PaymentSuccess {
		return false, nil
	}
	p.Status = models.PaymentRefunded
	p.UpdatedAt = r.s.Now()
	r.s.Payments[id] = p
	return true, nil
}

func (r *paymentRepo) ListPayments(_ context.Context, filters repositories.PaymentFilters, params repositories.ListParams) ([]models.Payment, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Payment
	for _, p := range r.s.Payments {
		if filters.Status != "" && string(p.Status) != filters.Status {
			continue
		}
		if filters.UserID != nil && p.UserID != *filters.UserID {
			continue
		}
		if !contains(params.Search, p.ProviderOrderID, p.ProviderPaymentID) {
			continue
		}
		out = append(out, p)
	}
	page, total := paginate(out, params, func(p models.Payment) time.Time { return p.CreatedAt })
	return page, total, nil
}

func (r *paymentRepo) ListStalePayments(_ context.Context, before time.Time, limit int) ([]models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Payment
	for _, p := range r.s.Payments {
		if p.Status == models.PaymentCreated && p.InitiatedAt.Before(before) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InitiatedAt.Before(out[j].InitiatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type registrationRepo struct{ s *Store }

func (r *registrationRepo) hydrate(reg models.Registration) models.Registration {
	if e, ok := r.s.Events[reg.EventID]; ok {
		reg.Event = &e
	}
	if u, ok := r.s.Users[reg.UserID]; ok {
		reg.User = &u
	}
	return reg
}

func (r *registrationRepo) CreateRegistration(_ context.Context, reg *models.Registration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.Registrations {
		if existing.UserID == reg.UserID && existing.EventID == reg.EventID {
			return duplicate("registrations.user_event")
		}
	}
	r.s.stamp(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)
	stored := *reg
	stored.Event, stored.User = nil, nil
	r.s.Registrations[reg.ID] = stored
	return nil
}

func (r *registrationRepo) GetRegistrationByID(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reg, ok := r.s.Registrations[id]
	if !ok {
		return nil, notFound("get registration")
	}
	reg = r.hydrate(reg)
	return &reg, nil
}

func (r *registrationRepo) GetRegistration(_ context.Context, userID, eventID uuid.UUID) (*models.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, reg := range r.s.Registrations {
		if reg.UserID == userID && reg.EventID == eventID {
			return &reg, nil
		}
	}
	return nil, notFound("get registration by user and event")
}

func (r *registrationRepo) UpdateRegistration(_ context.Context, reg *models.Registration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.Registrations[reg.ID]; !ok {
		return notFound("update registration")
	}
	r.s.stamp(&reg.ID, nil, &reg.UpdatedAt)
	stored := *reg
	stored.Event, stored.User = nil, nil
	r.s.Registrations[reg.ID] = stored
	return nil
}

func (r *registrationRepo) DeleteRegistration(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.Registrations[id]; !ok {
		return notFound("delete registration")
	}
	delete(r.s.Registrations, id)
	return nil
}

func (r *registrationRepo) ListRegistrations(_ context.Context, filters repositories.RegistrationFilters, params repositories.ListParams) ([]models.Registration, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Registration
	for _, reg := range r.s.Registrations {
		reg = r.hydrate(reg)
		if reg.Event == nil || !filters.Scope.Contains(reg.Event) {
			continue
		}
		if filters.EventID != nil && reg.EventID != *filters.EventID {
			continue
		}
		if filters.UserID != nil && reg.UserID != *filters.UserID {
			continue
		}
		if filters.Status != "" && string(reg.Status) != filters.Status {
			continue
		}
		if params.Search != "" {
			name, email := "", ""
			if reg.User != nil {
				name, email = reg.User.Name, reg.User.Email
			}
			if !contains(params.Search, name, email, reg.TeamName) {
				continue
			}
		}
		out = append(out, reg)
	}
	page, total := paginate(out, params, func(r models.Registration) time.Time { return r.CreatedAt })
	return page, total, nil
}

func (r *registrationRepo) CancelByPayment(_ context.Context, paymentID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, reg := range r.s.Registrations {
		if reg.PaymentID == nil || *reg.PaymentID != paymentID || reg.Status == models.RegistrationCancelled {
			continue
		}
		reg.Status = models.RegistrationCancelled
		r.s.Registrations[id] = reg
		n++
	}
	return n, nil
}

type teamRepo struct{ s *Store }

func (r *teamRepo) CreateTeam(_ context.Context, team *models.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.Teams {
		if t.EventID == team.EventID && t.LeaderID == team.LeaderID {
			return duplicate("teams.event_leader")
		}
	}
	r.s.stamp(&team.ID, &team.CreatedAt, &team.UpdatedAt)
	r.s.Teams[team.ID] = *team
	return nil
}

func (r *teamRepo) GetTeamByID(_ context.Context, id uuid.UUID) (*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.Teams[id]
	if !ok {
		return nil, notFound("get team")
	}
	return &t, nil
}

func (r *teamRepo) ListTeamsByLeader(_ context.Context, leaderID uuid.UUID) ([]models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Team
	for _, t := range r.s.Teams {
		if t.LeaderID == leaderID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *teamRepo) ListTeams(_ context.Context, filters repositories.TeamFilters, params repositories.ListParams) ([]models.Team, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Team
	for _, t := range r.s.Teams {
		e, ok := r.s.Events[t.EventID]
		if !ok || !filters.Scope.Contains(&e) {
			continue
		}
		if filters.EventID != nil && t.EventID != *filters.EventID {
			continue
		}
		if !contains(params.Search, t.Name) {
			continue
		}
		out = append(out, t)
	}
	page, total := paginate(out, params, func(t models.Team) time.Time { return t.CreatedAt })
	return page, total, nil
}

type statsRepo struct{ s *Store }

func (r *statsRepo) Totals(_ context.Context, scope repositories.EventScope) (*repositories.StatsTotals, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	totals := &repositories.StatsTotals{}
	for _, e := range r.s.Events {
		if !scope.Contains(&e) {
			continue
		}
		totals.Events++
		if e.IsActive {
			totals.ActiveEvents++
		}
	}

	regs := map[string]int64{}
	for _, reg := range r.s.Registrations {
		e, ok := r.s.Events[reg.EventID]
		if ok && scope.Contains(&e) {
			regs[string(reg.Status)]++
		}
	}
	totals.Registrations = statusCounts(regs)

	if !scope.All {
		return totals, nil
	}

	totals.Users = int64(len(r.s.Users))
	orders := map[string]int64{}
	for _, o := range r.s.Orders {
		orders[string(o.Status)]++
	}
	totals.Orders = statusCounts(orders)

	payments := map[string]int64{}
	for _, p := range r.s.Payments {
		payments[string(p.Status)]++
		if p.Status == models.PaymentSuccess {
			totals.Revenue += p.Amount
		}
	}
	totals.Payments = statusCounts(payments)
	return totals, nil
}

func statusCounts(m map[string]int64) []repositories.StatusCount {
	out := make([]repositories.StatusCount, 0, len(m))
	for status, n := range m {
		out = append(out, repositories.StatusCount{Status: status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out
}

func (r *statsRepo) RegistrationsPerEvent(_ context.Context, scope repositories.EventScope) ([]repositories.EventRegistrationCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	byEvent := map[uuid.UUID]*repositories.EventRegistrationCount{}
	for _, e := range r.s.Events {
		if scope.Contains(&e) {
			byEvent[e.ID] = &repositories.EventRegistrationCount{EventID: e.ID, EventName: e.Name}
		}
	}
	for _, reg := range r.s.Registrations {
		row, ok := byEvent[reg.EventID]
		if !ok {
			continue
		}
		switch reg.Status {
		case models.RegistrationConfirmed:
			row.Confirmed++
		case models.RegistrationPending:
			row.Pending++
		case models.RegistrationCancelled:
			row.Cancelled++
		}
	}

	out := make([]repositories.EventRegistrationCount, 0, len(byEvent))
	for _, row := range byEvent {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventName < out[j].EventName })
	return out, nil
}

func (r *statsRepo) DailyRevenue(_ context.Context, since time.Time) ([]repositories.DailyRevenue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	byDay := map[time.Time]*repositories.DailyRevenue{}
	for _, p := range r.s.Payments {
		if p.Status != models.PaymentSuccess || p.CompletedAt == nil || p.CompletedAt.Before(since) {
			continue
		}
		day := p.CompletedAt.UTC().Truncate(24 * time.Hour)
		row, ok := byDay[day]
		if !ok {
			row = &repositories.DailyRevenue{Day: day}
			byDay[day] = row
		}
		row.Amount += p.Amount
		row.Payments++
	}

	out := make([]repositories.DailyRevenue, 0, len(byDay))
	for _, row := range byDay {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}
