package services

import (
	"context"
	"testing"

	"kalam-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	mustreq "github.com/stretchr/testify/require"
)

func TestCheckoutFlow_CartToCancelledOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := f.user(t, "a@x.com")
	login, err := f.auth.Login(ctx, "a@x.com", "pw12345678")
	mustreq.NoError(t, err)
	assert.Equal(t, user.ID, login.User.ID)

	e1 := f.event(t, "E1", 500)

	cart, err := f.cart.AddToCart(ctx, user.ID, e1.ID, nil)
	mustreq.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.EqualValues(t, 500, cart.Total)

	order, err := f.orders.CreateOrder(ctx, user.ID)
	mustreq.NoError(t, err)
	assert.Equal(t, models.OrderCreated, order.Status)
	assert.EqualValues(t, testEntryFee, order.EntryFee)
	assert.EqualValues(t, 500+testEntryFee, order.TotalAmount)

	cart, err = f.cart.GetCart(ctx, user.ID)
	mustreq.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.Total)

	cancelled, err := f.orders.CancelOrder(ctx, user.ID, order.ID)
	mustreq.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)

	_, err = f.orders.CancelOrder(ctx, user.ID, order.ID)
	assert.Equal(t, CodeAlreadyCancelled, ErrorCode(err))
}

func TestOrderService_EmptyCart(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "a@x.com")

	_, err := f.orders.CreateOrder(context.Background(), user.ID)
	assert.Equal(t, CodeEmptyCart, ErrorCode(err))
	assert.Empty(t, f.store.Orders)
}

func TestCartService_AddIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "a@x.com")
	e1 := f.event(t, "E1", 500)
	e2 := f.event(t, "E2", 150)

	_, err := f.cart.AddToCart(ctx, user.ID, e1.ID, nil)
	mustreq.NoError(t, err)
	_, err = f.cart.AddToCart(ctx, user.ID, e1.ID, nil)
	mustreq.NoError(t, err)
	cart, err := f.cart.AddToCart(ctx, user.ID, e2.ID, nil)
	mustreq.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.EqualValues(t, 650, cart.Total)

	cart, err = f.cart.RemoveFromCart(ctx, user.ID, e1.ID)
	mustreq.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.EqualValues(t, 150, cart.Total)

	_, err = f.cart.RemoveFromCart(ctx, user.ID, e1.ID)
	assert.Equal(t, CodeNotFound, ErrorCode(err))

	mustreq.NoError(t, f.cart.ClearCart(ctx, user.ID))
	cart, err = f.cart.GetCart(ctx, user.ID)
	mustreq.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCartService_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "a@x.com")

	_, err := f.cart.AddToCart(ctx, user.ID, uuid.New(), nil)
	assert.Equal(t, CodeNotFound, ErrorCode(err))

	closed := f.event(t, "Closed", 100, func(e *models.Event) { e.IsActive = false })
	_, err = f.cart.AddToCart(ctx, user.ID, closed.ID, nil)
	assert.Equal(t, CodeValidation, ErrorCode(err))

	teamEvent := f.event(t, "Hackathon", 300, withTeam(2, 3))
	_, err = f.cart.AddToCart(ctx, user.ID, teamEvent.ID, nil)
	assert.Equal(t, CodeValidation, ErrorCode(err))

	done := f.event(t, "Done", 100)
	mustreq.NoError(t, f.repo.RegistrationRepo.CreateRegistration(ctx, &models.Registration{
		UserID: user.ID, EventID: done.ID, Status: models.RegistrationConfirmed,
	}))
	_, err = f.cart.AddToCart(ctx, user.ID, done.ID, nil)
	assert.Equal(t, CodeAlreadyRegistered, ErrorCode(err))
}

func TestCartService_TeamEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	leader := f.user(t, "lead@x.com")
	other := f.user(t, "other@x.com")
	hack := f.event(t, "Hackathon", 300, withTeam(2, 3))

	team, err := f.teams.CreateTeam(ctx, leader.ID, CreateTeamInput{
		EventID: hack.ID,
		Name:    "Null Pointers",
		Members: []models.TeamMember{{Name: "B", Email: "b@x.com"}},
	})
	mustreq.NoError(t, err)

	cart, err := f.cart.AddToCart(ctx, leader.ID, hack.ID, &team.ID)
	mustreq.NoError(t, err)
	mustreq.Len(t, cart.Items, 1)
	assert.Equal(t, team.ID, *cart.Items[0].TeamID)

	_, err = f.cart.AddToCart(ctx, other.ID, hack.ID, &team.ID)
	assert.Equal(t, CodeValidation, ErrorCode(err), "only the leader may use the team")
}

func TestOrderService_CancelRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "a@x.com")
	stranger := f.user(t, "b@x.com")
	e1 := f.event(t, "E1", 500)

	order, err := f.orders.CreateOrderForEvent(ctx, user.ID, e1.ID, nil)
	mustreq.NoError(t, err)

	_, err = f.orders.CancelOrder(ctx, stranger.ID, order.ID)
	assert.Equal(t, CodeNotFound, ErrorCode(err))

	_, err = f.orders.UpdateOrder(ctx, user.ID, order.ID, "PAID")
	assert.Equal(t, CodeInvalidTransition, ErrorCode(err))

	ok, err := f.repo.OrderRepo.TransitionOrder(ctx, order.ID, models.OrderCreated, models.OrderPaid, nil)
	mustreq.NoError(t, err)
	mustreq.True(t, ok)

	_, err = f.orders.UpdateOrder(ctx, user.ID, order.ID, "cancelled")
	assert.Equal(t, CodeCannotCancelPaid, ErrorCode(err))
}

func TestOrderService_ListOrdersIsOwnerScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "a@x.com")
	b := f.user(t, "b@x.com")
	e1 := f.event(t, "E1", 500)

	_, err := f.orders.CreateOrderForEvent(ctx, a.ID, e1.ID, nil)
	mustreq.NoError(t, err)
	_, err = f.orders.CreateOrderForEvent(ctx, b.ID, e1.ID, nil)
	mustreq.NoError(t, err)

	orders, total, err := f.orders.ListOrders(ctx, a.ID, repoPage())
	mustreq.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, a.ID, orders[0].UserID)
}

func TestOrderService_FailOrderRestoresCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "a@x.com")
	e1 := f.event(t, "E1", 500)

	_, err := f.cart.AddToCart(ctx, user.ID, e1.ID, nil)
	mustreq.NoError(t, err)
	order, err := f.orders.CreateOrder(ctx, user.ID)
	mustreq.NoError(t, err)

	failed, err := f.orders.FailOrder(ctx, order.ID)
	mustreq.NoError(t, err)
	assert.Equal(t, models.OrderFailed, failed.Status)

	again, err := f.orders.FailOrder(ctx, order.ID)
	mustreq.NoError(t, err)
	assert.Equal(t, models.OrderFailed, again.Status)

	cart, err := f.cart.GetCart(ctx, user.ID)
	mustreq.NoError(t, err)
	mustreq.Len(t, cart.Items, 1)
	assert.Equal(t, e1.ID, cart.Items[0].EventID)
	assert.EqualValues(t, 500, cart.Total)
}

func TestOrderService_EventHeldByOpenOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "a@x.com")
	e1 := f.event(t, "E1", 500)
	e2 := f.event(t, "E2", 150)

	first, err := f.payments.Initiate(ctx, user.ID, InitiateInput{EventID: &e1.ID})
	mustreq.NoError(t, err)

	_, err = f.payments.Initiate(ctx, user.ID, InitiateInput{EventID: &e1.ID})
	assert.Equal(t, CodeConflict, ErrorCode(err))
	_, err = f.cart.AddToCart(ctx, user.ID, e1.ID, nil)
	assert.Equal(t, CodeConflict, ErrorCode(err))
	assert.Len(t, f.store.Orders, 1)
	assert.Len(t, f.store.Payments, 1)

	// An item already in the cart is checked again when the order is placed.
	_, err = f.cart.AddToCart(ctx, user.ID, e2.ID, nil)
	mustreq.NoError(t, err)
	_, err = f.orders.CreateOrderForEvent(ctx, user.ID, e2.ID, nil)
	mustreq.NoError(t, err)
	_, err = f.orders.CreateOrder(ctx, user.ID)
	assert.Equal(t, CodeConflict, ErrorCode(err))

	_, err = f.orders.CancelOrder(ctx, user.ID, first.OrderID)
	mustreq.NoError(t, err)
	_, err = f.cart.AddToCart(ctx, user.ID, e1.ID, nil)
	assert.NoError(t, err)
}
