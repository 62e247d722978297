package services

import (
	"context"
	"errors"

	"kalam-backend/internal/config"
	"kalam-backend/internal/models"
	"kalam-backend/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

type CartService struct {
	repo *repositories.Repository
	cfg  *config.Config
}

func NewCartService(repo *repositories.Repository, cfg *config.Config) *CartService {
	return &CartService{repo: repo, cfg: cfg}
}

// GetCart returns the user's cart, or an empty one when none exists yet.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := loadCart(ctx, s.repo, userID)
	if err != nil {
		return nil, internalError(err)
	}
	return cart, nil
}

// AddToCart upserts eventID into the cart. Adding an event that is already
// present only refreshes its team link.
func (s *CartService) AddToCart(ctx context.Context, userID, eventID uuid.UUID, teamID *uuid.UUID) (*models.Cart, error) {
	item, err := buildItem(ctx, s.repo, userID, eventID, teamID)
	if err != nil {
		return nil, err
	}

	cart, err := loadCart(ctx, s.repo, userID)
	if err != nil {
		return nil, internalError(err)
	}

	replaced := false
	for i := range cart.Items {
		if cart.Items[i].EventID == eventID {
			cart.Items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		cart.Items = append(cart.Items, item)
	}
	cart.Recalculate()

	if err := s.repo.CartRepo.SaveCart(ctx, cart); err != nil {
		return nil, internalError(err)
	}

	logrus.WithFields(logrus.Fields{"user_id": userID, "event_id": eventID}).Debug("cart item added")
	return cart, nil
}

func (s *CartService) RemoveFromCart(ctx context.Context, userID, eventID uuid.UUID) (*models.Cart, error) {
	cart, err := loadCart(ctx, s.repo, userID)
	if err != nil {
		return nil, internalError(err)
	}
	if !cart.HasEvent(eventID) {
		return nil, newError(CodeNotFound, "Event is not in the cart")
	}

	kept := make(datatypes.JSONSlice[models.CartItem], 0, len(cart.Items))
	for _, item := range cart.Items {
		if item.EventID != eventID {
			kept = append(kept, item)
		}
	}
	cart.Items = kept
	cart.Recalculate()

	if err := s.repo.CartRepo.SaveCart(ctx, cart); err != nil {
		return nil, internalError(err)
	}
	return cart, nil
}

func (s *CartService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.CartRepo.ClearCart(ctx, userID); err != nil {
		return internalError(err)
	}
	return nil
}

func loadCart(ctx context.Context, repo *repositories.Repository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.CartRepo.GetCartByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return &models.Cart{UserID: userID, Items: datatypes.JSONSlice[models.CartItem]{}}, nil
	}
	return nil, err
}

// buildItem prices eventID for userID and checks that it can be bought:
// the event is open, not already held by the user, and team events come
// with a team the user leads.
func buildItem(ctx context.Context, repo *repositories.Repository, userID, eventID uuid.UUID, teamID *uuid.UUID) (models.CartItem, error) {
	event, err := repo.EventRepo.GetEventByID(ctx, eventID)
	if err != nil {
		return models.CartItem{}, fromRepo(err, "Event")
	}
	if !event.IsActive {
		return models.CartItem{}, validationError("eventId", "event is not open for registration")
	}

	if err := checkNotHeld(ctx, repo, userID, event.ID, event.Name); err != nil {
		return models.CartItem{}, err
	}

	item := models.CartItem{
		EventID:   event.ID,
		EventName: event.Name,
		Price:     event.Fee,
	}

	if !event.RequiresTeam {
		return item, nil
	}
	if teamID == nil {
		return models.CartItem{}, validationError("teamId", "teamId is required for team events")
	}

	team, err := repo.TeamRepo.GetTeamByID(ctx, *teamID)
	if err != nil {
		return models.CartItem{}, fromRepo(err, "Team")
	}
	if team.EventID != event.ID || team.LeaderID != userID {
		return models.CartItem{}, validationError("teamId", "team does not belong to you for this event")
	}
	if !teamSizeAllowed(event, team.Size()) {
		return models.CartItem{}, validationError("teamId", "team size is outside the event limits")
	}

	item.TeamID = &team.ID
	return item, nil
}

func teamSizeAllowed(event *models.Event, size int) bool {
	if !event.RequiresTeam || event.MinTeamSize == nil || event.MaxTeamSize == nil {
		return false
	}
	return size >= *event.MinTeamSize && size <= *event.MaxTeamSize
}

// checkNotHeld rejects an event the user is already registered for or is
// still paying for in another open order.
func checkNotHeld(ctx context.Context, repo *repositories.Repository, userID, eventID uuid.UUID, eventName string) error {
	reg, err := repo.RegistrationRepo.GetRegistration(ctx, userID, eventID)
	switch {
	case err == nil && reg.Status == models.RegistrationConfirmed:
		return newError(CodeAlreadyRegistered, "You are already registered for "+eventName)
	case err != nil && !errors.Is(err, repositories.ErrNotFound):
		return internalError(err)
	}

	open, err := repo.OrderRepo.FindOpenOrderForEvent(ctx, userID, eventID)
	switch {
	case err == nil:
		return newError(CodeConflict, eventName+" is already in pending order "+open.ID.String())
	case !errors.Is(err, repositories.ErrNotFound):
		return internalError(err)
	}
	return nil
}
