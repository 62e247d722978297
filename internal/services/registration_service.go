package services

import (
	"context"

	"kalam-backend/internal/config"
	"kalam-backend/internal/models"
	"kalam-backend/internal/repositories"

	"github.com/google/uuid"
)

type RegistrationService struct {
	repo *repositories.Repository
	cfg  *config.Config
}

func NewRegistrationService(repo *repositories.Repository, cfg *config.Config) *RegistrationService {
	return &RegistrationService{repo: repo, cfg: cfg}
}

func (s *RegistrationService) ListMyRegistrations(ctx context.Context, userID uuid.UUID, params repositories.ListParams) ([]models.Registration, int64, error) {
	regs, total, err := s.repo.RegistrationRepo.ListRegistrations(ctx, repositories.RegistrationFilters{
		Scope:  repositories.EventScope{All: true},
		UserID: &userID,
	}, params)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return regs, total, nil
}

// GetTicket returns the user's registration when it is confirmed and has a
// QR ticket.
func (s *RegistrationService) GetTicket(ctx context.Context, userID, registrationID uuid.UUID) (*models.Registration, error) {
	reg, err := s.repo.RegistrationRepo.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		return nil, fromRepo(err, "Registration")
	}
	if reg.UserID != userID {
		return nil, newError(CodeNotFound, "Registration not found")
	}
	if reg.Status != models.RegistrationConfirmed || reg.QRPath == "" {
		return nil, newError(CodeNotFound, "No ticket for this registration")
	}
	return reg, nil
}
