package services

import (
	"context"
	"errors"
	"strings"

	"kalam-backend/internal/config"
	"kalam-backend/internal/models"
	"kalam-backend/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

type TeamService struct {
	repo *repositories.Repository
	cfg  *config.Config
}

func NewTeamService(repo *repositories.Repository, cfg *config.Config) *TeamService {
	return &TeamService{repo: repo, cfg: cfg}
}

type CreateTeamInput struct {
	EventID uuid.UUID
	Name    string
	Members []models.TeamMember
}

// CreateTeam registers a team led by leaderID. The leader counts towards the
// size limits and may lead one team per event.
func (s *TeamService) CreateTeam(ctx context.Context, leaderID uuid.UUID, in CreateTeamInput) (*models.Team, error) {
	event, err := s.repo.EventRepo.GetEventByID(ctx, in.EventID)
	if err != nil {
		return nil, fromRepo(err, "Event")
	}
	if !event.IsActive {
		return nil, validationError("eventId", "event is not open for registration")
	}
	if !event.RequiresTeam {
		return nil, validationError("eventId", "event does not take teams")
	}

	leader, err := s.repo.UserRepo.GetUserByID(ctx, leaderID)
	if err != nil {
		return nil, fromRepo(err, "User")
	}

	seen := map[string]bool{strings.ToLower(leader.Email): true}
	members := make(datatypes.JSONSlice[models.TeamMember], 0, len(in.Members))
	for _, m := range in.Members {
		email := strings.ToLower(strings.TrimSpace(m.Email))
		if seen[email] {
			return nil, validationError("members", "duplicate member "+email)
		}
		seen[email] = true
		members = append(members, models.TeamMember{
			Name:  strings.TrimSpace(m.Name),
			Email: email,
			Phone: strings.TrimSpace(m.Phone),
		})
	}

	team := &models.Team{
		EventID:  event.ID,
		LeaderID: leaderID,
		Name:     strings.TrimSpace(in.Name),
		Members:  members,
	}
	if !teamSizeAllowed(event, team.Size()) {
		return nil, validationError("members", "team size must be between the event's minimum and maximum")
	}

	if err := s.repo.TeamRepo.CreateTeam(ctx, team); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, newError(CodeConflict, "You already lead a team for this event")
		}
		return nil, internalError(err)
	}

	logrus.WithFields(logrus.Fields{"team_id": team.ID, "event_id": event.ID, "leader_id": leaderID}).Info("team created")
	return team, nil
}

func (s *TeamService) ListMyTeams(ctx context.Context, leaderID uuid.UUID) ([]models.Team, error) {
	teams, err := s.repo.TeamRepo.ListTeamsByLeader(ctx, leaderID)
	if err != nil {
		return nil, internalError(err)
	}
	return teams, nil
}
