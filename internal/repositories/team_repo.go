package repositories

import (
	"context"

	"kalam-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var teamSortable = map[string]string{
	"name":      "name",
	"createdAt": "created_at",
}

type teamRepo struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepo{db: db}
}

func (r *teamRepo) CreateTeam(ctx context.Context, team *models.Team) error {
	return translate(r.db.WithContext(ctx).Create(team).Error, "create team")
}

func (r *teamRepo) GetTeamByID(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	var team models.Team
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&team).Error; err != nil {
		return nil, translate(err, "get team")
	}
	return &team, nil
}

func (r *teamRepo) ListTeamsByLeader(ctx context.Context, leaderID uuid.UUID) ([]models.Team, error) {
	var teams []models.Team
	if err := r.db.WithContext(ctx).
		Where("leader_id = ?", leaderID).
		Order("created_at DESC").
		Find(&teams).Error; err != nil {
		return nil, translate(err, "list teams by leader")
	}
	return teams, nil
}

func (r *teamRepo) ListTeams(ctx context.Context, filters TeamFilters, params ListParams) ([]models.Team, int64, error) {
	var teams []models.Team
	var total int64

	query := scoped(r.db.WithContext(ctx).Model(&models.Team{}), filters.Scope, "event_id")
	if filters.EventID != nil {
		query = query.Where("event_id = ?", *filters.EventID)
	}
	query = search(query, params.Search, "name")

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count teams")
	}
	if err := page(query, params, teamSortable, "created_at DESC").Find(&teams).Error; err != nil {
		return nil, 0, translate(err, "list teams")
	}
	return teams, total, nil
}
