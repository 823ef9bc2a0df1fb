package storage

import (
	"context"
	"fmt"

	"floodrescue/backend/internal/apperr"
	"floodrescue/backend/internal/models"

	"gorm.io/gorm/clause"
)

// CreateResponder stores a new profile. A second registration for the same
// id fails with a validation error and leaves the first profile untouched.
func (s *Service) CreateResponder(ctx context.Context, p *models.ResponderProfile) error {
	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(p)
	if res.Error != nil {
		return fmt.Errorf("create responder %s: %w", p.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Validation("storage.CreateResponder", "responder %s is already registered", p.ID)
	}
	return nil
}

func (s *Service) GetResponder(ctx context.Context, id string) (*models.ResponderProfile, error) {
	var p models.ResponderProfile
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound("get responder "+id, err)
	}
	return &p, nil
}

// UpdateResponder writes the given columns of p.
func (s *Service) UpdateResponder(ctx context.Context, p *models.ResponderProfile, columns ...string) error {
	res := s.DB.WithContext(ctx).Model(p).Select(columns).Updates(p)
	if res.Error != nil {
		return fmt.Errorf("update responder %s: %w", p.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("storage.UpdateResponder", "responder %s not found", p.ID)
	}
	return nil
}
