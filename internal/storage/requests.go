package storage

import (
	"context"
	"errors"
	"fmt"

	"floodrescue/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errConditionFailed = errors.New("condition failed")

// CreateRequest inserts a new request. BeforeCreate assigns the id.
func (s *Service) CreateRequest(ctx context.Context, r *models.Request) error {
	if err := s.DB.WithContext(ctx).Omit(clause.Associations).Create(r).Error; err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// GetRequest loads one request with its chat log.
func (s *Service) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	var r models.Request
	err := withMessages(s.DB.WithContext(ctx)).Where("id = ?", id).First(&r).Error
	if err != nil {
		return nil, notFound("get request "+id, err)
	}
	if r.Messages == nil {
		r.Messages = []models.ChatMessage{}
	}
	return &r, nil
}

// ListRequests returns every request, newest first.
func (s *Service) ListRequests(ctx context.Context) ([]models.Request, error) {
	var list []models.Request
	if err := withMessages(s.DB.WithContext(ctx)).Order(byTimestamp(true)).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	for i := range list {
		if list[i].Messages == nil {
			list[i].Messages = []models.ChatMessage{}
		}
	}
	return list, nil
}

// FindRequestsByPhone returns the requests submitted with the given contact
// phone, newest first.
func (s *Service) FindRequestsByPhone(ctx context.Context, phone string) ([]models.Request, error) {
	var list []models.Request
	err := withMessages(s.DB.WithContext(ctx)).
		Where("contact_phone = ?", phone).
		Order(byTimestamp(true)).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("find requests by phone: %w", err)
	}
	for i := range list {
		if list[i].Messages == nil {
			list[i].Messages = []models.ChatMessage{}
		}
	}
	return list, nil
}

func (s *Service) CountRequests(ctx context.Context) (int64, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.Request{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return n, nil
}

// UpdateRequestIf is the compare-and-swap every transition goes through:
//
//	UPDATE requests SET <columns> WHERE id = ? AND status = <expected>
//
// Exactly one of several concurrent writers sees RowsAffected == 1.
func (s *Service) UpdateRequestIf(ctx context.Context, r *models.Request, expected models.Status, columns ...string) (bool, error) {
	if len(columns) == 0 {
		return false, errors.New("update request: no columns")
	}
	patch := *r
	patch.Messages = nil

	res := s.DB.WithContext(ctx).
		Model(&patch).
		Where("status = ?", expected).
		Select(columns).
		Updates(&patch)
	if res.Error != nil {
		return false, fmt.Errorf("update request %s: %w", r.ID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DeleteRequestIf removes an OPEN request and its messages in one transaction.
func (s *Service) DeleteRequestIf(ctx context.Context, id string, expected models.Status) (bool, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := tx.Model(&models.Request{}).Select("id").Where("id = ? AND status = ?", id, expected)
		if err := tx.Where("request_id IN (?)", owned).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND status = ?", id, expected).Delete(&models.Request{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errConditionFailed
		}
		return nil
	})
	if errors.Is(err, errConditionFailed) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete request %s: %w", id, err)
	}
	return true, nil
}

// AppendMessage inserts one chat row. A message id that is already stored is
// ignored, so replays never duplicate or reorder the log. The parent request
// must still exist; a request deleted meanwhile yields apperr.ErrNotFound.
func (s *Service) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Request{}).Where("id = ?", msg.RequestID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
			Create(msg).Error
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		err = gorm.ErrRecordNotFound
	}
	if err != nil {
		return notFound("append message to "+msg.RequestID, err)
	}
	return nil
}
