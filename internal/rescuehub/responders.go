package rescuehub

import (
	"context"
	"strings"

	"floodrescue/backend/internal/apperr"
	"floodrescue/backend/internal/models"
)

// RegisterResponder creates the profile of the authenticated responder.
func (h *HubService) RegisterResponder(ctx context.Context, responderID string, p models.ResponderProfile) (*models.ResponderProfile, error) {
	const op = "rescuehub.RegisterResponder"
	if strings.TrimSpace(responderID) == "" {
		return nil, apperr.Validation(op, "responder id is required")
	}
	p.ID = responderID
	p.CreatedAt = h.now()
	if err := validationError(op, validate.Struct(p)); err != nil {
		return nil, err
	}
	if err := h.Storage.CreateResponder(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (h *HubService) GetResponder(ctx context.Context, id string) (*models.ResponderProfile, error) {
	return h.Storage.GetResponder(ctx, id)
}

// UpdateResponder changes a profile. Only its owner may do so.
func (h *HubService) UpdateResponder(ctx context.Context, ownerID, id string, u models.ProfileUpdate) (*models.ResponderProfile, error) {
	const op = "rescuehub.UpdateResponder"
	if ownerID != id {
		return nil, apperr.Unauthorized(op, "profiles can only be changed by their owner")
	}
	if err := validationError(op, validate.Struct(u)); err != nil {
		return nil, err
	}
	p, err := h.Storage.GetResponder(ctx, id)
	if err != nil {
		return nil, err
	}
	cols := profileColumns(u)
	if len(cols) == 0 {
		return nil, apperr.Validation(op, "nothing to change")
	}
	u.Apply(p)
	if err := h.Storage.UpdateResponder(ctx, p, cols...); err != nil {
		return nil, err
	}
	return p, nil
}

func profileColumns(u models.ProfileUpdate) []string {
	var cols []string
	if u.Name != nil {
		cols = append(cols, "Name")
	}
	if u.Phone != nil {
		cols = append(cols, "Phone")
	}
	if u.VehicleType != nil {
		cols = append(cols, "VehicleType")
	}
	if u.PassengerCapacity != nil {
		cols = append(cols, "PassengerCapacity")
	}
	return cols
}
