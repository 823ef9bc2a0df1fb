package rescuehub

import (
	"context"
	"strings"

	"floodrescue/backend/internal/apperr"
	"floodrescue/backend/internal/lifecycle"
	"floodrescue/backend/internal/messaging"
	"floodrescue/backend/internal/models"
	"floodrescue/backend/internal/tracking"

	"go.uber.org/zap"
)

// Actor is the authenticated party behind an intent.
type Actor struct {
	ID   string
	Role models.SenderRole
}

func (h *HubService) record(intent string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	h.metrics.Intent(intent, outcome)
}

func validationError(op string, err error) error {
	if err == nil {
		return nil
	}
	return apperr.Wrap(apperr.KindValidation, op, err)
}

// Submit stores a new OPEN request and returns its id.
func (h *HubService) Submit(ctx context.Context, d models.Draft, requesterID string) (id string, err error) {
	const op = "rescuehub.Submit"
	defer func() { h.record("submit", err) }()

	if strings.TrimSpace(requesterID) == "" {
		return "", apperr.Validation(op, "requester id is required")
	}
	if err := validationError(op, validate.Struct(d)); err != nil {
		return "", err
	}
	r := models.NewRequest(d, requesterID, h.now())
	if err := h.Storage.CreateRequest(ctx, r); err != nil {
		return "", err
	}
	h.logger.Info("Request submitted",
		zap.String("request_id", r.ID), zap.String("severity", string(r.Severity)))
	h.changed(ctx, "submit", r.ID)
	return r.ID, nil
}

// Get returns the stored request with its chat log.
func (h *HubService) Get(ctx context.Context, id string) (*models.Request, error) {
	return h.Storage.GetRequest(ctx, id)
}

// Claim assigns the responder to an OPEN request. Name and phone missing
// from the identity are taken from the responder's stored profile.
func (h *HubService) Claim(ctx context.Context, id string, who models.Identity, at *models.Location) (r *models.Request, err error) {
	defer func() { h.record("claim", err) }()

	if at != nil {
		if err := validationError("rescuehub.Claim", validate.Struct(at)); err != nil {
			return nil, err
		}
	}
	if who.Name == "" || who.Phone == "" {
		if p, perr := h.Storage.GetResponder(ctx, who.ID); perr == nil {
			if who.Name == "" {
				who.Name = p.Name
			}
			if who.Phone == "" {
				who.Phone = p.Phone
			}
		}
	}

	res, err := h.claims.Claim(ctx, id, who, at)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindClaimConflict {
			h.metrics.Claim("conflict")
		} else {
			h.metrics.Claim("error")
		}
		return nil, err
	}
	h.metrics.Claim("won")
	h.logger.Info("Request claimed", zap.String("request_id", id), zap.String("responder_id", who.ID))
	h.changed(ctx, "claim", id)
	return res.Request, nil
}

// Complete attaches proof and waits for the requester's confirmation.
func (h *HubService) Complete(ctx context.Context, id, responderID string, proof []string) (r *models.Request, err error) {
	defer func() { h.record("complete", err) }()
	r, err = h.transition(ctx, id, lifecycle.EventComplete, func(cur models.Request) (models.Request, error) {
		return lifecycle.Complete(cur, responderID, proof, h.maxProofImages)
	})
	if err != nil {
		return nil, err
	}
	h.changed(ctx, "complete", id)
	return r, nil
}

// Confirm resolves the request on behalf of its requester.
func (h *HubService) Confirm(ctx context.Context, id, requesterID string) (r *models.Request, err error) {
	defer func() { h.record("confirm", err) }()
	r, err = h.transition(ctx, id, lifecycle.EventConfirm, func(cur models.Request) (models.Request, error) {
		return lifecycle.Confirm(cur, requesterID)
	})
	if err != nil {
		return nil, err
	}
	h.logger.Info("Request resolved", zap.String("request_id", id))
	h.changed(ctx, "confirm", id)
	return r, nil
}

// Cancel deletes an OPEN request of the requester.
func (h *HubService) Cancel(ctx context.Context, id, requesterID string) (err error) {
	defer func() { h.record("cancel", err) }()

	cur, err := h.Storage.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if err := lifecycle.Cancel(*cur, requesterID); err != nil {
		return err
	}
	deleted, err := h.Storage.DeleteRequestIf(ctx, id, models.StatusOpen)
	if err != nil {
		return err
	}
	if !deleted {
		return h.explain(ctx, id, func(latest models.Request) error {
			return lifecycle.Cancel(latest, requesterID)
		})
	}
	h.logger.Info("Request cancelled", zap.String("request_id", id))
	h.changed(ctx, "cancel", id)
	return nil
}

// Amend changes the requester-editable details of a request.
func (h *HubService) Amend(ctx context.Context, id, requesterID string, a models.Amendment) (r *models.Request, err error) {
	const op = "rescuehub.Amend"
	defer func() { h.record("amend", err) }()

	if err := validationError(op, validate.Struct(a)); err != nil {
		return nil, err
	}
	cur, err := h.Storage.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := lifecycle.Amend(*cur, requesterID, a)
	if err != nil {
		return nil, err
	}
	ok, err := h.Storage.UpdateRequestIf(ctx, &next, cur.Status, amendColumns(a)...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, h.explain(ctx, id, func(latest models.Request) error {
			_, err := lifecycle.Amend(latest, requesterID, a)
			return err
		})
	}
	h.changed(ctx, "amend", id)
	return &next, nil
}

// SendMessage appends a chat message to a request that is not resolved.
func (h *HubService) SendMessage(ctx context.Context, id string, role models.SenderRole, text string) (msg models.ChatMessage, err error) {
	defer func() { h.record("message", err) }()

	cur, err := h.Storage.GetRequest(ctx, id)
	if err != nil {
		return models.ChatMessage{}, err
	}
	if err := lifecycle.CanMessage(*cur); err != nil {
		return models.ChatMessage{}, err
	}
	msg, err = messaging.New(id, role, text, h.now())
	if err != nil {
		return models.ChatMessage{}, err
	}
	if err := h.Storage.AppendMessage(ctx, &msg); err != nil {
		return models.ChatMessage{}, err
	}
	h.changed(ctx, "message", id)
	return msg, nil
}

// SendMessageAs is SendMessage for an authenticated party: the requester of
// the request or its assigned responder.
func (h *HubService) SendMessageAs(ctx context.Context, id string, actor Actor, text string) (models.ChatMessage, error) {
	const op = "rescuehub.SendMessageAs"
	cur, err := h.Storage.GetRequest(ctx, id)
	if err != nil {
		return models.ChatMessage{}, err
	}
	switch {
	case actor.Role == models.SenderRequester && cur.RequesterID == actor.ID:
	case actor.Role == models.SenderResponder && cur.RescuerID == actor.ID:
	default:
		return models.ChatMessage{}, apperr.Unauthorized(op, "not a participant of request %s", id)
	}
	return h.SendMessage(ctx, id, actor.Role, text)
}

// FindActiveByPhone returns the newest unresolved request submitted with phone.
func (h *HubService) FindActiveByPhone(ctx context.Context, phone string) (*models.Request, error) {
	return tracking.FindActiveByPhone(ctx, h.Storage, phone)
}

// transition runs guard on the stored record and writes the result only if
// the status did not change in between.
func (h *HubService) transition(ctx context.Context, id string, ev lifecycle.Event, guard func(models.Request) (models.Request, error)) (*models.Request, error) {
	cur, err := h.Storage.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := guard(*cur)
	if err != nil {
		return nil, err
	}
	ok, err := h.Storage.UpdateRequestIf(ctx, &next, cur.Status, lifecycle.Columns[ev]...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, h.explain(ctx, id, func(latest models.Request) error {
			_, err := guard(latest)
			return err
		})
	}
	return &next, nil
}

// explain classifies a conditional write that matched no row by re-running
// the guard against the current record.
func (h *HubService) explain(ctx context.Context, id string, guard func(models.Request) error) error {
	latest, err := h.Storage.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if err := guard(*latest); err != nil {
		return err
	}
	return apperr.InvalidTransition("rescuehub", "request %s changed concurrently, reload and retry", id)
}

func amendColumns(a models.Amendment) []string {
	var cols []string
	if a.Note != nil {
		cols = append(cols, "Note")
	}
	if a.NumberOfPeople != nil {
		cols = append(cols, "NumberOfPeople")
	}
	if a.SpecialNeeds != nil {
		cols = append(cols, "SpecialNeeds")
	}
	if a.RequestImageURLs != nil {
		cols = append(cols, "RequestImageURLs")
	}
	if a.VoiceNoteURL != nil {
		cols = append(cols, "VoiceNoteURL")
	}
	return cols
}
