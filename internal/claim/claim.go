// Package claim lets exactly one responder take an OPEN request. The store's
// conditional update decides the winner; there is no in-process lock, so
// any number of processes may race on the same request.
package claim

import (
	"context"

	"floodrescue/backend/internal/apperr"
	"floodrescue/backend/internal/lifecycle"
	"floodrescue/backend/internal/models"
)

// Store is the part of storage.Storage the coordinator needs.
type Store interface {
	GetRequest(ctx context.Context, id string) (*models.Request, error)
	UpdateRequestIf(ctx context.Context, r *models.Request, expected models.Status, columns ...string) (bool, error)
}

type Result struct {
	Won     bool
	Request *models.Request
}

type Coordinator struct {
	store Store
}

func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{store: store}
}

// Claim assigns who to the request if it is still OPEN. Losers get
// ClaimConflict and are not retried.
func (c *Coordinator) Claim(ctx context.Context, requestID string, who models.Identity, at *models.Location) (Result, error) {
	current, err := c.store.GetRequest(ctx, requestID)
	if err != nil {
		return Result{}, err
	}
	next, err := lifecycle.Claim(*current, who, at)
	if err != nil {
		return Result{}, err
	}

	won, err := c.store.UpdateRequestIf(ctx, &next, models.StatusOpen, lifecycle.Columns[lifecycle.EventClaim]...)
	if err != nil {
		return Result{}, err
	}
	if !won {
		return Result{}, c.lost(ctx, requestID)
	}
	return Result{Won: true, Request: &next}, nil
}

// lost explains why the conditional update matched no row.
func (c *Coordinator) lost(ctx context.Context, requestID string) error {
	const op = "claim.Claim"
	latest, err := c.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if latest.Status == models.StatusResolved {
		return apperr.Terminal(op, "request %s is resolved", requestID)
	}
	return apperr.ClaimConflict(op, "request %s was claimed by another responder", requestID)
}
