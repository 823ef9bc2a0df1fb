// Package tracking lets a requester find their own active request by phone.
package tracking

import (
	"context"
	"strings"

	"floodrescue/backend/internal/models"
)

// Finder loads the requests submitted with a contact phone.
type Finder interface {
	FindRequestsByPhone(ctx context.Context, phone string) ([]models.Request, error)
}

// MostRecentActive returns the newest request that is not RESOLVED, or nil.
func MostRecentActive(reqs []models.Request) *models.Request {
	var best *models.Request
	for i := range reqs {
		r := &reqs[i]
		if r.Status == models.StatusResolved {
			continue
		}
		if best == nil || r.Timestamp.After(best.Timestamp) {
			best = r
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// FindActiveByPhone returns the requester's newest unresolved request, or nil
// when there is none. The phone must match the stored one after trimming.
func FindActiveByPhone(ctx context.Context, f Finder, phone string) (*models.Request, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, nil
	}
	reqs, err := f.FindRequestsByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	return MostRecentActive(reqs), nil
}
