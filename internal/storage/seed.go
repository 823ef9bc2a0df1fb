package storage

import (
	"context"
	"time"

	"floodrescue/backend/internal/models"
)

// DemoRequests are the records loaded into an empty store for demos.
func DemoRequests(now time.Time) []models.Request {
	return []models.Request{
		{
			RequesterID:  "demo-requester-1",
			ContactName:  "Sarah Johnson",
			ContactPhone: "+1-555-0123",
			Location:     models.Location{Lat: 34.0522, Lng: -118.2437},
			Severity:     models.SeverityCritical,
			Status:       models.StatusOpen,
			Note:         "Trapped on roof, 2 elderly, water rising fast.",
			Timestamp:    now.Add(-30 * time.Minute),
		},
		{
			RequesterID:  "demo-requester-2",
			ContactName:  "Mike Chen",
			ContactPhone: "+1-555-0199",
			Location:     models.Location{Lat: 34.0535, Lng: -118.2450},
			Severity:     models.SeveritySupplies,
			Status:       models.StatusOpen,
			Note:         "Need clean water and insulin.",
			Timestamp:    now.Add(-2 * time.Hour),
		},
		{
			RequesterID:  "demo-requester-3",
			ContactName:  "Emily Davis",
			ContactPhone: "+1-555-0255",
			Location:     models.Location{Lat: 34.0490, Lng: -118.2500},
			Severity:     models.SeverityCritical,
			Status:       models.StatusInProgress,
			Note:         "Power outage, medical ventilator needs battery.",
			RescuerID:    "rescuer-1",
			RescuerName:  "Demo Rescuer",
			Timestamp:    now.Add(-15 * time.Minute),
		},
	}
}

// SeedIfEmpty inserts DemoRequests when the store holds no request.
// It reports how many records were inserted.
func (s *Service) SeedIfEmpty(ctx context.Context, now time.Time) (int, error) {
	n, err := s.CountRequests(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	demo := DemoRequests(now)
	for i := range demo {
		if err := s.CreateRequest(ctx, &demo[i]); err != nil {
			return i, err
		}
	}
	return len(demo), nil
}
