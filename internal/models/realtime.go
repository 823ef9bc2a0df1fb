package models

import "time"

// Snapshot is the full record set pushed to subscribers after every change.
// Subscribers must treat it as read-only.
type Snapshot struct {
	Version  uint64    `json:"version"`
	At       time.Time `json:"at"`
	Requests []Request `json:"requests"`
}

// Find returns the request with the given id, or nil.
func (s Snapshot) Find(id string) *Request {
	for i := range s.Requests {
		if s.Requests[i].ID == id {
			return &s.Requests[i]
		}
	}
	return nil
}

// Identity is the authenticated responder performing an intent, as supplied
// by the identity provider and the stored profile.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// RiskAssessment is the advisory produced for a request note.
type RiskAssessment struct {
	RiskLevel       string   `json:"riskLevel"`
	RecommendedGear []string `json:"recommendedGear"`
	Hazards         []string `json:"hazards"`
}
