// Package notifier detects newly submitted requests in a stream of snapshots.
package notifier

import (
	"sync"

	"floodrescue/backend/internal/models"
)

// Predicate selects the requests worth an alert.
type Predicate func(models.Request) bool

// Critical matches CRITICAL requests.
func Critical(r models.Request) bool {
	return r.Severity == models.SeverityCritical
}

// Notifier compares each snapshot with the previous one. The first snapshot
// after arming only records the baseline; it never produces events.
type Notifier struct {
	match Predicate

	mu    sync.Mutex
	armed bool
	seen  map[string]struct{}
}

// New returns a Notifier. A nil predicate means Critical.
func New(match Predicate) *Notifier {
	if match == nil {
		match = Critical
	}
	return &Notifier{match: match}
}

// Observe returns the OPEN requests of snap that were absent from the
// previous snapshot and match the predicate. Ids are compared as a set, so an
// id that disappears and comes back counts as new again.
func (n *Notifier) Observe(snap models.Snapshot) []models.Request {
	n.mu.Lock()
	defer n.mu.Unlock()

	current := make(map[string]struct{}, len(snap.Requests))
	for _, r := range snap.Requests {
		current[r.ID] = struct{}{}
	}
	if !n.armed {
		n.armed = true
		n.seen = current
		return nil
	}

	var events []models.Request
	for _, r := range snap.Requests {
		if _, ok := n.seen[r.ID]; ok {
			continue
		}
		if r.Status == models.StatusOpen && n.match(r) {
			events = append(events, r)
		}
	}
	n.seen = current
	return events
}

// Rearm drops the baseline; the next snapshot becomes the new one.
func (n *Notifier) Rearm() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.armed = false
	n.seen = nil
}
