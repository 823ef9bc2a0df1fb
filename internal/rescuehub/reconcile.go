package rescuehub

import "floodrescue/backend/internal/models"

// Reconcile maps the record a view had selected onto a new snapshot. It
// returns a copy of the fresh record, or nil when it is gone (cancelled) and
// the view must drop its selection.
func Reconcile(oldSelectedID string, snap models.Snapshot) *models.Request {
	if oldSelectedID == "" {
		return nil
	}
	r := snap.Find(oldSelectedID)
	if r == nil {
		return nil
	}
	out := *r
	return &out
}
