// Package lifecycle is the request state machine:
//
//	OPEN --claim--> IN_PROGRESS --complete--> PENDING_CONFIRMATION --confirm--> RESOLVED
//	OPEN --cancel--> (deleted)
//
// The guards here are pure. They take a record as read from the store and
// return the record as it must be written, or a classified error. The store
// then performs the write conditioned on the status the guard saw.
package lifecycle

import (
	"strings"

	"floodrescue/backend/internal/apperr"
	"floodrescue/backend/internal/models"
)

// Event is an intent that moves a request along the graph.
type Event string

const (
	EventClaim    Event = "claim"
	EventComplete Event = "complete"
	EventConfirm  Event = "confirm"
	EventCancel   Event = "cancel"
)

// StatusDeleted is the pseudo status reached by cancel.
const StatusDeleted models.Status = ""

var transitions = map[models.Status]map[Event]models.Status{
	models.StatusOpen: {
		EventClaim:  models.StatusInProgress,
		EventCancel: StatusDeleted,
	},
	models.StatusInProgress: {
		EventComplete: models.StatusPendingConfirmation,
	},
	models.StatusPendingConfirmation: {
		EventConfirm: models.StatusResolved,
	},
}

// order is the position of each status on the only forward path.
var order = map[models.Status]int{
	models.StatusOpen:                0,
	models.StatusInProgress:          1,
	models.StatusPendingConfirmation: 2,
	models.StatusResolved:            3,
}

// Columns lists the fields each event writes. Nothing else is touched.
var Columns = map[Event][]string{
	EventClaim:    {"Status", "RescuerID", "RescuerName", "RescuerPhone", "RescuerLocation"},
	EventComplete: {"Status", "ProofImageURLs"},
	EventConfirm:  {"Status"},
}

// AmendColumns are the fields a requester may change after submitting.
var AmendColumns = []string{"Note", "NumberOfPeople", "SpecialNeeds", "RequestImageURLs", "VoiceNoteURL"}

// Next returns the status reached from `from` by ev.
func Next(from models.Status, ev Event) (models.Status, error) {
	const op = "lifecycle.Next"
	if from == models.StatusResolved {
		return from, apperr.Terminal(op, "request is resolved")
	}
	to, ok := transitions[from][ev]
	if !ok {
		if ev == EventClaim {
			return from, apperr.ClaimConflict(op, "request is %s", from)
		}
		return from, apperr.InvalidTransition(op, "cannot %s a request that is %s", ev, from)
	}
	return to, nil
}

// Allowed reports whether from -> to is an edge of the graph.
func Allowed(from, to models.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Reachable reports whether an observer that last saw `from` may next see
// `to`. Observers can miss intermediate states but never go backwards.
func Reachable(from, to models.Status) bool {
	i, ok := order[from]
	if !ok {
		return false
	}
	j, ok := order[to]
	if !ok {
		return false
	}
	return i <= j
}

// Claim assigns the responder to an OPEN request.
func Claim(r models.Request, who models.Identity, loc *models.Location) (models.Request, error) {
	to, err := Next(r.Status, EventClaim)
	if err != nil {
		return r, err
	}
	if strings.TrimSpace(who.ID) == "" {
		return r, apperr.Validation("lifecycle.Claim", "responder id is required")
	}
	r.Status = to
	r.RescuerID = who.ID
	r.RescuerName = who.Name
	r.RescuerPhone = who.Phone
	if loc != nil {
		l := *loc
		r.RescuerLocation = &l
	}
	return r, nil
}

// Complete records proof of a rescue performed by the assigned responder.
func Complete(r models.Request, responderID string, proof []string, maxProof int) (models.Request, error) {
	const op = "lifecycle.Complete"
	to, err := Next(r.Status, EventComplete)
	if err != nil {
		return r, err
	}
	if r.RescuerID != responderID {
		return r, apperr.Unauthorized(op, "only the assigned responder can complete this request")
	}
	if len(proof) == 0 {
		return r, apperr.Validation(op, "at least one proof image is required")
	}
	if len(proof) > maxProof {
		return r, apperr.Validation(op, "at most %d proof images are allowed", maxProof)
	}
	for _, p := range proof {
		if strings.TrimSpace(p) == "" {
			return r, apperr.Validation(op, "proof image reference is empty")
		}
	}
	r.Status = to
	r.ProofImageURLs = append([]string(nil), proof...)
	return r, nil
}

// Confirm closes a request once its requester confirms they are safe.
func Confirm(r models.Request, requesterID string) (models.Request, error) {
	to, err := Next(r.Status, EventConfirm)
	if err != nil {
		return r, err
	}
	if r.RequesterID != requesterID {
		return r, apperr.Unauthorized("lifecycle.Confirm", "only the requester can confirm this request")
	}
	r.Status = to
	return r, nil
}

// Cancel checks that the requester may withdraw r. A nil error means the
// record is to be deleted.
func Cancel(r models.Request, requesterID string) error {
	if _, err := Next(r.Status, EventCancel); err != nil {
		return err
	}
	if r.RequesterID != requesterID {
		return apperr.Unauthorized("lifecycle.Cancel", "only the requester can cancel this request")
	}
	return nil
}

// Amend applies the requester's edits. Location, severity, status and
// timestamp are not part of an Amendment and so never change.
func Amend(r models.Request, requesterID string, a models.Amendment) (models.Request, error) {
	const op = "lifecycle.Amend"
	if r.Status == models.StatusResolved {
		return r, apperr.Terminal(op, "request is resolved")
	}
	if r.RequesterID != requesterID {
		return r, apperr.Unauthorized(op, "only the requester can edit this request")
	}
	if a.Empty() {
		return r, apperr.Validation(op, "nothing to change")
	}
	a.Apply(&r)
	return r, nil
}

// CanMessage reports whether a chat message may still be added to r.
func CanMessage(r models.Request) error {
	if r.Status == models.StatusResolved {
		return apperr.Terminal("lifecycle.CanMessage", "request is resolved")
	}
	return nil
}
