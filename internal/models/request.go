package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Severity classifies how urgent a request is. It is fixed at creation.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL" // life-threatening
	SeveritySupplies Severity = "SUPPLIES" // food, water, medicine
	SeverityOK       Severity = "OK"
)

// Status is the lifecycle state of a Request.
type Status string

const (
	StatusOpen                Status = "OPEN"
	StatusInProgress          Status = "IN_PROGRESS"
	StatusPendingConfirmation Status = "PENDING_CONFIRMATION" // responder says done, waiting for requester
	StatusResolved            Status = "RESOLVED"
)

// InFlight reports whether a responder is currently working the request.
func (s Status) InFlight() bool {
	return s == StatusInProgress || s == StatusPendingConfirmation
}

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// Request is a single SOS record tracked through its lifecycle.
// Location, Severity and Timestamp never change after creation.
type Request struct {
	// ID is the request UUID, assigned by the store.
	ID string `gorm:"primaryKey" json:"id"`
	// RequesterID is the anonymous id of the requester that submitted the request.
	RequesterID string `gorm:"index;not null" json:"-"`

	ContactName      string   `gorm:"not null" json:"contact_name" validate:"required,max=120"`
	ContactPhone     string   `gorm:"index;not null" json:"contact_phone" validate:"required,max=40"`
	Note             string   `gorm:"type:text" json:"note" validate:"max=4000"`
	RequestImageURLs []string `gorm:"type:text;serializer:json" json:"request_image_urls,omitempty" validate:"max=10,dive,url"`
	VoiceNoteURL     string   `json:"voice_note_url,omitempty" validate:"omitempty,url"`
	NumberOfPeople   *int     `json:"number_of_people,omitempty" validate:"omitempty,min=1,max=1000"`
	SpecialNeeds     []string `gorm:"type:text;serializer:json" json:"special_needs,omitempty" validate:"max=20,dive,required,max=60"`

	Location Location `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	Severity Severity `gorm:"not null" json:"severity" validate:"required,oneof=CRITICAL SUPPLIES OK"`
	Status   Status   `gorm:"index;not null" json:"status"`

	RescuerID       string    `gorm:"index" json:"rescuer_id,omitempty"`
	RescuerName     string    `json:"rescuer_name,omitempty"`
	RescuerPhone    string    `json:"rescuer_phone,omitempty"`
	RescuerLocation *Location `gorm:"type:text;serializer:json" json:"rescuer_location,omitempty"`

	ProofImageURLs []string `gorm:"type:text;serializer:json" json:"proof_image_urls,omitempty"`

	Messages []ChatMessage `gorm:"foreignKey:RequestID" json:"messages"`

	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
}

// BeforeCreate assigns a UUID when the caller did not set one.
func (r *Request) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

// Draft is the requester-supplied part of a Request: no id, status or assignment.
type Draft struct {
	ContactName      string    `json:"contact_name" validate:"required,max=120"`
	ContactPhone     string    `json:"contact_phone" validate:"required,max=40"`
	Note             string    `json:"note" validate:"max=4000"`
	RequestImageURLs []string  `json:"request_image_urls,omitempty" validate:"max=10,dive,url"`
	VoiceNoteURL     string    `json:"voice_note_url,omitempty" validate:"omitempty,url"`
	NumberOfPeople   *int      `json:"number_of_people,omitempty" validate:"omitempty,min=1,max=1000"`
	SpecialNeeds     []string  `json:"special_needs,omitempty" validate:"max=20,dive,required,max=60"`
	Location         *Location `json:"location" validate:"required"`
	Severity         Severity  `json:"severity" validate:"required,oneof=CRITICAL SUPPLIES OK"`
}

// NewRequest builds an OPEN request from a draft.
func NewRequest(d Draft, requesterID string, now time.Time) *Request {
	r := &Request{
		RequesterID:      requesterID,
		ContactName:      d.ContactName,
		ContactPhone:     d.ContactPhone,
		Note:             d.Note,
		RequestImageURLs: d.RequestImageURLs,
		VoiceNoteURL:     d.VoiceNoteURL,
		NumberOfPeople:   d.NumberOfPeople,
		SpecialNeeds:     d.SpecialNeeds,
		Severity:         d.Severity,
		Status:           StatusOpen,
		Messages:         []ChatMessage{},
		Timestamp:        now,
	}
	if d.Location != nil {
		r.Location = *d.Location
	}
	return r
}

// Amendment carries the requester-editable fields. Nil fields are left unchanged.
type Amendment struct {
	Note             *string   `json:"note,omitempty" validate:"omitempty,max=4000"`
	NumberOfPeople   *int      `json:"number_of_people,omitempty" validate:"omitempty,min=1,max=1000"`
	SpecialNeeds     *[]string `json:"special_needs,omitempty" validate:"omitempty,max=20,dive,required,max=60"`
	RequestImageURLs *[]string `json:"request_image_urls,omitempty" validate:"omitempty,max=10,dive,url"`
	VoiceNoteURL     *string   `json:"voice_note_url,omitempty" validate:"omitempty,url"`
}

// Empty reports whether the amendment changes nothing.
func (a Amendment) Empty() bool {
	return a.Note == nil && a.NumberOfPeople == nil && a.SpecialNeeds == nil &&
		a.RequestImageURLs == nil && a.VoiceNoteURL == nil
}

// Apply copies the set fields onto r.
func (a Amendment) Apply(r *Request) {
	if a.Note != nil {
		r.Note = *a.Note
	}
	if a.NumberOfPeople != nil {
		n := *a.NumberOfPeople
		r.NumberOfPeople = &n
	}
	if a.SpecialNeeds != nil {
		r.SpecialNeeds = append([]string(nil), (*a.SpecialNeeds)...)
	}
	if a.RequestImageURLs != nil {
		r.RequestImageURLs = append([]string(nil), (*a.RequestImageURLs)...)
	}
	if a.VoiceNoteURL != nil {
		r.VoiceNoteURL = *a.VoiceNoteURL
	}
}
