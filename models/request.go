package models

import (
	"time"
)

type RequestStatus uint8

const (
	RequestStatus_Pending RequestStatus = iota
	RequestStatus_Accepted
	RequestStatus_Completed
	RequestStatus_Cancelled
)

// ServiceRequest is one client's ask for a provider's service. The backend is the
// source of truth; instances held here are transient cached copies refreshed by
// polling.
type ServiceRequest struct {
	Id          string `json:"id"`
	ClientId    string `json:"clientId"`
	ProviderId  string `json:"providerId"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       string `json:"price"`
	// Meaningful once the request is accepted (a proposed appointment); may be
	// blank while pending.
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
	Urgent   bool   `json:"urgent"`
	Status   RequestStatus
	Rating   *Rating  `json:"rating,omitempty"`
	Photos   []string `json:"photos,omitempty"`
	// Not (de)serialized
	LastError string    `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Rated reports whether a review has already been attached. At most one rating is
// permitted per request.
func (r *ServiceRequest) Rated() bool {
	return r.Rating != nil
}

type Rating struct {
	Stars     int      `json:"stars"`
	Review    string   `json:"review"`
	PhotoUrls []string `json:"photoUrls,omitempty"`
}

// Appointment is the proposal attached to an accepted request via the appointment
// endpoint. Scheduling does not change the request status.
type Appointment struct {
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	Time          string `json:"time" validate:"required,datetime=15:04"`
	DurationHours int    `json:"durationHours" validate:"gte=1,lte=12"`
	Location      string `json:"location"`
	Note          string `json:"note"`
}
