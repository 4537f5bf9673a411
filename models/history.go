package models

import (
	"time"

	"github.com/google/uuid"
)

type TransitionSource string

const (
	// Transition applied by this agent through the lifecycle service
	TransitionSource_Local TransitionSource = "local"
	// Status change detected by the polling refresh
	TransitionSource_Poll TransitionSource = "poll"
)

type TransitionRecord struct {
	Id         uuid.UUID
	RequestId  string
	OwnerScope string
	From       RequestStatus
	To         RequestStatus
	Source     TransitionSource
	CreatedAt  time.Time
}
