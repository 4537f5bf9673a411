package services

import (
	"fmt"
	"strings"

	"github.com/servimatch/go-servi/models"
)

// Prefilled coordination texts handed to the messaging side-channel. Composition
// lives here; transport is the Notifier's problem.

func ComposeAcceptedNote(request models.ServiceRequest) string {
	note := fmt.Sprintf("Request %s (%s) was accepted.", request.Id, request.Category)
	if len(request.Location) > 0 {
		note += fmt.Sprintf(" Location: %s.", request.Location)
	}
	return note + " Reply here to coordinate a time."
}

func ComposeProposalSummary(request models.ServiceRequest, appt models.Appointment) string {
	parts := []string{
		fmt.Sprintf("Proposed appointment for request %s (%s): %s at %s, ~%dh.",
			request.Id, request.Category, appt.Date, appt.Time, appt.DurationHours),
	}
	if len(appt.Location) > 0 {
		parts = append(parts, fmt.Sprintf("Location: %s.", appt.Location))
	}
	if len(appt.Note) > 0 {
		parts = append(parts, fmt.Sprintf("Note: %s.", appt.Note))
	}
	return strings.Join(parts, " ")
}

func ComposeCompletedNote(request models.ServiceRequest) string {
	return fmt.Sprintf("Job for request %s (%s) was marked finished. The client can now rate the work.",
		request.Id, request.Category)
}
