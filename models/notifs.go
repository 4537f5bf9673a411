package models

const AlertTitle = "Servi Agent Alert"

const AlertDesc_Rollback = "Transition Rolled Back"

const AlertFmt_Rollback = "Request %s reverted to %s after failed %s: %v"

const (
	NoteTitle_Accepted  = "Request Accepted"
	NoteTitle_Proposal  = "Appointment Proposed"
	NoteTitle_Completed = "Job Finished"
)
