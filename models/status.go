package models

// The persistence layer speaks a Spanish status vocabulary. Each internal status
// maps 1:1 onto one wire token.
const (
	BackendStatus_Pending   = "pendiente"
	BackendStatus_Accepted  = "aceptado"
	BackendStatus_Completed = "finalizado"
	BackendStatus_Cancelled = "cancelado"
)

var backendTokens = map[RequestStatus]string{
	RequestStatus_Pending:   BackendStatus_Pending,
	RequestStatus_Accepted:  BackendStatus_Accepted,
	RequestStatus_Completed: BackendStatus_Completed,
	RequestStatus_Cancelled: BackendStatus_Cancelled,
}

var internalStatuses = map[string]RequestStatus{
	BackendStatus_Pending:   RequestStatus_Pending,
	BackendStatus_Accepted:  RequestStatus_Accepted,
	BackendStatus_Completed: RequestStatus_Completed,
	BackendStatus_Cancelled: RequestStatus_Cancelled,
}

// ParseRequestStatus maps a wire token to its internal status. The second return
// value is false for unrecognized input, so that callers can log and count the
// occurrence before falling back.
func ParseRequestStatus(backendToken string) (RequestStatus, bool) {
	status, found := internalStatuses[backendToken]
	return status, found
}

// RequestStatusFromBackend is the total variant of ParseRequestStatus: unrecognized
// input yields Pending. Prefer ParseRequestStatus where the fallback can be made
// observable.
func RequestStatusFromBackend(backendToken string) RequestStatus {
	status, _ := ParseRequestStatus(backendToken)
	return status
}

func (s RequestStatus) BackendToken() string {
	return backendTokens[s]
}

func (s RequestStatus) String() string {
	switch s {
	case RequestStatus_Pending:
		return "pending"
	case RequestStatus_Accepted:
		return "accepted"
	case RequestStatus_Completed:
		return "completed"
	case RequestStatus_Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether a status permits no outgoing transitions.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatus_Completed || s == RequestStatus_Cancelled
}

type StatusPresentation struct {
	Label      string
	ColorToken string
	IconKind   string
}

var presentations = map[RequestStatus]StatusPresentation{
	RequestStatus_Pending:   {Label: "Pending", ColorToken: "warning", IconKind: "clock"},
	RequestStatus_Accepted:  {Label: "Accepted", ColorToken: "info", IconKind: "handshake"},
	RequestStatus_Completed: {Label: "Completed", ColorToken: "success", IconKind: "check"},
	RequestStatus_Cancelled: {Label: "Cancelled", ColorToken: "danger", IconKind: "cross"},
}

// PresentationFor is total over the status enum.
func PresentationFor(status RequestStatus) StatusPresentation {
	return presentations[status]
}
