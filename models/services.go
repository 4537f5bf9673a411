package models

import (
	"context"

	"github.com/google/uuid"
)

// RequestBackend is the persistence boundary. The remote REST service owns the
// requests; implementations translate between the internal status enum and the
// backend's wire vocabulary.
type RequestBackend interface {
	ListRequests(ctx context.Context, ownerScope string) ([]*ServiceRequest, error)
	UpdateStatus(ctx context.Context, ownerScope string, requestId string, status RequestStatus, key uuid.UUID) error
	SetAppointment(ctx context.Context, requestId string, appt Appointment) error
	SubmitRating(ctx context.Context, ownerScope string, requestId string, rating Rating) error
}

type SessionRepository interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, sessionId string) (*Session, error)
	Delete(ctx context.Context, sessionId string) error
}

type HistoryRepository interface {
	RecordTransition(ctx context.Context, record *TransitionRecord) error
	GetTransitions(ctx context.Context, requestId string, limit int) ([]*TransitionRecord, error)
	GetScopeTransitions(ctx context.Context, ownerScope string, limit int) ([]*TransitionRecord, error)
}

type PhotoStore interface {
	Upload(ctx context.Context, localPath string, folder string) (string, error)
}

type Notifier interface {
	SendAlert(title, desc, content string) error
	SendUpdate(title, content string) error
}

type ResourceMonitor interface {
	GetValue(ctx context.Context) (int, error)
}

type MetricService interface {
	Count(ctx context.Context, name MetricName, val int) error
	Gauge(ctx context.Context, name MetricName, monitor ResourceMonitor) error
	Distribution(ctx context.Context, name MetricName, val int) error
	Shutdown(ctx context.Context)
}

type Logger interface {
	Debugf(template string, args ...interface{})
	Debugw(msg string, args ...interface{})
	Errorf(template string, args ...interface{})
	Fatalf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Infoln(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, args ...interface{})
	Sync() error
}
