package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/servimatch/go-servi/models"
)

type statusUpdate struct {
	ownerScope string
	requestId  string
	status     models.RequestStatus
	key        uuid.UUID
}

type MockRequestBackend struct {
	lock             sync.Mutex
	requestsByScope  map[string][]*models.ServiceRequest
	statusUpdates    []statusUpdate
	appointments     map[string]models.Appointment
	ratings          map[string]models.Rating
	shouldFailUpdate bool
	shouldFailList   bool
	blockUpdates     chan struct{}
	updateEntered    chan struct{}
	listCalls        int
	blockList        chan struct{}
}

func NewMockRequestBackend() *MockRequestBackend {
	return &MockRequestBackend{
		requestsByScope: make(map[string][]*models.ServiceRequest),
		appointments:    make(map[string]models.Appointment),
		ratings:         make(map[string]models.Rating),
	}
}

func (m *MockRequestBackend) ListRequests(_ context.Context, ownerScope string) ([]*models.ServiceRequest, error) {
	m.lock.Lock()
	m.listCalls++
	blockList := m.blockList
	m.lock.Unlock()
	if blockList != nil {
		<-blockList
	}
	if m.shouldFailList {
		return nil, errors.New("TestError")
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	requests := make([]*models.ServiceRequest, len(m.requestsByScope[ownerScope]))
	for idx, request := range m.requestsByScope[ownerScope] {
		reqCopy := *request
		requests[idx] = &reqCopy
	}
	return requests, nil
}

func (m *MockRequestBackend) UpdateStatus(_ context.Context, ownerScope string, requestId string, status models.RequestStatus, key uuid.UUID) error {
	m.lock.Lock()
	if m.updateEntered != nil {
		close(m.updateEntered)
		m.updateEntered = nil
	}
	blockUpdates := m.blockUpdates
	m.lock.Unlock()
	if blockUpdates != nil {
		<-blockUpdates
	}
	if m.shouldFailUpdate {
		return errors.New("TestError")
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.statusUpdates = append(m.statusUpdates, statusUpdate{ownerScope, requestId, status, key})
	return nil
}

func (m *MockRequestBackend) SetAppointment(_ context.Context, requestId string, appt models.Appointment) error {
	if m.shouldFailUpdate {
		return errors.New("TestError")
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.appointments[requestId] = appt
	return nil
}

func (m *MockRequestBackend) SubmitRating(_ context.Context, ownerScope string, requestId string, rating models.Rating) error {
	if m.shouldFailUpdate {
		return errors.New("TestError")
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ratings[requestId] = rating
	return nil
}

func (m *MockRequestBackend) getStatusUpdates() []statusUpdate {
	m.lock.Lock()
	defer m.lock.Unlock()
	updates := make([]statusUpdate, len(m.statusUpdates))
	copy(updates, m.statusUpdates)
	return updates
}

func (m *MockRequestBackend) getListCalls() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.listCalls
}

type MockHistoryRepository struct {
	lock       sync.Mutex
	records    []*models.TransitionRecord
	shouldFail bool
}

func (m *MockHistoryRepository) RecordTransition(_ context.Context, record *models.TransitionRecord) error {
	if m.shouldFail {
		return errors.New("TestError")
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *MockHistoryRepository) GetTransitions(_ context.Context, requestId string, limit int) ([]*models.TransitionRecord, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	var records []*models.TransitionRecord
	for _, record := range m.records {
		if record.RequestId == requestId && len(records) < limit {
			records = append(records, record)
		}
	}
	return records, nil
}

func (m *MockHistoryRepository) GetScopeTransitions(_ context.Context, ownerScope string, limit int) ([]*models.TransitionRecord, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	var records []*models.TransitionRecord
	for _, record := range m.records {
		if record.OwnerScope == ownerScope && len(records) < limit {
			records = append(records, record)
		}
	}
	return records, nil
}

func (m *MockHistoryRepository) getRecords() []*models.TransitionRecord {
	m.lock.Lock()
	defer m.lock.Unlock()
	records := make([]*models.TransitionRecord, len(m.records))
	copy(records, m.records)
	return records
}

type MockNotifier struct {
	lock       sync.Mutex
	alerts     []string
	updates    []string
	shouldFail bool
}

func (m *MockNotifier) SendAlert(title, desc, content string) error {
	if m.shouldFail {
		return errors.New("TestError")
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.alerts = append(m.alerts, title+": "+desc+": "+content)
	return nil
}

func (m *MockNotifier) SendUpdate(title, content string) error {
	if m.shouldFail {
		return errors.New("TestError")
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.updates = append(m.updates, title+": "+content)
	return nil
}

func (m *MockNotifier) getUpdates() []string {
	m.lock.Lock()
	defer m.lock.Unlock()
	updates := make([]string, len(m.updates))
	copy(updates, m.updates)
	return updates
}

type MockPhotoStore struct {
	lock       sync.Mutex
	uploads    []string
	shouldFail bool
}

func (m *MockPhotoStore) Upload(_ context.Context, localPath string, folder string) (string, error) {
	if m.shouldFail {
		return "", errors.New("TestError")
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.uploads = append(m.uploads, localPath)
	return "https://cdn.test/" + folder + "/" + localPath, nil
}

type MockMetricService struct {
	lock   sync.Mutex
	counts map[models.MetricName]int
}

func NewMockMetricService() *MockMetricService {
	return &MockMetricService{counts: make(map[models.MetricName]int)}
}

func (m *MockMetricService) Count(_ context.Context, name models.MetricName, val int) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.counts[name] += val
	return nil
}

func (m *MockMetricService) Gauge(context.Context, models.MetricName, models.ResourceMonitor) error {
	return nil
}

func (m *MockMetricService) Distribution(context.Context, models.MetricName, int) error {
	return nil
}

func (m *MockMetricService) Shutdown(context.Context) {}

func (m *MockMetricService) getCount(name models.MetricName) int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.counts[name]
}
