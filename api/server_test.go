package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abevier/tsk/futures"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator"

	"github.com/servimatch/go-servi/common/loggers"
	"github.com/servimatch/go-servi/models"
	"github.com/servimatch/go-servi/services"
)

type fakeLifecycle struct {
	calls      []string
	err        error
	transition func(requestId string, status models.RequestStatus)
}

func (f *fakeLifecycle) Accept(_ context.Context, ownerScope string, requestId string) error {
	f.calls = append(f.calls, "accept:"+ownerScope+":"+requestId)
	if f.err == nil && f.transition != nil {
		f.transition(requestId, models.RequestStatus_Accepted)
	}
	return f.err
}

func (f *fakeLifecycle) Reject(_ context.Context, ownerScope string, requestId string) error {
	f.calls = append(f.calls, "reject:"+ownerScope+":"+requestId)
	return f.err
}

func (f *fakeLifecycle) Complete(_ context.Context, ownerScope string, requestId string) error {
	f.calls = append(f.calls, "complete:"+ownerScope+":"+requestId)
	return f.err
}

func (f *fakeLifecycle) Schedule(_ context.Context, requestId string, appt models.Appointment) (string, error) {
	f.calls = append(f.calls, "schedule:"+requestId)
	if f.err != nil {
		return "", f.err
	}
	return "proposal for " + requestId, nil
}

func (f *fakeLifecycle) Rate(_ context.Context, ownerScope string, requestId string, stars int, review string, photoPaths []string) error {
	f.calls = append(f.calls, "rate:"+ownerScope+":"+requestId)
	return f.err
}

func (f *fakeLifecycle) InFlight(string) (*futures.Future[models.RequestStatus], bool) {
	return nil, false
}

type fakeSessionRepo struct {
	sessions map[string]*models.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*models.Session)}
}

func (f *fakeSessionRepo) Save(_ context.Context, session *models.Session) error {
	f.sessions[session.Id] = session
	return nil
}

func (f *fakeSessionRepo) Get(_ context.Context, sessionId string) (*models.Session, error) {
	return f.sessions[sessionId], nil
}

func (f *fakeSessionRepo) Delete(_ context.Context, sessionId string) error {
	delete(f.sessions, sessionId)
	return nil
}

type fakeHistoryRepo struct {
	records []*models.TransitionRecord
}

func (f *fakeHistoryRepo) RecordTransition(_ context.Context, record *models.TransitionRecord) error {
	f.records = append(f.records, record)
	return nil
}

func (f *fakeHistoryRepo) GetTransitions(context.Context, string, int) ([]*models.TransitionRecord, error) {
	return f.records, nil
}

func (f *fakeHistoryRepo) GetScopeTransitions(context.Context, string, int) ([]*models.TransitionRecord, error) {
	return f.records, nil
}

type apiFixture struct {
	lifecycle *fakeLifecycle
	cache     *services.RequestCache
	sessions  *fakeSessionRepo
	router    *gin.Engine
}

func newApiFixture(requests ...*models.ServiceRequest) *apiFixture {
	f := &apiFixture{
		lifecycle: &fakeLifecycle{},
		cache:     services.NewRequestCache(),
		sessions:  newFakeSessionRepo(),
	}
	f.cache.Replace("prov-1", requests)
	f.lifecycle.transition = func(requestId string, status models.RequestStatus) {
		f.cache.Update(requestId, func(request *models.ServiceRequest) {
			request.Status = status
		})
	}
	server := NewServer(f.lifecycle, f.cache, f.sessions, &fakeHistoryRepo{}, loggers.NewTestLogger())
	f.router = server.router()
	return f
}

func (f *apiFixture) startSession(role models.SessionRole) string {
	session := &models.Session{Id: "sess-" + string(role), UserId: "u1", Role: role}
	f.sessions.sessions[session.Id] = session
	return session.Id
}

func (f *apiFixture) do(method, path, sessionId string, body any) *httptest.ResponseRecorder {
	var reqBody bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&reqBody).Encode(body)
	}
	req := httptest.NewRequest(method, path, &reqBody)
	if len(sessionId) > 0 {
		req.Header.Set(sessionHeader, sessionId)
	}
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res
}

func TestSessionLifecycle(t *testing.T) {
	f := newApiFixture()

	res := f.do(http.MethodPost, "/api/v1/session", "", gin.H{"userId": "u1", "role": "provider", "displayName": "Ana"})
	if res.Code != http.StatusCreated {
		t.Fatalf("incorrect status code: found=%d, expected=201", res.Code)
	}
	var session models.Session
	if err := json.Unmarshal(res.Body.Bytes(), &session); err != nil {
		t.Fatalf("unexpected error received %v", err)
	}
	if len(session.Id) == 0 || session.Role != models.SessionRole_Provider {
		t.Errorf("incorrect session: %+v", session)
	}

	res = f.do(http.MethodGet, "/api/v1/scopes/prov-1/requests", session.Id, nil)
	if res.Code != http.StatusOK {
		t.Errorf("authenticated list rejected: found=%d", res.Code)
	}

	res = f.do(http.MethodDelete, "/api/v1/session", session.Id, nil)
	if res.Code != http.StatusNoContent {
		t.Errorf("incorrect status code: found=%d, expected=204", res.Code)
	}
	res = f.do(http.MethodGet, "/api/v1/scopes/prov-1/requests", session.Id, nil)
	if res.Code != http.StatusUnauthorized {
		t.Errorf("deleted session still accepted: found=%d", res.Code)
	}
}

func TestRequestsRequireSession(t *testing.T) {
	f := newApiFixture()
	if res := f.do(http.MethodGet, "/api/v1/scopes/prov-1/requests", "", nil); res.Code != http.StatusUnauthorized {
		t.Errorf("incorrect status code: found=%d, expected=401", res.Code)
	}
	if res := f.do(http.MethodGet, "/api/v1/scopes/prov-1/requests", "bogus", nil); res.Code != http.StatusUnauthorized {
		t.Errorf("incorrect status code: found=%d, expected=401", res.Code)
	}
}

func TestListRequestsIncludesPresentation(t *testing.T) {
	f := newApiFixture(&models.ServiceRequest{Id: "r1", Status: models.RequestStatus_Pending, Category: "plumbing"})
	sessionId := f.startSession(models.SessionRole_Provider)

	res := f.do(http.MethodGet, "/api/v1/scopes/prov-1/requests", sessionId, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("incorrect status code: found=%d, expected=200", res.Code)
	}
	var views []map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &views); err != nil {
		t.Fatalf("unexpected error received %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("incorrect number of requests: found=%d, expected=1", len(views))
	}
	if views[0]["status"] != "pending" || views[0]["colorToken"] != "warning" || views[0]["iconKind"] != "clock" {
		t.Errorf("incorrect presentation: %+v", views[0])
	}
}

func TestAcceptDispatch(t *testing.T) {
	f := newApiFixture(&models.ServiceRequest{Id: "r1", Status: models.RequestStatus_Pending})
	sessionId := f.startSession(models.SessionRole_Provider)

	res := f.do(http.MethodPost, "/api/v1/scopes/prov-1/requests/r1/accept", sessionId, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("incorrect status code: found=%d, expected=200", res.Code)
	}
	if len(f.lifecycle.calls) != 1 || f.lifecycle.calls[0] != "accept:prov-1:r1" {
		t.Errorf("incorrect dispatch: %v", f.lifecycle.calls)
	}
	var view map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &view); err != nil {
		t.Fatalf("unexpected error received %v", err)
	}
	if view["status"] != "accepted" {
		t.Errorf("incorrect status in response: %v", view["status"])
	}
}

func TestRoleGating(t *testing.T) {
	tests := map[string]struct {
		role         models.SessionRole
		method       string
		path         string
		body         any
		expectedCode int
	}{
		"client cannot accept": {
			role:         models.SessionRole_Client,
			method:       http.MethodPost,
			path:         "/api/v1/scopes/prov-1/requests/r1/accept",
			expectedCode: http.StatusForbidden,
		},
		"provider cannot rate": {
			role:         models.SessionRole_Provider,
			method:       http.MethodPost,
			path:         "/api/v1/scopes/client-1/requests/r1/rating",
			body:         gin.H{"stars": 5},
			expectedCode: http.StatusForbidden,
		},
		"admin can accept": {
			role:         models.SessionRole_Admin,
			method:       http.MethodPost,
			path:         "/api/v1/scopes/prov-1/requests/r1/accept",
			expectedCode: http.StatusOK,
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			f := newApiFixture(&models.ServiceRequest{Id: "r1", Status: models.RequestStatus_Pending})
			sessionId := f.startSession(test.role)
			res := f.do(test.method, test.path, sessionId, test.body)
			if res.Code != test.expectedCode {
				t.Errorf("incorrect status code: found=%d, expected=%d", res.Code, test.expectedCode)
			}
		})
	}
}

func TestErrorMapping(t *testing.T) {
	validationErr := validator.New().Struct(struct {
		Stars int `validate:"gte=1,lte=5"`
	}{Stars: 0})
	tests := map[string]struct {
		err          error
		expectedCode int
	}{
		"unknown request":      {err: models.ErrRequestNotFound, expectedCode: http.StatusNotFound},
		"mutation in flight":   {err: models.ErrTransitionInFlight, expectedCode: http.StatusConflict},
		"already rated":        {err: models.ErrAlreadyRated, expectedCode: http.StatusConflict},
		"illegal transition":   {err: &models.TransitionError{RequestId: "r1", Op: "accept"}, expectedCode: http.StatusUnprocessableEntity},
		"backend timed out":    {err: models.ErrBackendTimeout, expectedCode: http.StatusGatewayTimeout},
		"backend rejected":     {err: &models.BackendRejectedError{Op: "accept", StatusCode: 500}, expectedCode: http.StatusBadGateway},
		"backend unreachable":  {err: errors.New("connection refused"), expectedCode: http.StatusBadGateway},
		"invalid rating input": {err: fmt.Errorf("rate: invalid rating: %w", validationErr), expectedCode: http.StatusBadRequest},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			f := newApiFixture(&models.ServiceRequest{Id: "r1", Status: models.RequestStatus_Pending})
			f.lifecycle.err = test.err
			sessionId := f.startSession(models.SessionRole_Provider)
			res := f.do(http.MethodPost, "/api/v1/scopes/prov-1/requests/r1/accept", sessionId, nil)
			if res.Code != test.expectedCode {
				t.Errorf("incorrect status code: found=%d, expected=%d", res.Code, test.expectedCode)
			}
		})
	}
}

func TestScheduleReturnsSummary(t *testing.T) {
	f := newApiFixture(&models.ServiceRequest{Id: "r1", Status: models.RequestStatus_Accepted})
	sessionId := f.startSession(models.SessionRole_Provider)

	res := f.do(http.MethodPut, "/api/v1/scopes/prov-1/requests/r1/appointment", sessionId, gin.H{
		"date":          "2025-02-10",
		"time":          "14:00",
		"durationHours": 2,
	})
	if res.Code != http.StatusOK {
		t.Fatalf("incorrect status code: found=%d, expected=200", res.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error received %v", err)
	}
	if body["summary"] != "proposal for r1" {
		t.Errorf("incorrect summary: %s", body["summary"])
	}
}
