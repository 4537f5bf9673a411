package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/servimatch/go-servi/models"
)

// RequestCache is the transient local copy of the backend's request lists, one
// collection per owner scope. The polling refresh replaces a scope's collection
// wholesale; the lifecycle service applies optimistic updates in place and reverts
// them when the backend disagrees.
type RequestCache struct {
	lock            sync.RWMutex
	requestsByScope map[string][]*models.ServiceRequest
	scopeByRequest  map[string]string
}

func NewRequestCache() *RequestCache {
	return &RequestCache{
		requestsByScope: make(map[string][]*models.ServiceRequest),
		scopeByRequest:  make(map[string]string),
	}
}

// Replace swaps in a freshly fetched collection for a scope and reports status
// changes relative to the previous copy. It never partial-merges.
func (c *RequestCache) Replace(ownerScope string, requests []*models.ServiceRequest) []*models.TransitionRecord {
	c.lock.Lock()
	defer c.lock.Unlock()

	prevStatuses := make(map[string]models.RequestStatus)
	for _, prev := range c.requestsByScope[ownerScope] {
		prevStatuses[prev.Id] = prev.Status
		delete(c.scopeByRequest, prev.Id)
	}
	var changes []*models.TransitionRecord
	for _, request := range requests {
		c.scopeByRequest[request.Id] = ownerScope
		if prevStatus, found := prevStatuses[request.Id]; found && prevStatus != request.Status {
			changes = append(changes, &models.TransitionRecord{
				Id:         uuid.New(),
				RequestId:  request.Id,
				OwnerScope: ownerScope,
				From:       prevStatus,
				To:         request.Status,
				Source:     models.TransitionSource_Poll,
				CreatedAt:  time.Now(),
			})
		}
	}
	c.requestsByScope[ownerScope] = requests
	return changes
}

// Get returns a copy so callers never alias cached state.
func (c *RequestCache) Get(requestId string) (models.ServiceRequest, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if request := c.find(requestId); request != nil {
		return *request, true
	}
	return models.ServiceRequest{}, false
}

func (c *RequestCache) List(ownerScope string) []models.ServiceRequest {
	c.lock.RLock()
	defer c.lock.RUnlock()
	requests := make([]models.ServiceRequest, len(c.requestsByScope[ownerScope]))
	for idx, request := range c.requestsByScope[ownerScope] {
		requests[idx] = *request
	}
	return requests
}

// Update applies a mutation to the cached request under the write lock. Returns
// false if the request is not cached.
func (c *RequestCache) Update(requestId string, apply func(*models.ServiceRequest)) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	request := c.find(requestId)
	if request == nil {
		return false
	}
	apply(request)
	request.UpdatedAt = time.Now()
	return true
}

func (c *RequestCache) Scope(requestId string) (string, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	scope, found := c.scopeByRequest[requestId]
	return scope, found
}

func (c *RequestCache) find(requestId string) *models.ServiceRequest {
	if scope, found := c.scopeByRequest[requestId]; found {
		for _, request := range c.requestsByScope[scope] {
			if request.Id == requestId {
				return request
			}
		}
	}
	return nil
}

// PendingMonitor exposes the number of cached pending requests across all scopes,
// suitable for a metrics gauge.
func (c *RequestCache) PendingMonitor() models.ResourceMonitor {
	return &pendingMonitor{cache: c}
}

type pendingMonitor struct {
	cache *RequestCache
}

func (m *pendingMonitor) GetValue(context.Context) (int, error) {
	m.cache.lock.RLock()
	defer m.cache.lock.RUnlock()
	count := 0
	for _, requests := range m.cache.requestsByScope {
		for _, request := range requests {
			if request.Status == models.RequestStatus_Pending {
				count++
			}
		}
	}
	return count, nil
}
