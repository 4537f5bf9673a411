package services

import (
	"context"
	"testing"
	"time"

	servi "github.com/servimatch/go-servi"
	"github.com/servimatch/go-servi/common/loggers"
	"github.com/servimatch/go-servi/models"
)

func waitForCount(t *testing.T, metrics *MockMetricService, name models.MetricName, expected int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if metrics.getCount(name) >= expected {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s to reach %d, found=%d", name, expected, metrics.getCount(name))
}

func TestPollerReplacesAndArchivesChanges(t *testing.T) {
	t.Setenv(servi.Env_PollTick, "10ms")

	backend := NewMockRequestBackend()
	backend.requestsByScope[testScope] = []*models.ServiceRequest{
		{Id: "r1", Status: models.RequestStatus_Accepted},
		{Id: "r2", Status: models.RequestStatus_Pending},
	}
	cache := NewRequestCache()
	cache.Replace(testScope, []*models.ServiceRequest{
		{Id: "r1", Status: models.RequestStatus_Pending},
		{Id: "r2", Status: models.RequestStatus_Pending},
		{Id: "r3", Status: models.RequestStatus_Pending},
	})
	history := &MockHistoryRepository{}
	metrics := NewMockMetricService()
	poller := NewRefreshPoller(testScope, backend, cache, history, metrics, loggers.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	waitForCount(t, metrics, models.MetricName_TransitionDetected, 1)
	cancel()

	requests := cache.List(testScope)
	if len(requests) != 2 {
		t.Fatalf("replacement was not wholesale: found=%d requests, expected=2", len(requests))
	}
	request, found := cache.Get("r1")
	if !found || request.Status != models.RequestStatus_Accepted {
		t.Errorf("incorrect status after refresh: %+v", request)
	}
	if _, found = cache.Get("r3"); found {
		t.Errorf("request absent from backend should have been dropped")
	}
	records := history.getRecords()
	if len(records) != 1 {
		t.Fatalf("incorrect number of archived changes: found=%d, expected=1", len(records))
	}
	if records[0].RequestId != "r1" || records[0].Source != models.TransitionSource_Poll {
		t.Errorf("incorrect archived change: %+v", records[0])
	}
}

func TestPollerSkipsTicksWhileFetching(t *testing.T) {
	t.Setenv(servi.Env_PollTick, "10ms")

	backend := NewMockRequestBackend()
	backend.blockList = make(chan struct{})
	metrics := NewMockMetricService()
	poller := NewRefreshPoller(testScope, backend, NewRequestCache(), &MockHistoryRepository{}, metrics, loggers.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	// The first fetch blocks, so subsequent ticks must be skipped instead of
	// piling up behind it.
	waitForCount(t, metrics, models.MetricName_PollTickSkipped, 3)
	if listCalls := backend.getListCalls(); listCalls != 1 {
		t.Errorf("overlapping fetches: found=%d, expected=1", listCalls)
	}
	close(backend.blockList)
	cancel()
}

func TestPollerDiscardsStaleResult(t *testing.T) {
	t.Setenv(servi.Env_PollTick, "10ms")

	backend := NewMockRequestBackend()
	backend.requestsByScope[testScope] = []*models.ServiceRequest{
		{Id: "r1", Status: models.RequestStatus_Accepted},
	}
	backend.blockList = make(chan struct{})
	cache := NewRequestCache()
	metrics := NewMockMetricService()
	poller := NewRefreshPoller(testScope, backend, cache, &MockHistoryRepository{}, metrics, loggers.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go poller.Run(ctx)

	waitForCount(t, metrics, models.MetricName_PollTick, 1)
	// Tear down while the fetch is still in flight, then release it.
	cancel()
	close(backend.blockList)

	waitForCount(t, metrics, models.MetricName_PollStaleDiscarded, 1)
	if requests := cache.List(testScope); len(requests) != 0 {
		t.Errorf("stale result applied to cache: %+v", requests)
	}
}

func TestPollerFailedFetchKeepsCache(t *testing.T) {
	t.Setenv(servi.Env_PollTick, "10ms")

	backend := NewMockRequestBackend()
	backend.shouldFailList = true
	cache := NewRequestCache()
	cache.Replace(testScope, []*models.ServiceRequest{
		{Id: "r1", Status: models.RequestStatus_Pending},
	})
	metrics := NewMockMetricService()
	poller := NewRefreshPoller(testScope, backend, cache, &MockHistoryRepository{}, metrics, loggers.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	waitForCount(t, metrics, models.MetricName_PollTick, 2)
	cancel()

	if requests := cache.List(testScope); len(requests) != 1 {
		t.Errorf("failed fetch should leave the cache untouched: %+v", requests)
	}
}

func TestPollerTickOverride(t *testing.T) {
	t.Setenv(servi.Env_PollTick, "250ms")
	poller := NewRefreshPoller(testScope, NewMockRequestBackend(), NewRequestCache(), &MockHistoryRepository{}, NewMockMetricService(), loggers.NewTestLogger())
	if poller.tick != 250*time.Millisecond {
		t.Errorf("incorrect tick: found=%s, expected=250ms", poller.tick)
	}
}
