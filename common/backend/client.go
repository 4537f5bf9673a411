package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/abevier/tsk/ratelimiter"
	"github.com/google/uuid"

	servi "github.com/servimatch/go-servi"
	"github.com/servimatch/go-servi/models"
)

// Client talks to the marketplace REST backend. All calls are paced through a rate
// limiter and bounded by a per-call timeout. The backend is the sole authority on
// request state; this client only translates between the internal status enum and
// the wire vocabulary.
type Client struct {
	url           string
	timeout       time.Duration
	limiter       *ratelimiter.RateLimiter[*apiCall, []byte]
	logger        models.Logger
	metricService models.MetricService
}

type apiCall struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
}

func NewClient(baseUrl string, logger models.Logger, metricService models.MetricService) *Client {
	timeout := models.DefaultBackendTimeout
	if configTimeout, found := os.LookupEnv(servi.Env_BackendTimeout); found {
		if parsedTimeout, err := time.ParseDuration(configTimeout); err == nil {
			timeout = parsedTimeout
		}
	}
	client := &Client{
		url:           baseUrl,
		timeout:       timeout,
		logger:        logger,
		metricService: metricService,
	}
	rlOpts := ratelimiter.Opts{
		Limit:             models.DefaultBackendRateLimit,
		Burst:             models.DefaultBackendRateLimit,
		MaxQueueDepth:     models.DefaultBackendQueueDepthLimit,
		FullQueueStrategy: ratelimiter.BlockWhenFull,
	}
	client.limiter = ratelimiter.New(rlOpts, func(ctx context.Context, call *apiCall) ([]byte, error) {
		return client.doCall(ctx, call)
	})
	return client
}

// wireRequest is the backend's representation of a service request. The status
// field carries the Spanish wire token.
type wireRequest struct {
	Id          string         `json:"id"`
	ClientId    string         `json:"clientId"`
	ProviderId  string         `json:"providerId"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Price       string         `json:"price"`
	Date        string         `json:"date"`
	Time        string         `json:"time"`
	Location    string         `json:"location"`
	Urgent      bool           `json:"urgent"`
	Status      string         `json:"status"`
	Rating      *models.Rating `json:"rating,omitempty"`
	Photos      []string       `json:"photos,omitempty"`
}

func (c *Client) ListRequests(ctx context.Context, ownerScope string) ([]*models.ServiceRequest, error) {
	respBody, err := c.limiter.Submit(ctx, &apiCall{
		op:     "listRequests",
		method: http.MethodGet,
		path:   "/api/v1/requests",
		query:  url.Values{"scope": []string{ownerScope}},
	})
	if err != nil {
		return nil, err
	}
	var wireReqs []wireRequest
	if err = json.Unmarshal(respBody, &wireReqs); err != nil {
		c.logger.Errorf("listRequests: error unmarshaling response: %v", err)
		return nil, err
	}
	requests := make([]*models.ServiceRequest, len(wireReqs))
	for idx, wireReq := range wireReqs {
		status, found := models.ParseRequestStatus(wireReq.Status)
		if !found {
			// The source silently defaulted unknown tokens to pending, which can
			// mask data-integrity bugs. Keep the fallback but make it observable.
			c.logger.Warnw("listRequests: unknown status token, defaulting to pending",
				"token", wireReq.Status,
				"requestId", wireReq.Id,
			)
			c.metricService.Count(ctx, models.MetricName_StatusFallback, 1)
		}
		requests[idx] = &models.ServiceRequest{
			Id:          wireReq.Id,
			ClientId:    wireReq.ClientId,
			ProviderId:  wireReq.ProviderId,
			Description: wireReq.Description,
			Category:    wireReq.Category,
			Price:       wireReq.Price,
			Date:        wireReq.Date,
			Time:        wireReq.Time,
			Location:    wireReq.Location,
			Urgent:      wireReq.Urgent,
			Status:      status,
			Rating:      wireReq.Rating,
			Photos:      wireReq.Photos,
			UpdatedAt:   time.Now(),
		}
	}
	return requests, nil
}

func (c *Client) UpdateStatus(ctx context.Context, ownerScope string, requestId string, status models.RequestStatus, key uuid.UUID) error {
	_, err := c.limiter.Submit(ctx, &apiCall{
		op:     "updateStatus",
		method: http.MethodPatch,
		path:   fmt.Sprintf("/api/v1/%s/requests/%s/status", ownerScope, requestId),
		body: map[string]string{
			"status":         status.BackendToken(),
			"idempotencyKey": key.String(),
		},
	})
	return err
}

func (c *Client) SetAppointment(ctx context.Context, requestId string, appt models.Appointment) error {
	_, err := c.limiter.Submit(ctx, &apiCall{
		op:     "setAppointment",
		method: http.MethodPut,
		path:   fmt.Sprintf("/api/v1/requests/%s/appointment", requestId),
		body:   appt,
	})
	return err
}

func (c *Client) SubmitRating(ctx context.Context, ownerScope string, requestId string, rating models.Rating) error {
	_, err := c.limiter.Submit(ctx, &apiCall{
		op:     "submitRating",
		method: http.MethodPost,
		path:   fmt.Sprintf("/api/v1/%s/requests/%s/rating", ownerScope, requestId),
		body:   rating,
	})
	return err
}

func (c *Client) doCall(ctx context.Context, call *apiCall) ([]byte, error) {
	callCtx, callCancel := context.WithTimeout(ctx, c.timeout)
	defer callCancel()

	var reqBody io.Reader
	if call.body != nil {
		marshaled, err := json.Marshal(call.body)
		if err != nil {
			c.logger.Errorf("%s: error creating request json: %v", call.op, err)
			return nil, err
		}
		reqBody = bytes.NewBuffer(marshaled)
	}
	callUrl := c.url + call.path
	if len(call.query) > 0 {
		callUrl += "?" + call.query.Encode()
	}
	req, err := http.NewRequestWithContext(callCtx, call.method, callUrl, reqBody)
	if err != nil {
		c.logger.Errorf("%s: error creating request: %v", call.op, err)
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")
	callStart := time.Now()
	resp, err := http.DefaultClient.Do(req)
	c.metricService.Distribution(ctx, models.MetricName_BackendCallTime, int(time.Since(callStart).Milliseconds()))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Errorf("%s: request timed out after %s", call.op, c.timeout)
			return nil, fmt.Errorf("%s: %w", call.op, models.ErrBackendTimeout)
		}
		c.logger.Errorf("%s: error submitting request: %v", call.op, err)
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Errorf("%s: error reading response: %v", call.op, err)
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Errorf("%s: error in response: %v, %s", call.op, resp.StatusCode, respBody)
		return nil, &models.BackendRejectedError{Op: call.op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}
