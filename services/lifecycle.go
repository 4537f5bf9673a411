package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abevier/tsk/futures"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/servimatch/go-servi/models"
)

const reviewPhotoFolder = "reviews"

// LifecycleService owns the request state machine: which transitions are legal from
// a given status, and what each legal transition does. Every mutation follows the
// same policy: apply the optimistic local update, call the backend, and revert the
// local update with a user-visible error if the backend call fails.
//
// Mutations on the same request id are serialized: the backend is the authority on
// current status, and overlapping writes for one id are a lost-update race. A
// duplicate submission while one is in flight is rejected, never sent.
type LifecycleService struct {
	backend       models.RequestBackend
	cache         *RequestCache
	history       models.HistoryRepository
	notifier      models.Notifier
	photoStore    models.PhotoStore
	metricService models.MetricService
	logger        models.Logger
	validator     *validator.Validate
	inFlight      map[string]*futures.Future[models.RequestStatus]
	lock          sync.Mutex
}

func NewLifecycleService(
	backend models.RequestBackend,
	cache *RequestCache,
	history models.HistoryRepository,
	notifier models.Notifier,
	photoStore models.PhotoStore,
	metricService models.MetricService,
	logger models.Logger,
) *LifecycleService {
	return &LifecycleService{
		backend:       backend,
		cache:         cache,
		history:       history,
		notifier:      notifier,
		photoStore:    photoStore,
		metricService: metricService,
		logger:        logger,
		validator:     newValidator(),
		inFlight:      make(map[string]*futures.Future[models.RequestStatus]),
	}
}

// The pinned validator has no datetime rule, so the appointment layout tags are
// backed by a registered one. An unknown tag panics inside Struct.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("datetime", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(fl.Param(), fl.Field().String())
		return err == nil
	})
	return v
}

// Accept moves a pending request to accepted and emits a coordination note so the
// parties can agree on a time.
func (s *LifecycleService) Accept(ctx context.Context, ownerScope string, requestId string) error {
	return s.transition(ctx, ownerScope, requestId, "accept", models.RequestStatus_Pending, models.RequestStatus_Accepted,
		func(request models.ServiceRequest) {
			s.sendUpdate(models.NoteTitle_Accepted, ComposeAcceptedNote(request))
		})
}

// Reject moves a pending request to cancelled. No coordination note is sent.
func (s *LifecycleService) Reject(ctx context.Context, ownerScope string, requestId string) error {
	return s.transition(ctx, ownerScope, requestId, "reject", models.RequestStatus_Pending, models.RequestStatus_Cancelled, nil)
}

// Complete moves an accepted request to completed, acknowledges the provider, and
// unlocks rating on the client side.
func (s *LifecycleService) Complete(ctx context.Context, ownerScope string, requestId string) error {
	return s.transition(ctx, ownerScope, requestId, "complete", models.RequestStatus_Accepted, models.RequestStatus_Completed,
		func(request models.ServiceRequest) {
			s.sendUpdate(models.NoteTitle_Completed, ComposeCompletedNote(request))
		})
}

// Schedule attaches an appointment proposal to an accepted request. The status does
// not change. Returns the human-readable proposal summary used to prefill a message
// to the other party.
func (s *LifecycleService) Schedule(ctx context.Context, requestId string, appt models.Appointment) (string, error) {
	future, err := s.begin(ctx, requestId)
	if err != nil {
		return "", err
	}
	prev, found := s.cache.Get(requestId)
	if !found {
		s.finish(requestId, future, 0, models.ErrRequestNotFound)
		return "", models.ErrRequestNotFound
	}
	if prev.Status != models.RequestStatus_Accepted {
		s.metricService.Count(ctx, models.MetricName_TransitionRejected, 1)
		err = &models.TransitionError{RequestId: requestId, From: prev.Status, Op: "schedule"}
		s.finish(requestId, future, prev.Status, err)
		return "", err
	}
	if err = s.validator.Struct(appt); err != nil {
		err = fmt.Errorf("schedule: invalid appointment: %w", err)
		s.finish(requestId, future, prev.Status, err)
		return "", err
	}
	s.cache.Update(requestId, func(request *models.ServiceRequest) {
		request.Date = appt.Date
		request.Time = appt.Time
		if len(appt.Location) > 0 {
			request.Location = appt.Location
		}
		request.LastError = ""
	})
	if err = s.backend.SetAppointment(ctx, requestId, appt); err != nil {
		s.revert(ctx, requestId, prev, "schedule", func(request *models.ServiceRequest) {
			request.Date = prev.Date
			request.Time = prev.Time
			request.Location = prev.Location
		}, err)
		s.finish(requestId, future, prev.Status, err)
		return "", err
	}
	s.metricService.Count(ctx, models.MetricName_TransitionApplied, 1)
	s.finish(requestId, future, prev.Status, nil)
	summary := ComposeProposalSummary(prev, appt)
	s.sendUpdate(models.NoteTitle_Proposal, summary)
	return summary, nil
}

// Rate attaches a client review to a completed request, at most once. Photo
// evidence, if any, is uploaded to the CDN first and the resulting URLs travel
// with the rating. Rating does not change the status.
func (s *LifecycleService) Rate(ctx context.Context, ownerScope string, requestId string, stars int, review string, photoPaths []string) error {
	future, err := s.begin(ctx, requestId)
	if err != nil {
		return err
	}
	prev, found := s.cache.Get(requestId)
	if !found {
		s.finish(requestId, future, 0, models.ErrRequestNotFound)
		return models.ErrRequestNotFound
	}
	if prev.Status != models.RequestStatus_Completed {
		s.metricService.Count(ctx, models.MetricName_TransitionRejected, 1)
		err = &models.TransitionError{RequestId: requestId, From: prev.Status, Op: "rate"}
		s.finish(requestId, future, prev.Status, err)
		return err
	}
	if prev.Rated() {
		s.metricService.Count(ctx, models.MetricName_TransitionRejected, 1)
		s.finish(requestId, future, prev.Status, models.ErrAlreadyRated)
		return models.ErrAlreadyRated
	}
	rating := models.Rating{Stars: stars, Review: review}
	if err = s.validator.Struct(ratingInput{Stars: stars}); err != nil {
		err = fmt.Errorf("rate: invalid rating: %w", err)
		s.finish(requestId, future, prev.Status, err)
		return err
	}
	for _, photoPath := range photoPaths {
		photoUrl, uploadErr := s.photoStore.Upload(ctx, photoPath, reviewPhotoFolder+"/"+requestId)
		if uploadErr != nil {
			s.finish(requestId, future, prev.Status, uploadErr)
			return uploadErr
		}
		s.metricService.Count(ctx, models.MetricName_PhotoUploaded, 1)
		rating.PhotoUrls = append(rating.PhotoUrls, photoUrl)
	}
	s.cache.Update(requestId, func(request *models.ServiceRequest) {
		request.Rating = &rating
		request.LastError = ""
	})
	if err = s.backend.SubmitRating(ctx, ownerScope, requestId, rating); err != nil {
		s.revert(ctx, requestId, prev, "rate", func(request *models.ServiceRequest) {
			request.Rating = prev.Rating
		}, err)
		s.finish(requestId, future, prev.Status, err)
		return err
	}
	s.metricService.Count(ctx, models.MetricName_RatingSubmitted, 1)
	s.finish(requestId, future, prev.Status, nil)
	return nil
}

// InFlight returns the pending mutation for a request id, if any. Callers can wait
// on the future to re-enable the triggering action once the mutation resolves.
func (s *LifecycleService) InFlight(requestId string) (*futures.Future[models.RequestStatus], bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	future, found := s.inFlight[requestId]
	return future, found
}

type ratingInput struct {
	Stars int `validate:"gte=1,lte=5"`
}

func (s *LifecycleService) transition(
	ctx context.Context,
	ownerScope string,
	requestId string,
	op string,
	from models.RequestStatus,
	to models.RequestStatus,
	notify func(models.ServiceRequest),
) error {
	future, err := s.begin(ctx, requestId)
	if err != nil {
		return err
	}
	prev, found := s.cache.Get(requestId)
	if !found {
		s.finish(requestId, future, 0, models.ErrRequestNotFound)
		return models.ErrRequestNotFound
	}
	if prev.Status != from {
		// Screens disable the action based on current status; reaching this point
		// is a programming error, so reject without touching state.
		s.logger.Warnw("lifecycle: illegal transition attempted",
			"op", op,
			"requestId", requestId,
			"status", prev.Status.String(),
		)
		s.metricService.Count(ctx, models.MetricName_TransitionRejected, 1)
		err = &models.TransitionError{RequestId: requestId, From: prev.Status, Op: op}
		s.finish(requestId, future, prev.Status, err)
		return err
	}
	s.cache.Update(requestId, func(request *models.ServiceRequest) {
		request.Status = to
		request.LastError = ""
	})
	if err = s.backend.UpdateStatus(ctx, ownerScope, requestId, to, uuid.New()); err != nil {
		s.revert(ctx, requestId, prev, op, func(request *models.ServiceRequest) {
			request.Status = prev.Status
		}, err)
		s.finish(requestId, future, prev.Status, err)
		return err
	}
	s.metricService.Count(ctx, models.MetricName_TransitionApplied, 1)
	s.recordTransition(ctx, ownerScope, requestId, prev.Status, to)
	s.finish(requestId, future, to, nil)
	if notify != nil {
		notify(prev)
	}
	return nil
}

func (s *LifecycleService) begin(ctx context.Context, requestId string) (*futures.Future[models.RequestStatus], error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, found := s.inFlight[requestId]; found {
		s.metricService.Count(ctx, models.MetricName_TransitionSuppressed, 1)
		return nil, models.ErrTransitionInFlight
	}
	future := futures.New[models.RequestStatus]()
	s.inFlight[requestId] = future
	return future, nil
}

func (s *LifecycleService) finish(requestId string, future *futures.Future[models.RequestStatus], status models.RequestStatus, err error) {
	s.lock.Lock()
	delete(s.inFlight, requestId)
	s.lock.Unlock()
	if err != nil {
		future.Fail(err)
	} else {
		future.Complete(status)
	}
}

// revert undoes the fields the failed operation touched and surfaces the failure
// on the cached entry so the UI can show it inline. Fields a poll refreshed while
// the call was in flight are left alone.
func (s *LifecycleService) revert(ctx context.Context, requestId string, prev models.ServiceRequest, op string, restore func(*models.ServiceRequest), cause error) {
	s.cache.Update(requestId, func(request *models.ServiceRequest) {
		restore(request)
		request.LastError = fmt.Sprintf("%s failed: %v", op, cause)
	})
	s.metricService.Count(ctx, models.MetricName_TransitionReverted, 1)
	s.logger.Errorf("lifecycle: %s failed for request %s, reverted to %s: %v", op, requestId, prev.Status, cause)
	if err := s.notifier.SendAlert(
		models.AlertTitle,
		models.AlertDesc_Rollback,
		fmt.Sprintf(models.AlertFmt_Rollback, requestId, prev.Status, op, cause),
	); err != nil {
		s.metricService.Count(ctx, models.MetricName_NotifFailed, 1)
	}
}

func (s *LifecycleService) recordTransition(ctx context.Context, ownerScope, requestId string, from, to models.RequestStatus) {
	record := &models.TransitionRecord{
		Id:         uuid.New(),
		RequestId:  requestId,
		OwnerScope: ownerScope,
		From:       from,
		To:         to,
		Source:     models.TransitionSource_Local,
		CreatedAt:  time.Now(),
	}
	// The archive is best-effort; a write failure must not fail the transition.
	if err := s.history.RecordTransition(ctx, record); err != nil {
		s.logger.Errorf("lifecycle: error recording transition for request %s: %v", requestId, err)
	}
}

// sendUpdate hands a prefilled message to the coordination side-channel. Delivery
// failures are counted and swallowed.
func (s *LifecycleService) sendUpdate(title, content string) {
	if err := s.notifier.SendUpdate(title, content); err != nil {
		s.metricService.Count(context.Background(), models.MetricName_NotifFailed, 1)
		return
	}
	s.metricService.Count(context.Background(), models.MetricName_NotifSent, 1)
}
