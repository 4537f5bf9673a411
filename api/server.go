package api

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/abevier/tsk/futures"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	servi "github.com/servimatch/go-servi"
	"github.com/servimatch/go-servi/models"
	"github.com/servimatch/go-servi/services"
)

// Lifecycle is the slice of the lifecycle service the API dispatches to.
type Lifecycle interface {
	Accept(ctx context.Context, ownerScope string, requestId string) error
	Reject(ctx context.Context, ownerScope string, requestId string) error
	Complete(ctx context.Context, ownerScope string, requestId string) error
	Schedule(ctx context.Context, requestId string, appt models.Appointment) (string, error)
	Rate(ctx context.Context, ownerScope string, requestId string, stars int, review string, photoPaths []string) error
	InFlight(requestId string) (*futures.Future[models.RequestStatus], bool)
}

// Server is the agent's local HTTP surface. UI processes drive the request
// lifecycle through it instead of talking to the backend directly, so the
// optimistic-update, revert, and serialization policies apply uniformly.
type Server struct {
	lifecycle Lifecycle
	cache     *services.RequestCache
	sessions  models.SessionRepository
	history   models.HistoryRepository
	logger    models.Logger
	server    *http.Server
}

func NewServer(
	lifecycle Lifecycle,
	cache *services.RequestCache,
	sessions models.SessionRepository,
	history models.HistoryRepository,
	logger models.Logger,
) *Server {
	s := &Server{
		lifecycle: lifecycle,
		cache:     cache,
		sessions:  sessions,
		history:   history,
		logger:    logger,
	}
	port := models.DefaultApiPort
	if configPort, found := os.LookupEnv(servi.Env_ApiPort); found {
		port = configPort
	}
	s.server = &http.Server{Addr: ":" + port, Handler: s.router()}
	return s
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	router.POST("/api/v1/session", s.login)
	router.DELETE("/api/v1/session", s.logout)

	authed := router.Group("/api/v1/scopes/:scope", s.sessionAuth())
	authed.GET("/requests", s.listRequests)
	authed.GET("/requests/history", s.scopeHistory)
	authed.POST("/requests/:id/accept", s.requireRole(models.SessionRole_Provider), s.accept)
	authed.POST("/requests/:id/reject", s.requireRole(models.SessionRole_Provider), s.reject)
	authed.POST("/requests/:id/complete", s.requireRole(models.SessionRole_Provider), s.complete)
	authed.PUT("/requests/:id/appointment", s.requireRole(models.SessionRole_Provider), s.schedule)
	authed.POST("/requests/:id/rating", s.requireRole(models.SessionRole_Client), s.rate)
	return router
}

// Run serves until the context is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("api: listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
