package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"agenda/internal/availability"
	"agenda/internal/events"
	"agenda/internal/model"
)

// AvailabilityService computes slots and reports the business clock.
type AvailabilityService interface {
	AvailableSlots(ctx context.Context, req availability.Request) (*availability.Result, error)
	CurrentTime(ctx context.Context) availability.CurrentTime
	AppointmentBuffers() (before, after time.Duration)
}

// Store is the persistence the API writes through.
type Store interface {
	PingContext(ctx context.Context) error
	GetService(ctx context.Context, id string) (*model.Service, error)
	GetTeamMember(ctx context.Context, id string) (*model.TeamMember, error)
	BookAppointment(ctx context.Context, a *model.Appointment, before, after time.Duration) error
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id, status string) (*model.Appointment, error)
	GetTableNames(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error)
}

// Options configure the HTTP server.
type Options struct {
	Port               int
	APIKey             string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// HTTPServer exposes the agenda over JSON/HTTP.
type HTTPServer struct {
	server       *http.Server
	health       *http.ServeMux
	availability AvailabilityService
	store        Store
	bus          *events.EventBus
	redis        *redis.Client
	apiKey       string
	limiter      *rate.Limiter
	logger       *zerolog.Logger
	now          func() time.Time
}

// NewHTTPServer wires routes and middleware. bus and rdb may be nil.
func NewHTTPServer(opts Options, svc AvailabilityService, store Store, bus *events.EventBus, rdb *redis.Client, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &HTTPServer{
		availability: svc,
		store:        store,
		bus:          bus,
		redis:        rdb,
		apiKey:       opts.APIKey,
		logger:       logger,
		now:          time.Now,
	}
	if opts.RateLimitPerSecond > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = int(opts.RateLimitPerSecond) + 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitPerSecond), burst)
	}

	api := http.NewServeMux()
	api.HandleFunc("/api/v1/availability", s.handleAvailability)
	api.HandleFunc("/api/v1/time", s.handleTime)
	api.HandleFunc("/api/v1/report/availability.xlsx", s.handleAvailabilityReport)
	api.HandleFunc("/api/v1/report/tables.xlsx", s.handleTablesReport)
	api.HandleFunc("/api/v1/appointments", s.handleCreateAppointment)
	api.HandleFunc("/api/v1/appointments/{id}", s.handleGetAppointment)
	api.HandleFunc("/api/v1/appointments/{id}/status", s.handleAppointmentStatus)

	s.health = http.NewServeMux()
	s.health.HandleFunc("/healthz", s.handleHealth)
	s.health.HandleFunc("/readyz", s.handleReady)

	mux := http.NewServeMux()
	mux.Handle("/healthz", s.health)
	mux.Handle("/readyz", s.health)
	mux.Handle("/api/", s.withRateLimit(s.withAuth(api)))

	port := opts.Port
	if port == 0 {
		port = 8080
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.withRequestID(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler including middleware.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// HealthHandler serves /healthz and /readyz, for mounting on a separate port.
func (s *HTTPServer) HealthHandler() http.Handler {
	return s.health
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("api server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *HTTPServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		next.ServeHTTP(rec, r)

		s.logger.Debug().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(started)).
			Msg("http request")
	})
}

func (s *HTTPServer) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" {
			key := r.Header.Get("x-api-key")
			if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctxPing, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()
	if err := s.store.PingContext(ctxPing); err != nil {
		http.Error(w, "db not ready", http.StatusServiceUnavailable)
		return
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctxPing).Err(); err != nil {
			http.Error(w, "redis not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, availability.ErrInvalidRequest),
		errors.Is(err, availability.ErrServiceInactive):
		return http.StatusBadRequest
	case errors.Is(err, availability.ErrServiceNotFound),
		errors.Is(err, availability.ErrTeamMemberNotFound),
		errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func (s *HTTPServer) publish(eventType string, payload any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("publish failed")
	}
}
