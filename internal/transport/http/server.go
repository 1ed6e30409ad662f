// Package http implements the HTTP transport layer for the service.
// It decodes incoming requests, calls the service layer and encodes the
// responses, with centralized error-to-status mapping.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/macromill/activity-insights/internal/apperrors"
	"github.com/macromill/activity-insights/internal/domain"
	"github.com/macromill/activity-insights/internal/service"
	"github.com/macromill/activity-insights/internal/validation"
	"github.com/macromill/activity-insights/pkg/logger/sl"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	log          *slog.Logger
	fetchService service.FetchService
	queryService service.QueryService
}

func NewServer(log *slog.Logger, fs service.FetchService, qs service.QueryService) *Server {
	return &Server{
		log:          log,
		fetchService: fs,
		queryService: qs,
	}
}

// Routes sets up the router with all middleware and API endpoints.
func (s *Server) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(s.requestID)
	mux.Use(s.logRequest)
	mux.Use(s.metricsMiddleware)

	mux.Handle("/metrics", promhttp.Handler())

	mux.Post("/query", s.PostQuery)
	mux.Post("/fetch", s.PostFetch)
	mux.Post("/fetch/all", s.PostFetchAll)
	mux.Get("/buckets", s.GetBuckets)
	mux.Delete("/buckets", s.DeleteBuckets)
	mux.Get("/ratelimit", s.GetRateLimit)

	return mux
}

// PostQuery answers a free-text question. The query service never fails, so
// this endpoint always responds 200 with a QueryResult; only an unreadable
// request body is a transport error.
func (s *Server) PostQuery(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.PostQuery"

	var req queryRequest
	if err := s.decode(r.Body, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	result := s.queryService.Run(r.Context(), req.Query)

	s.respond(w, http.StatusOK, result)
}

func (s *Server) PostFetch(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.PostFetch"

	var req fetchRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	bucket, err := s.fetchService.FetchBucket(
		r.Context(), req.Organization, domain.BucketKind(req.Kind),
		req.RangeStart, req.RangeEnd, req.Force,
	)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, map[string]*domain.FetchBucket{"bucket": bucket})
}

func (s *Server) PostFetchAll(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.PostFetchAll"

	var req fetchAllRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	results := s.fetchService.FetchAll(
		r.Context(), domain.BucketKind(req.Kind), req.RangeStart, req.RangeEnd, req.Force,
	)

	s.respond(w, http.StatusOK, map[string][]domain.OrgFetchResult{"results": results})
}

func (s *Server) GetBuckets(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.GetBuckets"

	org := r.URL.Query().Get("organization")
	if org == "" {
		s.handleServiceError(w, r, op,
			fmt.Errorf("%w: organization query parameter is required", apperrors.ErrInvalidRequest))
		return
	}

	kind := domain.BucketKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = domain.BucketMonth
	}

	if !kind.Valid() {
		s.handleServiceError(w, r, op,
			fmt.Errorf("%w: kind must be either 'week' or 'month'", apperrors.ErrInvalidRequest))
		return
	}

	buckets, err := s.fetchService.ListBuckets(r.Context(), org, kind)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{
		"organization": org,
		"kind":         kind,
		"buckets":      buckets,
	})
}

func (s *Server) DeleteBuckets(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.DeleteBuckets"

	var req deleteBucketRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	deleted, err := s.fetchService.DeleteBucket(
		r.Context(), req.Organization, domain.BucketKind(req.Kind), req.BucketKey,
	)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	if !deleted {
		s.handleServiceError(w, r, op,
			fmt.Errorf("%w: bucket '%s' for organization '%s'", apperrors.ErrNotFound, req.BucketKey, req.Organization))
		return
	}

	s.respond(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) GetRateLimit(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.GetRateLimit"

	status, err := s.fetchService.RateLimitStatus(r.Context())
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, status)
}

// respond encodes data to JSON and writes it with the given status code.
func (s *Server) respond(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.log.Error("failed to encode response", sl.Err(err))
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, code int, message string) {
	s.respond(w, code, map[string]string{"error": message})
}

// decodeAndValidate deserializes a JSON request body into a struct and runs
// validation checks on it.
func (s *Server) decodeAndValidate(r *http.Request, v interface{}) error {
	if err := s.decode(r.Body, v); err != nil {
		return err
	}

	if err := validation.ValidateStruct(v); err != nil {
		return err
	}

	return nil
}

func (s *Server) decode(body io.ReadCloser, v interface{}) error {
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, err)
	}

	return nil
}

// handleServiceError logs the internal error and maps it to a user-friendly
// HTTP response.
func (s *Server) handleServiceError(w http.ResponseWriter, _ *http.Request, op string, err error) {
	log := s.log.With(slog.String("op", op))
	log.Error("service error occurred", sl.Err(err))

	var (
		bucketExistsErr *apperrors.BucketAlreadyExistsError
		validationErr   *validation.ValidationError
	)

	switch {
	case errors.As(err, &validationErr):
		s.respondError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, apperrors.ErrInvalidRequest):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "resource not found")
	case errors.As(err, &bucketExistsErr):
		s.respondError(w, http.StatusConflict, bucketExistsErr.Error())
	case errors.Is(err, apperrors.ErrAlreadyExists):
		s.respondError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, apperrors.ErrRateLimited):
		s.respondError(w, http.StatusTooManyRequests, err.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
