// Package api exposes the allocator over JSON/HTTP: request submission,
// release and read-only listings, plus the prometheus scrape endpoint.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/viant/carealloc/model"
	"github.com/viant/carealloc/occupancy"
	"github.com/viant/carealloc/service/allocator"
	"github.com/viant/carealloc/service/dao"
	"github.com/viant/carealloc/tracing"
	"go.uber.org/zap"
)

const (
	defaultPriority   = 3
	defaultEstMinutes = 60
)

// Allocator is the allocator surface served over HTTP
type Allocator interface {
	Submit(ctx context.Context, name string, priority, estMinutes int) (*model.Request, error)
	Release(ctx context.Context, allocationID int) (*model.Allocation, error)
	Resources(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Resource, error)
	Requests(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Request, error)
	ActiveAllocations(ctx context.Context) ([]*model.AllocationView, error)
	Occupancy(ctx context.Context) (occupancy.Counts, error)
}

type submitRequest struct {
	Name       string       `json:"name"`
	Priority   *json.Number `json:"priority"`
	EstMinutes *json.Number `json:"est_minutes"`
}

type releaseRequest struct {
	AllocationID *json.Number `json:"allocation_id"`
}

// Handler routes API calls to the allocator
type Handler struct {
	allocator Allocator
	logger    *zap.Logger
	router    chi.Router
}

// New creates a handler, metrics is mounted on /metrics when not nil.
func New(alloc Allocator, logger *zap.Logger, metrics http.Handler) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ret := &Handler{allocator: alloc, logger: logger}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer, traced)
	r.NotFound(notFoundHandler)
	r.MethodNotAllowed(methodNotAllowedHandler)
	r.Route("/api", func(r chi.Router) {
		r.Post("/request", ret.errh(ret.submit))
		r.Get("/requests", ret.errh(ret.requests))
		r.Get("/resources", ret.errh(ret.resources))
		r.Get("/allocations", ret.errh(ret.allocations))
		r.Post("/release", ret.errh(ret.release))
		r.Get("/occupancy", ret.errh(ret.occupancy))
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	ret.router = r
	return ret
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) error {
	input := &submitRequest{}
	if err := decode(r, input); err != nil {
		return err
	}
	priority, err := intOrDefault(input.Priority, "priority", defaultPriority)
	if err != nil {
		return err
	}
	estMinutes, err := intOrDefault(input.EstMinutes, "est_minutes", defaultEstMinutes)
	if err != nil {
		return err
	}
	request, err := h.allocator.Submit(r.Context(), input.Name, priority, estMinutes)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, map[string]int{"request_id": request.ID})
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) error {
	input := &releaseRequest{}
	if err := decode(r, input); err != nil {
		return err
	}
	if input.AllocationID == nil {
		return &allocator.ValidationError{Field: "allocation_id", Reason: "is required"}
	}
	id, err := intOrDefault(input.AllocationID, "allocation_id", 0)
	if err != nil {
		return err
	}
	if _, err = h.allocator.Release(r.Context(), id); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

func (h *Handler) requests(w http.ResponseWriter, r *http.Request) error {
	ret, err := h.allocator.Requests(r.Context(), statusParameters(r)...)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, nonNil(ret))
}

func (h *Handler) resources(w http.ResponseWriter, r *http.Request) error {
	ret, err := h.allocator.Resources(r.Context(), statusParameters(r)...)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, nonNil(ret))
}

func (h *Handler) allocations(w http.ResponseWriter, r *http.Request) error {
	ret, err := h.allocator.ActiveAllocations(r.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, nonNil(ret))
}

func (h *Handler) occupancy(w http.ResponseWriter, r *http.Request) error {
	ret, err := h.allocator.Occupancy(r.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, ret)
}

// errh maps handler errors to a status code and a JSON message
func (h *Handler) errh(fn func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		status := StatusOf(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		}
		if err = writeJSON(w, status, map[string]string{"message": err.Error()}); err != nil {
			h.logger.Warn("failed to encode error", zap.Error(err))
		}
	}
}

// StatusOf returns the HTTP status for an allocator error
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case allocator.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, dao.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, allocator.ErrAlreadyReleased):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func decode(r *http.Request, target interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return &allocator.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

func intOrDefault(value *json.Number, field string, defaultValue int) (int, error) {
	if value == nil {
		return defaultValue, nil
	}
	ret, err := value.Int64()
	if err != nil {
		return 0, &allocator.ValidationError{Field: field, Reason: fmt.Sprintf("expected integer, got %q", value.String())}
	}
	return int(ret), nil
}

func statusParameters(r *http.Request) []*dao.Parameter {
	statuses := r.URL.Query()["status"]
	if len(statuses) == 0 {
		return nil
	}
	return []*dao.Parameter{dao.WithStatus(statuses...)}
}

func nonNil[T any](items []*T) []*T {
	if items == nil {
		return []*T{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

func traced(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.StartSpan(r.Context(), "http "+r.Method+" "+r.URL.Path, tracing.KindServer)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		span.SetStatusFromHTTPCode(ww.Status())
		span.End()
	})
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusNotFound, map[string]string{"message": "page not found"})
}
