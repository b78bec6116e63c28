package http

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/validation"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ── Response ─────────────────────────────────────────────────────────────────

// Response wraps http.ResponseWriter with JSON helpers.
type Response struct {
	w http.ResponseWriter
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// Raw returns the underlying ResponseWriter.
func (res *Response) Raw() http.ResponseWriter { return res.w }

// ── JSON responses ────────────────────────────────────────────────────────────

// JSON sends a JSON response.
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(data)
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) {
	res.JSON(http.StatusOK, envelope{"data": v})
}

// Created sends 201 JSON: {"data": v}
func (res *Response) Created(v any) {
	res.JSON(http.StatusCreated, envelope{"data": v})
}

// NoContent sends 204 with no body.
func (res *Response) NoContent() {
	res.w.WriteHeader(http.StatusNoContent)
}

// Error sends a JSON error response.
//
//	res.Error(http.StatusNotFound, "Resource not found")
func (res *Response) Error(status int, message string) {
	res.JSON(status, envelope{"message": message})
}

// NotFound sends 404.
func (res *Response) NotFound(message ...string) {
	res.Error(http.StatusNotFound, first(message, "Not found."))
}

// ServerError sends 500.
func (res *Response) ServerError(message ...string) {
	res.Error(http.StatusInternalServerError, first(message, "Server Error."))
}

// ValidationError sends 422 with the error bag.
func (res *Response) ValidationError(errs *validation.Errors) {
	res.JSON(http.StatusUnprocessableEntity, errs)
}

// ResolutionError reports a failed container resolution:
// {"message": ..., "kind": ..., "request_id": ...}
func (res *Response) ResolutionError(err error, requestID string) {
	body := envelope{"message": err.Error(), "kind": container.Kind(err)}
	if requestID != "" {
		body["request_id"] = requestID
	}
	res.JSON(StatusFor(err), body)
}

// StatusFor maps an error to an HTTP status. Configuration errors of the
// container are server faults; a torn down injector is unavailable.
func StatusFor(err error) int {
	var bag *validation.Errors
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &bag):
		return http.StatusUnprocessableEntity
	case errors.Is(err, container.ErrInjectorTornDown):
		return http.StatusServiceUnavailable
	}
	switch container.Kind(err) {
	case "unresolved":
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}
