package server

import (
	"context"
	"encoding/json"
	"net/http"

	"promise-harness/internal/promise"

	"go.opentelemetry.io/otel/trace"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Kind    string            `json:"kind,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Meta    *Meta             `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// PanelUpdateRequest edits the API panel. Absent fields are left alone.
type PanelUpdateRequest struct {
	Retailer   *string `json:"retailer" validate:"omitempty,min=1,max=64"`
	PostalCode *string `json:"postal_code" validate:"omitempty,min=3,max=10,alphanum"`
	SKU        *string `json:"sku" validate:"omitempty,min=1,max=64"`
}

func (r PanelUpdateRequest) empty() bool {
	return r.Retailer == nil && r.PostalCode == nil && r.SKU == nil
}

type URLResponse struct {
	Query string `json:"query"`
	URL   string `json:"url"`
}

type WidgetResponse struct {
	promise.WidgetView
	ParamsJSON string `json:"params_json"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}

// WriteFailure reports a domain error with its kind and, when given, the
// state that was left behind.
func WriteFailure(ctx context.Context, w http.ResponseWriter, err error, data any) {
	WriteJSON(w, statusFor(err), Response{
		Success: false,
		Error:   err.Error(),
		Kind:    promise.Kind(err),
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}
