package server

import (
	"errors"
	"net/http"

	"promise-harness/internal/logging"
	"promise-harness/internal/promise"

	validatorv10 "github.com/go-playground/validator/v10"
)

type Handler struct {
	harness     *promise.Harness
	validate    *validatorv10.Validate
	serviceName string
}

func NewHandler(harness *promise.Harness, serviceName string) *Handler {
	return &Handler{
		harness:     harness,
		validate:    NewValidator(),
		serviceName: serviceName,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Meta:    extractMeta(r.Context()),
	})
}

func (h *Handler) GetWidget(w http.ResponseWriter, r *http.Request) {
	view := h.harness.Widget()
	WriteSuccess(r.Context(), w, "Widget state retrieved", WidgetResponse{
		WidgetView: view,
		ParamsJSON: view.Debug.ParamsJSON(),
	})
}

func (h *Handler) GetPanel(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(r.Context(), w, "Panel state retrieved", h.harness.Panel.Snapshot())
}

func (h *Handler) UpdatePanel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PanelUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields, err := h.check(req); err != nil {
		WriteJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
			Fields:  fields,
			Meta:    extractMeta(ctx),
		})
		return
	}

	h.apply(req)
	WriteSuccess(ctx, w, "Panel updated", h.harness.Panel.Snapshot())
}

// FetchPanel sends the current request. The snapshot comes back either way so
// a caller sees the status and body the panel is now showing.
func (h *Handler) FetchPanel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.harness.Panel.Fetch(ctx)
	snap := h.harness.Panel.Snapshot()
	if err != nil {
		logging.Warn(ctx).Err(err).Str("kind", promise.Kind(err)).Msg("panel fetch did not succeed")
		WriteFailure(ctx, w, err, snap)
		return
	}

	WriteSuccess(ctx, w, status.String(), snap)
}

func (h *Handler) GetPanelURL(w http.ResponseWriter, r *http.Request) {
	snap := h.harness.Panel.Snapshot()
	if snap.URL == "" {
		WriteError(r.Context(), w, http.StatusInternalServerError, "Could not build request URL")
		return
	}
	WriteSuccess(r.Context(), w, "Request URL built", URLResponse{Query: snap.Query, URL: snap.URL})
}

// check returns field errors keyed by JSON name.
func (h *Handler) check(req PanelUpdateRequest) (map[string]string, error) {
	if req.empty() {
		return nil, errEmptyUpdate
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorsToMap(err), errors.New("validation failed")
	}
	return nil, nil
}

func (h *Handler) apply(req PanelUpdateRequest) {
	if req.Retailer != nil {
		h.harness.Panel.SetRetailer(*req.Retailer)
	}
	if req.PostalCode != nil {
		h.harness.Panel.SetPostalCode(*req.PostalCode)
	}
	if req.SKU != nil {
		h.harness.Panel.SetSKU(*req.SKU)
	}
}
