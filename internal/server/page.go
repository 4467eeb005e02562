package server

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"

	"promise-harness/internal/logging"
	"promise-harness/internal/promise"
)

//go:embed templates/index.html
var indexHTML string

var pageTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"yesNo": func(b bool) string {
		if b {
			return "Yes"
		}
		return "No"
	},
}).Parse(indexHTML))

type Product struct {
	Name  string
	Price string
	SKU   string
}

var mockProduct = Product{Name: "Burton Snowboard", Price: "$1,149.90", SKU: "BURZ9S1"}

type pageData struct {
	Product    Product
	Feature    string
	GlobalName string
	Widget     promise.WidgetView
	ParamsJSON string
	Panel      promise.PanelSnapshot
	Pretty     string
	FormError  string
	Fields     map[string]string
}

func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, "", nil)
}

// PageUpdate handles the panel form. Blank inputs leave the field unchanged.
func (h *Handler) PageUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderPage(w, r, http.StatusBadRequest, "Invalid form", nil)
		return
	}

	var req PanelUpdateRequest
	req.Retailer = formValue(r, "retailer")
	req.PostalCode = formValue(r, "postal_code")
	req.SKU = formValue(r, "sku")

	if fields, err := h.check(req); err != nil {
		h.renderPage(w, r, http.StatusBadRequest, err.Error(), fields)
		return
	}
	h.apply(req)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) PageFetch(w http.ResponseWriter, r *http.Request) {
	if _, err := h.harness.Panel.Fetch(r.Context()); err != nil {
		logging.Debug(r.Context()).Err(err).Msg("page fetch did not succeed")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, formErr string, fields map[string]string) {
	view := h.harness.Widget()
	snap := h.harness.Panel.Snapshot()

	data := pageData{
		Product:    mockProduct,
		Feature:    h.harness.Anchor.Feature(),
		GlobalName: h.harness.Poller.Config().GlobalName,
		Widget:     view,
		ParamsJSON: view.Debug.ParamsJSON(),
		Panel:      snap,
		FormError:  formErr,
		Fields:     fields,
	}
	if len(snap.Response) > 0 {
		data.Pretty = (&promise.Response{StatusCode: snap.ResponseCode, Body: snap.Response}).Pretty()
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		logging.Error(r.Context()).Err(err).Msg("render page")
		WriteError(r.Context(), w, http.StatusInternalServerError, "Could not render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func formValue(r *http.Request, key string) *string {
	v := r.PostFormValue(key)
	if v == "" {
		return nil
	}
	return &v
}
