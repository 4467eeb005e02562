package promise

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
)

const (
	HeaderRetailer = "x-narvar-retailer"
	HeaderOrigin   = "x-narvar-origin"
)

// Doer is the part of *http.Client the panel and loader use.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type PanelConfig struct {
	Endpoint string
	Origin   string
}

type PanelOption func(*Panel)

func WithRetailer(retailer string) PanelOption {
	return func(p *Panel) { p.retailer = retailer }
}

func WithPayload(payload RequestPayload) PanelOption {
	return func(p *Panel) { p.payload = payload.Clone() }
}

// Panel holds an editable delivery-options request and the outcome of the
// last call made with it.
//
// Fetch calls are not serialized: two overlapping calls both run and the one
// that finishes last owns the displayed status and response.
type Panel struct {
	cfg    PanelConfig
	client Doer

	mu       sync.Mutex
	retailer string
	payload  RequestPayload
	status   RequestStatus
	errMsg   string
	response *Response
	closed   bool
}

type PanelSnapshot struct {
	Retailer        string           `json:"retailer"`
	Payload         RequestPayload   `json:"payload"`
	Status          RequestStatus    `json:"status"`
	StatusText      string           `json:"status_text"`
	Error           string           `json:"error,omitempty"`
	ResponseCode    int              `json:"response_code,omitempty"`
	Response        json.RawMessage  `json:"response,omitempty"`
	DeliveryOptions []DeliveryOption `json:"delivery_options"`
	Query           string           `json:"query"`
	URL             string           `json:"url"`
}

func NewPanel(cfg PanelConfig, client Doer, opts ...PanelOption) *Panel {
	if client == nil {
		client = http.DefaultClient
	}
	p := &Panel{
		cfg:      cfg,
		client:   client,
		retailer: "backcountry",
		payload:  DefaultRequestPayload(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Panel) SetRetailer(retailer string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retailer = retailer
}

func (p *Panel) SetPostalCode(postalCode string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payload.Destination.PostalCode = postalCode
}

// SetSKU edits the first line item, adding one if the payload has none.
func (p *Panel) SetSKU(sku string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.payload.Items) == 0 {
		p.payload.Items = []LineItem{{SKU: sku, Quantity: 1}}
		return
	}
	items := make([]LineItem, len(p.payload.Items))
	copy(items, p.payload.Items)
	items[0].SKU = sku
	p.payload.Items = items
}

func (p *Panel) Retailer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.retailer
}

func (p *Panel) Payload() RequestPayload {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.payload.Clone()
}

func (p *Panel) EncodedQuery() (string, error) {
	return EncodeQuery(p.Payload())
}

func (p *Panel) URL() (string, error) {
	encoded, err := p.EncodedQuery()
	if err != nil {
		return "", err
	}
	return BuildURL(p.cfg.Endpoint, encoded)
}

// Close marks the panel as gone. Responses that arrive afterwards are dropped.
func (p *Panel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// Fetch sends the current request once. The returned error is nil for a 2xx
// response, a *RemoteError for any other status and a *NetworkError when no
// usable response came back. In every case the panel state already reflects
// the outcome.
func (p *Panel) Fetch(ctx context.Context) (RequestStatus, error) {
	status, _, err := p.fetch(ctx)
	return status, err
}

// fetch is Fetch that also hands back the response this call received, which
// may differ from what the panel shows once overlapping calls finish.
func (p *Panel) fetch(ctx context.Context) (RequestStatus, *Response, error) {
	p.mu.Lock()
	if p.closed {
		status := p.status
		p.mu.Unlock()
		return status, nil, ErrPanelClosed
	}
	payload := p.payload.Clone()
	retailer := p.retailer
	p.status = RequestStatus{Kind: StatusLoading}
	p.errMsg = ""
	p.response = nil
	p.mu.Unlock()

	resp, err := p.do(ctx, payload, retailer)
	if err != nil {
		return p.fail(err), nil, err
	}

	status := statusForCode(resp.StatusCode)
	p.update(func() {
		p.status = status
		p.response = resp
	})

	if status.Kind != StatusSuccess {
		return status, resp, &RemoteError{StatusCode: resp.StatusCode}
	}
	return status, resp, nil
}

func (p *Panel) do(ctx context.Context, payload RequestPayload, retailer string) (*Response, error) {
	encoded, err := EncodeQuery(payload)
	if err != nil {
		return nil, err
	}
	target, err := BuildURL(p.cfg.Endpoint, encoded)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderRetailer, retailer)
	req.Header.Set(HeaderOrigin, p.cfg.Origin)

	res, err := p.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: unwrapURLError(err)}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("read response: %w", err)}
	}

	var probe any
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("invalid JSON response: %w", err)}
	}

	return &Response{StatusCode: res.StatusCode, Body: json.RawMessage(body)}, nil
}

func (p *Panel) fail(err error) RequestStatus {
	status := RequestStatus{Kind: StatusFailed, Message: err.Error()}
	p.update(func() {
		p.status = status
		p.errMsg = err.Error()
		p.response = nil
	})
	return status
}

// update applies fn unless the panel has been closed.
func (p *Panel) update(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	fn()
}

func (p *Panel) Snapshot() PanelSnapshot {
	p.mu.Lock()
	snap := PanelSnapshot{
		Retailer: p.retailer,
		Payload:  p.payload.Clone(),
		Status:   p.status,
		Error:    p.errMsg,
	}
	resp := p.response
	p.mu.Unlock()

	snap.StatusText = snap.Status.String()
	if resp != nil {
		snap.ResponseCode = resp.StatusCode
		snap.Response = resp.Body
		snap.DeliveryOptions = resp.DeliveryOptions()
	}
	if encoded, err := EncodeQuery(snap.Payload); err == nil {
		snap.Query = encoded
		if u, err := BuildURL(p.cfg.Endpoint, encoded); err == nil {
			snap.URL = u
		}
	}
	return snap
}

// unwrapURLError drops the "Get <url>:" prefix net/http adds so the status
// shows the underlying cause.
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err
	}
	return err
}
