package promise

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const standardOptionBody = `{"cart_delivery_options":{"delivery_options":[{"promise_id":"1","delivery_option_name":"Standard","text":"5-7 days"}]}}`

type stubDoer struct {
	err  error
	resp *http.Response
}

func (s *stubDoer) Do(_ *http.Request) (*http.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func jsonResponse(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestPanelFetchSuccess(t *testing.T) {
	reqs := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqs <- r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, standardOptionBody)
	}))
	defer srv.Close()

	panel := NewPanel(PanelConfig{Endpoint: srv.URL + "/delivery-options", Origin: "promise-widget-test"}, srv.Client())
	panel.SetSKU("3ME10101430M9")
	panel.SetPostalCode("78801")
	panel.SetRetailer("backcountry")

	status, err := panel.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Success: 200", status.String())

	var gotReq *http.Request
	select {
	case gotReq = <-reqs:
	default:
		t.Fatal("no request reached the server")
	}
	assert.Equal(t, http.MethodGet, gotReq.Method)
	assert.Equal(t, "/delivery-options", gotReq.URL.Path)
	assert.Equal(t, "backcountry", gotReq.Header.Get(HeaderRetailer))
	assert.Equal(t, "promise-widget-test", gotReq.Header.Get(HeaderOrigin))
	assert.Equal(t, "application/json", gotReq.Header.Get("Content-Type"))

	sent, err := DecodeQuery(gotReq.URL.Query().Get(QueryParam))
	require.NoError(t, err)
	assert.Equal(t, "3ME10101430M9", sent.SKU())
	assert.Equal(t, "78801", sent.Destination.PostalCode)

	snap := panel.Snapshot()
	assert.Empty(t, snap.Error)
	assert.Equal(t, 200, snap.ResponseCode)
	assert.JSONEq(t, standardOptionBody, string(snap.Response))
	require.Len(t, snap.DeliveryOptions, 1)
	assert.Equal(t, DeliveryOption{PromiseID: "1", Name: "Standard", Text: "5-7 days"}, snap.DeliveryOptions[0])
}

func TestPanelFetchRemoteErrorKeepsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"status":"error","messages":["invalid postal code"]}`)
	}))
	defer srv.Close()

	panel := NewPanel(PanelConfig{Endpoint: srv.URL}, srv.Client())
	status, err := panel.Fetch(context.Background())

	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusUnprocessableEntity, remote.StatusCode)
	assert.Equal(t, "remote_error", Kind(err))
	assert.Equal(t, "Error: 422", status.String())

	snap := panel.Snapshot()
	assert.Equal(t, "Error: 422", snap.StatusText)
	assert.Contains(t, string(snap.Response), "invalid postal code")
	assert.Empty(t, snap.DeliveryOptions)
}

func TestPanelFetchNetworkFailure(t *testing.T) {
	panel := NewPanel(PanelConfig{Endpoint: "http://promise.invalid/options"}, &stubDoer{err: errors.New("Failed to fetch")})

	status, err := panel.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, "network_failure", Kind(err))
	assert.Equal(t, "Failed: Failed to fetch", status.String())

	snap := panel.Snapshot()
	assert.Equal(t, "Failed: Failed to fetch", snap.StatusText)
	assert.Equal(t, "Failed to fetch", snap.Error)
	assert.Empty(t, snap.Response)
	assert.Empty(t, snap.DeliveryOptions)
}

func TestPanelFetchClearsPreviousResponse(t *testing.T) {
	doer := &stubDoer{resp: jsonResponse(200, standardOptionBody)}
	panel := NewPanel(PanelConfig{Endpoint: "http://promise.local/options"}, doer)

	_, err := panel.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, panel.Snapshot().DeliveryOptions, 1)

	doer.resp = nil
	doer.err = errors.New("connection refused")
	_, err = panel.Fetch(context.Background())
	require.Error(t, err)

	snap := panel.Snapshot()
	assert.Empty(t, snap.Response)
	assert.Empty(t, snap.DeliveryOptions)
	assert.Equal(t, "Failed: connection refused", snap.StatusText)
}

func TestPanelFetchInvalidJSON(t *testing.T) {
	panel := NewPanel(PanelConfig{Endpoint: "http://promise.local/options"},
		&stubDoer{resp: jsonResponse(502, "<html>bad gateway</html>")})

	status, err := panel.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusFailed, status.Kind)
	assert.True(t, strings.HasPrefix(status.String(), "Failed: invalid JSON response"))
	assert.Empty(t, panel.Snapshot().Response)
}

func TestPanelFetchUnwrapsURLError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	panel := NewPanel(PanelConfig{Endpoint: endpoint}, http.DefaultClient)
	status, err := panel.Fetch(context.Background())
	require.Error(t, err)
	assert.NotContains(t, status.Message, endpoint)
	assert.Equal(t, "network_failure", Kind(err))
}

func TestPanelClosedDropsLateResponse(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = io.WriteString(w, standardOptionBody)
	}))
	defer srv.Close()

	panel := NewPanel(PanelConfig{Endpoint: srv.URL}, srv.Client())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = panel.Fetch(context.Background())
	}()

	require.Eventually(t, func() bool {
		return panel.Snapshot().Status.Kind == StatusLoading
	}, time.Second, time.Millisecond)

	panel.Close()
	close(release)
	<-done

	snap := panel.Snapshot()
	assert.Equal(t, StatusLoading, snap.Status.Kind)
	assert.Empty(t, snap.Response)

	_, err := panel.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrPanelClosed)
}

func TestPanelConcurrentFetchesDoNotCorruptState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, standardOptionBody)
	}))
	defer srv.Close()

	panel := NewPanel(PanelConfig{Endpoint: srv.URL}, srv.Client())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				panel.SetPostalCode("7880" + string(rune('0'+i%10)))
			}
			_, _ = panel.Fetch(context.Background())
		}(i)
	}
	wg.Wait()

	snap := panel.Snapshot()
	assert.Equal(t, "Success: 200", snap.StatusText)
	assert.Len(t, snap.DeliveryOptions, 1)
}

func TestPanelEditsTouchOnlyTheirField(t *testing.T) {
	panel := NewPanel(PanelConfig{Endpoint: "http://promise.local/options"}, &stubDoer{})
	before := panel.Payload()

	panel.SetPostalCode("10001")
	afterPostal := panel.Payload()
	assert.Equal(t, "10001", afterPostal.Destination.PostalCode)
	assert.Equal(t, before.Items, afterPostal.Items)
	assert.Equal(t, before.Destination.Country, afterPostal.Destination.Country)
	assert.Equal(t, "backcountry", panel.Retailer())

	panel.SetSKU("NEWSKU1")
	afterSKU := panel.Payload()
	assert.Equal(t, "NEWSKU1", afterSKU.SKU())
	assert.Equal(t, "10001", afterSKU.Destination.PostalCode)
	assert.Equal(t, "3ME10101430M9", afterPostal.Items[0].SKU, "earlier copies must not see later edits")
	assert.Equal(t, "3ME10101430M9", before.Items[0].SKU)

	panel.SetRetailer("burton")
	assert.Equal(t, "burton", panel.Retailer())
	assert.Equal(t, afterSKU, panel.Payload())
}

func TestPanelSetSKUOnEmptyItems(t *testing.T) {
	payload := DefaultRequestPayload()
	payload.Items = nil
	panel := NewPanel(PanelConfig{Endpoint: "http://promise.local"}, &stubDoer{}, WithPayload(payload), WithRetailer("evo"))

	panel.SetSKU("ABC")
	got := panel.Payload()
	require.Len(t, got.Items, 1)
	assert.Equal(t, LineItem{SKU: "ABC", Quantity: 1}, got.Items[0])
	assert.Equal(t, "evo", panel.Retailer())
}

func TestPanelURLIsDerivedFromState(t *testing.T) {
	panel := NewPanel(PanelConfig{Endpoint: "https://promise.local/api/options?v=2"}, &stubDoer{})

	u1, err := panel.URL()
	require.NoError(t, err)
	panel.SetPostalCode("94105")
	u2, err := panel.URL()
	require.NoError(t, err)
	assert.NotEqual(t, u1, u2)

	snap := panel.Snapshot()
	assert.Equal(t, u2, snap.URL)
	assert.Contains(t, snap.URL, "v=2")

	q, err := panel.EncodedQuery()
	require.NoError(t, err)
	assert.Equal(t, q, snap.Query)
}
