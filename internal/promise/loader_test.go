package promise

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(url string, client Doer) (*ScriptLoader, *Globals, *Anchor) {
	globals := NewGlobals()
	anchor := NewAnchor(FeaturePromiseWidget)
	return &ScriptLoader{
		URL:             url,
		GlobalName:      "narvar",
		Globals:         globals,
		Entrypoint:      NewWidgetEntrypoint(anchor),
		Client:          client,
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
	}, globals, anchor
}

func TestLoaderRetriesThenRegisters(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "window.narvar = function(){};")
	}))
	defer srv.Close()

	loader, globals, _ := newTestLoader(srv.URL+"/widget.js", srv.Client())
	require.NoError(t, loader.Load(context.Background()))

	assert.Equal(t, int32(3), hits.Load())
	assert.True(t, globals.Defined("narvar"))
	assert.Equal(t, "window.narvar = function(){};", string(loader.Script()))
}

func TestLoaderDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	loader, globals, _ := newTestLoader(srv.URL+"/missing.js", srv.Client())
	err := loader.Load(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
	assert.Equal(t, int32(1), hits.Load())
	assert.False(t, globals.Defined("narvar"))
	assert.Nil(t, loader.Script())
}

func TestLoaderGivesUpAfterMaxAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	loader, globals, _ := newTestLoader(srv.URL, srv.Client())
	require.Error(t, loader.Load(context.Background()))
	assert.Equal(t, int32(3), hits.Load())
	assert.False(t, globals.Defined("narvar"))
}

func TestLoaderWithoutURLRegistersImmediately(t *testing.T) {
	loader, globals, _ := newTestLoader("", nil)
	require.NoError(t, loader.Load(context.Background()))
	assert.True(t, globals.Defined("narvar"))
}

func TestLoaderRequiresGlobals(t *testing.T) {
	loader := &ScriptLoader{GlobalName: "narvar"}
	assert.Error(t, loader.Load(context.Background()))
}

func TestLoaderFeedsPoller(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		_, _ = io.WriteString(w, "/* widget */")
	}))
	defer srv.Close()

	loader, globals, anchor := newTestLoader(srv.URL, srv.Client())
	params := DefaultWidgetParameters()
	poller := NewReadinessPoller(globals, params, fastConfig(5*time.Millisecond, 2*time.Second))
	require.NoError(t, poller.Activate(context.Background()))
	defer poller.Deactivate()

	require.NoError(t, loader.Load(context.Background()))

	snap := waitDone(t, poller)
	assert.Equal(t, StateReady, snap.State)
	mounted := anchor.Snapshot()
	require.True(t, mounted.Mounted)
	assert.Equal(t, params, *mounted.Params)
}
