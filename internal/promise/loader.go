package promise

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"promise-harness/internal/logging"
	"promise-harness/internal/telemetry"

	"github.com/cenkalti/backoff/v5"
)

// ScriptLoader downloads the widget script and, once it has it, publishes the
// widget entry point under GlobalName. Pollers watching Globals see the entry
// point appear at that moment.
type ScriptLoader struct {
	URL             string
	GlobalName      string
	Globals         *Globals
	Entrypoint      Entrypoint
	Client          Doer
	MaxAttempts     uint
	InitialInterval time.Duration
	Metrics         *telemetry.HarnessMetrics

	mu     sync.RWMutex
	script []byte
}

// Load fetches the script with exponential backoff. 4xx responses are not
// retried. With no URL configured the entry point is published immediately.
func (l *ScriptLoader) Load(ctx context.Context) error {
	if l.Globals == nil || l.Entrypoint == nil {
		return fmt.Errorf("script loader: globals and entrypoint are required")
	}
	if l.URL == "" {
		logging.Info(ctx).Str("global", l.GlobalName).Msg("no widget script url configured, publishing entry point directly")
		l.Globals.Register(l.GlobalName, l.Entrypoint)
		return nil
	}

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	attempts := l.MaxAttempts
	if attempts == 0 {
		attempts = 3
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.InitialInterval
	if bo.InitialInterval <= 0 {
		bo.InitialInterval = 500 * time.Millisecond
	}
	bo.MaxInterval = 5 * time.Second

	var attempt int
	script, err := backoff.Retry(ctx, func() ([]byte, error) {
		attempt++
		if l.Metrics != nil {
			l.Metrics.ScriptLoadAttempt.Add(ctx, 1)
		}
		body, err := l.fetch(ctx, client)
		if err != nil {
			logging.Warn(ctx).Err(err).Int("attempt", attempt).Str("url", l.URL).Msg("widget script download failed")
			return nil, err
		}
		return body, nil
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(attempts),
	)
	if err != nil {
		return fmt.Errorf("load widget script from %s: %w", l.URL, err)
	}

	l.mu.Lock()
	l.script = script
	l.mu.Unlock()

	l.Globals.Register(l.GlobalName, l.Entrypoint)
	logging.Info(ctx).Str("global", l.GlobalName).Int("bytes", len(script)).Int("attempts", attempt).Msg("widget script loaded")
	return nil
}

func (l *ScriptLoader) fetch(ctx context.Context, client Doer) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, unwrapURLError(err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 && res.StatusCode < 500 {
		return nil, backoff.Permanent(fmt.Errorf("unexpected status %d", res.StatusCode))
	}
	if res.StatusCode >= 500 {
		return nil, fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	return io.ReadAll(res.Body)
}

// Script returns the downloaded script, or nil before a successful Load.
func (l *ScriptLoader) Script() []byte {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.script
}
