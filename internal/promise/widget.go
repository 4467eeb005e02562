package promise

import (
	"fmt"
	"sync"
	"time"
)

// FeaturePromiseWidget tags the placeholder the widget renders into and is
// also the command the entry point understands.
const FeaturePromiseWidget = "promiseWidget"

// Anchor is the page placeholder a widget mounts into.
type Anchor struct {
	feature string

	mu        sync.RWMutex
	mounted   bool
	params    WidgetParameters
	mountedAt time.Time
	renders   int
}

type AnchorSnapshot struct {
	Feature   string            `json:"feature"`
	Mounted   bool              `json:"mounted"`
	Params    *WidgetParameters `json:"params,omitempty"`
	MountedAt *time.Time        `json:"mounted_at,omitempty"`
	Renders   int               `json:"renders"`
}

func NewAnchor(feature string) *Anchor {
	return &Anchor{feature: feature}
}

func (a *Anchor) Feature() string {
	return a.feature
}

func (a *Anchor) Mount(params WidgetParameters) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mounted = true
	a.params = params
	a.mountedAt = time.Now()
	a.renders++
}

func (a *Anchor) Snapshot() AnchorSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap := AnchorSnapshot{Feature: a.feature, Mounted: a.mounted, Renders: a.renders}
	if a.mounted {
		params := a.params
		at := a.mountedAt
		snap.Params = &params
		snap.MountedAt = &at
	}
	return snap
}

// NewWidgetEntrypoint returns the entry point a loaded widget script exposes:
// it renders into anchor for the anchor's feature command and rejects any other.
func NewWidgetEntrypoint(anchor *Anchor) Entrypoint {
	return func(command string, params WidgetParameters) error {
		if command != anchor.Feature() {
			return fmt.Errorf("unknown command %q", command)
		}
		anchor.Mount(params)
		return nil
	}
}
