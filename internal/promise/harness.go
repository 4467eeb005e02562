package promise

import (
	"context"
	"encoding/json"
)

// APIPanel is what the shell and the HTTP server need from a panel. Both
// *Panel and *InstrumentedPanel satisfy it.
type APIPanel interface {
	Fetch(ctx context.Context) (RequestStatus, error)
	Snapshot() PanelSnapshot
	SetRetailer(retailer string)
	SetPostalCode(postalCode string)
	SetSKU(sku string)
}

// Harness places the widget side and the API panel next to each other. The
// two halves share nothing.
type Harness struct {
	Globals *Globals
	Anchor  *Anchor
	Poller  *ReadinessPoller
	Panel   APIPanel
}

type DebugInfo struct {
	ScriptLoaded        bool             `json:"script_loaded"`
	EntrypointAvailable bool             `json:"entrypoint_available"`
	Params              WidgetParameters `json:"params"`
}

// ParamsJSON renders the widget parameters the way the debug section shows them.
func (d DebugInfo) ParamsJSON() string {
	b, err := json.MarshalIndent(d.Params, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

type WidgetView struct {
	Poller PollerSnapshot `json:"poller"`
	Anchor AnchorSnapshot `json:"anchor"`
	Debug  DebugInfo      `json:"debug"`
}

func (h *Harness) Widget() WidgetView {
	snap := h.Poller.Snapshot()
	return WidgetView{
		Poller: snap,
		Anchor: h.Anchor.Snapshot(),
		Debug: DebugInfo{
			ScriptLoaded:        snap.ScriptLoaded,
			EntrypointAvailable: h.Globals.Defined(h.Poller.Config().GlobalName),
			Params:              h.Poller.Params(),
		},
	}
}
