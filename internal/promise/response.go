package promise

import (
	"bytes"
	"encoding/json"
)

type DeliveryOption struct {
	PromiseID string `json:"promise_id"`
	Name      string `json:"delivery_option_name"`
	Text      string `json:"text"`
}

// UnmarshalJSON accepts promise_id as either a string or a number.
func (d *DeliveryOption) UnmarshalJSON(b []byte) error {
	var aux struct {
		PromiseID json.RawMessage `json:"promise_id"`
		Name      string          `json:"delivery_option_name"`
		Text      string          `json:"text"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	d.Name = aux.Name
	d.Text = aux.Text
	d.PromiseID = ""

	id := bytes.TrimSpace(aux.PromiseID)
	switch {
	case len(id) == 0 || bytes.Equal(id, []byte("null")):
	case id[0] == '"':
		if err := json.Unmarshal(id, &d.PromiseID); err != nil {
			return err
		}
	default:
		d.PromiseID = string(id)
	}
	return nil
}

// Response is the parsed body of one delivery-options call. Only the
// delivery_options list is interpreted; the rest is kept verbatim.
type Response struct {
	StatusCode int
	Body       json.RawMessage
}

func (r *Response) DeliveryOptions() []DeliveryOption {
	if r == nil || len(r.Body) == 0 {
		return nil
	}
	var env struct {
		CartDeliveryOptions struct {
			DeliveryOptions []DeliveryOption `json:"delivery_options"`
		} `json:"cart_delivery_options"`
	}
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return nil
	}
	return env.CartDeliveryOptions.DeliveryOptions
}

// Pretty returns the body indented for display.
func (r *Response) Pretty() string {
	if r == nil || len(r.Body) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, r.Body, "", "  "); err != nil {
		return string(r.Body)
	}
	return buf.String()
}
