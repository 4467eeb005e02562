package promise

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeliveryOptions(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []DeliveryOption
	}{
		{
			name: "string_ids",
			body: standardOptionBody,
			want: []DeliveryOption{{PromiseID: "1", Name: "Standard", Text: "5-7 days"}},
		},
		{
			name: "numeric_ids_keep_order",
			body: `{"cart_delivery_options":{"delivery_options":[{"promise_id":7,"delivery_option_name":"Express","text":"2 days"},{"promise_id":"x","delivery_option_name":"Ground","text":"9 days"}]},"extra":true}`,
			want: []DeliveryOption{
				{PromiseID: "7", Name: "Express", Text: "2 days"},
				{PromiseID: "x", Name: "Ground", Text: "9 days"},
			},
		},
		{name: "error_shape", body: `{"status":"error"}`, want: nil},
		{name: "array_body", body: `[1,2,3]`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Response{StatusCode: 200, Body: json.RawMessage(tt.body)}
			assert.Equal(t, tt.want, r.DeliveryOptions())
		})
	}
}

func TestResponseNilSafe(t *testing.T) {
	var r *Response
	assert.Nil(t, r.DeliveryOptions())
	assert.Equal(t, "", r.Pretty())
}

func TestResponsePretty(t *testing.T) {
	r := &Response{Body: json.RawMessage(`{"a":1}`)}
	assert.Equal(t, "{\n  \"a\": 1\n}", r.Pretty())
}

func TestRequestStatusLabels(t *testing.T) {
	assert.Equal(t, "", RequestStatus{}.String())
	assert.Equal(t, "Fetching...", RequestStatus{Kind: StatusLoading}.String())
	assert.Equal(t, "Success: 201", statusForCode(201).String())
	assert.Equal(t, "Error: 500", statusForCode(500).String())
	assert.Equal(t, "Error: 302", statusForCode(302).String())
	assert.Equal(t, "Failed: boom", RequestStatus{Kind: StatusFailed, Message: "boom"}.String())
}
